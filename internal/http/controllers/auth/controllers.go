// Package auth contiene los controllers del login por wallet.
package auth

import svc "github.com/dropDatabas3/skillspassport/internal/http/services/auth"

type Controllers struct {
	Nonce *NonceController
	Login *LoginController
	Me    *MeController
}

func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Nonce: NewNonceController(s.Wallet),
		Login: NewLoginController(s.Wallet),
		Me:    NewMeController(),
	}
}
