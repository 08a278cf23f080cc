// Package auth contiene DTOs del login por wallet.
package auth

import "time"

type NonceResponse struct {
	Nonce string `json:"nonce"`
}

type WalletLoginRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type WalletLoginResponse struct {
	Token     string    `json:"token"`
	Address   string    `json:"address"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type MeResponse struct {
	Address string `json:"address"`
}
