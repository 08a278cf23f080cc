// Package wallet valida direcciones Ethereum y recupera el firmante de
// mensajes firmados con personal_sign (EIP-191).
package wallet

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidAddress   = errors.New("wallet: invalid address")
	ErrInvalidSignature = errors.New("wallet: invalid signature")
	ErrInvalidKey       = errors.New("wallet: invalid private key")
)

// IsAddress reporta si s es una dirección hex de 20 bytes con prefijo 0x.
// No exige checksum EIP-55.
func IsAddress(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return common.IsHexAddress(s)
}

// Normalize devuelve la forma canónica (minúsculas) de una dirección válida.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsAddress(s) {
		return "", ErrInvalidAddress
	}
	return strings.ToLower(s), nil
}

// Equal compara dos direcciones sin distinguir mayúsculas.
func Equal(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// RecoverAddress recupera la dirección (minúsculas) que firmó message con
// personal_sign. Acepta firmas de 65 bytes r||s||v con v en {0,1,27,28}.
func RecoverAddress(message, signatureHex string) (string, error) {
	sig, err := hexutil.Decode(strings.TrimSpace(signatureHex))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidSignature, crypto.SignatureLength, len(sig))
	}

	// no mutar el slice del caller
	sig = append([]byte(nil), sig...)
	switch sig[crypto.RecoveryIDOffset] {
	case 27, 28:
		sig[crypto.RecoveryIDOffset] -= 27
	case 0, 1:
	default:
		return "", fmt.Errorf("%w: bad recovery id %d", ErrInvalidSignature, sig[crypto.RecoveryIDOffset])
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pub).Hex()), nil
}

// SignMessage firma message con personal_sign y devuelve la firma en hex
// con v en {27,28}, igual que las wallets de navegador.
func SignMessage(key *ecdsa.PrivateKey, message string) (string, error) {
	if key == nil {
		return "", ErrInvalidKey
	}
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// ParsePrivateKey acepta una clave secp256k1 en hex, con o sin 0x.
func ParsePrivateKey(h string) (*ecdsa.PrivateKey, error) {
	h = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(h), "0x"), "0X")
	key, err := crypto.HexToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// AddressOf devuelve la dirección (minúsculas) de una clave privada.
func AddressOf(key *ecdsa.PrivateKey) string {
	return strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
}

// NewKey genera una clave nueva. Usado por tests y por el CLI.
func NewKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// Lower es Normalize sin validar; para direcciones ya chequeadas con IsAddress.
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
