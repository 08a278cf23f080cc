package ledger

import "errors"

var (
	// ErrUnauthorized: el caller no fue autorizado como issuer. Nunca hay mutación.
	ErrUnauthorized = errors.New("ledger: caller is not an authorized issuer")
	// ErrInvalidCredential: faltan campos o tienen formato inválido.
	ErrInvalidCredential = errors.New("ledger: invalid credential data")
	ErrNotFound          = errors.New("ledger: credential not found")
	ErrAlreadyRevoked    = errors.New("ledger: credential already revoked")
	// ErrConflict: el entry no enlaza con la cabeza actual del storage
	// (otro proceso escribió en el medio) o su id ya existe.
	ErrConflict = errors.New("ledger: chain head moved or duplicate entry")
	// ErrPersistence envuelve fallas del storage. Memoria y storage quedan
	// como estaban antes de la llamada.
	ErrPersistence = errors.New("ledger: persistence failure")
	ErrUnknownHash = errors.New("ledger: unknown hash algorithm")
)
