package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/skillspassport/internal/auth"
	"github.com/dropDatabas3/skillspassport/internal/ledger"
)

// FromError convierte cualquier error en un AppError. Los sentinels de dominio
// se traducen a su error HTTP; lo demás es 500 conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var fieldErr *ledger.FieldError
	switch {
	case err == nil:
		return ErrInternalServerError

	// auth
	case stderrors.Is(err, auth.ErrMissingFields):
		return ErrMissingFields.WithCause(err)
	case stderrors.Is(err, auth.ErrInvalidAddress):
		return ErrInvalidAddress.WithCause(err)
	case stderrors.Is(err, auth.ErrNonceNotFound):
		return ErrNonceNotFound.WithCause(err)
	case stderrors.Is(err, auth.ErrNonceExpired):
		return ErrNonceExpired.WithCause(err)
	case stderrors.Is(err, auth.ErrInvalidSignature):
		return ErrInvalidSignature.WithCause(err)
	case stderrors.Is(err, auth.ErrSignatureMismatch):
		return ErrSignatureMismatch.WithCause(err)
	case stderrors.Is(err, auth.ErrNotAnIssuer):
		return ErrNotAnIssuer.WithCause(err)
	case stderrors.Is(err, auth.ErrChainNotConfigured):
		return ErrChainNotConfigured.WithCause(err)
	case stderrors.Is(err, auth.ErrChainUnavailable):
		return ErrChainUnavailable.WithCause(err)
	case stderrors.Is(err, auth.ErrInvalidToken):
		return ErrTokenInvalid.WithCause(err)

	// ledger
	case stderrors.As(err, &fieldErr):
		return ErrInvalidCredential.WithDetail(fieldErr.Error()).WithCause(err)
	case stderrors.Is(err, ledger.ErrInvalidCredential):
		return ErrInvalidCredential.WithCause(err)
	case stderrors.Is(err, ledger.ErrUnauthorized):
		return ErrForbidden.WithCause(err)
	case stderrors.Is(err, ledger.ErrNotFound):
		return ErrNotFound.WithCause(err)
	case stderrors.Is(err, ledger.ErrAlreadyRevoked):
		return ErrAlreadyRevoked.WithCause(err)
	case stderrors.Is(err, ledger.ErrConflict):
		return ErrConflict.WithCause(err)
	case stderrors.Is(err, ledger.ErrPersistence):
		return ErrPersistence.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}

// WriteError escribe {"error": ..., "code": ...} con el status del AppError.
// La causa nunca se expone al cliente.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}
