package errors

import (
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la API.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"` // No se serializa, usado para el header
	Err        error  `json:"-"` // Causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
	}
}

// Wrap crea un AppError envolviendo un error existente
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: status,
		Err:        err,
	}
}

// WithDetail devuelve una COPIA con detalle, para no mutar los errores base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// ERRORES PREDEFINIDOS
// Los mensajes son los que ya consumen los clientes existentes; no cambiarlos.
// =================================================================================

// ---------------------------------------------------------------------------------
// 400 Bad Request
// ---------------------------------------------------------------------------------

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "bad request",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "invalid json body",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidAddress = &AppError{
		Code:       "INVALID_ADDRESS",
		Message:    "invalid address",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "address & signature required",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNonceNotFound = &AppError{
		Code:       "NONCE_NOT_FOUND",
		Message:    "nonce not found. request /api/nonce first",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrNonceExpired = &AppError{
		Code:       "NONCE_EXPIRED",
		Message:    "nonce expired. request a new one",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidSignature = &AppError{
		Code:       "INVALID_SIGNATURE",
		Message:    "invalid signature",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrSignatureMismatch = &AppError{
		Code:       "SIGNATURE_MISMATCH",
		Message:    "signature does not match address",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidCredential = &AppError{
		Code:       "INVALID_CREDENTIAL",
		Message:    "invalid credential data",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidParameter = &AppError{
		Code:       "INVALID_PARAMETER",
		Message:    "invalid parameter",
		HTTPStatus: http.StatusBadRequest,
	}
)

// ---------------------------------------------------------------------------------
// 401 / 403
// ---------------------------------------------------------------------------------

var (
	ErrTokenMissing = &AppError{
		Code:       "TOKEN_MISSING",
		Message:    "missing token",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenInvalid = &AppError{
		Code:       "TOKEN_INVALID",
		Message:    "invalid token",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrNotAnIssuer = &AppError{
		Code:       "NOT_AN_ISSUER",
		Message:    "address is not a registered issuer on-chain",
		HTTPStatus: http.StatusForbidden,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "not authorized",
		HTTPStatus: http.StatusForbidden,
	}
)

// ---------------------------------------------------------------------------------
// 404 / 405 / 409 / 429
// ---------------------------------------------------------------------------------

var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "credential not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrRouteNotFound = &AppError{
		Code:       "ROUTE_NOT_FOUND",
		Message:    "route not found",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "method not allowed",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrAlreadyRevoked = &AppError{
		Code:       "ALREADY_REVOKED",
		Message:    "credential already revoked",
		HTTPStatus: http.StatusConflict,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "ledger changed concurrently, retry",
		HTTPStatus: http.StatusConflict,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "too many requests",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// ---------------------------------------------------------------------------------
// 500+
// ---------------------------------------------------------------------------------

var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "server error",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrChainNotConfigured = &AppError{
		Code:       "CHAIN_NOT_CONFIGURED",
		Message:    "on-chain provider or contract not configured on server",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrChainUnavailable = &AppError{
		Code:       "CHAIN_UNAVAILABLE",
		Message:    "on-chain verification failed",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrPersistence = &AppError{
		Code:       "PERSISTENCE_ERROR",
		Message:    "could not persist ledger",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "service unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
