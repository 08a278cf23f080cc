package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field permite armar listas de campos sin importar zap.
type Field = zap.Field

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }

func Method(v string) zap.Field { return zap.String("method", v) }

func Path(v string) zap.Field { return zap.String("path", v) }

// Route es el patrón de chi, no el path concreto.
func Route(v string) zap.Field { return zap.String("route", v) }

func Status(v int) zap.Field { return zap.Int("status", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - NEGOCIO
// =================================================================================

// Address es la wallet del caller (issuer autenticado o quien pide nonce).
func Address(v string) zap.Field { return zap.String("address", v) }

// Wallet es la wallet del estudiante.
func Wallet(v string) zap.Field { return zap.String("wallet", v) }

func CredentialID(v string) zap.Field { return zap.String("credential_id", v) }

// EntryIndex es la posición de un entry en la cadena.
func EntryIndex(v int) zap.Field { return zap.Int("entry_index", v) }

func Hash(v string) zap.Field { return zap.String("hash", v) }

// Outcome resume el resultado de un intento (auth, chain call).
func Outcome(v string) zap.Field { return zap.String("outcome", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación actual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (controller, service, store).
func Layer(v string) zap.Field { return zap.String("layer", v) }

func Err(err error) zap.Field { return zap.Error(err) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }

func Count(v int) zap.Field { return zap.Int("count", v) }

func Any(key string, v any) zap.Field { return zap.Any(key, v) }

func String(key, v string) zap.Field { return zap.String(key, v) }

func Int(key string, v int) zap.Field { return zap.Int(key, v) }

func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
