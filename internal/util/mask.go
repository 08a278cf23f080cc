package util

import "strings"

// MaskAddress acorta una dirección para mostrarla: 0x27b1…1c26.
func MaskAddress(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}

// MaskToken deja ver solo el final del token; nunca se imprime completo.
func MaskToken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return "…" + s[len(s)-6:]
}
