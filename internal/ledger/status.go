package ledger

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ComputeStatus deriva el estado efectivo de c al instante now.
// Prioridad: revoked > expired > active. nil => notfound.
// La expiración compara solo fechas, en la zona de now: una credencial que
// vence hoy sigue activa hasta mañana.
func ComputeStatus(c *Credential, now time.Time) Status {
	if c == nil {
		return StatusNotFound
	}
	if c.Status == StatusRevoked {
		return StatusRevoked
	}
	if exp, ok := parseDate(c.ExpiryDate, now.Location()); ok {
		if exp.Before(midnight(now)) {
			return StatusExpired
		}
	}
	return StatusActive
}

// parseDate acepta YYYY-MM-DD o RFC3339 y devuelve la medianoche de ese día
// en loc. Fechas vacías o ilegibles no vencen.
func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return midnight(t.In(loc)), true
	}
	return time.Time{}, false
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
