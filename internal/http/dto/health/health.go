// Package health contiene DTOs de health checks.
package health

// HealthResponse es la respuesta de /readyz.
type HealthResponse struct {
	Status     string            `json:"status"` // "ready", "degraded", "unavailable"
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
	Ledger     *LedgerInfo       `json:"ledger,omitempty"`
}

type LedgerInfo struct {
	Driver  string `json:"driver"`
	Entries int    `json:"entries"`
	Head    string `json:"head"`
}
