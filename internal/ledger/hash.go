package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// HashAlg identifica el digest usado para encadenar entries.
type HashAlg string

const (
	HashSHA256  HashAlg = "sha256"
	HashBLAKE2b HashAlg = "blake2b"
	// HashLegacy32 es el rolling hash de 32 bits de los ledgers exportados
	// por la app de navegador. Entries sin hashAlg se leen con este.
	HashLegacy32 HashAlg = "legacy32"
)

// DefaultHashAlg se usa para entries nuevos cuando no se configura otro.
const DefaultHashAlg = HashSHA256

// ParseHashAlg valida un nombre de algoritmo. Vacío => DefaultHashAlg.
func ParseHashAlg(s string) (HashAlg, error) {
	switch a := HashAlg(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return DefaultHashAlg, nil
	case HashSHA256, HashBLAKE2b, HashLegacy32:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHash, s)
	}
}

func (a HashAlg) effective() HashAlg {
	if a == "" {
		return HashLegacy32
	}
	return a
}

// Sum calcula el digest "0x..." de payload.
func (a HashAlg) Sum(payload []byte) (string, error) {
	switch a.effective() {
	case HashSHA256:
		sum := sha256.Sum256(payload)
		return "0x" + hex.EncodeToString(sum[:]), nil
	case HashBLAKE2b:
		sum := blake2b.Sum256(payload)
		return "0x" + hex.EncodeToString(sum[:]), nil
	case HashLegacy32:
		return legacy32(string(payload)), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHash, string(a))
	}
}

// legacy32: h = (h<<5) - h + unidad UTF-16, con wrap a int32.
func legacy32(s string) string {
	var h int32
	for _, cu := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(cu)
	}
	return fmt.Sprintf("0x%08x", uint32(h))
}

// credentialPayload fija el orden de claves del payload hasheado.
type credentialPayload struct {
	ID              string `json:"id"`
	InstitutionName string `json:"institutionName"`
	StudentName     string `json:"studentName"`
	StudentWallet   string `json:"studentWallet"`
	CourseName      string `json:"courseName"`
	IssueDate       string `json:"issueDate"`
	ExpiryDate      string `json:"expiryDate"`
	IssuerAddress   string `json:"issuerAddress,omitempty"`
	PreviousHash    string `json:"previousHash"`
}

type revocationPayload struct {
	ID           string `json:"id"`
	CredentialID string `json:"credentialId"`
	RevokedBy    string `json:"revokedBy"`
	RevokedAt    string `json:"revokedAt"`
	Reason       string `json:"reason"`
	PreviousHash string `json:"previousHash"`
}

// timestampLayout: milisegundos fijos, igual que Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// canonicalJSON serializa como JSON.stringify: sin escapar HTML, con U+2028
// y U+2029 literales y sin newline final.
func canonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// unescapeLineSeparators reemplaza los escapes \u2028 y \u2029 que agrega
// encoding/json. Toda '\\' en la salida abre un escape, así que se saltea de
// a pares y un "\\u2028" literal queda intacto.
func unescapeLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if rest := b[i+1:]; bytes.HasPrefix(rest, []byte("u2028")) || bytes.HasPrefix(rest, []byte("u2029")) {
			out = utf8.AppendRune(out, rune(0x2028+int(rest[4]-'8')))
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// CanonicalPayload devuelve los bytes que se hashean para c.
func (c *Credential) CanonicalPayload() ([]byte, error) {
	return canonicalJSON(credentialPayload{
		ID:              c.ID,
		InstitutionName: c.InstitutionName,
		StudentName:     c.StudentName,
		StudentWallet:   c.StudentWallet,
		CourseName:      c.CourseName,
		IssueDate:       c.IssueDate,
		ExpiryDate:      c.ExpiryDate,
		IssuerAddress:   c.IssuerAddress,
		PreviousHash:    c.PreviousHash,
	})
}

// ComputeHash recalcula el hash con el algoritmo registrado en c.
func (c *Credential) ComputeHash() (string, error) {
	p, err := c.CanonicalPayload()
	if err != nil {
		return "", err
	}
	return c.HashAlg.Sum(p)
}

func (r *Revocation) CanonicalPayload() ([]byte, error) {
	return canonicalJSON(revocationPayload{
		ID:           r.ID,
		CredentialID: r.CredentialID,
		RevokedBy:    r.RevokedBy,
		RevokedAt:    formatTimestamp(r.RevokedAt),
		Reason:       r.Reason,
		PreviousHash: r.PreviousHash,
	})
}

func (r *Revocation) ComputeHash() (string, error) {
	p, err := r.CanonicalPayload()
	if err != nil {
		return "", err
	}
	// las revocaciones siempre registran su algoritmo
	alg := r.HashAlg
	if alg == "" {
		alg = DefaultHashAlg
	}
	return alg.Sum(p)
}

// ComputeHash recalcula el hash del entry según su tipo.
func (e Entry) ComputeHash() (string, error) {
	switch {
	case e.Type == EntryCredential && e.Credential != nil:
		return e.Credential.ComputeHash()
	case e.Type == EntryRevocation && e.Revocation != nil:
		return e.Revocation.ComputeHash()
	}
	return "", fmt.Errorf("ledger: malformed entry of type %q", e.Type)
}
