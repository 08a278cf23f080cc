package ledger

import (
	"strings"
	"time"
)

// Genesis es el previousHash del primer entry de la cadena.
const Genesis = "GENESIS"

type Status string

const (
	StatusActive   Status = "active"
	StatusExpired  Status = "expired"
	StatusRevoked  Status = "revoked"
	StatusNotFound Status = "notfound"
)

// CredentialData son los campos que carga el issuer al mintear.
type CredentialData struct {
	InstitutionName string `json:"institutionName"`
	StudentName     string `json:"studentName"`
	StudentWallet   string `json:"studentWallet"`
	CourseName      string `json:"courseName"`
	IssueDate       string `json:"issueDate"`
	ExpiryDate      string `json:"expiryDate"`
}

// Credential es un registro minteado. Status es estado materializado y no
// entra en el hash.
type Credential struct {
	ID string `json:"id"`
	CredentialData
	IssuerAddress string    `json:"issuerAddress,omitempty"`
	PreviousHash  string    `json:"previousHash"`
	Hash          string    `json:"hash"`
	HashAlg       HashAlg   `json:"hashAlg,omitempty"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Revocation es un entry de la cadena que revoca una credencial.
type Revocation struct {
	ID           string    `json:"id"`
	CredentialID string    `json:"credentialId"`
	RevokedBy    string    `json:"revokedBy"`
	RevokedAt    time.Time `json:"revokedAt"`
	Reason       string    `json:"reason,omitempty"`
	PreviousHash string    `json:"previousHash"`
	Hash         string    `json:"hash"`
	HashAlg      HashAlg   `json:"hashAlg,omitempty"`
}

type EntryType string

const (
	EntryCredential EntryType = "credential"
	EntryRevocation EntryType = "revocation"
)

// Entry es un eslabón de la cadena: exactamente uno de Credential o Revocation.
type Entry struct {
	Type       EntryType   `json:"type"`
	Credential *Credential `json:"credential,omitempty"`
	Revocation *Revocation `json:"revocation,omitempty"`
}

// Caller identifica a quien pide una mutación. Authorized lo decide la capa
// que verificó la sesión; el ledger solo lo respeta.
type Caller struct {
	Address    string
	Authorized bool
}

func (e Entry) ID() string {
	switch {
	case e.Credential != nil:
		return e.Credential.ID
	case e.Revocation != nil:
		return e.Revocation.ID
	}
	return ""
}

func (e Entry) Hash() string {
	switch {
	case e.Credential != nil:
		return e.Credential.Hash
	case e.Revocation != nil:
		return e.Revocation.Hash
	}
	return ""
}

func (e Entry) PreviousHash() string {
	switch {
	case e.Credential != nil:
		return e.Credential.PreviousHash
	case e.Revocation != nil:
		return e.Revocation.PreviousHash
	}
	return ""
}

// Clone devuelve una copia profunda.
func (e Entry) Clone() Entry {
	out := Entry{Type: e.Type}
	if e.Credential != nil {
		c := *e.Credential
		out.Credential = &c
	}
	if e.Revocation != nil {
		r := *e.Revocation
		out.Revocation = &r
	}
	return out
}

// CloneEntries copia profundamente un slice de entries.
func CloneEntries(in []Entry) []Entry {
	if in == nil {
		return nil
	}
	out := make([]Entry, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// Revoked reporta si el estado materializado es revocado.
func (c *Credential) Revoked() bool {
	return c != nil && c.Status == StatusRevoked
}

// OwnedBy compara la wallet del estudiante sin distinguir mayúsculas.
func (c *Credential) OwnedBy(address string) bool {
	return c != nil && strings.EqualFold(strings.TrimSpace(c.StudentWallet), strings.TrimSpace(address))
}
