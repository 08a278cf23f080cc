package ledger

import (
	"fmt"
	"sort"
)

// Motivos reportados por Verify.
const (
	ReasonHashMismatch      = "hash mismatch"
	ReasonBrokenLink        = "broken link"
	ReasonDuplicateID       = "duplicate id"
	ReasonOrphanRevocation  = "orphan revocation"
	ReasonStatusMismatch    = "status mismatch"
	ReasonMalformedEntry    = "malformed entry"
	ReasonDuplicateRevoking = "duplicate revocation"
)

type IntegrityIssue struct {
	Index   int    `json:"index"`
	EntryID string `json:"entryId,omitempty"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
}

// IntegrityReport es el resultado de recorrer la cadena completa.
type IntegrityReport struct {
	OK          bool             `json:"ok"`
	Entries     int              `json:"entries"`
	Credentials int              `json:"credentials"`
	Revocations int              `json:"revocations"`
	Head        string           `json:"head"`
	FirstIssue  *IntegrityIssue  `json:"firstIssue,omitempty"`
	Issues      []IntegrityIssue `json:"issues,omitempty"`
}

// Verify recorre la cadena en memoria.
func (l *Ledger) Verify() IntegrityReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return VerifyEntries(l.entries)
}

// VerifyEntries recalcula cada hash, chequea enlaces, ids únicos, que cada
// revocación apunte a una credencial anterior, y que el status materializado
// coincida con las revocaciones registradas.
//
// Credenciales importadas sin hashAlg (formato del navegador) se revocaban
// in-place sin registro; para esas un status revoked sin revocación es válido.
func VerifyEntries(entries []Entry) IntegrityReport {
	rep := IntegrityReport{Entries: len(entries), Head: Head(entries)}
	add := func(i int, id, reason, detail string) {
		rep.Issues = append(rep.Issues, IntegrityIssue{Index: i, EntryID: id, Reason: reason, Detail: detail})
	}

	prev := Genesis
	ids := make(map[string]int, len(entries))
	credAt := make(map[string]int)
	revokedBy := make(map[string]int)

	for i, e := range entries {
		id := e.ID()
		switch {
		case e.Type == EntryCredential && e.Credential != nil && e.Revocation == nil:
			rep.Credentials++
			credAt[id] = i
		case e.Type == EntryRevocation && e.Revocation != nil && e.Credential == nil:
			rep.Revocations++
			target := e.Revocation.CredentialID
			if _, ok := credAt[target]; !ok {
				add(i, id, ReasonOrphanRevocation, fmt.Sprintf("credential %s not found before this entry", target))
			} else if first, dup := revokedBy[target]; dup {
				add(i, id, ReasonDuplicateRevoking, fmt.Sprintf("credential %s already revoked at index %d", target, first))
			} else {
				revokedBy[target] = i
			}
		default:
			add(i, id, ReasonMalformedEntry, fmt.Sprintf("type %q", e.Type))
			prev = e.Hash()
			continue
		}

		if first, dup := ids[id]; dup {
			add(i, id, ReasonDuplicateID, fmt.Sprintf("first seen at index %d", first))
		} else {
			ids[id] = i
		}

		if e.PreviousHash() != prev {
			add(i, id, ReasonBrokenLink, fmt.Sprintf("previousHash %s, expected %s", e.PreviousHash(), prev))
		}
		if got, err := e.ComputeHash(); err != nil {
			add(i, id, ReasonHashMismatch, err.Error())
		} else if got != e.Hash() {
			add(i, id, ReasonHashMismatch, fmt.Sprintf("stored %s, computed %s", e.Hash(), got))
		}
		prev = e.Hash()
	}

	for i, e := range entries {
		c := e.Credential
		if e.Type != EntryCredential || c == nil {
			continue
		}
		_, hasRecord := revokedBy[c.ID]
		switch c.Status {
		case StatusActive:
			if hasRecord {
				add(i, c.ID, ReasonStatusMismatch, "revocation recorded but status is active")
			}
		case StatusRevoked:
			if !hasRecord && c.HashAlg != "" {
				add(i, c.ID, ReasonStatusMismatch, "status revoked without a revocation entry")
			}
		default:
			add(i, c.ID, ReasonStatusMismatch, fmt.Sprintf("unexpected status %q", c.Status))
		}
	}

	sort.SliceStable(rep.Issues, func(a, b int) bool { return rep.Issues[a].Index < rep.Issues[b].Index })
	rep.OK = len(rep.Issues) == 0
	if !rep.OK {
		first := rep.Issues[0]
		rep.FirstIssue = &first
	}
	return rep
}
