package ledger

import (
	"context"
	"fmt"
)

// Store persiste la cadena. Append es todo-o-nada: si el entry es una
// revocación, el estado revocado de la credencial destino se escribe en la
// misma operación.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Head devuelve el hash del último entry, o Genesis si la cadena está vacía.
func Head(entries []Entry) string {
	if len(entries) == 0 {
		return Genesis
	}
	return entries[len(entries)-1].Hash()
}

// Apply valida que e enlace con la cabeza de entries y devuelve la cadena
// resultante sin tocar el slice original. Para revocaciones la credencial
// destino se reemplaza por una copia con status revoked.
// Lo usan los stores que guardan snapshots completos.
func Apply(entries []Entry, e Entry) ([]Entry, error) {
	if e.PreviousHash() != Head(entries) {
		return nil, fmt.Errorf("%w: previousHash %s does not match head %s", ErrConflict, e.PreviousHash(), Head(entries))
	}
	id := e.ID()
	for i := range entries {
		if entries[i].ID() == id {
			return nil, fmt.Errorf("%w: entry %s already exists", ErrConflict, id)
		}
	}

	out := make([]Entry, len(entries), len(entries)+1)
	copy(out, entries)

	switch e.Type {
	case EntryCredential:
		if e.Credential == nil {
			return nil, fmt.Errorf("ledger: credential entry without body")
		}
	case EntryRevocation:
		if e.Revocation == nil {
			return nil, fmt.Errorf("ledger: revocation entry without body")
		}
		pos := -1
		for i := range out {
			if out[i].Type == EntryCredential && out[i].Credential != nil && out[i].Credential.ID == e.Revocation.CredentialID {
				pos = i
				break
			}
		}
		if pos < 0 {
			return nil, ErrNotFound
		}
		if out[pos].Credential.Revoked() {
			return nil, ErrAlreadyRevoked
		}
		c := *out[pos].Credential
		c.Status = StatusRevoked
		out[pos] = Entry{Type: EntryCredential, Credential: &c}
	default:
		return nil, fmt.Errorf("ledger: unknown entry type %q", e.Type)
	}

	return append(out, e.Clone()), nil
}
