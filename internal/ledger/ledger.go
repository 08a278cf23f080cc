// Package ledger implementa el registro encadenado de credenciales.
//
// Cada entry (credencial o revocación) guarda el hash del anterior; el primero
// enlaza con "GENESIS". El status de una credencial es estado materializado,
// fuera de todo payload hasheado, así que revocar no rompe la cadena.
//
// Las mutaciones exigen un Caller autorizado y se serializan con un mutex.
// Primero se persiste y recién después se publica en memoria: si el Store
// falla, el Ledger queda exactamente como estaba.
package ledger

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configura un Ledger. Todo es opcional.
type Options struct {
	// HashAlg para entries nuevos. Default: sha256.
	HashAlg HashAlg
	// Now reemplaza al reloj (tests).
	Now func() time.Time
	// Location para calcular expiraciones. Default: time.Local.
	Location *time.Location
}

type Ledger struct {
	mu      sync.RWMutex
	store   Store
	entries []Entry
	byID    map[string]int // credential id -> posición en entries
	credPos []int          // índice de credencial -> posición en entries

	alg HashAlg
	now func() time.Time
	loc *time.Location
}

// Open carga la cadena desde store. No verifica integridad: para eso está Verify.
func Open(ctx context.Context, store Store, opts Options) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("ledger: nil store")
	}
	alg := opts.HashAlg
	if alg == "" {
		alg = DefaultHashAlg
	}
	if _, err := alg.Sum(nil); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	entries, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrPersistence, err)
	}

	l := &Ledger{store: store, alg: alg, now: now, loc: loc}
	l.reindex(entries)
	return l, nil
}

func (l *Ledger) reindex(entries []Entry) {
	l.entries = entries
	l.byID = make(map[string]int, len(entries))
	l.credPos = l.credPos[:0]
	for i, e := range entries {
		if e.Type != EntryCredential || e.Credential == nil {
			continue
		}
		l.credPos = append(l.credPos, i)
		// ante ids duplicados gana el primero; Verify los reporta
		if _, dup := l.byID[e.Credential.ID]; !dup {
			l.byID[e.Credential.ID] = i
		}
	}
}

// HashAlg devuelve el algoritmo usado para entries nuevos.
func (l *Ledger) HashAlg() HashAlg { return l.alg }

// Close cierra el store subyacente.
func (l *Ledger) Close() error { return l.store.Close() }

// Mint crea, encadena y persiste una credencial nueva con status active.
func (l *Ledger) Mint(ctx context.Context, data CredentialData, caller Caller) (Credential, error) {
	if !caller.Authorized {
		return Credential{}, ErrUnauthorized
	}
	data, err := data.Normalize()
	if err != nil {
		return Credential{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var c Credential
	err = l.commitWithRetry(ctx, func() (Entry, error) {
		now := l.now().UTC().Truncate(time.Millisecond)
		id, err := l.newCredentialID(now)
		if err != nil {
			return Entry{}, err
		}
		c = Credential{
			ID:             id,
			CredentialData: data,
			IssuerAddress:  strings.ToLower(strings.TrimSpace(caller.Address)),
			PreviousHash:   Head(l.entries),
			HashAlg:        l.alg,
			Status:         StatusActive,
			CreatedAt:      now,
		}
		if c.Hash, err = c.ComputeHash(); err != nil {
			return Entry{}, err
		}
		return Entry{Type: EntryCredential, Credential: &c}, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return c, nil
}

// Revoke revoca la credencial con ese id.
func (l *Ledger) Revoke(ctx context.Context, id string, caller Caller, reason string) (Credential, error) {
	if !caller.Authorized {
		return Credential{}, ErrUnauthorized
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	id = strings.TrimSpace(id)
	pos, ok := l.byID[id]
	if !ok {
		// puede haberla emitido otro proceso sobre el mismo store
		if err := l.reload(ctx); err != nil {
			return Credential{}, err
		}
		if pos, ok = l.byID[id]; !ok {
			return Credential{}, ErrNotFound
		}
	}
	return l.revokeAt(ctx, pos, caller, reason)
}

// RevokeAt revoca la credencial en la posición index, contando solo
// entries de tipo credencial (el índice de la tabla del issuer).
func (l *Ledger) RevokeAt(ctx context.Context, index int, caller Caller, reason string) (Credential, error) {
	if !caller.Authorized {
		return Credential{}, ErrUnauthorized
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if index < 0 {
		return Credential{}, ErrNotFound
	}
	if index >= len(l.credPos) {
		if err := l.reload(ctx); err != nil {
			return Credential{}, err
		}
		if index >= len(l.credPos) {
			return Credential{}, ErrNotFound
		}
	}
	return l.revokeAt(ctx, l.credPos[index], caller, reason)
}

// revokeAt asume l.mu tomado. pos sigue siendo válido tras un reload porque
// la cadena solo crece.
func (l *Ledger) revokeAt(ctx context.Context, pos int, caller Caller, reason string) (Credential, error) {
	err := l.commitWithRetry(ctx, func() (Entry, error) {
		if pos >= len(l.entries) || l.entries[pos].Credential == nil {
			return Entry{}, ErrNotFound
		}
		target := l.entries[pos].Credential
		if target.Revoked() {
			return Entry{}, ErrAlreadyRevoked
		}
		r := Revocation{
			ID:           "REV-" + uuid.NewString(),
			CredentialID: target.ID,
			RevokedBy:    strings.ToLower(strings.TrimSpace(caller.Address)),
			RevokedAt:    l.now().UTC().Truncate(time.Millisecond),
			Reason:       strings.TrimSpace(reason),
			PreviousHash: Head(l.entries),
			HashAlg:      l.alg,
		}
		var err error
		if r.Hash, err = r.ComputeHash(); err != nil {
			return Entry{}, err
		}
		return Entry{Type: EntryRevocation, Revocation: &r}, nil
	})
	if err != nil {
		return Credential{}, err
	}
	return *l.entries[pos].Credential, nil
}

// commitWithRetry arma el entry con build y lo persiste. Si el store
// responde ErrConflict (otro proceso movió la cabeza) recarga la cadena y
// reintenta una vez con un entry rearmado. Asume l.mu tomado.
func (l *Ledger) commitWithRetry(ctx context.Context, build func() (Entry, error)) error {
	for attempt := 0; ; attempt++ {
		e, err := build()
		if err != nil {
			return err
		}
		err = l.commit(ctx, e)
		if err == nil || attempt > 0 || !errors.Is(err, ErrConflict) {
			return err
		}
		if err := l.reload(ctx); err != nil {
			return err
		}
	}
}

// commit persiste e y después lo publica. Asume l.mu tomado.
func (l *Ledger) commit(ctx context.Context, e Entry) error {
	next, err := Apply(l.entries, e)
	if err != nil {
		return err
	}
	if err := l.store.Append(ctx, e.Clone()); err != nil {
		if errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyRevoked) || errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	l.reindex(next)
	return nil
}

// reload reemplaza la cadena en memoria por la del store. Asume l.mu tomado.
func (l *Ledger) reload(ctx context.Context) error {
	entries, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%w: reload: %w", ErrPersistence, err)
	}
	l.reindex(entries)
	return nil
}

// Refresh relee la cadena del store, para ver lo que agregaron otros
// procesos sobre la misma base.
func (l *Ledger) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reload(ctx)
}

const maxIDAttempts = 16

// newCredentialID genera CERT-<unix-millis>-<1000..9999> sin repetir ids existentes.
func (l *Ledger) newCredentialID(now time.Time) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(9000))
		if err != nil {
			return "", fmt.Errorf("ledger: id entropy: %w", err)
		}
		id := fmt.Sprintf("CERT-%d-%d", now.UnixMilli(), n.Int64()+1000)
		if _, taken := l.byID[id]; !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: could not allocate a unique credential id", ErrConflict)
}

// Status calcula el estado efectivo con el reloj y la zona del ledger.
func (l *Ledger) Status(c *Credential) Status {
	return ComputeStatus(c, l.now().In(l.loc))
}

// FindByID devuelve una copia de la credencial con ese id.
func (l *Ledger) FindByID(id string) (Credential, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	pos, ok := l.byID[strings.TrimSpace(id)]
	if !ok {
		return Credential{}, false
	}
	return *l.entries[pos].Credential, true
}

// FindByWallet lista, en orden de cadena, las credenciales de address.
func (l *Ledger) FindByWallet(address string) []Credential {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []Credential{}
	for _, pos := range l.credPos {
		if c := l.entries[pos].Credential; c.OwnedBy(address) {
			out = append(out, *c)
		}
	}
	return out
}

// Credentials lista todas las credenciales en orden de cadena.
func (l *Ledger) Credentials() []Credential {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Credential, 0, len(l.credPos))
	for _, pos := range l.credPos {
		out = append(out, *l.entries[pos].Credential)
	}
	return out
}

// Entries devuelve una copia de la cadena completa.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return CloneEntries(l.entries)
}

// Len devuelve la cantidad de entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Head devuelve el hash del último entry.
func (l *Ledger) Head() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Head(l.entries)
}
