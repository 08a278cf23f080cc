// Package memory es un ledger.Store en memoria, para tests y modo demo.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/dropDatabas3/skillspassport/internal/ledger"
)

type Store struct {
	mu      sync.Mutex
	entries []ledger.Entry
	closed  bool

	// FailNext hace fallar el próximo Append con ese error (tests).
	FailNext error
}

// New crea un store con una cadena inicial opcional (copiada).
func New(seed ...ledger.Entry) *Store {
	return &Store{entries: ledger.CloneEntries(seed)}
}

var errClosed = errors.New("memory store: closed")

func (s *Store) Load(ctx context.Context) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errClosed
	}
	return ledger.CloneEntries(s.entries), nil
}

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errClosed
	}
	if err := s.FailNext; err != nil {
		s.FailNext = nil
		return err
	}
	next, err := ledger.Apply(s.entries, e)
	if err != nil {
		return err
	}
	s.entries = next
	return nil
}

// Snapshot devuelve una copia de lo persistido.
func (s *Store) Snapshot() []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ledger.CloneEntries(s.entries)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
