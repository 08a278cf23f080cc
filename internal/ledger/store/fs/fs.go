// Package fs persiste la cadena como un único snapshot JSON.
//
// Cada Append reescribe el archivo completo con atomicwrite (tmp + fsync +
// rename): o queda el snapshot nuevo o el anterior. También lee el formato
// exportado por la app de navegador (array de credenciales sin "type").
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dropDatabas3/skillspassport/internal/ledger"
	"github.com/dropDatabas3/skillspassport/internal/observability/logger"
	"github.com/dropDatabas3/skillspassport/internal/util/atomicwrite"
)

const filePerm = 0o600

type Store struct {
	path string

	mu      sync.Mutex
	entries []ledger.Entry
	loaded  bool
}

// New no toca disco hasta Load.
func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("fs ledger: empty path")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Load(ctx context.Context) ([]ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []json.RawMessage
	if _, err := atomicwrite.ReadJSON(s.path, &raw); err != nil {
		return nil, err
	}

	entries := make([]ledger.Entry, 0, len(raw))
	legacy := 0
	for i, r := range raw {
		e, isLegacy, err := decodeEntry(r)
		if err != nil {
			return nil, fmt.Errorf("fs ledger: entry %d: %w", i, err)
		}
		if isLegacy {
			legacy++
		}
		entries = append(entries, e)
	}
	if legacy > 0 {
		logger.L().Info("ledger snapshot contains legacy credentials",
			logger.Component("ledger.fs"),
			logger.String("path", s.path),
			logger.Count(legacy),
		)
	}

	s.entries = entries
	s.loaded = true
	return ledger.CloneEntries(entries), nil
}

// decodeEntry acepta {type, credential|revocation} o una credencial suelta.
func decodeEntry(r json.RawMessage) (ledger.Entry, bool, error) {
	var probe struct {
		Type *ledger.EntryType `json:"type"`
	}
	if err := json.Unmarshal(r, &probe); err != nil {
		return ledger.Entry{}, false, err
	}
	if probe.Type == nil {
		var c ledger.Credential
		if err := json.Unmarshal(r, &c); err != nil {
			return ledger.Entry{}, false, err
		}
		if c.Status == "" {
			c.Status = ledger.StatusActive
		}
		return ledger.Entry{Type: ledger.EntryCredential, Credential: &c}, true, nil
	}
	var e ledger.Entry
	if err := json.Unmarshal(r, &e); err != nil {
		return ledger.Entry{}, false, err
	}
	return e, false, nil
}

func (s *Store) Append(ctx context.Context, e ledger.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return errors.New("fs ledger: Append before Load")
	}

	next, err := ledger.Apply(s.entries, e)
	if err != nil {
		return err
	}
	if err := atomicwrite.WriteJSON(s.path, next, filePerm); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *Store) Close() error { return nil }
