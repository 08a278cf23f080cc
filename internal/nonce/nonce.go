// Package nonce emite y consume los desafíos de login por wallet.
//
// Hay a lo sumo un nonce vivo por dirección (en minúsculas). Emitir de nuevo
// lo reemplaza. Un nonce se consume una sola vez: en el login exitoso o
// cuando se detecta que expiró.
package nonce

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

var (
	ErrNotFound       = errors.New("nonce not found")
	ErrExpired        = errors.New("nonce expired")
	ErrMismatch       = errors.New("nonce mismatch")
	ErrInvalidAddress = errors.New("invalid address")
)

// DefaultTTL es la vida de un nonce.
const DefaultTTL = 5 * time.Minute

// DefaultRetention es cuánto guarda el backend un nonce no consumido. Es
// mucho más que el TTL: la vigencia la decide Store con CreatedAt, el
// backend solo libera espacio. Un nonce vencido pero retenido da ErrExpired.
const DefaultRetention = 24 * time.Hour

const messagePrefix = "SkillsPassport login: "

// Entry es un nonce pendiente. CreatedAt en unix millis.
type Entry struct {
	Address   string `json:"address"`
	Nonce     string `json:"nonce"`
	CreatedAt int64  `json:"createdAt"`
}

// Age devuelve la antigüedad del entry respecto de now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(e.CreatedAt))
}

// Backend guarda entries por dirección. Take borra y devuelve el entry de
// forma atómica: entre dos Take concurrentes solo uno ve found=true.
type Backend interface {
	Get(ctx context.Context, address string) (Entry, bool, error)
	Put(ctx context.Context, e Entry, keep time.Duration) error
	Take(ctx context.Context, address string) (Entry, bool, error)
}

type Store struct {
	backend   Backend
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
}

type Option func(*Store)

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRetention cambia cuánto conserva el backend cada entry.
func WithRetention(d time.Duration) Option {
	return func(s *Store) { s.retention = d }
}

func New(backend Backend, ttl time.Duration, opts ...Option) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{backend: backend, ttl: ttl, retention: DefaultRetention, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	// nunca retener menos que unas cuantas vidas del nonce
	if floor := 4 * s.ttl; s.retention < floor {
		s.retention = floor
	}
	return s
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Issue genera un nonce nuevo para address y reemplaza el anterior.
func (s *Store) Issue(ctx context.Context, address string) (string, error) {
	if !wallet.IsAddress(address) {
		return "", ErrInvalidAddress
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000_000))
	if err != nil {
		return "", fmt.Errorf("nonce: random: %w", err)
	}
	now := s.now()
	e := Entry{
		Address:   wallet.Lower(address),
		Nonce:     fmt.Sprintf("%s%d|%d", messagePrefix, n.Int64(), now.UnixMilli()),
		CreatedAt: now.UnixMilli(),
	}
	if err := s.backend.Put(ctx, e, s.retention); err != nil {
		return "", err
	}
	return e.Nonce, nil
}

// Peek devuelve el nonce vigente. Uno más viejo que maxAge se borra y
// devuelve ErrExpired. maxAge <= 0 usa el TTL del store. Un maxAge mayor que
// la retención puede dar ErrNotFound si el backend ya lo liberó.
func (s *Store) Peek(ctx context.Context, address string, maxAge time.Duration) (Entry, error) {
	if !wallet.IsAddress(address) {
		return Entry{}, ErrInvalidAddress
	}
	if maxAge <= 0 {
		maxAge = s.ttl
	}
	addr := wallet.Lower(address)
	e, ok, err := s.backend.Get(ctx, addr)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrNotFound
	}
	if e.Age(s.now()) > maxAge {
		if _, _, err := s.backend.Take(ctx, addr); err != nil {
			return Entry{}, err
		}
		return Entry{}, ErrExpired
	}
	return e, nil
}

// Consume borra el nonce de address. Si otro lo consumió antes: ErrNotFound.
func (s *Store) Consume(ctx context.Context, address string) (Entry, error) {
	if !wallet.IsAddress(address) {
		return Entry{}, ErrInvalidAddress
	}
	e, ok, err := s.backend.Take(ctx, wallet.Lower(address))
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// VerifyAndConsume consume el nonce solo si coincide con candidate.
func (s *Store) VerifyAndConsume(ctx context.Context, address, candidate string, maxAge time.Duration) error {
	e, err := s.Peek(ctx, address, maxAge)
	if err != nil {
		return err
	}
	if e.Nonce != candidate {
		return ErrMismatch
	}
	taken, err := s.Consume(ctx, address)
	if err != nil {
		return err
	}
	// reemitido entre Peek y Take: el que se llevó no es el verificado
	if taken.Nonce != candidate {
		return ErrNotFound
	}
	return nil
}
