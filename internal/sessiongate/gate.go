package sessiongate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Validator pregunta al server por el token. ok=false con err=nil significa
// que el server lo rechazó; err != nil es un problema de transporte y la
// sesión se conserva.
type Validator interface {
	VerifySession(ctx context.Context, token string) (address string, ok bool, err error)
}

type Gate struct {
	store Store
	now   func() time.Time

	mu      sync.Mutex
	current *Session
}

type Option func(*Gate)

func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

// Open carga la sesión guardada (si hay).
func Open(store Store, opts ...Option) (*Gate, error) {
	g := &Gate{store: store, now: time.Now}
	for _, o := range opts {
		o(g)
	}
	s, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	g.current = s
	return g, nil
}

// LoggedIn: hay sesión y no venció. No habla con el server.
func (g *Gate) LoggedIn() bool {
	_, err := g.Require()
	return err == nil
}

// Require devuelve la sesión o ErrNotLoggedIn.
func (g *Gate) Require() (Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return Session{}, ErrNotLoggedIn
	}
	if g.current.Expired(g.now()) {
		return Session{}, fmt.Errorf("%w: %w", ErrNotLoggedIn, ErrSessionExpired)
	}
	return *g.current, nil
}

// Login reemplaza la sesión actual y la persiste.
func (g *Gate) Login(s Session) error {
	if !s.valid() {
		return fmt.Errorf("sessiongate: session needs address and token")
	}
	s.Address = strings.ToLower(strings.TrimSpace(s.Address))
	if s.CreatedAt.IsZero() {
		s.CreatedAt = g.now().UTC()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.store.Save(s); err != nil {
		return err
	}
	g.current = &s
	return nil
}

// Logout borra la sesión local. El token sigue valiendo en el server hasta
// su expiración (no hay lista de revocación).
func (g *Gate) Logout() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current = nil
	return g.store.Clear()
}

// Restore re-verifica la sesión guardada. Si el server la rechaza, o
// devuelve otra dirección, se borra y se devuelve ErrNotLoggedIn.
func (g *Gate) Restore(ctx context.Context, v Validator) (Session, error) {
	s, err := g.Require()
	if err != nil {
		if g.hasExpired() {
			_ = g.Logout()
		}
		return Session{}, err
	}

	addr, ok, err := v.VerifySession(ctx, s.Token)
	if err != nil {
		return Session{}, err
	}
	if !ok || !strings.EqualFold(addr, s.Address) {
		if lerr := g.Logout(); lerr != nil {
			return Session{}, lerr
		}
		return Session{}, fmt.Errorf("%w: server rejected the stored session", ErrNotLoggedIn)
	}
	return s, nil
}

func (g *Gate) hasExpired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current != nil && g.current.Expired(g.now())
}
