// Package sessiongate es el chequeo del lado cliente antes de operaciones de
// issuer (mint, revoke): hay sesión guardada o no.
//
// Es optimista. La autoridad real es el server, que valida el token en cada
// mutación; Restore re-verifica contra /api/me y limpia la sesión si el server
// la rechaza.
package sessiongate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dropDatabas3/skillspassport/internal/util/atomicwrite"
)

var (
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrSessionExpired envuelve ErrNotLoggedIn.
	ErrSessionExpired = errors.New("session expired")
)

// Session es lo que deja un login exitoso.
type Session struct {
	Address   string    `json:"address"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired: sin ExpiresAt la sesión no vence del lado cliente.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) valid() bool {
	return strings.TrimSpace(s.Token) != "" && strings.TrimSpace(s.Address) != ""
}

// Store persiste la sesión entre ejecuciones del CLI.
type Store interface {
	Load() (*Session, error)
	Save(Session) error
	Clear() error
}

const (
	dirName  = ".skillspassport"
	fileName = "session.json"
	filePerm = 0o600
)

// DefaultPath: $SKILLSPASSPORT_SESSION o ~/.skillspassport/session.json.
func DefaultPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("SKILLSPASSPORT_SESSION")); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, dirName, fileName), nil
}

// FileStore guarda la sesión en un JSON 0600.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore { return &FileStore{Path: path} }

// Load devuelve nil, nil si no hay sesión guardada.
func (f *FileStore) Load() (*Session, error) {
	var s Session
	found, err := atomicwrite.ReadJSON(f.Path, &s)
	if err != nil || !found || !s.valid() {
		return nil, err
	}
	return &s, nil
}

func (f *FileStore) Save(s Session) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}
	return atomicwrite.WriteJSON(f.Path, s, filePerm)
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
