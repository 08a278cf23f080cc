package nonce

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/skillspassport/internal/util/atomicwrite"
)

// FileBackend persiste el mapa address -> entry en un JSON (nonces.json).
// Cada escritura reemplaza el archivo entero.
type FileBackend struct {
	path string

	mu     sync.Mutex
	m      map[string]fileEntry
	loaded bool
	now    func() time.Time
}

type fileEntry struct {
	Entry
	// KeepUntil en unix millis (escritura + retención); pasado eso el entry
	// se poda al escribir.
	KeepUntil int64 `json:"keepUntil,omitempty"`
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, now: time.Now}
}

func (f *FileBackend) load() error {
	if f.loaded {
		return nil
	}
	m := map[string]fileEntry{}
	if _, err := atomicwrite.ReadJSON(f.path, &m); err != nil {
		return err
	}
	f.m = m
	f.loaded = true
	return nil
}

func (f *FileBackend) save(next map[string]fileEntry) error {
	now := f.now().UnixMilli()
	for k, e := range next {
		if e.KeepUntil > 0 && e.KeepUntil < now {
			delete(next, k)
		}
	}
	if err := atomicwrite.WriteJSON(f.path, next, 0o600); err != nil {
		return err
	}
	f.m = next
	return nil
}

func (f *FileBackend) copyMap() map[string]fileEntry {
	out := make(map[string]fileEntry, len(f.m)+1)
	for k, v := range f.m {
		out[k] = v
	}
	return out
}

func (f *FileBackend) Get(_ context.Context, address string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return Entry{}, false, err
	}
	e, ok := f.m[address]
	return e.Entry, ok, nil
}

func (f *FileBackend) Put(_ context.Context, e Entry, keep time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return err
	}
	fe := fileEntry{Entry: e}
	if keep > 0 {
		fe.KeepUntil = f.now().Add(keep).UnixMilli()
	}
	next := f.copyMap()
	next[e.Address] = fe
	return f.save(next)
}

func (f *FileBackend) Take(_ context.Context, address string) (Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.load(); err != nil {
		return Entry{}, false, err
	}
	e, ok := f.m[address]
	if !ok {
		return Entry{}, false, nil
	}
	next := f.copyMap()
	delete(next, address)
	if err := f.save(next); err != nil {
		return Entry{}, false, err
	}
	return e.Entry, true, nil
}
