package migrate

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	applied map[int]bool
	ran     []int
	failOn  int
}

func (f *fakeTarget) EnsureTable(ctx context.Context) error { return nil }

func (f *fakeTarget) AppliedVersions(ctx context.Context) (map[int]bool, error) {
	out := map[int]bool{}
	for k, v := range f.applied {
		out[k] = v
	}
	return out, nil
}

func (f *fakeTarget) Apply(ctx context.Context, m Migration) error {
	if m.Version == f.failOn {
		return errors.New("boom")
	}
	f.ran = append(f.ran, m.Version)
	f.applied[m.Version] = true
	return nil
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"ledger/0002_index.sql": {Data: []byte("CREATE INDEX x;")},
		"ledger/0001_init.sql":  {Data: []byte("CREATE TABLE t;")},
		"ledger/README.md":      {Data: []byte("ignored")},
	}
}

func TestParse_SortsAndFilters(t *testing.T) {
	migs, err := New(testFS(), "ledger").Parse()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	require.Equal(t, 1, migs[0].Version)
	require.Equal(t, "init", migs[0].Name)
	require.Equal(t, "CREATE TABLE t;", migs[0].SQL)
	require.Equal(t, 2, migs[1].Version)
}

func TestParse_DuplicateVersion(t *testing.T) {
	fsys := testFS()
	fsys["ledger/0001_other.sql"] = &fstest.MapFile{Data: []byte("SELECT 1;")}
	_, err := New(fsys, "ledger").Parse()
	require.Error(t, err)
}

func TestRun_AppliesPendingOnly(t *testing.T) {
	target := &fakeTarget{applied: map[int]bool{1: true}}
	res, err := New(testFS(), "ledger").Run(context.Background(), target)
	require.NoError(t, err)
	require.Equal(t, []int{2}, res.Applied)
	require.Equal(t, []int{1}, res.Skipped)
	require.Equal(t, []int{2}, target.ran)

	// idempotente
	res, err = New(testFS(), "ledger").Run(context.Background(), target)
	require.NoError(t, err)
	require.Empty(t, res.Applied)
}

func TestRun_StopsOnFailure(t *testing.T) {
	target := &fakeTarget{applied: map[int]bool{}, failOn: 1}
	res, err := New(testFS(), "ledger").Run(context.Background(), target)
	require.Error(t, err)
	require.NotNil(t, res.Failed)
	require.Equal(t, 1, *res.Failed)
	require.Empty(t, target.ran)
}

func TestPending(t *testing.T) {
	target := &fakeTarget{applied: map[int]bool{2: true}}
	pending, err := New(testFS(), "ledger").Pending(context.Background(), target)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, 1, pending[0].Version)
}
