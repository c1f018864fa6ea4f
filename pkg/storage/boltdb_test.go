package storage

import (
	"testing"
	"time"

	"github.com/cuemby/ferret/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDocument(t *testing.T) {
	s := testStore(t)

	rec := &types.DocumentRecord{
		DocID:        "d1.txt",
		WorkerID:     "worker-a",
		State:        types.DocumentStateDispatched,
		DispatchedAt: time.Now().UTC(),
	}
	require.NoError(t, s.PutDocument(rec))

	got, err := s.GetDocument("d1.txt")
	require.NoError(t, err)
	assert.Equal(t, rec.DocID, got.DocID)
	assert.Equal(t, types.DocumentStateDispatched, got.State)
}

func TestPutDocument_Upsert(t *testing.T) {
	s := testStore(t)

	rec := &types.DocumentRecord{DocID: "d1.txt", State: types.DocumentStateDispatched}
	require.NoError(t, s.PutDocument(rec))

	rec.State = types.DocumentStateIndexed
	rec.Terms = 12
	rec.IndexedAt = time.Now().UTC()
	require.NoError(t, s.PutDocument(rec))

	got, err := s.GetDocument("d1.txt")
	require.NoError(t, err)
	assert.Equal(t, types.DocumentStateIndexed, got.State)
	assert.Equal(t, 12, got.Terms)

	count, err := s.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGetDocument_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetDocument("missing.txt")
	assert.Error(t, err)
}

func TestListDocuments(t *testing.T) {
	s := testStore(t)

	for _, id := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, s.PutDocument(&types.DocumentRecord{DocID: id, State: types.DocumentStateDispatched}))
	}

	records, err := s.ListDocuments()
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestOpen_CreatesDataDir(t *testing.T) {
	dir := t.TempDir() + "/nested/data"
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	count, err := s.CountDocuments()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
