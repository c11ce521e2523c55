package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	st, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := st.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.Set(ctx, KeyAccessToken, "acc"))
	require.NoError(t, st.Set(ctx, KeyUserID, "u1"))
	require.NoError(t, st.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := NewFileStore(path)
	require.NoError(t, err)

	v, ok, err := again.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "acc", v)

	require.NoError(t, again.Delete(ctx, KeyUserID, "missing"))

	third, err := NewFileStore(path)
	require.NoError(t, err)
	_, ok, err = third.Get(ctx, KeyUserID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStore_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewFileStore("")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err = NewFileStore(path)
	require.Error(t, err)
}

func TestFileStore_EmptyFileIsEmptySession(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	st, err := NewFileStore(path)
	require.NoError(t, err)

	_, ok, err := st.Get(context.Background(), KeyUser)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileStore_FailedFlushKeepsMemoryInSync(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")

	st, err := NewFileStore(filepath.Join(dir, "session.json"))
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, KeyAccessToken, "acc"))
	require.NoError(t, st.Set(ctx, KeyRefreshToken, "ref"))

	// Каталог подменён файлом: любая запись снимка падает.
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0o600))

	require.Error(t, st.Delete(ctx, KeyAccessToken, KeyRefreshToken))

	v, ok, err := st.Get(ctx, KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "acc", v)

	v, ok, err = st.Get(ctx, KeyRefreshToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "ref", v)

	require.Error(t, st.Set(ctx, KeyUser, "{}"))
	_, ok, err = st.Get(ctx, KeyUser)
	require.NoError(t, err)
	require.False(t, ok)
}
