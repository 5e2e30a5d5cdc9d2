package puzzle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryListAndLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mates.pgn"), []byte(samplePGN), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pgn"), 0o755))

	lib := NewLibrary(dir)
	names, err := lib.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"mates.pgn"}, names)

	src, err := lib.Load("mates.pgn")
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	again, err := lib.Load("mates.pgn")
	require.NoError(t, err)
	assert.Same(t, src, again)
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, CheckName("mates.pgn"))
	for _, bad := range []string{"", "../etc/passwd", "a/b.pgn", ".hidden.pgn", "mates.txt"} {
		assert.ErrorIs(t, CheckName(bad), ErrBadName, bad)
	}
}
