package client_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmatos/relay/internal/client"
)

func TestSaveIncoming_NamingConvention(t *testing.T) {
	dir := t.TempDir()

	path, err := client.SaveIncoming(dir, "alice", "report.txt", []byte("0123456789"))
	require.NoError(t, err)

	name := filepath.Base(path)
	assert.Regexp(t, regexp.MustCompile(`^alice_\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}\.txt$`), name)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789"), data)
}

func TestSaveIncoming_FallbackExtension(t *testing.T) {
	dir := t.TempDir()

	path, err := client.SaveIncoming(dir, "bob", "", []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, ".bin", filepath.Ext(path))
}

func TestSaveIncoming_UnknownPeer(t *testing.T) {
	dir := t.TempDir()

	path, err := client.SaveIncoming(dir, "", "a.png", []byte{0x01})
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "unknown_")
}
