package client

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SaveIncoming persists a received file under dir, named
// "<peer>_<timestamp><ext>" so repeated transfers from the same peer never
// overwrite each other. The extension comes from the transferred filename,
// falling back to ".bin" when there is none. Returns the written path.
func SaveIncoming(dir, peer, filename string, data []byte) (string, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".bin"
	}
	if peer == "" {
		peer = "unknown"
	}

	name := fmt.Sprintf("%s_%s%s", peer, time.Now().Format("2006-01-02T15-04-05"), ext)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save received file: %w", err)
	}
	return path, nil
}
