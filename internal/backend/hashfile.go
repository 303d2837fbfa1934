package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/sirupsen/logrus"
)

const hashFileName = "hash-file.json"

// ignoredPaths are game-tree entries that must never appear in the manifest:
// user state, logs, caches and the launcher's own files.
//
//nolint:gochecknoglobals // static ignore list.
var ignoredPaths = []string{
	"$Patch",
	"Binaries/cookies.dat",
	"S1Game/GuildFlagUpload",
	"S1Game/GuildLogoUpload",
	"S1Game/ImageCache",
	"S1Game/Logs",
	"S1Game/Screenshots",
	"S1Game/Config/S1Engine.ini",
	"S1Game/Config/S1Game.ini",
	"S1Game/Config/S1Input.ini",
	"S1Game/Config/S1Lightmass.ini",
	"S1Game/Config/S1Option.ini",
	"S1Game/Config/S1SystemSettings.ini",
	"S1Game/Config/S1TBASettings.ini",
	"S1Game/Config/S1UI.ini",
	"Launcher.exe",
	"local.db",
	"version.ini",
	"unins000.dat",
	"unins000.exe",
}

// isIgnored reports whether a game-tree file is excluded from the manifest.
// Files directly at the tree root are always excluded.
func isIgnored(rel string) bool {
	if !strings.Contains(rel, "/") {
		return true
	}
	for _, p := range ignoredPaths {
		if strings.HasPrefix(rel, p) {
			return true
		}
	}
	return false
}

// GenerateHashFile walks the game tree, hashes every distributable file in
// parallel, emits progress events, and writes hash-file.json at the tree
// root. It returns a human-readable summary.
func (c *Client) GenerateHashFile(ctx context.Context) (string, error) {
	start := time.Now()
	gamePath, err := c.GamePath()
	if err != nil {
		return "", err
	}

	// First pass counts eligible files so progress has a denominator.
	total := 0
	conf := fastwalk.DefaultConfig
	countErr := fastwalk.Walk(&conf, gamePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := relManifestPath(gamePath, path); ok && !isIgnored(rel) {
			total++
		}
		return nil
	})
	if countErr != nil {
		return "", countErr
	}
	logrus.Infof("hash file generation: %d files to process", total)

	var (
		mu        sync.Mutex
		files     []FileInfo
		processed atomic.Int64
		totalSize atomic.Int64
	)

	walkErr := fastwalk.Walk(&conf, gamePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip unreadable entries.
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if d.IsDir() {
			return nil
		}
		rel, ok := relManifestPath(gamePath, path)
		if !ok || isIgnored(rel) {
			return nil
		}

		hash, err := hashFile(path)
		if err != nil {
			return err
		}
		st, err := os.Stat(path)
		if err != nil {
			return err
		}

		mu.Lock()
		files = append(files, FileInfo{
			Path: rel,
			Hash: hash,
			Size: st.Size(),
			URL:  c.cfg.Server.FilesURL + "/files/" + rel,
		})
		mu.Unlock()

		size := totalSize.Add(st.Size())
		count := int(processed.Add(1))
		c.emitter.emit(HashFileProgress{
			CurrentFile:    rel,
			Progress:       float64(count) / float64(total) * 100,
			ProcessedFiles: count,
			TotalFiles:     total,
			TotalSize:      size,
		})
		return nil
	})
	if walkErr != nil {
		return "", walkErr
	}

	data, err := json.Marshal(Manifest{Files: files})
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(gamePath, hashFileName)
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", err
	}

	summary := fmt.Sprintf("Hash file generated: %d files, %d bytes total, in %s",
		processed.Load(), totalSize.Load(), time.Since(start).Round(time.Millisecond))
	logrus.Info(summary)
	return summary, nil
}

// relManifestPath converts an absolute path inside the game tree to the
// slash-separated relative form used in manifests.
func relManifestPath(gamePath, path string) (string, bool) {
	rel, err := filepath.Rel(gamePath, path)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
