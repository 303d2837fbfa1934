package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	cacheFileName = "file_cache.json"
	// checkProgressStride limits file-check progress events to every Nth
	// file plus the final one.
	checkProgressStride = 100
)

// cachedFileInfo remembers the last computed hash of a local file keyed by
// its modification time, so unchanged files skip re-hashing on later passes.
type cachedFileInfo struct {
	Hash         string    `json:"hash"`
	LastModified time.Time `json:"last_modified"`
}

type hashCache struct {
	mu      sync.RWMutex
	entries map[string]cachedFileInfo
}

func loadHashCache(path string) *hashCache {
	c := &hashCache{entries: make(map[string]cachedFileInfo)}
	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logrus.Debugf("ignoring corrupt hash cache: %v", err)
		c.entries = make(map[string]cachedFileInfo)
	}
	return c
}

func (c *hashCache) get(path string) (cachedFileInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[path]
	return e, ok
}

func (c *hashCache) put(path string, info cachedFileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = info
}

func (c *hashCache) save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// hashFile computes the sha256 of a file in streaming fashion.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// GetFilesToUpdate fetches the server manifest and compares every entry
// against the local game tree. A file needs updating when it is missing,
// has a different size, or hashes differently from the manifest. Progress
// events fire every hundred files and on the last; a completion event with
// batch statistics always follows.
func (c *Client) GetFilesToUpdate(ctx context.Context) ([]FileInfo, error) {
	start := time.Now()

	manifest, err := c.fetchManifest(ctx)
	if err != nil {
		return nil, err
	}
	gamePath, err := c.GamePath()
	if err != nil {
		return nil, err
	}

	cachePath := filepath.Join(gamePath, cacheFileName)
	cache := loadHashCache(cachePath)

	total := len(manifest.Files)
	needsUpdate := make([]bool, total)
	var processed, outdated atomic.Int64
	var totalSize atomic.Int64

	emitProgress := func(file string, count int) {
		c.emitter.emit(FileCheckProgress{
			CurrentFile:   file,
			Progress:      float64(count) / float64(total) * 100,
			CurrentCount:  count,
			TotalFiles:    total,
			ElapsedTime:   time.Since(start).Seconds(),
			FilesToUpdate: int(outdated.Load()),
		})
	}

	workers := runtime.NumCPU()
	if workers > total {
		workers = total
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fi := manifest.Files[i]
				if fileNeedsUpdate(gamePath, fi, cache) {
					needsUpdate[i] = true
					outdated.Add(1)
					totalSize.Add(fi.Size)
				}
				count := int(processed.Add(1))
				if count%checkProgressStride == 0 || count == total {
					emitProgress(fi.Path, count)
				}
			}
		}()
	}
	for i := range manifest.Files {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if err := cache.save(cachePath); err != nil {
		logrus.Debugf("failed to save hash cache: %v", err)
	}

	// Preserve manifest order in the result.
	var files []FileInfo
	for i, fi := range manifest.Files {
		if needsUpdate[i] {
			files = append(files, fi)
		}
	}

	elapsed := time.Since(start)
	avgMS := 0.0
	if total > 0 {
		avgMS = float64(elapsed.Milliseconds()) / float64(total)
	}
	c.emitter.emit(FileCheckCompleted{
		TotalFiles:           total,
		FilesToUpdate:        len(files),
		TotalSize:            totalSize.Load(),
		TotalTimeSeconds:     elapsed.Seconds(),
		AverageTimePerFileMS: avgMS,
	})
	logrus.Infof("file check completed: %d of %d files need updating", len(files), total)

	return files, nil
}

// fileNeedsUpdate decides whether one manifest entry is stale locally,
// consulting and refreshing the hash cache along the way.
func fileNeedsUpdate(gamePath string, fi FileInfo, cache *hashCache) bool {
	localPath := filepath.Join(gamePath, filepath.FromSlash(fi.Path))

	st, err := os.Stat(localPath)
	if err != nil {
		return true
	}
	if cached, ok := cache.get(fi.Path); ok {
		if cached.LastModified.Equal(st.ModTime()) && cached.Hash == fi.Hash {
			return false
		}
	}
	if st.Size() != fi.Size {
		return true
	}
	localHash, err := hashFile(localPath)
	if err != nil {
		return true
	}
	cache.put(fi.Path, cachedFileInfo{Hash: localHash, LastModified: st.ModTime()})
	return localHash != fi.Hash
}
