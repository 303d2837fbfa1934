package backend

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// downloadProgressInterval throttles per-chunk progress events.
	downloadProgressInterval = 100 * time.Millisecond
	downloadChunkSize        = 64 * 1024
)

// DownloadAllFiles downloads every file sequentially, streaming progress
// events as it goes, and returns the bytes written per file in input order.
// Each file is hash-verified after download; a mismatch aborts the batch.
func (c *Client) DownloadAllFiles(ctx context.Context, files []FileInfo) ([]int64, error) {
	totalFiles := len(files)
	if totalFiles == 0 {
		logrus.Debug("no files to download")
		c.emitter.emit(DownloadComplete{})
		return []int64{}, nil
	}

	gamePath, err := c.GamePath()
	if err != nil {
		return nil, err
	}
	totalSize := TotalSize(files)

	sizes := make([]int64, 0, totalFiles)
	var downloadedSoFar int64
	for i, fi := range files {
		n, err := c.downloadFile(ctx, gamePath, fi, downloadCursor{
			totalFiles:     totalFiles,
			fileIndex:      i + 1,
			totalSize:      totalSize,
			downloadedSize: downloadedSoFar,
		})
		if err != nil {
			return nil, err
		}
		downloadedSoFar += n
		sizes = append(sizes, n)
	}

	logrus.Infof("download complete for %d file(s)", totalFiles)
	c.emitter.emit(DownloadComplete{})
	return sizes, nil
}

// downloadCursor carries batch-level position through a single file's
// download so emitted events report cumulative figures.
type downloadCursor struct {
	totalFiles     int
	fileIndex      int
	totalSize      int64
	downloadedSize int64
}

func (c *Client) downloadFile(ctx context.Context, gamePath string, fi FileInfo, cur downloadCursor) (int64, error) {
	localPath := filepath.Join(gamePath, filepath.FromSlash(fi.Path))
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fi.URL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, RemoteError{StatusCode: resp.StatusCode, URL: fi.URL}
	}

	fileSize := fi.Size
	if resp.ContentLength > 0 {
		fileSize = resp.ContentLength
	}

	out, err := os.Create(localPath)
	if err != nil {
		return 0, err
	}

	hasher := sha256.New()
	writer := io.MultiWriter(out, hasher)

	var downloaded int64
	start := time.Now()
	lastEmit := start
	buf := make([]byte, downloadChunkSize)

	emit := func(progress, speed float64) {
		c.emitter.emit(DownloadProgress{
			FileName:         fi.Path,
			Progress:         progress,
			Speed:            speed,
			DownloadedBytes:  cur.downloadedSize + downloaded,
			TotalBytes:       cur.totalSize,
			TotalFiles:       cur.totalFiles,
			ElapsedTime:      time.Since(start).Seconds(),
			CurrentFileIndex: cur.fileIndex,
		})
	}

	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			return downloaded, err
		}
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := writer.Write(buf[:n]); err != nil {
				out.Close()
				return downloaded, err
			}
			downloaded += int64(n)
		}
		now := time.Now()
		if now.Sub(lastEmit) >= downloadProgressInterval || downloaded == fileSize {
			elapsed := now.Sub(start).Seconds()
			speed := float64(downloaded)
			if elapsed > 0 {
				speed = float64(downloaded) / elapsed
			}
			progress := 100.0
			if fileSize > 0 {
				progress = float64(downloaded) / float64(fileSize) * 100
			}
			emit(progress, speed)
			lastEmit = now
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			out.Close()
			return downloaded, readErr
		}
	}
	if err := out.Close(); err != nil {
		return downloaded, err
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if got != fi.Hash {
		return downloaded, HashMismatchError{Path: fi.Path, Want: fi.Hash, Got: got}
	}

	// Final per-file event pins this file at 100%.
	emit(100, 0)
	logrus.Debugf("file download completed: %s (%d bytes)", fi.Path, downloaded)
	return downloaded, nil
}
