package refdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dvloznov/nyc-taxi-pipeline/internal/logger"
)

// Fetcher downloads reference files into a local data directory. Files
// already on disk are reused, so repeated runs do not hit the CDN.
type Fetcher struct {
	client  *http.Client
	dataDir string
}

func NewFetcher(client *http.Client, dataDir string) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, dataDir: dataDir}
}

// Fetch ensures the file named by url's last path segment exists under the
// data directory and returns its local path.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	dest := filepath.Join(f.dataDir, filepath.Base(url))
	log := logger.FromContext(ctx)

	if _, err := os.Stat(dest); err == nil {
		log.Debug().Str("path", dest).Msg("reference file already present, skipping download")
		return dest, nil
	}

	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("refdata.Fetch: create data dir: %w", err)
	}

	log.Info().Str("url", url).Str("path", dest).Msg("downloading reference file")
	if err := download(ctx, f.client, url, dest); err != nil {
		return "", fmt.Errorf("refdata.Fetch: %w", err)
	}
	return dest, nil
}

// download writes to a temp file first and renames on success, so an
// interrupted transfer never leaves a truncated file that a later run
// would treat as complete.
func download(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename to %s: %w", dest, err)
	}
	return nil
}
