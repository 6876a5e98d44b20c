// Package noaa retrieves ISD data files from the NOAA archive. Paths
// follow the archive layout, e.g. /pub/data/noaa/2022/720534-00161-2022.gz.
package noaa

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultBaseURL is NOAA's HTTP mirror of the ISD archive.
const DefaultBaseURL = "https://www.ncei.noaa.gov"

// HTTPTransport fetches archive files over HTTP.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

func NewHTTPTransport(baseURL string, client *http.Client) *HTTPTransport {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &HTTPTransport{baseURL: strings.TrimSuffix(baseURL, "/"), client: client}
}

// Open retrieves one archive file. Files ending in .z or .gz are
// decompressed transparently; the caller always reads plain text.
func (t *HTTPTransport) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	url := t.baseURL + "/" + strings.TrimPrefix(filename, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", filename, err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", filename, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", filename, resp.Status)
	}
	return maybeGunzip(filename, resp.Body)
}

// DirTransport reads archive files from a local directory mirroring the
// archive layout. Used for tests and pre-downloaded data sets.
type DirTransport struct {
	root string
}

func NewDirTransport(root string) *DirTransport {
	return &DirTransport{root: root}
}

func (t *DirTransport) Open(_ context.Context, filename string) (io.ReadCloser, error) {
	path := filepath.Join(t.root, filepath.FromSlash(strings.TrimPrefix(filename, "/")))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	return maybeGunzip(filename, f)
}

type gunzipReader struct {
	*gzip.Reader
	raw io.Closer
}

func (r *gunzipReader) Close() error {
	gzErr := r.Reader.Close()
	if err := r.raw.Close(); err != nil {
		return err
	}
	return gzErr
}

func maybeGunzip(filename string, raw io.ReadCloser) (io.ReadCloser, error) {
	lower := strings.ToLower(filename)
	if !strings.HasSuffix(lower, ".z") && !strings.HasSuffix(lower, ".gz") {
		return raw, nil
	}
	gz, err := gzip.NewReader(raw)
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("decompress %s: %w", filename, err)
	}
	return &gunzipReader{Reader: gz, raw: raw}, nil
}
