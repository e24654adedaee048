// Package backends adapts the measurement stores (MRTG, sflow, Smokeping)
// to the dispatcher's Backend port.
package backends

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"

	"go.uber.org/zap"
)

// maxArtifactBytes bounds what is read from a backend for one graph.
const maxArtifactBytes = 32 << 20

// StatusError is a non-success answer from a backend.
type StatusError struct {
	Backend    services.BackendID
	Location   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d for %s", e.Backend, e.StatusCode, e.Location)
}

// NotFound reports whether the backend had no data for the graph.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// fetcher reads graph files from an HTTP base URL or, when the location is
// not a URL, from a local directory.
type fetcher struct {
	id     services.BackendID
	base   *url.URL
	dir    string
	client *http.Client
	logger *zap.Logger
}

func newFetcher(id services.BackendID, location string, timeout time.Duration, logger *zap.Logger) (*fetcher, error) {
	if location == "" {
		return nil, fmt.Errorf("%s: location is required", id)
	}
	f := &fetcher{
		id:     id,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}

	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		u, err := url.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid location %q: %w", id, location, err)
		}
		f.base = u
		return f, nil
	}

	f.dir = strings.TrimPrefix(location, "file://")
	return f, nil
}

// resolve joins rel onto the location; query is only used for URLs.
func (f *fetcher) resolve(rel string, query url.Values) string {
	if f.base == nil {
		return filepath.Join(f.dir, filepath.FromSlash(rel))
	}
	u := *f.base
	u.Path = path.Join(u.Path, rel)
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// get reads the resource at rel. Missing files and 404s come back as a
// *StatusError with NotFound set.
func (f *fetcher) get(ctx context.Context, rel string, query url.Values) ([]byte, error) {
	location := f.resolve(rel, query)
	if f.base == nil {
		return f.readFile(location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", f.id, err)
	}
	defer resp.Body.Close()

	f.logger.Debug("Backend fetch",
		zap.String("backend", string(f.id)),
		zap.String("url", location),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Backend: f.id, Location: location, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s read failed: %w", f.id, err)
	}
	if len(body) > maxArtifactBytes {
		return nil, fmt.Errorf("%s response exceeds %d bytes", f.id, maxArtifactBytes)
	}
	return body, nil
}

func (f *fetcher) readFile(name string) ([]byte, error) {
	info, err := os.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &StatusError{Backend: f.id, Location: name, StatusCode: http.StatusNotFound}
		}
		return nil, fmt.Errorf("%s stat failed: %w", f.id, err)
	}
	if info.Size() > maxArtifactBytes {
		return nil, fmt.Errorf("%s file %s exceeds %d bytes", f.id, name, maxArtifactBytes)
	}
	return os.ReadFile(name)
}

// periodWindow is how far back a period reaches.
func periodWindow(p vo.Period) time.Duration {
	switch p {
	case vo.PeriodWeek:
		return 7 * 24 * time.Hour
	case vo.PeriodMonth:
		return 31 * 24 * time.Hour
	case vo.PeriodYear:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func extension(t vo.OutputType) string {
	if t == vo.OutputRawData {
		return "json"
	}
	return "png"
}
