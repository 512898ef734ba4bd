// Package sdk side-loads the payment provider's checkout script.
//
// The script is fetched at most once per process. The widget page serves the
// cached copy, so "loaded" means the bundle is held in memory.
package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Status is the loader's script state.
type Status int

const (
	Absent Status = iota
	Loading
	Ready
	Failed
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ErrLoadFailed is returned by Load once a fetch has failed. Failure is sticky
// for the life of the loader.
var ErrLoadFailed = errors.New("sdk: load failed")

const maxBundleBytes = 4 << 20

// Loader fetches and caches the checkout script.
type Loader struct {
	url    string
	client *http.Client
	logger *slog.Logger

	group singleflight.Group
	loads atomic.Int64

	mu     sync.Mutex
	status Status
	bundle []byte
	err    error
}

// NewLoader returns a loader for the script at url. When bundlePath names a
// readable file, its contents are used as an already present script and no
// fetch ever happens.
func NewLoader(url, bundlePath string, client *http.Client, logger *slog.Logger) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	l := &Loader{
		url:    url,
		client: client,
		logger: logger.With("component", "sdk-loader"),
	}
	if bundlePath != "" {
		data, err := os.ReadFile(bundlePath)
		switch {
		case err != nil:
			l.logger.Warn("sdk bundle not readable, will fetch", "path", bundlePath, "error", err)
		case len(data) == 0:
			l.logger.Warn("sdk bundle is empty, will fetch", "path", bundlePath)
		default:
			l.status = Ready
			l.bundle = data
		}
	}
	return l
}

// Status reports whether the script is present.
func (l *Loader) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Bundle returns the cached script, or nil when it is not loaded.
func (l *Loader) Bundle() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bundle
}

// Loads returns how many network fetches have been issued.
func (l *Loader) Loads() int64 {
	return l.loads.Load()
}

// URL is where the script is fetched from.
func (l *Loader) URL() string {
	return l.url
}

// Load makes the script present. It returns immediately when the script is
// already present and joins any fetch already in progress. After a failed fetch
// every call returns ErrLoadFailed without retrying.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	switch l.status {
	case Ready:
		l.mu.Unlock()
		return nil
	case Failed:
		err := l.err
		l.mu.Unlock()
		return err
	}
	l.status = Loading
	l.mu.Unlock()

	ch := l.group.DoChan("load", func() (any, error) {
		return nil, l.fetch(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loader) fetch(ctx context.Context) error {
	// A concurrent caller may have finished while this one waited to enter the group.
	l.mu.Lock()
	if l.status == Ready {
		l.mu.Unlock()
		return nil
	}
	if l.status == Failed {
		err := l.err
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	l.loads.Add(1)
	l.logger.Info("loading checkout sdk", "url", l.url)

	data, err := l.download(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.status = Failed
		l.err = fmt.Errorf("%w: %v", ErrLoadFailed, err)
		l.logger.Error("checkout sdk load failed", "error", err)
		return l.err
	}
	l.status = Ready
	l.bundle = data
	l.logger.Info("checkout sdk loaded", "bytes", len(data))
	return nil
}

func (l *Loader) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBundleBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxBundleBytes {
		return nil, fmt.Errorf("script exceeds %d bytes", maxBundleBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("empty script")
	}
	return data, nil
}
