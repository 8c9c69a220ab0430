// Package browser wraps the headless browser drivers used to walk a page
// flow: launch a session, open a page, navigate, wait for text, click text
// and capture screenshots.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	ErrUnknownDriver = errors.New("unknown browser driver")
	ErrNilLauncher   = errors.New("driver launch function is nil")
)

// Session is a running browser process owned by a single caller.
// Close must terminate the process.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab inside a Session.
type Page interface {
	// Navigate loads url and blocks until the network has been idle, bounded by timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	// WaitForText blocks until an element whose own text contains text is visible.
	WaitForText(ctx context.Context, text string, timeout time.Duration) error
	// ClickText clicks the first element whose own text contains text.
	ClickText(ctx context.Context, text string, timeout time.Duration) error
	// Screenshot captures the current viewport as PNG.
	Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// LaunchOptions contains the options for starting a browser.
type LaunchOptions struct {
	Headless                 bool          // Run without a window
	NoSandbox                bool          // Disable the Chromium sandbox
	BinPath                  string        // Browser binary, empty to look it up
	UserAgent                string        // User agent, empty for the browser default
	Width                    int           // Viewport width
	Height                   int           // Viewport height
	RespectCertificateErrors bool          // Respect certificate errors
	UseHTTP2                 bool          // Use HTTP2
	IdleTime                 time.Duration // Quiet window that counts as network idle
}

// NewLaunchOptions returns LaunchOptions initialized with default values.
func NewLaunchOptions() LaunchOptions {
	return LaunchOptions{
		Headless:                 true,
		NoSandbox:                true,
		Width:                    1280,
		Height:                   720,
		RespectCertificateErrors: false,
		UseHTTP2:                 false,
		IdleTime:                 500 * time.Millisecond,
	}
}

// LaunchFunc starts a browser session for a driver.
type LaunchFunc func(ctx context.Context, opts LaunchOptions) (Session, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]LaunchFunc{}
)

// Register makes a driver available under name. Registering a name twice replaces it.
func Register(name string, launch LaunchFunc) error {
	if launch == nil {
		return ErrNilLauncher
	}

	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = launch
	return nil
}

// Unregister removes a driver.
func Unregister(name string) {
	driversMu.Lock()
	defer driversMu.Unlock()
	delete(drivers, name)
}

// Drivers lists the registered driver names in sorted order.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Launch starts a session with the named driver.
func Launch(ctx context.Context, name string, opts LaunchOptions) (Session, error) {
	driversMu.RLock()
	launch, ok := drivers[name]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, name)
	}

	return launch(ctx, opts)
}
