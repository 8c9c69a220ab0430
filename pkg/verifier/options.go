package verifier

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/root4loot/verifyui/pkg/browser"
)

// Options contains the options for a verification run.
type Options struct {
	URL                string                // Page to open
	LoginMarker        string                // Text shown once the login view rendered
	SignupTrigger      string                // Text of the element that opens the signup view
	SignupMarker       string                // Text shown once the signup view rendered
	NavigationTimeout  time.Duration         // Bound for navigation plus network idle
	SelectorTimeout    time.Duration         // Bound for each marker wait
	ClickTimeout       time.Duration         // Bound for the signup click
	ScreenshotTimeout  time.Duration         // Bound for each capture
	LoginScreenshot    string                // Output path of the login capture
	SignupScreenshot   string                // Output path of the signup capture
	Driver             string                // Browser driver name
	Launch             browser.LaunchOptions // Browser launch options
	Imprint            bool                  // Add a caption band to the captures
	CheckTransition    bool                  // Warn when both captures look alike
	DuplicateThreshold int                   // ssdeep score (1-100) that counts as alike
}

const (
	DefaultURL           = "http://localhost:8081"
	DefaultLoginMarker   = "Welcome Back"
	DefaultSignupTrigger = "Sign Up"
	DefaultSignupMarker  = "Create Account"
	DefaultOutputFolder  = "verification"
	LoginFilename        = "login.png"
	SignupFilename       = "signup.png"
)

// NewOptions returns an Options struct initialized with default values.
func NewOptions() Options {
	return Options{
		URL:                DefaultURL,
		LoginMarker:        DefaultLoginMarker,
		SignupTrigger:      DefaultSignupTrigger,
		SignupMarker:       DefaultSignupMarker,
		NavigationTimeout:  60000 * time.Millisecond,
		SelectorTimeout:    10000 * time.Millisecond,
		ClickTimeout:       30000 * time.Millisecond,
		ScreenshotTimeout:  30000 * time.Millisecond,
		LoginScreenshot:    filepath.Join(DefaultOutputFolder, LoginFilename),
		SignupScreenshot:   filepath.Join(DefaultOutputFolder, SignupFilename),
		Driver:             browser.DriverRod,
		Launch:             browser.NewLaunchOptions(),
		Imprint:            false,
		CheckTransition:    false,
		DuplicateThreshold: 96,
	}
}

// SetOutputFolder points both captures at folder, keeping their file names.
func (o *Options) SetOutputFolder(folder string) {
	o.LoginScreenshot = filepath.Join(folder, LoginFilename)
	o.SignupScreenshot = filepath.Join(folder, SignupFilename)
}

// Validate reports the first option that cannot work.
func (o Options) Validate() error {
	switch {
	case o.URL == "":
		return fmt.Errorf("%w: url is empty", ErrInvalidOptions)
	case o.LoginMarker == "" || o.SignupTrigger == "" || o.SignupMarker == "":
		return fmt.Errorf("%w: marker texts must not be empty", ErrInvalidOptions)
	case o.NavigationTimeout <= 0 || o.SelectorTimeout <= 0 || o.ClickTimeout <= 0 || o.ScreenshotTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidOptions)
	case o.LoginScreenshot == "" || o.SignupScreenshot == "":
		return fmt.Errorf("%w: screenshot paths must not be empty", ErrInvalidOptions)
	case o.LoginScreenshot == o.SignupScreenshot:
		return fmt.Errorf("%w: login and signup screenshots share the path %s", ErrInvalidOptions, o.LoginScreenshot)
	case o.CheckTransition && (o.DuplicateThreshold < 1 || o.DuplicateThreshold > 100):
		return fmt.Errorf("%w: invalid similarity threshold %d, must be between 1 and 100", ErrInvalidOptions, o.DuplicateThreshold)
	}
	return nil
}
