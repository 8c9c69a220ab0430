// Package verifier walks a web app's login and signup views in a headless
// browser and captures a screenshot of each for human review.
package verifier

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/goutils/urlutil"
	"github.com/root4loot/verifyui/pkg/browser"
)

var (
	ErrInvalidOptions = errors.New("invalid options")
	ErrNoScreenshot   = errors.New("browser returned an empty screenshot")
	ErrPanic          = errors.New("browser driver panicked")
)

// Progress lines, printed in this order as the run advances.
const (
	MsgNavigating    = "Navigating to Login..."
	MsgWaitLogin     = "Waiting for Login elements..."
	MsgCaptureLogin  = "Taking Login screenshot..."
	MsgClickSignup   = "Clicking Sign Up..."
	MsgWaitSignup    = "Waiting for Signup elements..."
	MsgCaptureSignup = "Taking Signup screenshot..."
)

type Verifier struct {
	Options Options
	Output  io.Writer // Progress and error lines, stdout by default
}

// Result contains the outcome of a run. Artifacts lists the screenshots
// written, in capture order; Err is nil when the whole flow completed.
type Result struct {
	Artifacts []string
	Err       error
}

// OK reports whether the run completed every step.
func (r Result) OK() bool {
	return r.Err == nil
}

// NewVerifier creates a Verifier with default options.
func NewVerifier() *Verifier {
	return NewVerifierWithOptions(NewOptions())
}

// NewVerifierWithOptions creates a Verifier with the provided options.
func NewVerifierWithOptions(options Options) *Verifier {
	return &Verifier{
		Options: options,
		Output:  os.Stdout,
	}
}

func Init() {
	log.Init("verifyui")
	log.SetLevel(log.InfoLevel)
}

// SetDebug enables or disables debug logging.
func SetDebug(debug bool) {
	if debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// Run launches a browser, walks the login and signup views and writes both
// screenshots. Any failure is printed as a single "Error: ..." line and
// returned in the Result. The browser is closed on every path.
func (v *Verifier) Run(ctx context.Context) (result Result) {
	if err := v.Options.Validate(); err != nil {
		return v.fail(result, err)
	}

	session, err := browser.Launch(ctx, v.Options.Driver, v.Options.Launch)
	if err != nil {
		return v.fail(result, err)
	}

	defer func() {
		if err := session.Close(); err != nil {
			log.Warnf("Error closing browser: %v", err)
		}
	}()

	if err := v.walk(ctx, session, &result); err != nil {
		return v.fail(result, err)
	}

	log.Debugf("Verification of %s finished, %d screenshots written", v.Options.URL, len(result.Artifacts))
	return result
}

func (v *Verifier) fail(result Result, err error) Result {
	result.Err = err
	fmt.Fprintf(v.output(), "Error: %v\n", err)
	return result
}

// walk runs the page steps. A panic in a driver ends the walk like any other error.
func (v *Verifier) walk(ctx context.Context, session browser.Session, result *Result) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()

	o := v.Options

	page, err := session.NewPage(ctx)
	if err != nil {
		return err
	}

	v.progress(MsgNavigating)
	if err := page.Navigate(ctx, o.URL, o.NavigationTimeout); err != nil {
		return fmt.Errorf("error navigating to %s: %w", o.URL, err)
	}

	v.progress(MsgWaitLogin)
	if err := page.WaitForText(ctx, o.LoginMarker, o.SelectorTimeout); err != nil {
		return err
	}

	v.progress(MsgCaptureLogin)
	login, err := v.capture(ctx, page, o.LoginScreenshot, "login")
	if err != nil {
		return err
	}
	result.Artifacts = append(result.Artifacts, o.LoginScreenshot)

	v.progress(MsgClickSignup)
	if err := page.ClickText(ctx, o.SignupTrigger, o.ClickTimeout); err != nil {
		return err
	}

	v.progress(MsgWaitSignup)
	if err := page.WaitForText(ctx, o.SignupMarker, o.SelectorTimeout); err != nil {
		return err
	}

	v.progress(MsgCaptureSignup)
	signup, err := v.capture(ctx, page, o.SignupScreenshot, "signup")
	if err != nil {
		return err
	}
	result.Artifacts = append(result.Artifacts, o.SignupScreenshot)

	if o.CheckTransition {
		v.checkTransition(login, signup)
	}

	return nil
}

// capture takes a screenshot, optionally imprints it and writes it to path.
// It returns the image as the browser produced it.
func (v *Verifier) capture(ctx context.Context, page browser.Page, path, label string) (Image, error) {
	data, err := page.Screenshot(ctx, v.Options.ScreenshotTimeout)
	if err != nil {
		return nil, fmt.Errorf("error capturing %s screenshot: %w", label, err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("error capturing %s screenshot: %w", label, ErrNoScreenshot)
	}

	img := Image(data)
	out := img

	if v.Options.Imprint {
		out, err = img.AddCaption(v.caption(label))
		if err != nil {
			return nil, fmt.Errorf("error adding caption to %s screenshot: %w", label, err)
		}
	}

	if err := out.WriteFile(path); err != nil {
		return nil, fmt.Errorf("error saving %s screenshot: %w", label, err)
	}

	log.Debugf("Screenshot %s saved to %s (%d bytes)", label, path, len(out))
	return img, nil
}

func (v *Verifier) caption(label string) string {
	origin, err := urlutil.GetOrigin(v.Options.URL)
	if err != nil {
		origin = v.Options.URL
	}
	return label + "  " + origin
}

func (v *Verifier) checkTransition(login, signup Image) {
	similar, score, err := login.IsSimilarTo(signup, v.Options.DuplicateThreshold)
	if err != nil {
		log.Debugf("Skipping transition check: %v", err)
		return
	}

	log.Debugf("Login and signup screenshots similarity score: %d", score)
	if similar {
		log.Warnf("Signup screenshot is %d%% similar to login screenshot; clicking %q may not have changed the view", score, v.Options.SignupTrigger)
	}
}

func (v *Verifier) progress(msg string) {
	fmt.Fprintln(v.output(), msg)
}

func (v *Verifier) output() io.Writer {
	if v.Output == nil {
		return io.Discard
	}
	return v.Output
}
