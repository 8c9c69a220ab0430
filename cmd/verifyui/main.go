package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/root4loot/goutils/log"
	"github.com/root4loot/goutils/urlutil"
	"github.com/root4loot/verifyui/pkg/browser"
	"github.com/root4loot/verifyui/pkg/verifier"
)

const (
	author  = "@danielantonsen"
	version = "0.1.0"
	usage   = `USAGE:
  verifyui [options]

TARGET:
  -u,   --url                    app to verify                                           (Default: http://localhost:8081)
  -lm,  --login-marker           text that marks the login view                          (Default: Welcome Back)
  -st,  --signup-trigger         text of the element that opens signup                   (Default: Sign Up)
  -sm,  --signup-marker          text that marks the signup view                         (Default: Create Account)

CONFIGURATIONS:
  -d,   --driver                 browser driver (rod, chromedp, playwright)              (Default: rod)
  -b,   --browser-bin            browser binary                                          (Default: auto)
  -nt,  --navigation-timeout     navigation and network idle timeout (ms)                (Default: 60000)
  -to,  --selector-timeout       timeout for each marker (ms)                            (Default: 10000)
  -ct,  --click-timeout          timeout for the signup click (ms)                       (Default: 30000)
  -ua,  --user-agent             specify user agent                                      (Default: browser UA)
  -uh,  --use-http2              use HTTP2                                               (Default: false)
  -cw,  --capture-width          viewport width                                          (Default: 1280)
  -ch,  --capture-height         viewport height                                         (Default: 720)
  -rce, --respect-cert-err       respect certificate errors                              (Default: false)
  -hf,  --headful                show the browser window                                 (Default: false)
  -tc,  --check-transition       warn when login and signup screenshots look alike       (Default: false)
  -dt,  --duplicate-threshold    threshold for similarity percentage (1-100)             (Default: 96)
  -fe,  --fail-on-error          exit with status 1 when the flow fails                  (Default: false)

OUTPUT:
  -o,   --outfolder              existing folder for login.png and signup.png            (Default: verification)
  -im,  --imprint                add a caption to the screenshots                        (Default: false)
        --debug                  enable debug mode
        --version                display version
`
)

// stdout receives usage and version text.
var stdout io.Writer = os.Stdout

type cli struct {
	*verifier.Verifier
	OutputFolder string
	FailOnError  bool
}

type cliOptions struct {
	OutputFolder string
	FailOnError  bool
}

func NewCLIOptions() *cliOptions {
	return &cliOptions{
		OutputFolder: verifier.DefaultOutputFolder,
		FailOnError:  false,
	}
}

func NewCLI() *cli {
	return &cli{Verifier: verifier.NewVerifier()}
}

func init() {
	verifier.Init()
}

func main() {
	cli := NewCLI()
	if err := cli.parseFlags(os.Args[1:]); err != nil {
		log.Errorf("%v", err)
		fmt.Fprint(stdout, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	result := cli.Run(ctx)
	stop()

	os.Exit(exitCode(result, cli.FailOnError))
}

// exitCode is 0 unless failOnError is set and the flow did not complete.
func exitCode(result verifier.Result, failOnError bool) int {
	if failOnError && !result.OK() {
		return 1
	}
	return 0
}

func (cli *cli) parseFlags(args []string) error {
	var help, ver, debug, headful bool
	var navigationTimeout, selectorTimeout, clickTimeout int

	// Parse errors are reported by main, together with the usage text.
	fs := flag.NewFlagSet("verifyui", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	options := NewCLIOptions()
	defaults := verifier.NewOptions()
	o := &cli.Options

	// TARGET
	fs.StringVar(&o.URL, "url", defaults.URL, "")
	fs.StringVar(&o.URL, "u", defaults.URL, "")
	fs.StringVar(&o.LoginMarker, "login-marker", defaults.LoginMarker, "")
	fs.StringVar(&o.LoginMarker, "lm", defaults.LoginMarker, "")
	fs.StringVar(&o.SignupTrigger, "signup-trigger", defaults.SignupTrigger, "")
	fs.StringVar(&o.SignupTrigger, "st", defaults.SignupTrigger, "")
	fs.StringVar(&o.SignupMarker, "signup-marker", defaults.SignupMarker, "")
	fs.StringVar(&o.SignupMarker, "sm", defaults.SignupMarker, "")

	// CONFIGURATIONS
	fs.StringVar(&o.Driver, "driver", defaults.Driver, "")
	fs.StringVar(&o.Driver, "d", defaults.Driver, "")
	fs.StringVar(&o.Launch.BinPath, "browser-bin", defaults.Launch.BinPath, "")
	fs.StringVar(&o.Launch.BinPath, "b", defaults.Launch.BinPath, "")
	fs.IntVar(&navigationTimeout, "navigation-timeout", int(defaults.NavigationTimeout.Milliseconds()), "")
	fs.IntVar(&navigationTimeout, "nt", int(defaults.NavigationTimeout.Milliseconds()), "")
	fs.IntVar(&selectorTimeout, "selector-timeout", int(defaults.SelectorTimeout.Milliseconds()), "")
	fs.IntVar(&selectorTimeout, "to", int(defaults.SelectorTimeout.Milliseconds()), "")
	fs.IntVar(&clickTimeout, "click-timeout", int(defaults.ClickTimeout.Milliseconds()), "")
	fs.IntVar(&clickTimeout, "ct", int(defaults.ClickTimeout.Milliseconds()), "")
	fs.StringVar(&o.Launch.UserAgent, "user-agent", defaults.Launch.UserAgent, "")
	fs.StringVar(&o.Launch.UserAgent, "ua", defaults.Launch.UserAgent, "")
	fs.BoolVar(&o.Launch.UseHTTP2, "use-http2", defaults.Launch.UseHTTP2, "")
	fs.BoolVar(&o.Launch.UseHTTP2, "uh", defaults.Launch.UseHTTP2, "")
	fs.IntVar(&o.Launch.Width, "capture-width", defaults.Launch.Width, "")
	fs.IntVar(&o.Launch.Width, "cw", defaults.Launch.Width, "")
	fs.IntVar(&o.Launch.Height, "capture-height", defaults.Launch.Height, "")
	fs.IntVar(&o.Launch.Height, "ch", defaults.Launch.Height, "")
	fs.BoolVar(&o.Launch.RespectCertificateErrors, "respect-cert-err", defaults.Launch.RespectCertificateErrors, "")
	fs.BoolVar(&o.Launch.RespectCertificateErrors, "rce", defaults.Launch.RespectCertificateErrors, "")
	fs.BoolVar(&headful, "headful", false, "")
	fs.BoolVar(&headful, "hf", false, "")
	fs.BoolVar(&o.CheckTransition, "check-transition", defaults.CheckTransition, "")
	fs.BoolVar(&o.CheckTransition, "tc", defaults.CheckTransition, "")
	fs.IntVar(&o.DuplicateThreshold, "duplicate-threshold", defaults.DuplicateThreshold, "")
	fs.IntVar(&o.DuplicateThreshold, "dt", defaults.DuplicateThreshold, "")
	fs.BoolVar(&cli.FailOnError, "fail-on-error", options.FailOnError, "")
	fs.BoolVar(&cli.FailOnError, "fe", options.FailOnError, "")

	// OUTPUT
	fs.StringVar(&cli.OutputFolder, "outfolder", options.OutputFolder, "")
	fs.StringVar(&cli.OutputFolder, "o", options.OutputFolder, "")
	fs.BoolVar(&o.Imprint, "imprint", defaults.Imprint, "")
	fs.BoolVar(&o.Imprint, "im", defaults.Imprint, "")
	fs.BoolVar(&debug, "debug", false, "")
	fs.BoolVar(&help, "help", false, "")
	fs.BoolVar(&help, "h", false, "")
	fs.BoolVar(&ver, "version", false, "")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			fmt.Fprint(stdout, usage)
			os.Exit(0)
		}
		return err
	}

	verifier.SetDebug(debug)

	if help {
		fmt.Fprint(stdout, usage)
		os.Exit(0)
	}

	if ver {
		fmt.Fprintln(stdout, "verifyui", version)
		os.Exit(0)
	}

	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	o.Launch.Headless = !headful
	o.NavigationTimeout = time.Duration(navigationTimeout) * time.Millisecond
	o.SelectorTimeout = time.Duration(selectorTimeout) * time.Millisecond
	o.ClickTimeout = time.Duration(clickTimeout) * time.Millisecond
	o.SetOutputFolder(cli.OutputFolder)

	target, err := normalizeTarget(o.URL)
	if err != nil {
		return err
	}
	o.URL = target

	if !isKnownDriver(o.Driver) {
		return fmt.Errorf("unknown driver %q, expected one of: %s", o.Driver, strings.Join(browser.Drivers(), ", "))
	}

	return o.Validate()
}

// normalizeTarget adds http:// to bare hosts and drops default ports.
func normalizeTarget(target string) (string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", fmt.Errorf("no target specified")
	}

	if !urlutil.HasScheme(target) {
		log.Debugf("No scheme specified for %s: using HTTP", target)
		target = "http://" + target
	}

	target, err := urlutil.RemoveDefaultPort(target)
	if err != nil {
		return "", fmt.Errorf("invalid target %s: %w", target, err)
	}

	return target, nil
}

func isKnownDriver(name string) bool {
	for _, d := range browser.Drivers() {
		if d == name {
			return true
		}
	}
	return false
}
