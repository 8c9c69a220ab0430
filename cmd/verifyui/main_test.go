package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/root4loot/verifyui/pkg/browser"
	"github.com/root4loot/verifyui/pkg/verifier"
)

func TestParseFlags(t *testing.T) {
	cli := NewCLI()
	args := []string{"-u", "localhost:3000", "-to", "5000", "-o", "./output", "-d", "chromedp", "--fail-on-error", "-hf"}

	if err := cli.parseFlags(args); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	if cli.Options.URL != "http://localhost:3000" {
		t.Errorf("Expected URL to be 'http://localhost:3000', got %s", cli.Options.URL)
	}

	if cli.Options.SelectorTimeout != 5*time.Second {
		t.Errorf("Expected SelectorTimeout to be 5s, got %v", cli.Options.SelectorTimeout)
	}

	if cli.Options.LoginScreenshot != filepath.Join("output", "login.png") {
		t.Errorf("Expected LoginScreenshot to be 'output/login.png', got %s", cli.Options.LoginScreenshot)
	}

	if cli.Options.SignupScreenshot != filepath.Join("output", "signup.png") {
		t.Errorf("Expected SignupScreenshot to be 'output/signup.png', got %s", cli.Options.SignupScreenshot)
	}

	if cli.Options.Driver != browser.DriverChromedp {
		t.Errorf("Expected Driver to be chromedp, got %s", cli.Options.Driver)
	}

	if !cli.FailOnError {
		t.Errorf("Expected FailOnError to be set")
	}

	if cli.Options.Launch.Headless {
		t.Errorf("Expected headful browser")
	}
}

func TestParseFlagsDefaults(t *testing.T) {
	cli := NewCLI()

	if err := cli.parseFlags(nil); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	defaults := verifier.NewOptions()

	if cli.Options.URL != defaults.URL {
		t.Errorf("Expected URL %s, got %s", defaults.URL, cli.Options.URL)
	}
	if cli.Options.NavigationTimeout != defaults.NavigationTimeout {
		t.Errorf("Expected NavigationTimeout %v, got %v", defaults.NavigationTimeout, cli.Options.NavigationTimeout)
	}
	if cli.Options.LoginScreenshot != defaults.LoginScreenshot {
		t.Errorf("Expected LoginScreenshot %s, got %s", defaults.LoginScreenshot, cli.Options.LoginScreenshot)
	}
	if cli.Options.SignupMarker != defaults.SignupMarker {
		t.Errorf("Expected SignupMarker %s, got %s", defaults.SignupMarker, cli.Options.SignupMarker)
	}
	if !cli.Options.Launch.Headless {
		t.Errorf("Expected headless browser by default")
	}
	if cli.FailOnError {
		t.Errorf("Expected FailOnError to be off by default")
	}
}

func TestParseFlagsRejectsBadInput(t *testing.T) {
	tests := map[string][]string{
		"unknown driver":    {"-d", "lynx"},
		"zero timeout":      {"-nt", "0"},
		"bad threshold":     {"-tc", "-dt", "150"},
		"stray argument":    {"http://localhost:8081"},
		"empty marker":      {"-sm", ""},
		"undefined flag":    {"--concurrency", "4"},
		"empty target flag": {"-u", "   "},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			cli := NewCLI()
			if err := cli.parseFlags(args); err == nil {
				t.Errorf("Expected an error for %v", args)
			}
		})
	}
}

func TestParseFlagsPrintsNothingOnError(t *testing.T) {
	var buf bytes.Buffer
	stdout = &buf
	defer func() { stdout = os.Stdout }()

	for _, args := range [][]string{{"--concurrency", "4"}, {"-nt", "abc"}, {"-d", "lynx"}} {
		cli := NewCLI()
		if err := cli.parseFlags(args); err == nil {
			t.Errorf("Expected an error for %v", args)
		}
	}

	if buf.Len() != 0 {
		t.Errorf("Expected parseFlags to leave usage to main, got %q", buf.String())
	}
}

func TestExitCode(t *testing.T) {
	failed := verifier.Result{Err: errors.New("navigation failed")}
	passed := verifier.Result{Artifacts: []string{"verification/login.png", "verification/signup.png"}}

	if code := exitCode(failed, false); code != 0 {
		t.Errorf("Expected exit code 0 for a failed run by default, got %d", code)
	}
	if code := exitCode(failed, true); code != 1 {
		t.Errorf("Expected exit code 1 with --fail-on-error, got %d", code)
	}
	if code := exitCode(passed, true); code != 0 {
		t.Errorf("Expected exit code 0 for a passing run, got %d", code)
	}
}

func TestNormalizeTarget(t *testing.T) {
	got, err := normalizeTarget(" localhost:8081 ")
	if err != nil {
		t.Fatalf("Failed to normalize target: %v", err)
	}
	if got != "http://localhost:8081" {
		t.Errorf("Expected 'http://localhost:8081', got %s", got)
	}

	if _, err := normalizeTarget(""); err == nil {
		t.Errorf("Expected an error for an empty target")
	}
}
