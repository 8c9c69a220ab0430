package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/root4loot/goutils/log"
)

const DriverRod = "rod"

func init() {
	_ = Register(DriverRod, launchRod)
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	opts     LaunchOptions
}

type rodPage struct {
	page *rod.Page
	idle time.Duration
}

func launchRod(ctx context.Context, opts LaunchOptions) (Session, error) {
	path := opts.BinPath
	if path == "" {
		path, _ = launcher.LookPath()
	}

	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		NoSandbox(opts.NoSandbox)

	if path != "" {
		l = l.Bin(path)
	}

	if opts.UserAgent != "" {
		l.Set("user-agent", opts.UserAgent)
	}

	if !opts.RespectCertificateErrors {
		l.Set("ignore-certificate-errors", "true")
	}

	if !opts.UseHTTP2 {
		l.Set("disable-http2", "true")
	}

	log.Debugf("Launching browser (rod) bin=%q headless=%t", path, opts.Headless)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("error launching browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("error connecting to browser at %s: %w", controlURL, err)
	}

	return &rodSession{launcher: l, browser: b, opts: opts}, nil
}

func (s *rodSession) NewPage(ctx context.Context) (Page, error) {
	page, err := s.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("error opening page: %w", err)
	}

	if s.opts.Width != 0 && s.opts.Height != 0 {
		viewport := &proto.EmulationSetDeviceMetricsOverride{
			Width:             s.opts.Width,
			Height:            s.opts.Height,
			DeviceScaleFactor: 1,
			Mobile:            false,
		}

		if err := page.SetViewport(viewport); err != nil {
			return nil, fmt.Errorf("error setting viewport: %w", err)
		}
	}

	return &rodPage{page: page, idle: s.opts.IdleTime}, nil
}

// Close shuts the browser down, then kills the process and removes its profile directory.
func (s *rodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	log.Debugf("Browser (rod) closed")
	return err
}

func (p *rodPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	wait := page.WaitRequestIdle(p.idle, nil, nil, nil)

	if err := page.Navigate(url); err != nil {
		return err
	}

	if err := page.WaitLoad(); err != nil {
		return err
	}

	wait()

	// WaitRequestIdle gives up silently when the timeout fires.
	return page.GetContext().Err()
}

func (p *rodPage) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	el, err := page.ElementX(TextXPath(text))
	if err != nil {
		return fmt.Errorf("waiting for text %q: %w", text, err)
	}

	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("waiting for text %q to be visible: %w", text, err)
	}

	return nil
}

func (p *rodPage) ClickText(ctx context.Context, text string, timeout time.Duration) error {
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	el, err := page.ElementX(TextXPath(text))
	if err != nil {
		return fmt.Errorf("finding text %q: %w", text, err)
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("clicking text %q: %w", text, err)
	}

	return nil
}

func (p *rodPage) Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error) {
	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	return page.Screenshot(false, nil)
}
