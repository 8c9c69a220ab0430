package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/root4loot/goutils/log"
)

const DriverPlaywright = "playwright"

func init() {
	_ = Register(DriverPlaywright, launchPlaywright)
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    LaunchOptions
}

type playwrightPage struct {
	page playwright.Page
}

func launchPlaywright(ctx context.Context, opts LaunchOptions) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		log.Debugf("Playwright driver not found, installing: %v", err)
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("error installing playwright: %w", err)
		}
		pw, err = playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("error starting playwright: %w", err)
		}
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless:        playwright.Bool(opts.Headless),
		ChromiumSandbox: playwright.Bool(!opts.NoSandbox),
	}

	if opts.BinPath != "" {
		launchOpts.ExecutablePath = playwright.String(opts.BinPath)
	}

	if !opts.UseHTTP2 {
		launchOpts.Args = append(launchOpts.Args, "--disable-http2")
	}

	log.Debugf("Launching browser (playwright) headless=%t", opts.Headless)

	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("error launching browser: %w", err)
	}

	return &playwrightSession{pw: pw, browser: b, opts: opts}, nil
}

func (s *playwrightSession) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageOpts := playwright.BrowserNewPageOptions{
		IgnoreHttpsErrors: playwright.Bool(!s.opts.RespectCertificateErrors),
	}

	if s.opts.Width != 0 && s.opts.Height != 0 {
		pageOpts.Viewport = &playwright.Size{Width: s.opts.Width, Height: s.opts.Height}
	}

	if s.opts.UserAgent != "" {
		pageOpts.UserAgent = playwright.String(s.opts.UserAgent)
	}

	page, err := s.browser.NewPage(pageOpts)
	if err != nil {
		return nil, fmt.Errorf("error opening page: %w", err)
	}

	return &playwrightPage{page: page}, nil
}

func (s *playwrightSession) Close() error {
	err := s.browser.Close()
	if stopErr := s.pw.Stop(); stopErr != nil {
		err = errors.Join(err, stopErr)
	}
	log.Debugf("Browser (playwright) closed")
	return err
}

// timeoutMillis bounds d by the deadline of ctx, in the unit playwright expects.
func timeoutMillis(ctx context.Context, d time.Duration) (*float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	return playwright.Float(float64(d.Milliseconds())), nil
}

// textSelector is playwright's own case-insensitive substring text engine.
func textSelector(text string) string {
	return "text=" + text
}

func (p *playwrightPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	ms, err := timeoutMillis(ctx, timeout)
	if err != nil {
		return err
	}

	_, err = p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   ms,
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	return err
}

func (p *playwrightPage) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	ms, err := timeoutMillis(ctx, timeout)
	if err != nil {
		return err
	}

	err = p.page.Locator(textSelector(text)).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: ms,
	})
	if err != nil {
		return fmt.Errorf("waiting for text %q: %w", text, err)
	}
	return nil
}

func (p *playwrightPage) ClickText(ctx context.Context, text string, timeout time.Duration) error {
	ms, err := timeoutMillis(ctx, timeout)
	if err != nil {
		return err
	}

	err = p.page.Locator(textSelector(text)).First().Click(playwright.LocatorClickOptions{Timeout: ms})
	if err != nil {
		return fmt.Errorf("clicking text %q: %w", text, err)
	}
	return nil
}

func (p *playwrightPage) Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error) {
	ms, err := timeoutMillis(ctx, timeout)
	if err != nil {
		return nil, err
	}

	return p.page.Screenshot(playwright.PageScreenshotOptions{
		Timeout: ms,
		Type:    playwright.ScreenshotTypePng,
	})
}
