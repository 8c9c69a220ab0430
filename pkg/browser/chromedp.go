package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/root4loot/goutils/log"
)

const DriverChromedp = "chromedp"

func init() {
	_ = Register(DriverChromedp, launchChromedp)
}

type chromedpSession struct {
	ctx             context.Context
	cancelAllocator context.CancelFunc
	cancelBrowser   context.CancelFunc
	opts            LaunchOptions
	opened          bool
}

type chromedpPage struct {
	ctx  context.Context
	idle time.Duration
}

// customFlags returns chromedp.ExecAllocatorOptions based on the launch options.
func customFlags(opts LaunchOptions) []chromedp.ExecAllocatorOption {
	var flags []chromedp.ExecAllocatorOption

	flags = append(flags, chromedp.Flag("headless", opts.Headless))

	if opts.NoSandbox {
		flags = append(flags, chromedp.NoSandbox)
	}

	if opts.BinPath != "" {
		flags = append(flags, chromedp.ExecPath(opts.BinPath))
	}

	if opts.UserAgent != "" {
		flags = append(flags, chromedp.UserAgent(opts.UserAgent))
	}

	if !opts.RespectCertificateErrors {
		flags = append(flags, chromedp.Flag("ignore-certificate-errors", true))
	}

	if !opts.UseHTTP2 {
		flags = append(flags, chromedp.Flag("disable-http2", true))
	}

	if opts.Width != 0 && opts.Height != 0 {
		flags = append(flags, chromedp.WindowSize(opts.Width, opts.Height))
	}

	return flags
}

func launchChromedp(ctx context.Context, opts LaunchOptions) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], customFlags(opts)...)

	allocCtx, cancelAllocator := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	log.Debugf("Launching browser (chromedp) headless=%t", opts.Headless)

	// The first Run allocates the browser. It must not carry a step timeout,
	// or the browser would die with it.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAllocator()
		return nil, fmt.Errorf("error launching browser: %w", err)
	}

	return &chromedpSession{
		ctx:             browserCtx,
		cancelAllocator: cancelAllocator,
		cancelBrowser:   cancelBrowser,
		opts:            opts,
	}, nil
}

// NewPage returns the tab created with the browser.
func (s *chromedpSession) NewPage(ctx context.Context) (Page, error) {
	if s.opened {
		return nil, fmt.Errorf("error opening page: session already has a page")
	}
	s.opened = true

	if s.opts.Width != 0 && s.opts.Height != 0 {
		err := chromedp.Run(s.ctx, chromedp.EmulateViewport(int64(s.opts.Width), int64(s.opts.Height)))
		if err != nil {
			return nil, fmt.Errorf("error setting viewport: %w", err)
		}
	}

	return &chromedpPage{ctx: s.ctx, idle: s.opts.IdleTime}, nil
}

func (s *chromedpSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancelBrowser()
	s.cancelAllocator()
	log.Debugf("Browser (chromedp) closed")
	return err
}

// stepContext derives a context bounded by timeout that is also cancelled with ctx.
func (p *chromedpPage) stepContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	stepCtx, cancel := context.WithTimeout(p.ctx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return stepCtx, func() {
		stop()
		cancel()
	}
}

func (p *chromedpPage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	stepCtx, cancel := p.stepContext(ctx, timeout)
	defer cancel()

	idle := make(chan struct{})
	var once sync.Once
	var started bool

	// Lifecycle events start with "init" for every new document.
	chromedp.ListenTarget(stepCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}

		switch e.Name {
		case "init":
			started = true
		case "networkIdle":
			if started {
				once.Do(func() { close(idle) })
			}
		}
	})

	err := chromedp.Run(stepCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return page.SetLifecycleEventsEnabled(true).Do(ctx)
		}),
		chromedp.Navigate(url),
	)
	if err != nil {
		return err
	}

	select {
	case <-idle:
	case <-stepCtx.Done():
		return stepCtx.Err()
	}

	// Chrome's networkIdle fires after 500ms of quiet; add the rest of the
	// configured window when it is longer.
	if extra := p.idle - 500*time.Millisecond; extra > 0 {
		select {
		case <-time.After(extra):
		case <-stepCtx.Done():
			return stepCtx.Err()
		}
	}

	return nil
}

func (p *chromedpPage) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	stepCtx, cancel := p.stepContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, chromedp.WaitVisible(TextXPath(text), chromedp.BySearch)); err != nil {
		return fmt.Errorf("waiting for text %q: %w", text, err)
	}
	return nil
}

func (p *chromedpPage) ClickText(ctx context.Context, text string, timeout time.Duration) error {
	stepCtx, cancel := p.stepContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, chromedp.Click(TextXPath(text), chromedp.BySearch, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("clicking text %q: %w", text, err)
	}
	return nil
}

func (p *chromedpPage) Screenshot(ctx context.Context, timeout time.Duration) ([]byte, error) {
	stepCtx, cancel := p.stepContext(ctx, timeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(stepCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}
