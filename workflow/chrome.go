package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"BixpeClockBot/logger"

	"github.com/chromedp/chromedp"
)

const defaultStepTimeout = 30 * time.Second

type chromePage struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	stepTimeout time.Duration
}

// LaunchChrome abre um Chrome local via chromedp. O navegador morre junto com ctx.
func LaunchChrome(ctx context.Context, headless bool) (Page, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.WindowSize(1366, 900),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(logger.For("chrome").Debugf))

	// a primeira Run sobe o processo do navegador
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("iniciando chrome: %w", err)
	}

	return &chromePage{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		stepTimeout: defaultStepTimeout,
	}, nil
}

func (p *chromePage) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

func (p *chromePage) Navigate(url string) error {
	if err := p.run(p.stepTimeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navegando para %s: %w", url, err)
	}
	return p.WaitLoaded()
}

func (p *chromePage) WaitLoaded() error {
	var ready bool
	err := p.run(p.stepTimeout,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Poll(`document.readyState === "complete"`, &ready, chromedp.WithPollingInterval(200*time.Millisecond)),
	)
	if err != nil {
		return fmt.Errorf("aguardando carregamento: %w", err)
	}
	return nil
}

func (p *chromePage) Fill(selector, value string) error {
	err := p.run(p.stepTimeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("preenchendo %s: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Click(selector string) error {
	if err := p.run(p.stepTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("clicando em %s: %w", selector, err)
	}
	return nil
}

func (p *chromePage) WaitVisible(selector string, timeout time.Duration) (bool, error) {
	err := p.run(timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, context.DeadlineExceeded) && p.ctx.Err() == nil:
		return false, nil
	default:
		return false, fmt.Errorf("aguardando %s: %w", selector, err)
	}
}

func (p *chromePage) WaitGone(selector string, timeout time.Duration) error {
	err := p.run(timeout, chromedp.WaitNotPresent(selector, chromedp.ByQuery))
	if err != nil && !(errors.Is(err, context.DeadlineExceeded) && p.ctx.Err() == nil) {
		return fmt.Errorf("aguardando %s sumir: %w", selector, err)
	}
	return nil
}

func (p *chromePage) Screenshot() ([]byte, error) {
	var buf []byte
	if err := p.run(p.stepTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capturando tela: %w", err)
	}
	return buf, nil
}

func (p *chromePage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancelTab()
	p.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("fechando chrome: %w", err)
	}
	return nil
}
