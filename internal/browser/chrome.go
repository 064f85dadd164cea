// Package browser drives the timetable site with headless Chrome.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

const pollInterval = 250 * time.Millisecond

// Form fields of the timetable page.
const (
	groupInput     = `input[name='group']`
	startDateInput = `input[name='sdate']`
	endDateInput   = `input[name='edate']`
	submitButton   = `button[type='submit']`
)

// CookieSource supplies the session cookies loaded before each navigation.
type CookieSource interface {
	Load(ctx context.Context) ([]models.Cookie, error)
}

// ChromeConfig configures one Chrome instance.
type ChromeConfig struct {
	URL             string
	Headless        bool
	ExecPath        string
	ResultsSelector string
	SignInMarker    string
}

// Chrome is one browser process. Each Submit runs in a fresh tab, so navigation state
// never leaks between queries, but a Chrome must still be used by one caller at a time.
type Chrome struct {
	cfg     ChromeConfig
	cookies CookieSource
	logger  *zap.Logger

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewChrome starts a browser process.
func NewChrome(cfg ChromeConfig, cookies CookieSource, logger *zap.Logger) (*Chrome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", cfg.Headless))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	logger.Sugar().Infow("browser started", "headless", cfg.Headless)
	return &Chrome{
		cfg:           cfg,
		cookies:       cookies,
		logger:        logger,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Submit fills the timetable form and returns the page markup once the results block
// or the sign-in marker shows up.
func (c *Chrome) Submit(ctx context.Context, query models.TimetableQuery) (string, error) {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	var landing string
	if err := chromedp.Run(tabCtx,
		c.loadCookies(),
		chromedp.Navigate(c.cfg.URL),
		chromedp.OuterHTML("html", &landing, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("open timetable page: %w", err)
	}
	if c.cfg.SignInMarker != "" && strings.Contains(landing, c.cfg.SignInMarker) {
		return landing, nil
	}

	var markup string
	err := chromedp.Run(tabCtx,
		chromedp.WaitVisible(groupInput, chromedp.ByQuery),
		chromedp.SetValue(groupInput, query.Group, chromedp.ByQuery),
		chromedp.SetValue(startDateInput, query.StartDate, chromedp.ByQuery),
		chromedp.SetValue(endDateInput, query.EndDate, chromedp.ByQuery),
		chromedp.Click(submitButton, chromedp.ByQuery),
		waitForAny(c.cfg.ResultsSelector, c.cfg.SignInMarker),
		chromedp.OuterHTML("html", &markup, chromedp.ByQuery),
	)
	if err != nil {
		return markup, fmt.Errorf("submit timetable form: %w", err)
	}
	return markup, nil
}

// WaitForSignIn opens the site and waits until the sign-in marker is gone, then returns
// the cookies of the authenticated session. Meant for a visible browser.
func (c *Chrome) WaitForSignIn(ctx context.Context) ([]models.Cookie, error) {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	if err := chromedp.Run(tabCtx, chromedp.Navigate(c.cfg.URL)); err != nil {
		return nil, fmt.Errorf("open timetable page: %w", err)
	}
	marker, err := jsString(strings.Join(strings.Fields(c.cfg.SignInMarker), " "))
	if err != nil {
		return nil, err
	}
	signedIn := chromedp.ActionFunc(func(ctx context.Context) error {
		return poll(ctx, fmt.Sprintf(`document.body !== null && !document.body.innerText.replace(/\s+/g, " ").includes(%s)`, marker))
	})

	var raw []*network.Cookie
	err = chromedp.Run(tabCtx, signedIn, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("wait for sign in: %w", err)
	}
	return fromNetworkCookies(raw), nil
}

// Healthy reports whether the browser process is still usable.
func (c *Chrome) Healthy() bool {
	return c.browserCtx.Err() == nil
}

// Close stops the browser process.
func (c *Chrome) Close() error {
	c.browserCancel()
	c.allocCancel()
	c.logger.Sugar().Infow("browser stopped")
	return nil
}

// tab opens a new tab bounded by the caller's cancellation and deadline.
func (c *Chrome) tab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	cancelDeadline := context.CancelFunc(func() {})
	if deadline, ok := ctx.Deadline(); ok {
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
	}
	stop := context.AfterFunc(ctx, cancelTab)
	return tabCtx, func() {
		stop()
		cancelDeadline()
		cancelTab()
	}
}

func (c *Chrome) loadCookies() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if c.cookies == nil {
			return nil
		}
		cookies, err := c.cookies.Load(ctx)
		if err != nil {
			return fmt.Errorf("load session cookies: %w", err)
		}
		if len(cookies) == 0 {
			c.logger.Debug("no stored session cookies")
			return nil
		}
		return network.SetCookies(toCookieParams(cookies)).Do(ctx)
	})
}

func waitForAny(selector, marker string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		sel, err := jsString(selector)
		if err != nil {
			return err
		}
		expr := fmt.Sprintf(`document.querySelector(%s) !== null`, sel)
		if marker != "" {
			m, err := jsString(strings.Join(strings.Fields(marker), " "))
			if err != nil {
				return err
			}
			expr += fmt.Sprintf(` || (document.body !== null && document.body.innerText.replace(/\s+/g, " ").includes(%s))`, m)
		}
		return poll(ctx, expr)
	})
}

// poll evaluates expr until it yields true or ctx ends.
func poll(ctx context.Context, expr string) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		var ok bool
		if err := chromedp.Evaluate(expr, &ok).Do(ctx); err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func jsString(s string) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", errors.New("encode script literal")
	}
	return string(raw), nil
}

func toCookieParams(cookies []models.Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, c := range cookies {
		param := &network.CookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Expires.IsZero() {
			expires := cdp.TimeSinceEpoch(c.Expires)
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params
}

func fromNetworkCookies(raw []*network.Cookie) []models.Cookie {
	cookies := make([]models.Cookie, 0, len(raw))
	for _, c := range raw {
		cookie := models.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HTTPOnly,
		}
		if !c.Session && c.Expires > 0 {
			sec := int64(c.Expires)
			cookie.Expires = time.Unix(sec, int64((c.Expires-float64(sec))*float64(time.Second))).UTC()
		}
		cookies = append(cookies, cookie)
	}
	return cookies
}
