package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	appErrors "github.com/Kotbarsikow/Shed-parser-nuwee/pkg/errors"
)

// PageBrowser fills the timetable form for query and returns the rendered markup.
// Implementations wait for the results block or the sign-in page, whichever comes first.
type PageBrowser interface {
	Submit(ctx context.Context, query models.TimetableQuery) (string, error)
}

type fetchObserver interface {
	ObserveFetchAttempt(outcome string)
}

// FetchPolicy bounds the retry loop of a fetch.
type FetchPolicy struct {
	MaxAttempts    int
	Delay          time.Duration
	AttemptTimeout time.Duration
}

// Fetch attempt outcomes, as logged and counted.
const (
	FetchOutcomeSuccess      = "success"
	FetchOutcomeAuthRequired = "auth_required"
	FetchOutcomeNoResults    = "no_results"
	FetchOutcomeError        = "error"
)

type fetchState int

const (
	fetchIdle fetchState = iota
	fetchFetching
	fetchWaiting
	fetchSucceeded
	fetchFailed
	fetchAuthRequired
)

var errResultsMissing = errors.New("results block not found in page")

// PageFetcher drives a browser against the timetable form with a fixed-delay retry.
type PageFetcher struct {
	gate            *AuthGate
	resultsSelector string
	metrics         fetchObserver
	logger          *zap.Logger
	sleep           func(ctx context.Context, d time.Duration) error
}

// NewPageFetcher constructs a fetcher. An empty selector falls back to div.col-md-6.
func NewPageFetcher(gate *AuthGate, resultsSelector string, metrics fetchObserver, logger *zap.Logger) *PageFetcher {
	if gate == nil {
		gate = NewAuthGate("")
	}
	if resultsSelector == "" {
		resultsSelector = dayBlockSelector
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PageFetcher{
		gate:            gate,
		resultsSelector: resultsSelector,
		metrics:         metrics,
		logger:          logger,
		sleep:           sleepContext,
	}
}

// Fetch returns the markup of the first attempt that shows the results block.
// A sign-in page stops immediately with ErrAuthRequired; anything else is retried
// until policy.MaxAttempts is spent, then reported as ErrFetchFailed.
func (f *PageFetcher) Fetch(ctx context.Context, browser PageBrowser, query models.TimetableQuery, policy FetchPolicy) (string, error) {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var (
		state   = fetchIdle
		attempt int
		markup  string
		lastErr error
	)

	for {
		switch state {
		case fetchIdle:
			state = fetchFetching

		case fetchFetching:
			attempt++
			var outcome string
			markup, outcome, lastErr = f.attempt(ctx, browser, query, policy.AttemptTimeout)
			f.observe(outcome)
			switch {
			case outcome == FetchOutcomeSuccess:
				state = fetchSucceeded
			case outcome == FetchOutcomeAuthRequired:
				state = fetchAuthRequired
			case ctx.Err() != nil:
				lastErr = ctx.Err()
				state = fetchFailed
			case attempt >= policy.MaxAttempts:
				state = fetchFailed
			default:
				state = fetchWaiting
			}
			if outcome != FetchOutcomeSuccess {
				f.logger.Warn("timetable fetch attempt failed",
					zap.Int("attempt", attempt),
					zap.Int("max_attempts", policy.MaxAttempts),
					zap.String("outcome", outcome),
					zap.Error(lastErr))
			}

		case fetchWaiting:
			if err := f.sleep(ctx, policy.Delay); err != nil {
				lastErr = err
				state = fetchFailed
				continue
			}
			state = fetchFetching

		case fetchSucceeded:
			f.logger.Debug("timetable fetched", zap.Int("attempt", attempt), zap.String("group", query.Group))
			return markup, nil

		case fetchAuthRequired:
			return "", appErrors.Clone(appErrors.ErrAuthRequired, "timetable site requires sign in, run `timetablectl login` and retry")

		case fetchFailed:
			return "", appErrors.WrapAs(lastErr, appErrors.ErrFetchFailed, fmt.Sprintf("failed to fetch timetable after %d attempts", attempt))
		}
	}
}

func (f *PageFetcher) attempt(ctx context.Context, browser PageBrowser, query models.TimetableQuery, timeout time.Duration) (string, string, error) {
	attemptCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	markup, err := browser.Submit(attemptCtx, query)
	if markup != "" && !f.gate.IsAuthenticated(markup) {
		return "", FetchOutcomeAuthRequired, nil
	}
	if err != nil {
		return "", FetchOutcomeError, err
	}
	if !f.hasResults(markup) {
		return "", FetchOutcomeNoResults, errResultsMissing
	}
	return markup, FetchOutcomeSuccess, nil
}

func (f *PageFetcher) hasResults(markup string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return doc.Find(f.resultsSelector).Length() > 0
}

func (f *PageFetcher) observe(outcome string) {
	if f.metrics != nil {
		f.metrics.ObserveFetchAttempt(outcome)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
