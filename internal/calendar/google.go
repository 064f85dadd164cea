// Package calendar talks to Google Calendar on behalf of the caller's access token.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/service"
)

const listPageSize = 2500

// Config selects the calendar and bounds each API call.
type Config struct {
	CalendarID  string
	CallTimeout time.Duration
	// Endpoint overrides the API base URL.
	Endpoint string
}

// Factory builds calendar clients bound to one bearer token each.
type Factory struct {
	cfg    Config
	logger *zap.Logger
}

// NewFactory constructs a Factory.
func NewFactory(cfg Config, logger *zap.Logger) *Factory {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{cfg: cfg, logger: logger}
}

// ForToken returns a client acting with accessToken. The token is never logged.
func (f *Factory) ForToken(ctx context.Context, accessToken string) (service.CalendarClient, error) {
	if accessToken == "" {
		return nil, errors.New("calendar access token is empty")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithTokenSource(ts)}
	if f.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.cfg.Endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return &Client{svc: svc, calendarID: f.cfg.CalendarID, callTimeout: f.cfg.CallTimeout, logger: f.logger}, nil
}

// Client performs list, delete and insert calls against one calendar.
type Client struct {
	svc         *gcal.Service
	calendarID  string
	callTimeout time.Duration
	logger      *zap.Logger
}

// ListEventIDs returns the ids of every event in the calendar, following all pages.
// The call timeout covers the whole listing.
func (c *Client) ListEventIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	var ids []string
	call := c.svc.Events.List(c.calendarID).
		MaxResults(listPageSize).
		ShowDeleted(false).
		Fields("nextPageToken", "items(id)")
	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			ids = append(ids, item.Id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list events of %s: %w", c.calendarID, err)
	}
	return ids, nil
}

// DeleteEvent removes one event. Events that are already gone count as deleted.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	err := c.svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusGone || apiErr.Code == http.StatusNotFound) {
			c.logger.Debug("calendar event already removed", zap.String("event_id", eventID))
			return nil
		}
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

// InsertEvent creates one event and returns its id.
func (c *Client) InsertEvent(ctx context.Context, event models.CalendarEvent) (string, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	created, err := c.svc.Events.Insert(c.calendarID, toGoogleEvent(event)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event %q: %w", event.Summary, err)
	}
	return created.Id, nil
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.callTimeout)
}

func toGoogleEvent(event models.CalendarEvent) *gcal.Event {
	return &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: event.TimeZone,
		},
	}
}
