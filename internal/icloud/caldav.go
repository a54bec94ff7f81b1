package icloud

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"eventcal/internal/ical"
	"eventcal/internal/models"

	goical "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
)

// DefaultEndpoint is the iCloud CalDAV root.
const DefaultEndpoint = "https://caldav.icloud.com/"

// customTransport handles adding Basic Auth and custom headers to requests.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

// RoundTrip adds required headers and authentication to each request.
func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "eventcal/1.0")
	return t.Transport.RoundTrip(req)
}

// CalDAVClient publishes events into one calendar of a CalDAV server.
type CalDAVClient struct {
	caldavClient *caldav.Client
	webdavClient *webdav.Client
	logger       *slog.Logger
	calendarPath string
}

// NewClient connects to endpoint and locates the calendar named calendarName.
func NewClient(ctx context.Context, logger *slog.Logger, endpoint, username, password, calendarName string) (*CalDAVClient, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := &http.Client{Transport: &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}}

	c, err := newClient(httpClient, endpoint, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Finding CalDAV calendar", "calendarName", calendarName, "endpoint", endpoint)
	calendarPath, err := c.findCalendar(ctx, calendarName)
	if err != nil {
		return nil, fmt.Errorf("could not find calendar '%s': %w", calendarName, err)
	}
	c.calendarPath = calendarPath
	logger.Info("Successfully found CalDAV calendar", "path", calendarPath)

	return c, nil
}

func newClient(httpClient *http.Client, endpoint string, logger *slog.Logger) (*CalDAVClient, error) {
	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}
	webdavClient, err := webdav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create webdav client: %w", err)
	}
	return &CalDAVClient{
		caldavClient: caldavClient,
		webdavClient: webdavClient,
		logger:       logger,
	}, nil
}

// PublishEvent creates or replaces the calendar object for event.
func (c *CalDAVClient) PublishEvent(ctx context.Context, event models.Event) error {
	c.logger.Debug("Publishing event", "eventTitle", event.Title, "id", event.ID)

	cal := ical.NewCalendar()
	cal.Children = append(cal.Children, ical.ToComponent(event, time.Now()))

	writer, err := c.webdavClient.Create(ctx, c.objectPath(event.ID))
	if err != nil {
		return fmt.Errorf("failed to create event on CalDAV server: %w", err)
	}
	if err := goical.NewEncoder(writer).Encode(cal); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to encode event to iCal format: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to upload event: %w", err)
	}
	return nil
}

// Publish uploads every event, continuing past individual failures. It
// returns the number published and an error if any upload failed.
func (c *CalDAVClient) Publish(ctx context.Context, events []models.Event) (int, error) {
	published, failed := 0, 0
	for _, event := range events {
		if err := c.PublishEvent(ctx, event); err != nil {
			c.logger.Error("Failed to publish event", "title", event.Title, "id", event.ID, "error", err)
			failed++
			continue
		}
		published++
	}
	c.logger.Info("Publish finished.", "published", published, "failed", failed)
	if failed > 0 {
		return published, fmt.Errorf("%d of %d events failed to publish", failed, len(events))
	}
	return published, nil
}

func (c *CalDAVClient) objectPath(id string) string {
	return path.Join(c.calendarPath, id+".ics")
}

// findCalendar discovers the user's calendars and returns the path of the one with the matching name.
func (c *CalDAVClient) findCalendar(ctx context.Context, name string) (string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return "", fmt.Errorf("failed to find calendars: %w", err)
	}

	for _, cal := range calendars {
		if cal.Name == name {
			return cal.Path, nil
		}
	}

	return "", fmt.Errorf("no calendar found with name '%s'", name)
}
