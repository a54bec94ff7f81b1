package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"eventcal/internal/api"
	"eventcal/internal/config"
	"eventcal/internal/events"
	"eventcal/internal/google"
	"eventcal/internal/icloud"
	"eventcal/internal/ical"
	"eventcal/internal/mailer"
	"eventcal/internal/notify"
	"eventcal/internal/store"
	"eventcal/internal/syncer"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "eventcal",
		Usage: "Manage calendar events with email notifications.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "Read environment defaults from this file if it exists."},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: formatJSON, Usage: "Output format: json or yaml."},
		},
		Commands: []*cli.Command{
			serveCommand(),
			listCommand(),
			getCommand(),
			createCommand(),
			updateCommand(),
			deleteCommand(),
			searchCommand(),
			exportCommand(),
			publishCommand(),
			authCommand(),
			syncCommand(),
		},
	}
}

// runtime holds the components shared by every command.
type runtime struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  store.Backend
	service  *events.Service
	notifier *notify.Dispatcher
}

func bootstrap(c *cli.Context) (*runtime, error) {
	cfg, err := config.Load(c.String("env-file"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	backend, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened event store.", "driver", cfg.Store.Driver, "path", cfg.Store.Path)

	sender := mailer.NewSMTPSender(cfg.Email, logger)
	return &runtime{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		service:  events.NewService(backend, events.WithLogger(logger)),
		notifier: notify.NewDispatcher(sender, logger, cfg.Email.Timeout*time.Duration(cfg.Email.Retries+1)),
	}, nil
}

// Close waits for pending notifications and releases the store.
func (r *runtime) Close() {
	r.notifier.Wait()
	if err := r.backend.Close(); err != nil {
		r.logger.Error("Failed to close event store", "error", err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the event API over HTTP.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides HTTP_ADDR)."},
		},
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			addr := rt.cfg.HTTP.Addr
			if c.IsSet("addr") {
				addr = c.String("addr")
			}
			server := &http.Server{
				Addr:         addr,
				Handler:      api.NewRouter(rt.service, rt.notifier, rt.logger),
				ReadTimeout:  rt.cfg.HTTP.ReadTimeout,
				WriteTimeout: rt.cfg.HTTP.WriteTimeout,
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				rt.logger.Info("HTTP server listening", "addr", addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			rt.logger.Info("Shutting down HTTP server.")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write all events as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Destination file (default stdout)."},
		},
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			list, err := rt.service.List(c.Context)
			if err != nil {
				return err
			}

			out := c.App.Writer
			if path := c.String("file"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				out = f
			}
			if err := ical.Encode(out, list); err != nil {
				return err
			}
			rt.logger.Info("Exported events.", "count", len(list))
			return nil
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Upload all events to a CalDAV calendar (iCloud by default).",
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()

			cd := rt.cfg.CalDAV
			if cd.Calendar == "" {
				return fmt.Errorf("CALDAV_CALENDAR environment variable not set")
			}
			client, err := icloud.NewClient(c.Context, rt.logger, cd.Endpoint, cd.Username, cd.Password, cd.Calendar)
			if err != nil {
				return fmt.Errorf("failed to create caldav client: %w", err)
			}

			list, err := rt.service.List(c.Context)
			if err != nil {
				return err
			}
			_, err = client.Publish(c.Context, list)
			return err
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to import its events.",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("env-file"))
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger := setupLogger(cfg.LogLevel)
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(cfg.Google.ClientID, cfg.Google.ClientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Fprintf(c.App.Writer, "Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Fprint(c.App.Writer, "Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Fprint(c.App.Writer, "Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := google.TokenPath(cfg.Google.TokenDir, accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Import upcoming Google Calendar events into the event store.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "once", Usage: "Run the import once and exit."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be imported without making changes."},
			&cli.IntFlag{Name: "watch", Value: 300, Usage: "Run the import every N seconds. Overrides --once."},
			&cli.IntFlag{Name: "days", Value: 7, Usage: "How many days ahead to import."},
		},
		Action: func(c *cli.Context) error {
			rt, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer rt.Close()
			logger := rt.logger

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
			}

			// Load all Google clients for all authenticated accounts
			accounts, err := google.GetTokenAccounts(rt.cfg.Google.TokenDir)
			if err != nil {
				return fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
			}
			if len(accounts) == 0 {
				return fmt.Errorf("no google accounts found. Run the 'auth' command first")
			}

			var feeds []syncer.Feed
			for _, acc := range accounts {
				gClient, err := google.NewClient(c.Context, logger, rt.cfg.Google.ClientID, rt.cfg.Google.ClientSecret, rt.cfg.Google.TokenDir, acc)
				if err != nil {
					return fmt.Errorf("failed to create google client for account %s: %w", acc, err)
				}
				calendarIDs := splitList(rt.cfg.Google.CalendarIds)
				if len(calendarIDs) == 0 {
					if calendarIDs, err = gClient.DiscoverGoogleCalendars(); err != nil {
						return fmt.Errorf("failed to discover calendars for account %s: %w", acc, err)
					}
				}
				for _, id := range calendarIDs {
					feeds = append(feeds, syncer.Feed{Source: gClient, CalendarID: id})
				}
			}
			logger.Info("Initialized Google feeds for all accounts.", "accounts", len(accounts), "feeds", len(feeds))

			s, err := syncer.NewSyncer(logger, feeds, rt.service, rt.cfg.SyncStateFile, c.Int("days"), c.Bool("dry-run"))
			if err != nil {
				return fmt.Errorf("failed to create syncer: %w", err)
			}

			// --watch flag takes precedence
			if c.IsSet("watch") {
				ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if _, err := s.Sync(ctx); err != nil {
						logger.Error("Sync cycle failed", "error", err)
					}
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
				}
			}

			logger.Info("Running a single sync cycle.")
			if _, err := s.Sync(c.Context); err != nil {
				return fmt.Errorf("single sync cycle failed: %w", err)
			}
			return nil
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
