package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"calview/internal/caldav"
	"calview/internal/calerr"
	"calview/internal/google"
	"calview/internal/models"
	"calview/internal/pipeline"
	"calview/internal/render"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "calview",
		Usage: "Aggregate, filter and export events from Google Calendar or CalDAV calendars.",
		Commands: []*cli.Command{
			authCommand(),
			calendarsCommand(),
			eventsCommand(),
			addCommand(),
			updateCommand(),
			deleteCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// backend is the full capability surface shared by the Google and
// CalDAV clients.
type backend interface {
	pipeline.Client
	ListCalendars(ctx context.Context) ([]models.CalendarInfo, error)
	CreateEvent(ctx context.Context, calendarID string, draft *models.EventDraft) (models.RawEvent, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, draft *models.EventDraft) (models.RawEvent, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "backend", Value: "google", Usage: "Calendar backend: 'google' or 'caldav'."},
		&cli.StringFlag{Name: "account", Value: "", Usage: "Named OAuth account (token-<name>.json) for the google backend."},
	}
}

// newBackend builds the selected backend from flags and environment.
// The google backend prefers a service account key when one is
// configured, falling back to a saved OAuth token.
func newBackend(c *cli.Context, logger *slog.Logger) (backend, error) {
	switch c.String("backend") {
	case "google":
		if keyFile := os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"); keyFile != "" {
			return google.NewServiceAccountClient(c.Context, logger, keyFile)
		}
		account := c.String("account")
		if account == "" {
			accounts, err := google.TokenAccounts()
			if err != nil || len(accounts) == 0 {
				return nil, fmt.Errorf("no google credentials found. Set GOOGLE_SERVICE_ACCOUNT_FILE or run the 'auth' command first")
			}
			account = accounts[0]
		}
		return google.NewClient(c.Context, logger, os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"), account)

	case "caldav":
		return caldav.NewClient(logger, os.Getenv("CALDAV_URL"), os.Getenv("CALDAV_USERNAME"), os.Getenv("CALDAV_PASSWORD"))

	default:
		return nil, fmt.Errorf("unknown backend %q (expected 'google' or 'caldav')", c.String("backend"))
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			config, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(config, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := "token-" + accountName + ".json"

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)
			return nil
		},
	}
}

func calendarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendars",
		Usage: "List the calendars visible to the authenticated account.",
		Flags: backendFlags(),
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			client, err := newBackend(c, logger)
			if err != nil {
				return err
			}

			calendars, err := client.ListCalendars(c.Context)
			if err != nil {
				return fmt.Errorf("failed to list calendars: %w", err)
			}

			for _, cal := range calendars {
				marker := " "
				if cal.Primary {
					marker = "*"
				}
				fmt.Printf("%s %-40s %s\n", marker, cal.ID, cal.Summary)
			}
			return nil
		},
	}
}

func eventsCommand() *cli.Command {
	flags := append(backendFlags(),
		&cli.StringFlag{Name: "calendars", Usage: "Comma-separated calendar ids. Defaults to every visible calendar."},
		&cli.StringFlag{Name: "mode", Value: string(pipeline.ModeUpcoming), Usage: "Window mode: upcoming, this_month, this_year, all_time."},
		&cli.StringFlag{Name: "from", Usage: "Explicit range start (YYYY-MM-DD). Implies range mode with --to."},
		&cli.StringFlag{Name: "to", Usage: "Explicit range end (YYYY-MM-DD)."},
		&cli.Int64Flag{Name: "max", Value: 100, Usage: "Maximum events requested per calendar."},
		&cli.StringFlag{Name: "keyword", Usage: "Text search over event title, description and location."},
		&cli.StringFlag{Name: "attendee", Usage: "Keep only events with an attendee email containing this substring."},
		&cli.IntFlag{Name: "timeout", Value: 30, Usage: "Per-calendar fetch timeout in seconds."},
		&cli.StringFlag{Name: "format", Value: "table", Usage: "Output format: table, grid or csv."},
		&cli.StringFlag{Name: "output", Usage: "Write output to this file instead of stdout."},
	)

	return &cli.Command{
		Name:  "events",
		Usage: "Fetch, filter and display events from the selected calendars.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			client, err := newBackend(c, logger)
			if err != nil {
				return err
			}

			opts, err := pipelineOptions(c, client, logger)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(c.Context, client, logger, opts)
			if err != nil {
				return err
			}

			for _, warning := range result.Warnings {
				logger.Warn("Calendar degraded to empty result", "calendarID", warning.CalendarID, "error", warning.Err)
			}
			logger.Info("Loaded events.", "count", len(result.Events), "calendars", len(opts.CalendarIDs))

			out := os.Stdout
			if path := c.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			switch c.String("format") {
			case "table":
				return render.WriteTable(out, result.Events)
			case "grid":
				return render.WriteGridJSON(out, result.Events, result.Colors)
			case "csv":
				return render.WriteCSV(out, result.Events)
			default:
				return fmt.Errorf("unknown format %q (expected table, grid or csv)", c.String("format"))
			}
		},
	}
}

// pipelineOptions assembles the run options from flags, resolving the
// calendar set and display names from the backend when no explicit ids
// were given.
func pipelineOptions(c *cli.Context, client backend, logger *slog.Logger) (pipeline.Options, error) {
	var opts pipeline.Options

	var calendarIDs []string
	for _, id := range strings.Split(c.String("calendars"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			calendarIDs = append(calendarIDs, id)
		}
	}

	names := make(map[string]string)
	calendars, err := client.ListCalendars(c.Context)
	if err != nil {
		if calerr.IsAuth(err) {
			return opts, fmt.Errorf("failed to list calendars: %w", err)
		}
		// Display names are cosmetic; keep going with the ids we have.
		logger.Warn("Could not list calendars for display names", "error", err)
	}
	for _, cal := range calendars {
		names[cal.ID] = cal.Summary
	}
	if len(calendarIDs) == 0 {
		for _, cal := range calendars {
			calendarIDs = append(calendarIDs, cal.ID)
		}
	}
	if len(calendarIDs) == 0 {
		return opts, fmt.Errorf("no calendars selected and none discovered; pass --calendars")
	}

	mode, err := pipeline.ParseMode(c.String("mode"))
	if err != nil {
		return opts, err
	}
	var from, to time.Time
	if c.String("from") != "" || c.String("to") != "" {
		mode = pipeline.ModeRange
		if from, err = time.Parse("2006-01-02", c.String("from")); err != nil {
			return opts, fmt.Errorf("invalid --from date: %w", err)
		}
		if to, err = time.Parse("2006-01-02", c.String("to")); err != nil {
			return opts, fmt.Errorf("invalid --to date: %w", err)
		}
	}

	// Only the Google backend supports server-side text search.
	nativeKeyword := c.String("backend") == "google"

	return pipeline.Options{
		CalendarIDs:        calendarIDs,
		CalendarNames:      names,
		Mode:               mode,
		From:               from,
		To:                 to,
		MaxPerCalendar:     c.Int64("max"),
		Keyword:            c.String("keyword"),
		Attendee:           c.String("attendee"),
		NativeKeyword:      nativeKeyword,
		PerCalendarTimeout: time.Duration(c.Int("timeout")) * time.Second,
	}, nil
}

func draftFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "calendar", Required: true, Usage: "Target calendar id."},
		&cli.StringFlag{Name: "title", Usage: "Event title."},
		&cli.StringFlag{Name: "description", Usage: "Event description."},
		&cli.StringFlag{Name: "location", Usage: "Event location."},
		&cli.StringFlag{Name: "start", Required: true, Usage: "Start: RFC 3339 timestamp or YYYY-MM-DD for all-day."},
		&cli.StringFlag{Name: "end", Required: true, Usage: "End: RFC 3339 timestamp or YYYY-MM-DD for all-day."},
		&cli.StringFlag{Name: "attendees", Usage: "Comma-separated attendee emails."},
	}
}

func draftFromFlags(c *cli.Context) (*models.EventDraft, error) {
	start, err := parseEventTime(c.String("start"))
	if err != nil {
		return nil, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := parseEventTime(c.String("end"))
	if err != nil {
		return nil, fmt.Errorf("invalid --end: %w", err)
	}

	draft := &models.EventDraft{
		Summary:     c.String("title"),
		Description: c.String("description"),
		Location:    c.String("location"),
		Start:       start,
		End:         end,
	}
	for _, email := range strings.Split(c.String("attendees"), ",") {
		if email = strings.TrimSpace(email); email != "" {
			draft.Attendees = append(draft.Attendees, email)
		}
	}
	return draft, nil
}

// parseEventTime accepts an RFC 3339 timestamp or a bare date, mapping
// them onto the timed and all-day event representations.
func parseEventTime(s string) (models.EventTime, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return models.NewTimestamp(t), nil
	}
	if _, err := time.Parse("2006-01-02", s); err == nil {
		return models.NewDate(s, ""), nil
	}
	return models.EventTime{}, fmt.Errorf("expected RFC 3339 timestamp or YYYY-MM-DD date, got %q", s)
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Create a new event.",
		Flags: append(backendFlags(), draftFlags()...),
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			client, err := newBackend(c, logger)
			if err != nil {
				return err
			}
			draft, err := draftFromFlags(c)
			if err != nil {
				return err
			}

			created, err := client.CreateEvent(c.Context, c.String("calendar"), draft)
			if err != nil {
				return fmt.Errorf("failed to create event: %w", err)
			}
			fmt.Printf("Created event %s\n", created.ID)
			return nil
		},
	}
}

func updateCommand() *cli.Command {
	flags := append(backendFlags(), draftFlags()...)
	flags = append(flags, &cli.StringFlag{Name: "event", Required: true, Usage: "Event id to update."})

	return &cli.Command{
		Name:  "update",
		Usage: "Replace an existing event's contents.",
		Flags: flags,
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			client, err := newBackend(c, logger)
			if err != nil {
				return err
			}
			draft, err := draftFromFlags(c)
			if err != nil {
				return err
			}

			updated, err := client.UpdateEvent(c.Context, c.String("calendar"), c.String("event"), draft)
			if err != nil {
				return fmt.Errorf("failed to update event: %w", err)
			}
			fmt.Printf("Updated event %s\n", updated.ID)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete an event by id.",
		Flags: append(backendFlags(),
			&cli.StringFlag{Name: "calendar", Required: true, Usage: "Calendar id."},
			&cli.StringFlag{Name: "event", Required: true, Usage: "Event id to delete."},
		),
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))
			client, err := newBackend(c, logger)
			if err != nil {
				return err
			}

			if err := client.DeleteEvent(c.Context, c.String("calendar"), c.String("event")); err != nil {
				return fmt.Errorf("failed to delete event: %w", err)
			}
			fmt.Println("Deleted.")
			return nil
		},
	}
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
