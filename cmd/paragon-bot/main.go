package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/mjaros/paragon-bot/internal/category"
	"github.com/mjaros/paragon-bot/internal/chat"
	"github.com/mjaros/paragon-bot/internal/flow"
	"github.com/mjaros/paragon-bot/internal/receipt"
	"github.com/mjaros/paragon-bot/internal/scanning"
	"github.com/mjaros/paragon-bot/internal/sheets"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const (
	photoCommand  = "/photo"
	manualCommand = "/manual"
)

func main() {
	fs := ff.NewFlagSet("paragon-bot")
	var (
		dbPath         = fs.StringLong("db", "paragon-bot.db", "Database file path")
		photoPath      = fs.StringLong("photos", "./photos", "Photo storage directory")
		categoryFile   = fs.StringLong("categories", "", "Category YAML file (built-in set if empty)")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set PARAGON_BOT_GEMINI_KEY)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		spreadsheetID  = fs.StringLong("spreadsheet-id", "", "Google Sheets spreadsheet id")
		credentials    = fs.StringLong("sheets-credentials", "credentials.json", "Service account key file for Sheets")
		sheetRange     = fs.StringLong("sheet-range", "Expenses!A:E", "Sheet range to append rows to")
		retention      = fs.DurationLong("retention", 24*time.Hour, "Receipt retention window")
		sweepInterval  = fs.DurationLong("sweep-interval", time.Hour, "Cleanup sweep interval")
		commentTimeout = fs.DurationLong("comment-timeout", 120*time.Second, "How long to wait for purchase comments")
		maxTurns       = fs.IntLong("max-turns", 50, "Answer turn budget per question")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PARAGON_BOT"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("Initializing database...")
	db, err := receipt.NewBoltDB(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Initializing photo storage...")
	photos, err := receipt.NewLocalPhotoStore(*photoPath)
	if err != nil {
		slog.Error("Failed to initialize photo storage", "error", err)
		os.Exit(1)
	}

	categories := category.Default()
	if *categoryFile != "" {
		categories, err = category.Load(*categoryFile)
		if err != nil {
			slog.Error("Failed to load categories", "file", *categoryFile, "error", err)
			os.Exit(1)
		}
	}

	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	slog.Info("Initializing Gemini analyzer...", "model", *geminiModel)
	analyzer, err := scanning.NewGemini(apiKey, *geminiModel)
	if err != nil {
		slog.Error("Failed to initialize Gemini", "error", err)
		os.Exit(1)
	}
	defer analyzer.Close()

	slog.Info("Initializing Sheets exporter...", "spreadsheet", *spreadsheetID)
	exporter, err := sheets.NewSheetsExporter(ctx, *credentials, *spreadsheetID, *sheetRange)
	if err != nil {
		slog.Error("Failed to initialize Sheets exporter", "error", err)
		os.Exit(1)
	}

	console := chat.NewConsole(os.Stdin, os.Stdout)

	controller := flow.NewController(flow.Config{
		DB:             db,
		Photos:         photos,
		Normalizer:     scanning.PNGNormalizer{},
		Analyzer:       analyzer,
		Exporter:       exporter,
		Categories:     categories,
		Conversation:   console,
		CommentTimeout: *commentTimeout,
		MaxTurns:       *maxTurns,
	})

	// Cleanup sweep runs independently of active flows; it only
	// touches records past the retention window
	go func() {
		ticker := time.NewTicker(*sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				deleted, err := db.CleanupOlderThan(*retention)
				if err != nil {
					slog.Error("Cleanup sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Cleanup sweep removed receipts", "count", deleted)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		if err := console.Run(ctx); err != nil {
			slog.Error("Console error", "error", err)
		}
		cancel()
	}()

	go dispatch(ctx, console, controller)

	slog.Info("paragon-bot started", "version", version)
	slog.Info("Send '/photo <path>' to process a receipt photo, '/manual' for manual entry")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
}

// dispatch routes inbound lines: flow triggers start a new receipt
// flow, everything else is delivered to the active flow's inbox
func dispatch(ctx context.Context, console *chat.Console, controller *flow.Controller) {
	for msg := range console.Updates() {
		switch {
		case strings.HasPrefix(msg.Text, photoCommand+" "):
			path := strings.TrimSpace(strings.TrimPrefix(msg.Text, photoCommand))
			go func() {
				if err := controller.HandlePhoto(ctx, path); err != nil {
					slog.Error("Photo flow failed", "path", path, "error", err)
				}
			}()
		case strings.TrimSpace(msg.Text) == manualCommand:
			go func() {
				if err := controller.HandleManual(ctx); err != nil {
					slog.Error("Manual flow failed", "error", err)
				}
			}()
		default:
			controller.Deliver(msg)
		}
	}
}
