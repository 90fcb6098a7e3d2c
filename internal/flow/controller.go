package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/mjaros/paragon-bot/internal/category"
	"github.com/mjaros/paragon-bot/internal/chat"
	"github.com/mjaros/paragon-bot/internal/receipt"
	"github.com/mjaros/paragon-bot/internal/scanning"
	"github.com/mjaros/paragon-bot/internal/sheets"
)

// Config wires the Controller's collaborators. Zero values get
// sensible defaults where one exists.
type Config struct {
	DB           receipt.DB
	Guard        *receipt.Guard
	Photos       receipt.PhotoStore
	Normalizer   scanning.Normalizer
	Analyzer     scanning.Analyzer
	Exporter     sheets.Exporter
	Categories   *category.Directory
	Conversation chat.Conversation

	Keywords       Keywords
	IDGenerator    receipt.IDGenerator
	Clock          receipt.TimeSource
	CommentTimeout time.Duration
	MaxTurns       int
}

// Controller drives the full receipt flow: intake, mode selection, AI
// or manual sub-flow, sharing resolution, export and completion. It
// exclusively owns record mutation while a flow is active; the guard
// ensures there is at most one.
type Controller struct {
	db         receipt.DB
	guard      *receipt.Guard
	photos     receipt.PhotoStore
	normalizer scanning.Normalizer
	analyzer   scanning.Analyzer
	exporter   sheets.Exporter
	categories *category.Directory
	conv       chat.Conversation

	keywords       Keywords
	idGen          receipt.IDGenerator
	clock          receipt.TimeSource
	commentTimeout time.Duration
	maxTurns       int

	inbox chan chat.Message
}

// NewController creates a Controller from cfg
func NewController(cfg Config) *Controller {
	c := &Controller{
		db:             cfg.DB,
		guard:          cfg.Guard,
		photos:         cfg.Photos,
		normalizer:     cfg.Normalizer,
		analyzer:       cfg.Analyzer,
		exporter:       cfg.Exporter,
		categories:     cfg.Categories,
		conv:           cfg.Conversation,
		keywords:       cfg.Keywords,
		idGen:          cfg.IDGenerator,
		clock:          cfg.Clock,
		commentTimeout: cfg.CommentTimeout,
		maxTurns:       cfg.MaxTurns,
		inbox:          make(chan chat.Message, 16),
	}
	if c.guard == nil {
		c.guard = receipt.NewGuard()
	}
	if c.categories == nil {
		c.categories = category.Default()
	}
	if len(c.keywords.Yes) == 0 {
		c.keywords = DefaultKeywords()
	}
	if c.idGen == nil {
		c.idGen = &receipt.UUIDGenerator{}
	}
	if c.clock == nil {
		c.clock = &receipt.SystemClock{}
	}
	if c.commentTimeout == 0 {
		c.commentTimeout = 120 * time.Second
	}
	if c.maxTurns == 0 {
		c.maxTurns = 50
	}
	return c
}

// Deliver forwards an inbound message to the active flow. Messages are
// dropped when the inbox is full.
func (c *Controller) Deliver(msg chat.Message) {
	select {
	case c.inbox <- msg:
	default:
		slog.Warn("flow inbox full, dropping message", "text", msg.Text)
	}
}

// drainInbox discards messages queued before the flow acquired the
// guard; each wait only ever sees messages that arrived after it
// started.
func (c *Controller) drainInbox() {
	for {
		select {
		case msg := <-c.inbox:
			slog.Debug("discarding message from before the flow started", "text", msg.Text)
		default:
			return
		}
	}
}

// HandlePhoto runs the photo receipt flow for the image at rawPath. A
// photo arriving while another flow holds the guard is dropped.
func (c *Controller) HandlePhoto(ctx context.Context, rawPath string) error {
	if !c.guard.TryAcquire() {
		slog.Warn("receipt flow already in progress, dropping photo", "path", rawPath)
		return nil
	}
	defer c.guard.Release()
	c.drainInbox()

	record, imagePath, err := c.intakePhoto(rawPath)
	if err != nil {
		if record == nil {
			slog.Error("receipt intake failed", "path", rawPath, "error", err)
			c.send(ctx, msgIntakeFailed)
			return err
		}
		c.fail(ctx, record, err)
		return err
	}

	if err := c.runPhoto(ctx, record, imagePath); err != nil {
		c.fail(ctx, record, err)
		return err
	}
	return nil
}

// HandleManual runs the manual-entry receipt flow
func (c *Controller) HandleManual(ctx context.Context) error {
	if !c.guard.TryAcquire() {
		slog.Warn("receipt flow already in progress, dropping manual entry")
		return nil
	}
	defer c.guard.Release()
	c.drainInbox()

	record := c.newRecord("", "manual entry started")
	if _, err := c.db.Create(record); err != nil {
		slog.Error("creating receipt record", "error", err)
		c.send(ctx, msgStorageFailed)
		return err
	}

	collector := NewCollector(c.conv, c.inbox)
	resolver := NewResolver(c.conv, collector, c.keywords, c.maxTurns)
	if err := c.runManual(ctx, record, collector, resolver); err != nil {
		c.fail(ctx, record, err)
		return err
	}
	return nil
}

// newRecord builds a fresh record with the creation history entry
func (c *Controller) newRecord(sourcePath, details string) *receipt.Record {
	now := c.clock.Now()
	return &receipt.Record{
		ID:         c.idGen.Generate(),
		SourcePath: sourcePath,
		CreatedAt:  now,
		Status:     receipt.StatusReceived,
		StatusHistory: []receipt.StatusEntry{{
			Status:    receipt.StatusReceived,
			Timestamp: now,
			Details:   details,
		}},
	}
}

// intakePhoto copies the raw photo into the photo store, creates the
// bare record and normalizes the image. A photo that cannot be read or
// normalized aborts intake with nothing past the bare creation entry;
// no question has been asked yet at that point.
func (c *Controller) intakePhoto(rawPath string) (*receipt.Record, string, error) {
	data, err := c.photos.Get(rawPath)
	if err != nil {
		return nil, "", fmt.Errorf("reading receipt photo: %w", err)
	}

	savedPath, err := c.photos.Save(filepath.Base(rawPath), data)
	if err != nil {
		return nil, "", fmt.Errorf("saving receipt photo: %w", err)
	}

	record := c.newRecord(savedPath, "receipt photo received")
	if _, err := c.db.Create(record); err != nil {
		return nil, "", err
	}

	imagePath, err := c.normalizer.Normalize(savedPath)
	if err != nil {
		return record, "", &receipt.CollaboratorError{Name: "image normalizer", Err: err}
	}
	return record, imagePath, nil
}

// runPhoto drives the photo flow from mode question to completion.
// imagePath points at the normalized image produced during intake.
func (c *Controller) runPhoto(ctx context.Context, record *receipt.Record, imagePath string) error {
	collector := NewCollector(c.conv, c.inbox)
	resolver := NewResolver(c.conv, collector, c.keywords, c.maxTurns)

	if err := c.transition(record, receipt.StatusProcessing, "purchase mode question"); err != nil {
		return err
	}

	modeValidator := func(answer string) bool {
		return c.keywords.IsYes(answer) || c.keywords.IsNo(answer) ||
			c.keywords.Classify(answer) == DecisionManual
	}
	answer, err := collector.AwaitValid(ctx, msgAskMode, modeValidator, c.maxTurns)
	if err != nil {
		return err
	}

	if c.keywords.IsNo(answer) || c.keywords.Classify(answer) == DecisionManual {
		return c.runManual(ctx, record, collector, resolver)
	}

	// Comments are optional; a silent user just forfeits them
	c.send(ctx, msgAskComments)
	comment, err := collector.Await(ctx, nil, c.commentTimeout)
	if err != nil && !errors.Is(err, ErrTimeout) {
		return err
	}
	record.Comments = comment

	if err := c.analyze(ctx, record, imagePath); err != nil {
		return err
	}

	if err := resolver.Resolve(ctx, record.Products); err != nil {
		return err
	}
	record.RecomputeTotal()
	if err := c.db.Update(record.ID, record); err != nil {
		return err
	}
	if err := c.transition(record, receipt.StatusCategorized, "sharing resolved"); err != nil {
		return err
	}

	return c.export(ctx, record)
}

// analyze calls the transcription collaborator once (no retry) on the
// normalized image and persists the extracted data
func (c *Controller) analyze(ctx context.Context, record *receipt.Record, imagePath string) error {
	if err := c.transition(record, receipt.StatusProcessing, "ai analysis"); err != nil {
		return err
	}

	imageData, err := c.photos.Get(imagePath)
	if err != nil {
		return &receipt.CollaboratorError{Name: "image normalizer", Err: err}
	}

	analysis, err := c.analyzer.Analyze(ctx, imageData, record.Comments, c.categories.All())
	if err != nil {
		return &receipt.CollaboratorError{Name: "transcription", Err: err}
	}

	record.Store = analysis.Store
	record.Usage = receipt.Usage{
		InputTokens:  analysis.Usage.InputTokens,
		OutputTokens: analysis.Usage.OutputTokens,
		TotalTokens:  analysis.Usage.TotalTokens,
	}
	record.Products = record.Products[:0]
	for _, item := range analysis.Items {
		record.Products = append(record.Products, receipt.LineItem{
			Name:     item.Name,
			Category: c.resolveCategory(item.Category),
			Price:    int(item.Price*100 + 0.5),
		})
	}
	record.RecomputeTotal()

	if err := c.db.Update(record.ID, record); err != nil {
		return err
	}
	return c.transition(record, receipt.StatusAnalyzedAI, "ai analysis complete")
}

// resolveCategory maps an analyzer-supplied category onto a known id,
// falling back to the directory's last (catch-all) entry
func (c *Controller) resolveCategory(idOrName string) string {
	if cat, ok := c.categories.Lookup(idOrName); ok {
		return cat.ID
	}
	all := c.categories.All()
	return all[len(all)-1].ID
}

// runManual drives the manual-entry sub-flow: store name, default
// flag, product loop, then export. Line-level validation errors are
// recovered by re-prompting; the terminal cases abort the flow.
func (c *Controller) runManual(ctx context.Context, record *receipt.Record, collector *Collector, resolver *Resolver) error {
	if err := c.transition(record, receipt.StatusProcessing, "manual entry"); err != nil {
		return err
	}

	store, err := collector.AwaitValid(ctx, msgAskStore, func(s string) bool {
		return strings.TrimSpace(s) != ""
	}, c.maxTurns)
	if err != nil {
		return manualAbort(err, "missing store name")
	}
	record.Store = strings.TrimSpace(store)

	defaultShared, err := resolver.DefaultFlag(ctx)
	if err != nil {
		return manualAbort(err, "missing purchase type")
	}

	c.send(ctx, msgProductInstructions+"\n"+c.categories.Summary())
	for {
		line, err := collector.Await(ctx, nil, 0)
		if err != nil {
			return manualAbort(err, "product entry interrupted")
		}
		if strings.EqualFold(strings.TrimSpace(line), cmdStop) {
			break
		}

		item, err := ParseProductLine(line, c.categories, defaultShared, c.keywords)
		if err != nil {
			c.send(ctx, fmt.Sprintf("%v\n%s", err, c.categories.Summary()))
			continue
		}

		record.Products = append(record.Products, item)
		record.RecomputeTotal()
		if err := c.db.Update(record.ID, record); err != nil {
			return err
		}
		c.send(ctx, msgProductAdded)
	}

	if len(record.Products) == 0 {
		return &receipt.ValidationError{Reason: "no products entered"}
	}

	return c.export(ctx, record)
}

// manualAbort maps collector exhaustion onto the terminal validation
// error for the missing field; other failures pass through
func manualAbort(err error, reason string) error {
	if errors.Is(err, ErrTurnsExceeded) || errors.Is(err, ErrChannelClosed) || errors.Is(err, ErrTimeout) {
		return &receipt.ValidationError{Reason: reason}
	}
	return err
}

// export appends one spreadsheet row per line item, in list order. A
// failed append aborts the remaining rows; partial exports are not
// rolled back.
func (c *Controller) export(ctx context.Context, record *receipt.Record) error {
	if err := c.transition(record, receipt.StatusProcessing, "spreadsheet export"); err != nil {
		return err
	}

	for _, item := range record.Products {
		row := sheets.Row{
			Store:    record.Store,
			Name:     item.Name,
			Price:    item.Price,
			Category: item.Category,
			IsShared: item.IsShared,
		}
		if err := c.exporter.Append(ctx, row); err != nil {
			return &receipt.CollaboratorError{Name: "export", Err: err}
		}
	}

	if err := c.transition(record, receipt.StatusSavedToSheets, "export complete"); err != nil {
		return err
	}
	if err := c.transition(record, receipt.StatusCompleted, "receipt flow complete"); err != nil {
		return err
	}

	summary := fmt.Sprintf("Saved %d products from %s, total %s.",
		len(record.Products), record.Store, FormatPrice(record.TotalAmount))
	if record.Usage.TotalTokens > 0 {
		summary += fmt.Sprintf(" Analysis used %d tokens.", record.Usage.TotalTokens)
	}
	c.send(ctx, summary)
	return nil
}

// transition appends one status history entry and mirrors it on the
// in-memory record, so a later Update writes a consistent history. The
// mirrored entry is the one the store persisted, timestamp included.
func (c *Controller) transition(record *receipt.Record, status receipt.Status, details string) error {
	entry, err := c.db.AppendStatus(record.ID, status, details)
	if err != nil {
		return err
	}
	record.Status = status
	record.StatusHistory = append(record.StatusHistory, entry)
	return nil
}

// fail records the ERROR transition and tells the user which category
// of failure occurred. The record keeps whatever was last persisted.
func (c *Controller) fail(ctx context.Context, record *receipt.Record, cause error) {
	slog.Error("receipt flow failed", "id", record.ID, "error", cause)
	if _, err := c.db.AppendStatus(record.ID, receipt.StatusError, cause.Error()); err != nil {
		slog.Error("recording error status", "id", record.ID, "error", err)
	}
	c.send(ctx, c.failureMessage(cause))
}

func (c *Controller) failureMessage(err error) string {
	var collab *receipt.CollaboratorError
	switch {
	case receipt.IsValidation(err):
		return fmt.Sprintf("%s\n%s", msgValidationFailed, c.categories.Summary())
	case errors.As(err, &collab):
		return msgCollaboratorFailed
	case errors.Is(err, ErrTurnsExceeded) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrChannelClosed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return msgConversationFailed
	default:
		return msgStorageFailed
	}
}

func (c *Controller) send(ctx context.Context, text string) {
	if err := c.conv.Send(ctx, text); err != nil {
		slog.Warn("sending chat message", "error", err)
	}
}
