package flow

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mjaros/paragon-bot/internal/category"
	"github.com/mjaros/paragon-bot/internal/chat"
	"github.com/mjaros/paragon-bot/internal/receipt"
)

const (
	cmdStop = "stop"
	cmdShow = "show"
)

// Resolver turns a user's free-text answers into per-product ownership
// flags. It never observes an unclassifiable sharing-mode answer: the
// collector's validator rejects those before they reach it.
type Resolver struct {
	conv      chat.Conversation
	collector *Collector
	keywords  Keywords
	maxTurns  int
}

// NewResolver creates a Resolver with the given answer turn budget
func NewResolver(conv chat.Conversation, collector *Collector, keywords Keywords, maxTurns int) *Resolver {
	return &Resolver{
		conv:      conv,
		collector: collector,
		keywords:  keywords,
		maxTurns:  maxTurns,
	}
}

// Resolve asks the sharing-mode question and sets every item's flag,
// either in one shot (all shared / all private) or via the mixed-mode
// selection loop. Items are mutated in place.
func (r *Resolver) Resolve(ctx context.Context, items []receipt.LineItem) error {
	validator := func(answer string) bool {
		switch r.keywords.Classify(answer) {
		case DecisionShared, DecisionPrivate, DecisionMulti:
			return true
		}
		return false
	}

	answer, err := r.collector.AwaitValid(ctx, msgAskSharingMode, validator, r.maxTurns)
	if err != nil {
		return err
	}

	switch r.keywords.Classify(answer) {
	case DecisionShared:
		setAll(items, true)
		return nil
	case DecisionPrivate:
		setAll(items, false)
		return nil
	}
	return r.resolveMixed(ctx, items)
}

// DefaultFlag asks the two-way shared/private question and returns the
// chosen baseline flag
func (r *Resolver) DefaultFlag(ctx context.Context) (bool, error) {
	validator := func(answer string) bool {
		switch r.keywords.Classify(answer) {
		case DecisionShared, DecisionPrivate:
			return true
		}
		return false
	}

	answer, err := r.collector.AwaitValid(ctx, msgAskDefaultFlag, validator, r.maxTurns)
	if err != nil {
		return false, err
	}
	return r.keywords.Classify(answer) == DecisionShared, nil
}

// resolveMixed applies a default flag to all items, then runs the
// selection loop until the user sends stop. The loop is bounded by the
// resolver's turn budget.
func (r *Resolver) resolveMixed(ctx context.Context, items []receipt.LineItem) error {
	def, err := r.DefaultFlag(ctx)
	if err != nil {
		return err
	}
	setAll(items, def)

	if err := r.conv.Send(ctx, FormatItems(items)+"\n"+msgToggleHelp); err != nil {
		return fmt.Errorf("sending item list: %w", err)
	}

	for turn := 0; turn < r.maxTurns; turn++ {
		answer, err := r.collector.Await(ctx, nil, 0)
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(answer)) {
		case cmdStop:
			return nil
		case cmdShow:
			if err := r.conv.Send(ctx, FormatItems(items)); err != nil {
				return fmt.Errorf("sending item list: %w", err)
			}
		default:
			indices := ParseSelection(answer, len(items))
			if len(indices) == 0 {
				if err := r.conv.Send(ctx, msgInvalidSelection); err != nil {
					return fmt.Errorf("sending message: %w", err)
				}
				continue
			}
			ToggleItems(items, indices)
			if err := r.conv.Send(ctx, FormatItems(items)); err != nil {
				return fmt.Errorf("sending item list: %w", err)
			}
		}
	}
	return ErrTurnsExceeded
}

func setAll(items []receipt.LineItem, shared bool) {
	for i := range items {
		items[i].IsShared = shared
	}
}

// ParseSelection extracts valid 1-based indices from a comma-separated
// answer. Non-numeric tokens and indices outside [1, count] are
// silently dropped.
func ParseSelection(answer string, count int) []int {
	var indices []int
	for _, token := range strings.Split(answer, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(token))
		if err != nil || n < 1 || n > count {
			continue
		}
		indices = append(indices, n)
	}
	return indices
}

// ToggleItems flips the flag of every listed item. Toggling the same
// index twice restores the original flag.
func ToggleItems(items []receipt.LineItem, indices []int) {
	for _, n := range indices {
		items[n-1].IsShared = !items[n-1].IsShared
	}
}

// FormatItems renders the numbered selection list
func FormatItems(items []receipt.LineItem) string {
	var b strings.Builder
	for i, item := range items {
		flag := "private"
		if item.IsShared {
			flag = "shared"
		}
		fmt.Fprintf(&b, "%d. %s: %s (%s)\n", i+1, item.Name, FormatPrice(item.Price), flag)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatPrice renders cents as a decimal amount
func FormatPrice(cents int) string {
	return fmt.Sprintf("%.2f", float64(cents)/100)
}

// ParsePrice parses a decimal price (dot or comma separator) into
// non-negative cents
func ParsePrice(s string) (int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &receipt.ValidationError{Reason: fmt.Sprintf("unparsable price: %q", s)}
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &receipt.ValidationError{Reason: fmt.Sprintf("price must be non-negative: %q", s)}
	}
	return int(math.Round(f * 100)), nil
}

// ParseProductLine parses one manual-entry product line of the form
// "name; price; category" with an optional fourth flag-override token.
// The default flag applies when no override is present.
func ParseProductLine(line string, dir *category.Directory, defaultShared bool, keywords Keywords) (receipt.LineItem, error) {
	parts := strings.Split(line, ";")
	if len(parts) < 3 || len(parts) > 4 {
		return receipt.LineItem{}, &receipt.ValidationError{Reason: "product line must be: name; price; category"}
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return receipt.LineItem{}, &receipt.ValidationError{Reason: "product name is missing"}
	}

	price, err := ParsePrice(parts[1])
	if err != nil {
		return receipt.LineItem{}, err
	}

	cat, ok := dir.Lookup(parts[2])
	if !ok {
		return receipt.LineItem{}, &receipt.ValidationError{Reason: fmt.Sprintf("unknown category: %q", strings.TrimSpace(parts[2]))}
	}

	shared := defaultShared
	if len(parts) == 4 {
		switch keywords.Classify(parts[3]) {
		case DecisionShared:
			shared = true
		case DecisionPrivate:
			shared = false
		default:
			return receipt.LineItem{}, &receipt.ValidationError{Reason: fmt.Sprintf("unknown flag override: %q", strings.TrimSpace(parts[3]))}
		}
	}

	return receipt.LineItem{
		Name:     name,
		Category: cat.ID,
		Price:    price,
		IsShared: shared,
	}, nil
}
