package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"Luanshi/server/internal/bond"
	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/effects"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/models"
	"Luanshi/server/internal/prompts"
	"Luanshi/server/internal/world"
)

var (
	// ErrTurnInFlight is returned when a slot already has a turn running.
	ErrTurnInFlight = errors.New("a turn is already in progress for this slot")
	// ErrBackendUnavailable means the narrative backend failed; nothing was
	// committed and the turn may be retried.
	ErrBackendUnavailable = errors.New("narrative backend unavailable")
	// ErrEmptyIntent rejects a blank turn.
	ErrEmptyIntent = errors.New("intent is empty")
)

const defaultRecallLimit = 3

// Store is the persistence contract the engine needs.
type Store interface {
	Load(ctx context.Context, slot string) (*models.Save, error)
	Save(ctx context.Context, save *models.Save) error
}

// Archive keeps crucial memories for later recall. Optional.
type Archive interface {
	Archive(ctx context.Context, slot string, entries []models.HistoryEntry) error
	Recall(ctx context.Context, slot, query string, limit int) ([]string, error)
}

// Publisher fans finished turns out to spectators. Optional.
type Publisher interface {
	Publish(slot string, turn *TurnResult)
}

// Options wires an Engine.
type Options struct {
	Catalog    *catalog.Catalog
	Simulator  *world.Simulator
	Classifier *intent.Classifier
	Applier    *effects.Applier
	Templates  *prompts.TemplateEngine
	Backend    Backend
	Store      Store
	Archive    Archive
	Publisher  Publisher
	Logger     *slog.Logger

	RecallLimit int
}

// TurnResult is what a committed turn reports back.
type TurnResult struct {
	Slot        string                `json:"slot"`
	TurnID      string                `json:"turn_id"`
	Turn        int                   `json:"turn"`
	Narrative   string                `json:"narrative"`
	Suggestions []Suggestion          `json:"suggestions"`
	Date        calendar.Date         `json:"date"`
	DateText    string                `json:"date_text"`
	DeltaDays   int                   `json:"delta_days"`
	Tier        intent.Tier           `json:"tier"`
	Override    *intent.Override      `json:"override,omitempty"`
	Suppressed  []intent.Override     `json:"suppressed,omitempty"`
	Skipped     []string              `json:"skipped_effects,omitempty"`
	History     []models.HistoryEntry `json:"history,omitempty"`
	Player      *models.PlayerState   `json:"player"`
}

// NewGameRequest describes the protagonist of a new save.
type NewGameRequest struct {
	Name      string `json:"name"`
	BirthYear int    `json:"birth_year"`
	Region    string `json:"region"`
}

// Engine runs turns: load, classify, narrate, apply, save.
type Engine struct {
	cat        *catalog.Catalog
	sim        *world.Simulator
	classifier *intent.Classifier
	applier    *effects.Applier
	templates  *prompts.TemplateEngine
	backend    Backend
	store      Store
	archive    Archive
	publisher  Publisher
	logger     *slog.Logger

	recallLimit int
	inflight    sync.Map // slot -> *atomic.Bool
	now         func() time.Time
}

// New creates an engine. Catalog, Simulator, Classifier, Applier, Backend and
// Store are required.
func New(opts Options) (*Engine, error) {
	switch {
	case opts.Catalog == nil:
		return nil, fmt.Errorf("engine: catalog is required")
	case opts.Simulator == nil:
		return nil, fmt.Errorf("engine: simulator is required")
	case opts.Classifier == nil:
		return nil, fmt.Errorf("engine: classifier is required")
	case opts.Applier == nil:
		return nil, fmt.Errorf("engine: applier is required")
	case opts.Backend == nil:
		return nil, fmt.Errorf("engine: backend is required")
	case opts.Store == nil:
		return nil, fmt.Errorf("engine: store is required")
	}

	templates := opts.Templates
	if templates == nil {
		templates = prompts.NewTemplateEngine()
		if err := templates.InitializeDefaultTemplates(); err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := opts.RecallLimit
	if limit <= 0 {
		limit = defaultRecallLimit
	}

	return &Engine{
		cat:         opts.Catalog,
		sim:         opts.Simulator,
		classifier:  opts.Classifier,
		applier:     opts.Applier,
		templates:   templates,
		backend:     opts.Backend,
		store:       opts.Store,
		archive:     opts.Archive,
		publisher:   opts.Publisher,
		logger:      logger.With("component", "engine"),
		recallLimit: limit,
		now:         time.Now,
	}, nil
}

// NewGame creates and stores a fresh save at day zero.
func (e *Engine) NewGame(ctx context.Context, req NewGameRequest) (*models.Save, error) {
	snap, chars, _ := e.sim.Advance(world.NewSnapshot(e.cat), world.NewCharacters(e.cat), 0)
	now := e.now()
	save := &models.Save{
		Version:    models.SaveVersion,
		Slot:       uuid.NewString(),
		World:      snap,
		Player:     newPlayer(req, snap),
		Characters: chars,
		History:    []models.HistoryEntry{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.store.Save(ctx, save); err != nil {
		return nil, fmt.Errorf("failed to store new game: %w", err)
	}

	e.logger.Info("new game", "slot", save.Slot, "player", save.Player.Name)
	return save, nil
}

// Load returns the migrated save of slot.
func (e *Engine) Load(ctx context.Context, slot string) (*models.Save, error) {
	save, err := e.store.Load(ctx, slot)
	if err != nil {
		return nil, fmt.Errorf("failed to load slot %s: %w", slot, err)
	}
	bond.MigrateSave(save)
	return save, nil
}

// PlayTurn runs one turn for slot. At most one turn per slot is in flight;
// a concurrent call gets ErrTurnInFlight. When the backend fails the save is
// left untouched and ErrBackendUnavailable is returned.
func (e *Engine) PlayTurn(ctx context.Context, slot, text string, mode intent.Mode) (*TurnResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyIntent
	}
	if mode == "" {
		mode = intent.ModeAction
	}

	flag := e.flag(slot)
	if !flag.CompareAndSwap(false, true) {
		return nil, ErrTurnInFlight
	}
	defer flag.Store(false)

	prev, err := e.Load(ctx, slot)
	if err != nil {
		return nil, err
	}

	req := e.classifier.Classify(prev.World, prev.Characters, prev.Player, text, mode)
	vars := prompts.BuildTurnContext(req, e.recall(ctx, slot, text))
	system, err := e.templates.Render(prompts.TemplateSystem, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render system prompt: %w", err)
	}
	user, err := e.templates.Render(prompts.TemplateTurn, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render turn prompt: %w", err)
	}

	raw, err := e.backend.Narrate(ctx, system, user)
	if err != nil {
		e.logger.Warn("backend failed", "slot", slot, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	reply := ParseReply(raw)

	turnID := uuid.NewString()
	next, res := e.applier.Apply(prev, req, reply.Effects, turnID)
	next.UpdatedAt = e.now()
	if err := e.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save slot %s: %w", slot, err)
	}

	e.archiveCrucial(ctx, slot, res.Entries)

	reason := ""
	if req.Override != nil {
		reason = req.Override.Reason
	}
	e.logger.Info("turn committed",
		"slot", slot,
		"turn_id", turnID,
		"delta_days", req.DeltaDays,
		"tier", req.Tier,
		"override", reason,
		"applied", len(res.Applied),
		"skipped", len(res.Skipped),
	)

	date := next.World.Date()
	result := &TurnResult{
		Slot:        slot,
		TurnID:      turnID,
		Turn:        next.Turns,
		Narrative:   reply.Narrative,
		Suggestions: reply.Suggestions,
		Date:        date,
		DateText:    calendar.FormatDate(date),
		DeltaDays:   req.DeltaDays,
		Tier:        req.Tier,
		Override:    req.Override,
		Suppressed:  req.Suppressed,
		Skipped:     res.Skipped,
		History:     res.Entries,
		Player:      next.Player,
	}
	if e.publisher != nil {
		e.publisher.Publish(slot, result)
	}
	return result, nil
}

func (e *Engine) flag(slot string) *atomic.Bool {
	v, _ := e.inflight.LoadOrStore(slot, atomic.NewBool(false))
	return v.(*atomic.Bool)
}

func (e *Engine) recall(ctx context.Context, slot, query string) []string {
	if e.archive == nil {
		return nil
	}
	memories, err := e.archive.Recall(ctx, slot, query, e.recallLimit)
	if err != nil {
		e.logger.Warn("memory recall failed", "slot", slot, "error", err)
		return nil
	}
	return memories
}

func (e *Engine) archiveCrucial(ctx context.Context, slot string, entries []models.HistoryEntry) {
	if e.archive == nil {
		return
	}
	var crucial []models.HistoryEntry
	for _, entry := range entries {
		if entry.Type == models.HistoryCrucialMemory {
			crucial = append(crucial, entry)
		}
	}
	if len(crucial) == 0 {
		return
	}
	if err := e.archive.Archive(ctx, slot, crucial); err != nil {
		e.logger.Warn("memory archive failed", "slot", slot, "error", err)
	}
}
