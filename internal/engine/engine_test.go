package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"Luanshi/server/internal/bond"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/effects"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/models"
	"Luanshi/server/internal/rag"
	"Luanshi/server/internal/storage"
	"Luanshi/server/internal/world"
)

type fakeBackend struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	lastUser string
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeBackend) Narrate(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.lastUser = user
	started, release := f.started, f.release
	reply, err := f.reply, f.err
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return reply, err
}

type fakePublisher struct {
	mu    sync.Mutex
	turns []*TurnResult
}

func (p *fakePublisher) Publish(slot string, turn *TurnResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.turns = append(p.turns, turn)
}

type harness struct {
	engine    *Engine
	backend   *fakeBackend
	store     *storage.MemoryStore
	archive   *rag.MemoryStore
	publisher *fakePublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := world.NewSimulator(cat, world.DefaultConfig(), logger)
	ledger := bond.NewLedger(bond.Config{})
	archive, err := rag.NewMemoryStore(context.Background(), rag.NewMemoryIndex(), rag.HashEmbedder{Dim: 512}, "", 512)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}

	h := &harness{
		backend:   &fakeBackend{reply: `{"narrative": "无事发生。"}`},
		store:     storage.NewMemoryStore(),
		archive:   archive,
		publisher: &fakePublisher{},
	}
	h.engine, err = New(Options{
		Catalog:    cat,
		Simulator:  sim,
		Classifier: intent.NewClassifier(intent.Config{}, cat, sim, ledger, logger),
		Applier:    effects.NewApplier(effects.Config{}, cat, ledger, logger),
		Backend:    h.backend,
		Store:      h.store,
		Archive:    archive,
		Publisher:  h.publisher,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func (h *harness) newGame(t *testing.T) *models.Save {
	t.Helper()
	save, err := h.engine.NewGame(context.Background(), NewGameRequest{Name: "李平", BirthYear: 164})
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	return save
}

func TestNewGame(t *testing.T) {
	h := newHarness(t)
	save := h.newGame(t)

	if save.Slot == "" || save.Version != models.SaveVersion {
		t.Fatalf("save = %+v", save)
	}
	if save.World.TotalDays != 0 || save.Player.Location.Region != "youzhou" {
		t.Fatalf("start state = days %d, region %q", save.World.TotalDays, save.Player.Location.Region)
	}
	for _, r := range save.World.Regions {
		if r.Weather == "" {
			t.Fatalf("region %s has no weather", r.ID)
		}
	}
	if _, err := h.store.Load(context.Background(), save.Slot); err != nil {
		t.Fatalf("new game not stored: %v", err)
	}
}

func TestPlayTurnCommits(t *testing.T) {
	h := newHarness(t)
	save := h.newGame(t)
	h.backend.reply = "```json\n" + `{
		"narrative": "玄德与云长把酒言欢。",
		"effects": ["strength+2", "npc_1002_favor+10", "crucial_memory=与关羽初会于涿县", "bogus"],
		"suggestions": [{"text": "同往校场"}, {"text": "结义", "goal_aligned": true}, {"text": "告辞"}, {"text": "再饮"}]
	}` + "\n```"

	res, err := h.engine.PlayTurn(context.Background(), save.Slot, "拜访关羽", intent.ModeAction)
	if err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}
	if res.Turn != 1 || res.Narrative != "玄德与云长把酒言欢。" {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Suggestions) != 3 || !res.Suggestions[1].GoalAligned {
		t.Fatalf("suggestions = %+v", res.Suggestions)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "bogus" {
		t.Fatalf("skipped = %v", res.Skipped)
	}

	stored, err := h.store.Load(context.Background(), save.Slot)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if stored.Turns != 1 || stored.World.TotalDays != res.DeltaDays {
		t.Fatalf("stored turns %d days %d, delta %d", stored.Turns, stored.World.TotalDays, res.DeltaDays)
	}
	if stored.Player.Attributes.Strength != 52 {
		t.Fatalf("strength = %d, want 52", stored.Player.Attributes.Strength)
	}
	guan := models.FindCharacter(stored.Characters, 1002)
	if guan == nil || guan.Bond == nil || guan.Bond.Affinity != 10 {
		t.Fatalf("关羽 bond = %+v", guan)
	}

	recalled, err := h.archive.Recall(context.Background(), save.Slot, "与关羽初会于涿县", 3)
	if err != nil || len(recalled) == 0 {
		t.Fatalf("recall = %v, %v", recalled, err)
	}
	if len(h.publisher.turns) != 1 || h.publisher.turns[0].TurnID != res.TurnID {
		t.Fatalf("published = %+v", h.publisher.turns)
	}
}

func TestRecalledMemoriesReachPrompt(t *testing.T) {
	h := newHarness(t)
	save := h.newGame(t)
	h.backend.reply = `{"narrative": "立誓。", "effects": ["crucial_memory=于涿县立誓匡扶汉室"]}`
	if _, err := h.engine.PlayTurn(context.Background(), save.Slot, "于涿县立誓匡扶汉室", intent.ModeAction); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	h.backend.reply = `{"narrative": "忆起旧誓。"}`
	if _, err := h.engine.PlayTurn(context.Background(), save.Slot, "在涿县回想立誓匡扶汉室之事", intent.ModeDialogue); err != nil {
		t.Fatalf("second turn: %v", err)
	}
	if !strings.Contains(h.backend.lastUser, "于涿县立誓匡扶汉室") {
		t.Fatalf("prompt does not carry the recalled memory:\n%s", h.backend.lastUser)
	}
}

func TestOverrideReachesPrompt(t *testing.T) {
	h := newHarness(t)
	save := h.newGame(t)

	res, err := h.engine.PlayTurn(context.Background(), save.Slot, "击杀吕布", intent.ModeAction)
	if err != nil {
		t.Fatalf("PlayTurn: %v", err)
	}
	if res.Override == nil || res.Override.Reason != intent.ReasonImpossibleBattle {
		t.Fatalf("override = %+v", res.Override)
	}
	if !strings.Contains(h.backend.lastUser, res.Override.Instruction) {
		t.Fatalf("prompt does not carry the override instruction")
	}
}

func TestBackendFailureLeavesSaveUntouched(t *testing.T) {
	h := newHarness(t)
	save := h.newGame(t)
	h.backend.err = errors.New("connection refused")

	_, err := h.engine.PlayTurn(context.Background(), save.Slot, "闭关十年", intent.ModeAction)
	if !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}

	stored, _ := h.store.Load(context.Background(), save.Slot)
	if stored.Turns != 0 || stored.World.TotalDays != 0 || len(stored.History) != 0 {
		t.Fatalf("save changed after backend failure: turns %d days %d", stored.Turns, stored.World.TotalDays)
	}
	if len(h.publisher.turns) != 0 {
		t.Fatalf("failed turn was published")
	}
}

func TestConcurrentTurnRejected(t *testing.T) {
	h := newHarness(t)
	save := h.newGame(t)
	h.backend.started = make(chan struct{}, 1)
	h.backend.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := h.engine.PlayTurn(context.Background(), save.Slot, "拜访关羽", intent.ModeAction)
		done <- err
	}()

	select {
	case <-h.backend.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("first turn never reached the backend")
	}

	if _, err := h.engine.PlayTurn(context.Background(), save.Slot, "拜访张飞", intent.ModeAction); !errors.Is(err, ErrTurnInFlight) {
		t.Fatalf("err = %v, want ErrTurnInFlight", err)
	}

	close(h.backend.release)
	if err := <-done; err != nil {
		t.Fatalf("first turn: %v", err)
	}

	h.backend.mu.Lock()
	h.backend.started, h.backend.release = nil, nil
	h.backend.mu.Unlock()
	if _, err := h.engine.PlayTurn(context.Background(), save.Slot, "拜访张飞", intent.ModeAction); err != nil {
		t.Fatalf("turn after release: %v", err)
	}
}

func TestPlayTurnInputErrors(t *testing.T) {
	h := newHarness(t)
	save := h.newGame(t)

	if _, err := h.engine.PlayTurn(context.Background(), save.Slot, "   ", intent.ModeAction); !errors.Is(err, ErrEmptyIntent) {
		t.Fatalf("err = %v, want ErrEmptyIntent", err)
	}
	if _, err := h.engine.PlayTurn(context.Background(), "missing", "拜访关羽", intent.ModeAction); !errors.Is(err, storage.ErrSlotNotFound) {
		t.Fatalf("err = %v, want ErrSlotNotFound", err)
	}
	if h.backend.calls != 0 {
		t.Fatalf("backend called %d times for rejected turns", h.backend.calls)
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatalf("expected error for empty options")
	}
}
