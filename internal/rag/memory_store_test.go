package rag

import (
	"context"
	"math"
	"testing"

	"Luanshi/server/internal/models"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore(context.Background(), NewMemoryIndex(), HashEmbedder{Dim: 1024}, "", 1024)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}
	return store
}

func TestRecallIsScopedToSlot(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	entry := func(text string, days int) models.HistoryEntry {
		return models.HistoryEntry{Type: models.HistoryCrucialMemory, Text: text, TotalDays: days, Year: 184}
	}
	if err := store.Archive(ctx, "a", []models.HistoryEntry{
		entry("于桃园与关羽张飞结为兄弟", 10),
		entry("在洛阳城外救下一名老者", 40),
	}); err != nil {
		t.Fatalf("Archive(a): %v", err)
	}
	if err := store.Archive(ctx, "b", []models.HistoryEntry{entry("于桃园与关羽张飞结为兄弟", 10)}); err != nil {
		t.Fatalf("Archive(b): %v", err)
	}

	got, err := store.Recall(ctx, "a", "重游桃园，想起关羽张飞", 5)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(got) == 0 || got[0] != "于桃园与关羽张飞结为兄弟" {
		t.Fatalf("recall = %v, want the peach garden memory first", got)
	}

	none, err := store.Recall(ctx, "c", "重游桃园，想起关羽张飞", 5)
	if err != nil {
		t.Fatalf("Recall(c): %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("recall for empty slot = %v", none)
	}
}

func TestArchiveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	index := NewMemoryIndex()
	store, err := NewMemoryStore(ctx, index, HashEmbedder{}, "memories", 256)
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}

	e := models.HistoryEntry{Type: models.HistoryCrucialMemory, Text: "立誓匡扶汉室", TotalDays: 5, TurnID: "t1"}
	for i := 0; i < 3; i++ {
		if err := store.Archive(ctx, "a", []models.HistoryEntry{e}); err != nil {
			t.Fatalf("Archive: %v", err)
		}
	}
	if n := len(index.collections["memories"]); n != 1 {
		t.Fatalf("points = %d, want 1", n)
	}
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("normalized = %v", v)
	}
	zero := NormalizeVector([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector changed: %v", zero)
	}
	if CosineSimilarity([]float32{1, 0}, []float32{1}) != 0 {
		t.Fatalf("mismatched lengths should score 0")
	}
}

func TestHashEmbedderDeterministic(t *testing.T) {
	ctx := context.Background()
	a, _ := HashEmbedder{Dim: 64}.Embed(ctx, "三顾茅庐")
	b, _ := HashEmbedder{Dim: 64}.Embed(ctx, "三顾茅庐")
	if CosineSimilarity(a, b) < 0.999 {
		t.Fatalf("same text should embed identically")
	}
}
