package rag

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"Luanshi/server/internal/models"
)

const (
	defaultCollectionName = "luanshi_memories"
	defaultScoreThreshold = 0.2
)

// MemoryStore archives crucial memories per save slot and recalls the ones
// closest to a query.
type MemoryStore struct {
	index      VectorIndex
	embedder   Embedder
	collection string
	threshold  float64
}

// NewMemoryStore creates a new memory store and makes sure its collection
// exists.
func NewMemoryStore(ctx context.Context, index VectorIndex, embedder Embedder, collection string, vectorSize int) (*MemoryStore, error) {
	if collection == "" {
		collection = defaultCollectionName
	}
	if err := index.EnsureCollection(ctx, collection, vectorSize); err != nil {
		return nil, err
	}
	return &MemoryStore{
		index:      index,
		embedder:   embedder,
		collection: collection,
		threshold:  defaultScoreThreshold,
	}, nil
}

// pointID is stable per slot and entry so re-archiving a turn overwrites
// rather than duplicates.
func pointID(slot string, e models.HistoryEntry) string {
	key := fmt.Sprintf("%s|%d|%s|%s", slot, e.TotalDays, e.TurnID, e.Text)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// Archive stores entries for slot.
func (s *MemoryStore) Archive(ctx context.Context, slot string, entries []models.HistoryEntry) error {
	points := make([]*Point, 0, len(entries))
	for _, e := range entries {
		vector, err := s.embedder.Embed(ctx, e.Text)
		if err != nil {
			return fmt.Errorf("failed to generate embedding: %w", err)
		}
		points = append(points, &Point{
			ID:     pointID(slot, e),
			Vector: vector,
			Payload: map[string]string{
				"slot":       slot,
				"type":       string(e.Type),
				"text":       e.Text,
				"year":       strconv.Itoa(e.Year),
				"total_days": strconv.Itoa(e.TotalDays),
			},
		})
	}
	return s.index.Upsert(ctx, s.collection, points)
}

// Recall returns up to limit archived texts of slot related to query, most
// similar first.
func (s *MemoryStore) Recall(ctx context.Context, slot, query string, limit int) ([]string, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}
	results, err := s.index.Search(ctx, s.collection, vector, map[string]string{"slot": slot}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}

	out := make([]string, 0, len(results))
	for _, r := range results {
		if r.Score < s.threshold {
			continue
		}
		out = append(out, r.Payload["text"])
	}
	return out, nil
}

// Close releases the underlying index.
func (s *MemoryStore) Close() error {
	return s.index.Close()
}
