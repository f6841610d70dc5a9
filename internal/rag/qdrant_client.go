package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/qdrant/go-client/qdrant"
)

// Point is a vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// SearchResult represents a search result
type SearchResult struct {
	ID      string
	Score   float64
	Payload map[string]string
}

// VectorIndex is the vector store the archive writes to.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string, size int) error
	Upsert(ctx context.Context, collection string, points []*Point) error
	// Search returns the nearest points whose payload matches every
	// key/value of filter.
	Search(ctx context.Context, collection string, vector []float32, filter map[string]string, limit int) ([]*SearchResult, error)
	Close() error
}

// QdrantClient wraps the Qdrant gRPC client.
type QdrantClient struct {
	client *qdrant.Client
}

// NewQdrantClient connects to Qdrant's gRPC port.
func NewQdrantClient(host string, port int, apiKey string) (*QdrantClient, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return &QdrantClient{client: client}, nil
}

// EnsureCollection creates a cosine collection if it does not exist.
func (q *QdrantClient) EnsureCollection(ctx context.Context, name string, size int) error {
	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(size),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert inserts or replaces points.
func (q *QdrantClient) Upsert(ctx context.Context, collection string, points []*Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		payload := make(map[string]any, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = v
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Wait:           &wait,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}
	return nil
}

// Search queries the nearest neighbours.
func (q *QdrantClient) Search(ctx context.Context, collection string, vector []float32, filter map[string]string, limit int) ([]*SearchResult, error) {
	conditions := make([]*qdrant.Condition, 0, len(filter))
	for k, v := range filter {
		conditions = append(conditions, qdrant.NewMatch(k, v))
	}
	lim := uint64(limit)
	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if len(conditions) > 0 {
		query.Filter = &qdrant.Filter{Must: conditions}
	}

	points, err := q.client.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	results := make([]*SearchResult, 0, len(points))
	for _, p := range points {
		payload := make(map[string]string, len(p.GetPayload()))
		for k, v := range p.GetPayload() {
			payload[k] = v.GetStringValue()
		}
		results = append(results, &SearchResult{
			ID:      p.GetId().GetUuid(),
			Score:   float64(p.GetScore()),
			Payload: payload,
		})
	}
	return results, nil
}

// Close closes client connection
func (q *QdrantClient) Close() error {
	return q.client.Close()
}

// MemoryIndex is an in-process VectorIndex with exact cosine search, used
// when no Qdrant is configured.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Point
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{collections: make(map[string]map[string]*Point)}
}

func (m *MemoryIndex) EnsureCollection(_ context.Context, name string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; !ok {
		m.collections[name] = make(map[string]*Point)
	}
	return nil
}

func (m *MemoryIndex) Upsert(_ context.Context, collection string, points []*Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, ok := m.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s not found", collection)
	}
	for _, p := range points {
		col[p.ID] = p
	}
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, collection string, vector []float32, filter map[string]string, limit int) ([]*SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	col, ok := m.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collection)
	}

	results := make([]*SearchResult, 0, len(col))
	for _, p := range col {
		if !matches(p.Payload, filter) {
			continue
		}
		results = append(results, &SearchResult{
			ID:      p.ID,
			Score:   CosineSimilarity(vector, p.Vector),
			Payload: p.Payload,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryIndex) Close() error {
	return nil
}

func matches(payload, filter map[string]string) bool {
	for k, v := range filter {
		if payload[k] != v {
			return false
		}
	}
	return true
}
