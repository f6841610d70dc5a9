package rag

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	defaultEmbeddingModel = "embedding-3"
	defaultBaseURL        = "https://open.bigmodel.cn/api/paas/v4"
	cacheTTL              = 24 * time.Hour
	maxRetries            = 3
	retryDelay            = 1 * time.Second
)

// Embedder turns text into a unit-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingCache stores cached embeddings
type EmbeddingCache struct {
	cache map[string]*CachedEmbedding
	mu    sync.RWMutex
}

// CachedEmbedding holds a cached embedding with expiration
type CachedEmbedding struct {
	Vector    []float32
	CreatedAt time.Time
}

func newEmbeddingCache() *EmbeddingCache {
	return &EmbeddingCache{cache: make(map[string]*CachedEmbedding)}
}

// Get returns a fresh cached vector.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.cache[text]
	if !ok || time.Since(cached.CreatedAt) > cacheTTL {
		return nil, false
	}
	return cached.Vector, true
}

// Put caches an embedding
func (c *EmbeddingCache) Put(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[text] = &CachedEmbedding{Vector: vector, CreatedAt: time.Now()}
}

// EmbeddingService calls an OpenAI-compatible embeddings endpoint.
type EmbeddingService struct {
	client *openai.Client
	model  string
	cache  *EmbeddingCache
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(baseURL, apiKey, model string) *EmbeddingService {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultEmbeddingModel
	}
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL

	return &EmbeddingService{
		client: openai.NewClientWithConfig(config),
		model:  model,
		cache:  newEmbeddingCache(),
	}
}

// Embed generates embedding for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.cache.Get(text); ok {
		return vec, nil
	}

	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(s.model),
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
		}

		resp, err := s.client.CreateEmbeddings(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("no embedding generated")
		}

		vec := NormalizeVector(resp.Data[0].Embedding)
		s.cache.Put(text, vec)
		return vec, nil
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// HashEmbedder is an offline embedder hashing character bigrams into a
// fixed number of buckets. Texts sharing phrases land close together.
type HashEmbedder struct {
	Dim int
}

// Embed implements Embedder.
func (h HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dim := h.Dim
	if dim <= 0 {
		dim = 256
	}
	vec := make([]float32, dim)
	runes := []rune(text)
	for i := range runes {
		end := i + 2
		if end > len(runes) {
			end = len(runes)
		}
		f := fnv.New32a()
		f.Write([]byte(string(runes[i:end])))
		vec[f.Sum32()%uint32(dim)]++
	}
	return NormalizeVector(vec), nil
}

// NormalizeVector scales v to unit length. A zero vector is returned as is.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out
}

// CosineSimilarity of two equal-length vectors; 0 when lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
