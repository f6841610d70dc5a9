package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"Luanshi/server/internal/config"
	"Luanshi/server/internal/models"
)

const (
	keyPrefix      = "luanshi"
	slotIndexKey   = keyPrefix + ":slots"
	historyFeedMax = 100
)

func saveKey(slot string) string    { return fmt.Sprintf("%s:save:%s", keyPrefix, slot) }
func summaryKey(slot string) string { return fmt.Sprintf("%s:summary:%s", keyPrefix, slot) }
func historyKey(slot string) string { return fmt.Sprintf("%s:history:%s", keyPrefix, slot) }

// RedisStore keeps save blobs as plain keys, an index sorted by last play
// and a short newest-first feed of history entries per slot.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg config.RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client, ttl: cfg.TTL}, nil
}

func (s *RedisStore) Load(ctx context.Context, slot string) (*models.Save, error) {
	data, err := s.client.Get(ctx, saveKey(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get save: %w", err)
	}
	return models.DecodeSave(data)
}

func (s *RedisStore) Save(ctx context.Context, save *models.Save) error {
	if err := checkSave(save); err != nil {
		return err
	}
	row, err := models.NewSaveSlot(save)
	if err != nil {
		return err
	}
	summary, err := json.Marshal(summarize(row))
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	fresh, err := s.newEntries(ctx, save)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, saveKey(save.Slot), row.Blob, s.ttl)
	pipe.Set(ctx, summaryKey(save.Slot), summary, s.ttl)
	pipe.ZAdd(ctx, slotIndexKey, &redis.Z{Score: float64(row.UpdatedAt.Unix()), Member: save.Slot})
	if len(fresh) > 0 {
		values := make([]interface{}, 0, len(fresh))
		for _, e := range fresh {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal history entry: %w", err)
			}
			values = append(values, data)
		}
		pipe.LPush(ctx, historyKey(save.Slot), values...)
		pipe.LTrim(ctx, historyKey(save.Slot), 0, historyFeedMax-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store save: %w", err)
	}
	return nil
}

// newEntries returns the entries of save appended since the last stored
// turn, oldest first.
func (s *RedisStore) newEntries(ctx context.Context, save *models.Save) ([]models.HistoryEntry, error) {
	if len(save.History) == 0 {
		return nil, nil
	}
	head, err := s.client.LIndex(ctx, historyKey(save.Slot), 0).Bytes()
	if errors.Is(err, redis.Nil) {
		return save.History, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history feed: %w", err)
	}
	var last models.HistoryEntry
	if err := json.Unmarshal(head, &last); err != nil {
		return save.History, nil
	}
	for i := len(save.History) - 1; i >= 0; i-- {
		if save.History[i] == last {
			return save.History[i+1:], nil
		}
	}
	return save.History, nil
}

// RecentHistory returns up to limit feed entries, newest first.
func (s *RedisStore) RecentHistory(ctx context.Context, slot string, limit int64) ([]models.HistoryEntry, error) {
	if limit <= 0 || limit > historyFeedMax {
		limit = historyFeedMax
	}
	values, err := s.client.LRange(ctx, historyKey(slot), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history feed: %w", err)
	}

	out := make([]models.HistoryEntry, 0, len(values))
	for _, v := range values {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) List(ctx context.Context) ([]SlotSummary, error) {
	slots, err := s.client.ZRevRange(ctx, slotIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read slot index: %w", err)
	}
	if len(slots) == 0 {
		return []SlotSummary{}, nil
	}

	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = summaryKey(slot)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read summaries: %w", err)
	}

	list := make([]SlotSummary, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var sum SlotSummary
		if err := json.Unmarshal([]byte(str), &sum); err != nil {
			continue
		}
		list = append(list, sum)
	}
	return list, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
