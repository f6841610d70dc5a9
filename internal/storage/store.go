// Package storage persists save slots. Every backend stores the same opaque
// save blob; the relational ones keep a few columns alongside for listing.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"Luanshi/server/internal/config"
	"Luanshi/server/internal/models"
)

// ErrSlotNotFound is returned by Load for an unknown slot.
var ErrSlotNotFound = errors.New("save slot not found")

// SlotSummary is the listing view of a save.
type SlotSummary struct {
	Slot       string    `json:"slot"`
	PlayerName string    `json:"player_name"`
	Year       int       `json:"year"`
	Turns      int       `json:"turns"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SaveStore is the persistence contract: whole-blob load and save per slot.
type SaveStore interface {
	Load(ctx context.Context, slot string) (*models.Save, error)
	Save(ctx context.Context, save *models.Save) error
	List(ctx context.Context) ([]SlotSummary, error)
	Close() error
}

// Open creates the store selected by cfg.Storage.Driver.
func Open(cfg *config.Config, logger *slog.Logger) (SaveStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage", "driver", cfg.Storage.Driver)

	var (
		store SaveStore
		err   error
	)
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = NewMemoryStore()
	case config.DriverSQLite:
		store, err = NewSQLiteStore(cfg.Database.SQLite.Path)
	case config.DriverMySQL:
		store, err = NewMySQLStore(cfg.Database.MySQL)
	case config.DriverRedis:
		store, err = NewRedisStore(cfg.Database.Redis)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}

	logger.Info("storage ready")
	return store, nil
}

func summarize(row *models.SaveSlot) SlotSummary {
	return SlotSummary{
		Slot:       row.Slot,
		PlayerName: row.PlayerName,
		Year:       row.Year,
		Turns:      row.Turns,
		UpdatedAt:  row.UpdatedAt,
	}
}

// sortSummaries orders most recently played first.
func sortSummaries(list []SlotSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].Slot < list[j].Slot
	})
}

func checkSave(save *models.Save) error {
	if save == nil {
		return fmt.Errorf("nil save")
	}
	if save.Slot == "" {
		return fmt.Errorf("save has no slot")
	}
	return nil
}
