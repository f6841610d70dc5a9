package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"Luanshi/server/internal/models"
)

// SQLiteStore keeps saves in a local SQLite file.
type SQLiteStore struct {
	conn *sqlx.DB
}

type sqliteRow struct {
	Slot       string `db:"slot"`
	PlayerName string `db:"player_name"`
	Year       int    `db:"year"`
	Turns      int    `db:"turns"`
	Blob       string `db:"blob"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// NewSQLiteStore opens or creates a SQLite database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS save_slots (
		slot TEXT PRIMARY KEY,
		player_name TEXT NOT NULL,
		year INTEGER NOT NULL,
		turns INTEGER NOT NULL,
		blob TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_save_slots_updated ON save_slots(updated_at);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context, slot string) (*models.Save, error) {
	var row sqliteRow
	err := s.conn.GetContext(ctx, &row, "SELECT * FROM save_slots WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	return models.DecodeSave([]byte(row.Blob))
}

func (s *SQLiteStore) Save(ctx context.Context, save *models.Save) error {
	if err := checkSave(save); err != nil {
		return err
	}
	slot, err := models.NewSaveSlot(save)
	if err != nil {
		return err
	}

	row := sqliteRow{
		Slot:       slot.Slot,
		PlayerName: slot.PlayerName,
		Year:       slot.Year,
		Turns:      slot.Turns,
		Blob:       slot.Blob,
		CreatedAt:  slot.CreatedAt.UnixNano(),
		UpdatedAt:  slot.UpdatedAt.UnixNano(),
	}
	_, err = s.conn.NamedExecContext(ctx, `
		INSERT INTO save_slots (slot, player_name, year, turns, blob, created_at, updated_at)
		VALUES (:slot, :player_name, :year, :turns, :blob, :created_at, :updated_at)
		ON CONFLICT(slot) DO UPDATE SET
			player_name = excluded.player_name,
			year = excluded.year,
			turns = excluded.turns,
			blob = excluded.blob,
			updated_at = excluded.updated_at`, row)
	if err != nil {
		return fmt.Errorf("save slot: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]SlotSummary, error) {
	var rows []sqliteRow
	err := s.conn.SelectContext(ctx, &rows,
		"SELECT slot, player_name, year, turns, updated_at FROM save_slots ORDER BY updated_at DESC, slot")
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	list := make([]SlotSummary, 0, len(rows))
	for _, r := range rows {
		list = append(list, SlotSummary{
			Slot:       r.Slot,
			PlayerName: r.PlayerName,
			Year:       r.Year,
			Turns:      r.Turns,
			UpdatedAt:  time.Unix(0, r.UpdatedAt),
		})
	}
	return list, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
