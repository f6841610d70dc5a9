package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Luanshi/server/internal/config"
	"Luanshi/server/internal/models"
)

// MySQLStore keeps saves in the save_slots table.
type MySQLStore struct {
	db *gorm.DB
}

// DSN builds the driver connection string.
func DSN(cfg config.MySQLConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)
}

func NewMySQLStore(cfg config.MySQLConfig) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(DSN(cfg)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&models.SaveSlot{}); err != nil {
		return nil, err
	}

	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Load(ctx context.Context, slot string) (*models.Save, error) {
	var row models.SaveSlot
	err := s.db.WithContext(ctx).First(&row, "slot = ?", slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	return models.DecodeSave([]byte(row.Blob))
}

func (s *MySQLStore) Save(ctx context.Context, save *models.Save) error {
	if err := checkSave(save); err != nil {
		return err
	}
	row, err := models.NewSaveSlot(save)
	if err != nil {
		return err
	}
	return s.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Save(row).Error
	})
}

func (s *MySQLStore) List(ctx context.Context) ([]SlotSummary, error) {
	var rows []models.SaveSlot
	err := s.db.WithContext(ctx).
		Select("slot", "player_name", "year", "turns", "updated_at").
		Order("updated_at desc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	list := make([]SlotSummary, 0, len(rows))
	for i := range rows {
		list = append(list, summarize(&rows[i]))
	}
	return list, nil
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// WithTx runs fn in a transaction.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(*gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
