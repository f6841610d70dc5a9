package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SaveVersion is the current save blob layout.
const SaveVersion = 2

// Save is everything persisted for one save slot. It is the opaque blob of
// the persistence contract.
type Save struct {
	Version    int            `json:"version"`
	Slot       string         `json:"slot"`
	World      *WorldSnapshot `json:"world"`
	Player     *PlayerState   `json:"player"`
	Characters []*Character   `json:"characters"`
	History    []HistoryEntry `json:"history"`
	Turns      int            `json:"turns"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Clone returns a deep copy.
func (s *Save) Clone() *Save {
	if s == nil {
		return nil
	}
	out := *s
	out.World = s.World.Clone()
	out.Player = s.Player.Clone()
	out.Characters = CloneCharacters(s.Characters)
	if s.History != nil {
		out.History = append(make([]HistoryEntry, 0, len(s.History)), s.History...)
	}
	return &out
}

// EncodeSave serializes a save blob.
func EncodeSave(s *Save) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil save")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal save: %w", err)
	}
	return data, nil
}

// DecodeSave parses a save blob. Shape upgrades (bond migration) are the
// caller's job; see bond.MigrateSave.
func DecodeSave(data []byte) (*Save, error) {
	var s Save
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal save: %w", err)
	}
	if s.World == nil {
		s.World = &WorldSnapshot{}
	}
	if s.Player == nil {
		s.Player = &PlayerState{}
	}
	s.Player.Normalize()
	return &s, nil
}

// SaveSlot is the relational row holding a save blob.
type SaveSlot struct {
	Slot       string         `gorm:"primaryKey;size:64" json:"slot"`
	PlayerName string         `gorm:"size:128" json:"player_name"`
	Year       int            `json:"year"`
	Turns      int            `json:"turns"`
	Blob       string         `gorm:"type:longtext" json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// NewSaveSlot encodes s into a row.
func NewSaveSlot(s *Save) (*SaveSlot, error) {
	blob, err := EncodeSave(s)
	if err != nil {
		return nil, err
	}
	row := &SaveSlot{
		Slot:      s.Slot,
		Turns:     s.Turns,
		Blob:      string(blob),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.World != nil {
		row.Year = s.World.Date().Year
	}
	if s.Player != nil {
		row.PlayerName = s.Player.Name
	}
	return row, nil
}

// TableName pins the table name.
func (SaveSlot) TableName() string {
	return "save_slots"
}
