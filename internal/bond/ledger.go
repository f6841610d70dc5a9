// Package bond owns the relationship state between the player and the
// historical characters: affinity, relation type, memory shards and decay.
package bond

import (
	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/models"
)

// Config tunes the ledger.
type Config struct {
	MemoryCap            int `yaml:"memory_cap"`
	DecayPerMonth        int `yaml:"decay_per_month"`
	AdultAge             int `yaml:"adult_age"`
	SwornBrotherAffinity int `yaml:"sworn_brother_affinity"`
	SpouseAffinity       int `yaml:"spouse_affinity"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		MemoryCap:            30,
		DecayPerMonth:        2,
		AdultAge:             16,
		SwornBrotherAffinity: 80,
		SpouseAffinity:       90,
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.MemoryCap <= 0 {
		c.MemoryCap = d.MemoryCap
	}
	if c.DecayPerMonth <= 0 {
		c.DecayPerMonth = d.DecayPerMonth
	}
	if c.AdultAge <= 0 {
		c.AdultAge = d.AdultAge
	}
	if c.SwornBrotherAffinity <= 0 {
		c.SwornBrotherAffinity = d.SwornBrotherAffinity
	}
	if c.SpouseAffinity <= 0 {
		c.SpouseAffinity = d.SpouseAffinity
	}
	return c
}

const (
	minAffinity = 0
	maxAffinity = 100
)

// Ledger applies bond operations. It holds no state of its own; bonds live
// on the character records passed in.
type Ledger struct {
	cfg Config
}

// NewLedger creates a ledger with cfg, zero fields defaulted.
func NewLedger(cfg Config) *Ledger {
	return &Ledger{cfg: cfg.WithDefaults()}
}

// Config returns the effective configuration.
func (l *Ledger) Config() Config {
	return l.cfg
}

// Ensure returns the character's bond, creating a zero-affinity bond on
// first contact and upgrading legacy shapes. Idempotent.
func (l *Ledger) Ensure(c *models.Character, now calendar.Date) *models.Bond {
	if c.Bond == nil {
		c.Bond = &models.Bond{
			Version:    models.BondVersion,
			Relation:   models.RelationNone,
			LastYear:   now.Year,
			LastMonth:  now.Month,
			DecayYear:  now.Year,
			DecayMonth: now.Month,
		}
		return c.Bond
	}
	Migrate(c.Bond, now)
	return c.Bond
}

// UpdateAffinity adds delta to the affinity, clamped to [0,100], stamps the
// interaction time and appends shard if it is not empty.
func (l *Ledger) UpdateAffinity(c *models.Character, delta int, now calendar.Date, shard string) {
	b := l.Ensure(c, now)
	b.Affinity = clampAffinity(models.SaturatingAdd(b.Affinity, delta))
	l.touch(b, now)
	if shard != "" {
		l.appendShard(b, shard)
	}
}

// AppendMemory records a memory shard and stamps the interaction time.
func (l *Ledger) AppendMemory(c *models.Character, shard string, now calendar.Date) {
	if shard == "" {
		return
	}
	b := l.Ensure(c, now)
	l.touch(b, now)
	l.appendShard(b, shard)
}

// SetRelation commits a relation type. Gates are the caller's business;
// unknown relation types are ignored.
func (l *Ledger) SetRelation(c *models.Character, rel models.RelationType, now calendar.Date) bool {
	if !rel.Valid() {
		return false
	}
	b := l.Ensure(c, now)
	l.touch(b, now)
	if b.Relation == rel {
		return false
	}
	b.Relation = rel
	return true
}

// ApplyDecay lowers every bond's affinity by DecayPerMonth for each whole
// month since the later of the last interaction and the last decay pass.
// Affinity never drops below zero and the same months are never charged
// twice.
func (l *Ledger) ApplyDecay(chars []*models.Character, now calendar.Date) {
	for _, c := range chars {
		if c == nil || c.Bond == nil {
			continue
		}
		b := l.Ensure(c, now)
		from := laterOf(
			calendar.Date{Year: b.LastYear, Month: b.LastMonth, Day: 1},
			calendar.Date{Year: b.DecayYear, Month: b.DecayMonth, Day: 1},
		)
		months := calendar.MonthsBetween(from, now)
		if months == 0 {
			continue
		}
		b.Affinity -= DecayAmount(months, l.cfg.DecayPerMonth, b.Affinity)
		b.DecayYear, b.DecayMonth = now.Year, now.Month
	}
}

// DecayAmount is min(months × rate, affinity), never negative.
func DecayAmount(months, rate, affinity int) int {
	if months <= 0 || rate <= 0 || affinity <= 0 {
		return 0
	}
	if months > affinity/rate+1 {
		return affinity
	}
	amount := months * rate
	if amount > affinity {
		return affinity
	}
	return amount
}

// CanBecomeSwornBrother is the age gate for sworn brotherhood.
func (l *Ledger) CanBecomeSwornBrother(playerAge, npcAge int) bool {
	return playerAge >= l.cfg.AdultAge && npcAge >= l.cfg.AdultAge
}

// CanMarry is the age gate for marriage.
func (l *Ledger) CanMarry(playerAge, npcAge int) bool {
	return playerAge >= l.cfg.AdultAge && npcAge >= l.cfg.AdultAge
}

// AffinityFloor returns the minimum affinity for committing rel, or 0 when
// the relation has no floor.
func (l *Ledger) AffinityFloor(rel models.RelationType) int {
	switch rel {
	case models.RelationSwornBrother:
		return l.cfg.SwornBrotherAffinity
	case models.RelationSpouse:
		return l.cfg.SpouseAffinity
	}
	return 0
}

func (l *Ledger) touch(b *models.Bond, now calendar.Date) {
	b.LastYear, b.LastMonth = now.Year, now.Month
	b.DecayYear, b.DecayMonth = now.Year, now.Month
}

func (l *Ledger) appendShard(b *models.Bond, shard string) {
	b.Memories = append(b.Memories, shard)
	if over := len(b.Memories) - l.cfg.MemoryCap; over > 0 {
		b.Memories = append([]string(nil), b.Memories[over:]...)
	}
}

func clampAffinity(v int) int {
	if v < minAffinity {
		return minAffinity
	}
	if v > maxAffinity {
		return maxAffinity
	}
	return v
}

func laterOf(a, b calendar.Date) calendar.Date {
	if a.Before(b) {
		return b
	}
	return a
}
