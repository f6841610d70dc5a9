// Package world advances the simulated world: the clock, character life and
// age, regional weather and the territorial contest between factions.
package world

import (
	"log/slog"
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/models"
)

// Config tunes the simulator.
type Config struct {
	Seed              int64   `yaml:"seed"`
	ExpansionBaseRate float64 `yaml:"expansion_base_rate"`
	SurrenderLoyalty  int     `yaml:"surrender_loyalty"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		Seed:              184,
		ExpansionBaseRate: 0.35,
		SurrenderLoyalty:  30,
	}
}

// Simulator is stateless between calls; the same inputs always produce the
// same outputs.
type Simulator struct {
	cfg     Config
	cat     *catalog.Catalog
	weather opensimplex.Noise
	logger  *slog.Logger
}

// NewSimulator creates a simulator over the reference catalog.
func NewSimulator(cat *catalog.Catalog, cfg Config, logger *slog.Logger) *Simulator {
	if cfg.ExpansionBaseRate <= 0 {
		cfg.ExpansionBaseRate = DefaultConfig().ExpansionBaseRate
	}
	if cfg.SurrenderLoyalty <= 0 {
		cfg.SurrenderLoyalty = DefaultConfig().SurrenderLoyalty
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		cfg:     cfg,
		cat:     cat,
		weather: opensimplex.NewNormalized(cfg.Seed),
		logger:  logger.With("component", "world"),
	}
}

// Advance moves the world forward by deltaDays. Inputs are never modified;
// the returned snapshot and characters are fresh copies. Negative deltas are
// treated as zero, which still refreshes weather and character state.
// Expansion only runs when time actually passes.
func (s *Simulator) Advance(snap *models.WorldSnapshot, chars []*models.Character, deltaDays int) (*models.WorldSnapshot, []*models.Character, []string) {
	if deltaDays < 0 {
		deltaDays = 0
	}

	next := snap.Clone()
	if next == nil {
		next = &models.WorldSnapshot{}
	}
	if next.TotalDays < 0 {
		next.TotalDays = 0
	}
	next.TotalDays = models.SaturatingAdd(next.TotalDays, deltaDays)
	if next.TotalDays > math.MaxInt32 {
		next.TotalDays = math.MaxInt32
	}
	date := next.Date()

	nextChars := models.CloneCharacters(chars)
	RefreshCharacters(nextChars, date.Year)

	s.refreshWeather(next)

	var reports []string
	if deltaDays > 0 {
		reports = s.expand(next, nextChars, deltaDays)
	}
	return next, nextChars, reports
}

// RefreshCharacters recomputes life and age for year. A death year of zero
// means the character has no recorded death.
func RefreshCharacters(chars []*models.Character, year int) {
	for _, c := range chars {
		if c == nil {
			continue
		}
		c.IsAlive = c.DeathYear == 0 || year <= c.DeathYear
		c.CurrentAge = year - c.BirthYear
		if c.CurrentAge < 0 {
			c.CurrentAge = 0
		}
	}
}

// NewSnapshot builds the day-zero world from the catalog.
func NewSnapshot(cat *catalog.Catalog) *models.WorldSnapshot {
	snap := &models.WorldSnapshot{
		CanonFlags:     []string{},
		DeviationFlags: []string{},
		Regions:        make([]models.RegionStatus, 0, len(cat.Regions)),
	}
	for _, r := range cat.Regions {
		snap.Regions = append(snap.Regions, models.RegionStatus{
			ID:        r.ID,
			Name:      r.Name,
			Type:      string(r.Type),
			Owner:     r.Owner,
			Governor:  r.Governor,
			Stability: r.Stability,
		})
	}
	return snap
}

// NewCharacters instantiates the character records of a new save.
func NewCharacters(cat *catalog.Catalog) []*models.Character {
	out := make([]*models.Character, 0, len(cat.Characters))
	for _, c := range cat.Characters {
		out = append(out, &models.Character{
			ID:                 c.ID,
			Name:               c.Name,
			Aliases:            append([]string(nil), c.Aliases...),
			BirthYear:          c.BirthYear,
			DeathYear:          c.DeathYear,
			Faction:            c.Faction,
			Personality:        c.Personality,
			SpeechStyle:        c.SpeechStyle,
			DefeatThreshold:    c.DefeatThreshold,
			EncounterThreshold: c.EncounterThreshold,
			Loyalty:            c.Loyalty,
		})
	}
	RefreshCharacters(out, calendar.StartYear)
	return out
}
