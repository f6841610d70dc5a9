package models

import (
	"Luanshi/server/internal/calendar"
)

// RegionStatus is the per-save state of a region.
type RegionStatus struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Owner     string `json:"owner"`     // owning faction id
	Governor  int    `json:"governor"`  // character id, 0 if none
	Weather   string `json:"weather"`
	Stability int    `json:"stability"` // 0-100
}

// DelayedLetter is a flavor hook armed by a long absence and delivered on
// the following turn.
type DelayedLetter struct {
	CharacterID int    `json:"character_id"`
	Name        string `json:"name"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
}

// WorldSnapshot is the world half of a save. TotalDays is the single source
// of truth for time; the calendar date is always derived from it.
type WorldSnapshot struct {
	TotalDays      int            `json:"total_days"`
	CanonFlags     []string       `json:"canon_flags"`
	DeviationFlags []string       `json:"deviation_flags"`
	Regions        []RegionStatus `json:"regions"`
	LogicConflicts int            `json:"logic_conflicts"`
	PendingLetter  *DelayedLetter `json:"pending_letter,omitempty"`
}

// Date derives the calendar date from TotalDays.
func (w *WorldSnapshot) Date() calendar.Date {
	return calendar.FromDays(w.TotalDays)
}

// Region returns the region with id, or nil.
func (w *WorldSnapshot) Region(id string) *RegionStatus {
	for i := range w.Regions {
		if w.Regions[i].ID == id {
			return &w.Regions[i]
		}
	}
	return nil
}

// HasFlag reports whether flag is set in either flag list.
func (w *WorldSnapshot) HasFlag(flag string) bool {
	for _, f := range w.CanonFlags {
		if f == flag {
			return true
		}
	}
	for _, f := range w.DeviationFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// AddDeviation records a player-caused deviation flag once.
func (w *WorldSnapshot) AddDeviation(flag string) {
	if flag == "" || w.HasFlag(flag) {
		return
	}
	w.DeviationFlags = append(w.DeviationFlags, flag)
}

// AddCanon records a canonical flag once.
func (w *WorldSnapshot) AddCanon(flag string) {
	if flag == "" || w.HasFlag(flag) {
		return
	}
	w.CanonFlags = append(w.CanonFlags, flag)
}

// Clone returns a deep copy.
func (w *WorldSnapshot) Clone() *WorldSnapshot {
	if w == nil {
		return nil
	}
	out := *w
	out.CanonFlags = cloneStrings(w.CanonFlags)
	out.DeviationFlags = cloneStrings(w.DeviationFlags)
	if w.Regions != nil {
		out.Regions = append(make([]RegionStatus, 0, len(w.Regions)), w.Regions...)
	}
	if w.PendingLetter != nil {
		letter := *w.PendingLetter
		out.PendingLetter = &letter
	}
	return &out
}

// cloneStrings copies a list, keeping nil and empty distinct.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
