package bond

import (
	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/models"
)

// Migrate upgrades a bond to models.BondVersion in place. Legacy memories
// are moved ahead of any canonical ones in their original order; missing
// relation and timestamps default to "none" and now. Running it on a current
// bond changes nothing.
func Migrate(b *models.Bond, now calendar.Date) {
	if b == nil {
		return
	}
	if b.Version >= models.BondVersion && len(b.LegacyMemories) == 0 {
		return
	}

	if len(b.LegacyMemories) > 0 {
		merged := make([]string, 0, len(b.LegacyMemories)+len(b.Memories))
		merged = append(merged, b.LegacyMemories...)
		merged = append(merged, b.Memories...)
		b.Memories = merged
		b.LegacyMemories = nil
	}
	if !b.Relation.Valid() {
		b.Relation = models.RelationNone
	}
	if b.LastYear == 0 {
		b.LastYear, b.LastMonth = now.Year, now.Month
	}
	if b.LastMonth == 0 {
		b.LastMonth = 1
	}
	if b.DecayYear == 0 {
		b.DecayYear, b.DecayMonth = b.LastYear, b.LastMonth
	}
	if b.DecayMonth == 0 {
		b.DecayMonth = 1
	}
	b.Affinity = clampAffinity(b.Affinity)
	b.Version = models.BondVersion
}

// MigrateSave upgrades every bond of a loaded save. It runs once at load time.
func MigrateSave(s *models.Save) {
	if s == nil || s.World == nil {
		return
	}
	now := s.World.Date()
	for _, c := range s.Characters {
		if c != nil && c.Bond != nil {
			Migrate(c.Bond, now)
		}
	}
	s.Version = models.SaveVersion
}
