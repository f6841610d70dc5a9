package world

import (
	"fmt"
	"math/rand"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/models"
)

const (
	conquestStabilityLoss  = 20
	surrenderStabilityLoss = 5
)

// expand runs one pass per faction in catalog order. Ownership changes are
// applied to snap in place, so later factions see earlier conquests.
func (s *Simulator) expand(snap *models.WorldSnapshot, chars []*models.Character, deltaDays int) []string {
	if s.cat == nil || len(snap.Regions) == 0 {
		return nil
	}
	date := snap.Date()

	// Short turns get a proportional share of a month's chance.
	scale := float64(deltaDays) / float64(calendar.DaysPerMonth)
	if scale > 1 {
		scale = 1
	}

	var reports []string
	for fi, f := range s.cat.Factions {
		if f.Leader != 0 {
			leader := models.FindCharacter(chars, f.Leader)
			if leader == nil || !leader.IsAlive {
				continue
			}
		}
		threshold := f.Ambition * f.Power * s.cfg.ExpansionBaseRate * f.HistoricalWeight(date.Year) * scale
		if threshold <= 0 {
			continue
		}

		rng := rand.New(rand.NewSource(mixSeed(s.cfg.Seed, int64(snap.TotalDays), int64(fi), int64(date.Year))))
		if rng.Float64() >= threshold {
			continue
		}

		var candidates []int
		for ri := range snap.Regions {
			if snap.Regions[ri].Owner != f.ID {
				candidates = append(candidates, ri)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		region := &snap.Regions[candidates[rng.Intn(len(candidates))]]
		when := calendar.FormatEraYear(date.Year, date.Month)

		governor := models.FindCharacter(chars, region.Governor)
		if governor != nil && governor.IsAlive && governor.Loyalty < s.cfg.SurrenderLoyalty {
			reports = append(reports, fmt.Sprintf("【战报】%s，%s守将%s不战而降，%s归于%s。",
				when, region.Name, governor.Name, region.Name, f.Name))
			region.Stability = clampStability(region.Stability - surrenderStabilityLoss)
			governor.Faction = f.ID
		} else {
			reports = append(reports, fmt.Sprintf("【战报】%s，%s攻取%s。", when, f.Name, region.Name))
			region.Stability = clampStability(region.Stability - conquestStabilityLoss)
			region.Governor = 0
		}
		s.logger.Debug("region changed hands",
			"region", region.ID, "from", region.Owner, "to", f.ID, "day", snap.TotalDays)
		region.Owner = f.ID
	}
	return reports
}

// mixSeed folds the inputs into one seed with splitmix64 finalisation, so
// neighbouring days and factions get unrelated streams.
func mixSeed(parts ...int64) int64 {
	var h uint64 = 0x9E3779B97F4A7C15
	for _, p := range parts {
		h ^= uint64(p)
		h += 0x9E3779B97F4A7C15
		h = (h ^ (h >> 30)) * 0xBF58476D1CE4E5B9
		h = (h ^ (h >> 27)) * 0x94D049BB133111EB
		h ^= h >> 31
	}
	return int64(h)
}

func clampStability(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
