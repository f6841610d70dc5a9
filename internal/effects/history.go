package effects

import (
	"fmt"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/models"
)

// Recorder diffs the save before and after a turn and produces chronicle
// entries. Entries are values; once appended they are never edited.
type Recorder struct {
	retention int
}

// NewRecorder creates a recorder keeping at most retention entries.
func NewRecorder(retention int) *Recorder {
	if retention <= 0 {
		retention = models.DefaultHistoryRetention
	}
	return &Recorder{retention: retention}
}

// Append adds entries to log, evicting the oldest beyond the retention bound.
func (r *Recorder) Append(log []models.HistoryEntry, entries ...models.HistoryEntry) []models.HistoryEntry {
	return models.AppendHistory(log, r.retention, entries...)
}

// Record returns the entries for one turn, in chronicle order: year change,
// timeline events, travel, bond milestones, crucial memories.
func (r *Recorder) Record(prev, next *models.Save, req *intent.AnnotatedRequest, res *Result, turnID string) []models.HistoryEntry {
	before := prev.World.Date()
	after := next.World.Date()
	stamp := func(t models.HistoryType, text string) models.HistoryEntry {
		return models.HistoryEntry{
			Type:      t,
			Year:      after.Year,
			Month:     after.Month,
			Text:      text,
			TotalDays: next.World.TotalDays,
			TurnID:    turnID,
		}
	}

	var out []models.HistoryEntry
	if after.Year > before.Year {
		out = append(out, stamp(models.HistoryYearChange,
			fmt.Sprintf("光阴荏苒，自%s至%s", calendar.FormatEraYear(before.Year, 0), calendar.FormatEraYear(after.Year, 0))))
	}

	if req != nil {
		for _, e := range req.TimelineEvents {
			entry := stamp(models.HistoryTimelineEvent, fmt.Sprintf("%s：%s", e.Label, e.Summary))
			entry.Year, entry.Month = e.Year, e.Month
			out = append(out, entry)
		}
	}

	if from, to := prev.Player.Location.Region, next.Player.Location.Region; from != to {
		out = append(out, stamp(models.HistoryTravel,
			fmt.Sprintf("自%s至%s", regionName(prev.World, from), regionName(next.World, to))))
	}

	for _, c := range next.Characters {
		old := models.FindCharacter(prev.Characters, c.ID)
		if old == nil || !old.IsAlive || c.IsAlive || c.Bond == nil {
			continue
		}
		out = append(out, stamp(models.HistoryBondMilestone, fmt.Sprintf("%s辞世", c.Name)))
	}
	if res != nil {
		for _, m := range res.Milestones {
			out = append(out, stamp(models.HistoryBondMilestone, m))
		}
		for _, m := range res.CrucialMemories {
			out = append(out, stamp(models.HistoryCrucialMemory, m))
		}
	}
	return out
}

func regionName(w *models.WorldSnapshot, id string) string {
	if w != nil {
		if r := w.Region(id); r != nil && r.Name != "" {
			return r.Name
		}
	}
	if id == "" {
		return "故地"
	}
	return id
}
