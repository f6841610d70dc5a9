package models

// HistoryType classifies a history log entry.
type HistoryType string

const (
	HistoryYearChange    HistoryType = "year_change"
	HistoryTimelineEvent HistoryType = "timeline_event"
	HistoryTravel        HistoryType = "travel"
	HistoryBondMilestone HistoryType = "bond_milestone"
	HistoryCrucialMemory HistoryType = "crucial_memory"
)

// DefaultHistoryRetention bounds the log when no retention is configured.
const DefaultHistoryRetention = 200

// HistoryEntry is an immutable line of the chronicle.
type HistoryEntry struct {
	Type      HistoryType `json:"type"`
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	Text      string      `json:"text"`
	TotalDays int         `json:"total_days"`
	TurnID    string      `json:"turn_id,omitempty"`
}

// AppendHistory appends entries and evicts the oldest beyond retention. The
// returned slice never aliases the input, so earlier snapshots keep their
// own log.
func AppendHistory(log []HistoryEntry, retention int, entries ...HistoryEntry) []HistoryEntry {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	out := make([]HistoryEntry, 0, len(log)+len(entries))
	out = append(out, log...)
	out = append(out, entries...)
	if len(out) > retention {
		out = append([]HistoryEntry(nil), out[len(out)-retention:]...)
	}
	return out
}
