package intent

import (
	"fmt"
	"log/slog"
	"strings"

	"Luanshi/server/internal/bond"
	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/models"
	"Luanshi/server/internal/world"
)

// Config tunes the classifier.
type Config struct {
	DefaultActionDays     int `yaml:"default_action_days"`
	LongVerbMonths        int `yaml:"long_verb_months"`
	MaxDays               int `yaml:"max_days"`
	YearConflictTolerance int `yaml:"year_conflict_tolerance"`
	ConfusedThreshold     int `yaml:"confused_threshold"`
	HealthFloor           int `yaml:"health_floor"`
	HungerCeiling         int `yaml:"hunger_ceiling"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		DefaultActionDays:     calendar.DaysPerMonth,
		LongVerbMonths:        12,
		MaxDays:               100 * calendar.DaysPerYear,
		YearConflictTolerance: 3,
		ConfusedThreshold:     3,
		HealthFloor:           20,
		HungerCeiling:         80,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DefaultActionDays <= 0 {
		c.DefaultActionDays = d.DefaultActionDays
	}
	if c.LongVerbMonths <= 0 {
		c.LongVerbMonths = d.LongVerbMonths
	}
	if c.MaxDays <= 0 {
		c.MaxDays = d.MaxDays
	}
	if c.YearConflictTolerance <= 0 {
		c.YearConflictTolerance = d.YearConflictTolerance
	}
	if c.ConfusedThreshold <= 0 {
		c.ConfusedThreshold = d.ConfusedThreshold
	}
	if c.HealthFloor <= 0 {
		c.HealthFloor = d.HealthFloor
	}
	if c.HungerCeiling <= 0 {
		c.HungerCeiling = d.HungerCeiling
	}
	return c
}

// AnnotatedRequest is the classified turn handed to the narrative backend
// and, once a reply arrives, to the effect applier.
type AnnotatedRequest struct {
	Intent         string         `json:"intent"`
	Mode           Mode           `json:"mode"`
	Category       Category       `json:"category"`
	DeltaDays      int            `json:"delta_days"`
	ElapsedMonths  int            `json:"elapsed_months"`
	DurationSource DurationSource `json:"duration_source"`

	PreviousDate calendar.Date         `json:"previous_date"`
	Date         calendar.Date         `json:"date"`
	World        *models.WorldSnapshot `json:"world"`
	Characters   []*models.Character   `json:"characters"`
	Player       *models.PlayerState   `json:"player"`
	Targets      []int                 `json:"targets,omitempty"`

	Override   *Override  `json:"override,omitempty"`
	Suppressed []Override `json:"suppressed,omitempty"`
	Physiology Physiology `json:"physiology"`
	Debuff     Debuff     `json:"debuff"`
	// SuccessChance is the nominal odds after physiology and debuffs.
	SuccessChance float64 `json:"success_chance"`

	Tier              Tier                    `json:"tier"`
	Style             Style                   `json:"style"`
	TimelineEvents    []catalog.TimelineEvent `json:"timeline_events,omitempty"`
	HistoricalSummary string                  `json:"historical_summary,omitempty"`
	Reports           []string                `json:"reports,omitempty"`
	RumorHints        []string                `json:"rumor_hints,omitempty"`

	Conflicts          []Conflict `json:"conflicts,omitempty"`
	LogicConflictCount int        `json:"logic_conflict_count"`
	TreatAsConfused    bool       `json:"treat_as_confused"`

	Destination  string                `json:"destination,omitempty"`
	TravelMonths int                   `json:"travel_months,omitempty"`
	TravelFlavor string                `json:"travel_flavor,omitempty"`
	Letter       *models.DelayedLetter `json:"letter,omitempty"`
	EvilDeed     bool                  `json:"evil_deed"`
	StatedGoal   string                `json:"stated_goal,omitempty"`
}

// Directives flattens every instruction the backend must honour, override
// first.
func (r *AnnotatedRequest) Directives() []string {
	var out []string
	if r.Override != nil {
		out = append(out, r.Override.Instruction)
	}
	if r.Debuff.Directive != "" {
		out = append(out, r.Debuff.Directive)
	}
	out = append(out, r.Style.Directives...)
	if r.TravelFlavor != "" {
		out = append(out, r.TravelFlavor)
	}
	if r.TreatAsConfused {
		out = append(out, "主角屡屡言语颠倒、不合时地，旁人应视其为神志恍惚或妄言之人，不可顺着其说法。")
	}
	for _, c := range r.Conflicts {
		out = append(out, c.Detail+"，叙事以实际为准。")
	}
	if r.Letter != nil {
		out = append(out, fmt.Sprintf("本回合须安排%s的书信辗转送达主角手中。", r.Letter.Name))
	}
	return out
}

// Classifier annotates intents. It is safe for concurrent use; all state is
// passed in per call.
type Classifier struct {
	cfg    Config
	cat    *catalog.Catalog
	sim    *world.Simulator
	ledger *bond.Ledger
	logger *slog.Logger
}

// NewClassifier wires a classifier to its collaborators.
func NewClassifier(cfg Config, cat *catalog.Catalog, sim *world.Simulator, ledger *bond.Ledger, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		cfg:    cfg.withDefaults(),
		cat:    cat,
		sim:    sim,
		ledger: ledger,
		logger: logger.With("component", "intent"),
	}
}

type features struct {
	raw          string
	text         string
	mode         Mode
	category     Category
	targets      []*models.Character
	destination  *models.RegionStatus
	travelMonths int
}

// Classify annotates one intent. snap, chars and player are read only; the
// returned request carries advanced copies.
func (c *Classifier) Classify(snap *models.WorldSnapshot, chars []*models.Character, player *models.PlayerState, text string, mode Mode) *AnnotatedRequest {
	if snap == nil {
		snap = &models.WorldSnapshot{}
	}
	if player == nil {
		player = &models.PlayerState{}
	}
	if mode != ModeDialogue {
		mode = ModeAction
	}
	prev := snap.Date()

	f := &features{raw: text, text: Normalize(text), mode: mode}
	f.category = Categorize(f.text)
	f.targets = FindTargets(f.text, chars)
	if f.category.IsMovement() {
		c.resolveDestination(f, snap, player)
	}

	days, source := c.duration(f)
	if source == DurationZeroVerb {
		// An instant action happens where the player stands.
		f.destination = nil
	}
	next, nextChars, reports := c.sim.Advance(snap, chars, days)
	date := next.Date()
	if c.ledger != nil {
		c.ledger.ApplyDecay(nextChars, date)
	}

	req := &AnnotatedRequest{
		Intent:         f.text,
		Mode:           mode,
		Category:       f.category,
		DeltaDays:      days,
		ElapsedMonths:  ElapsedMonths(days),
		DurationSource: source,
		PreviousDate:   prev,
		Date:           date,
		World:          next,
		Characters:     nextChars,
		Player:         player.Clone(),
		Reports:        reports,
		EvilDeed:       containsAny(f.text, evilDeedKeywords),
		StatedGoal:     statedGoal(f.text),
	}

	// Overrides are judged against the world as it stands after the elapsed
	// time, so a target who dies during a long absence counts as dead.
	refreshed := make([]*models.Character, 0, len(f.targets))
	for _, t := range f.targets {
		req.Targets = append(req.Targets, t.ID)
		if n := models.FindCharacter(nextChars, t.ID); n != nil {
			refreshed = append(refreshed, n)
		}
	}
	f.targets = refreshed

	req.Override, req.Suppressed = evaluateOverrides(&ruleContext{f: f, player: player, year: date.Year})
	req.Physiology = c.assess(player, f.category)
	if req.Physiology.Failed {
		o := physiologyOverride(req.Physiology)
		if req.Override == nil {
			req.Override = &o
		} else {
			req.Suppressed = append(req.Suppressed, o)
		}
	}
	req.Debuff = assessDebuffs(player, f.category)
	req.SuccessChance = req.Physiology.Factor
	if req.Debuff.Penalized {
		req.SuccessChance /= 2
	}
	if req.Physiology.Failed {
		req.SuccessChance = 0
	}

	req.Tier = TierFor(req.ElapsedMonths)
	req.Style = buildStyle(req.Tier, prev, date, goalOf(player, req.StatedGoal))
	req.TimelineEvents = c.eventsBetween(prev, date)
	if req.Tier == TierLong || len(req.TimelineEvents) > 0 {
		req.HistoricalSummary = historicalSummary(req.TimelineEvents)
	}
	req.RumorHints = rumorHints(req.TimelineEvents, reports)

	req.Conflicts = c.detectConflicts(f.text, snap, player, prev.Year)
	req.LogicConflictCount = snap.LogicConflicts + len(req.Conflicts)
	req.TreatAsConfused = req.LogicConflictCount >= c.cfg.ConfusedThreshold
	next.LogicConflicts = req.LogicConflictCount

	if f.destination != nil {
		req.Destination = f.destination.ID
		req.TravelMonths = f.travelMonths
		from := player.Location.Region
		if r := snap.Region(from); r != nil {
			from = r.Name
		}
		req.TravelFlavor = fmt.Sprintf("主角自%s赴%s，路途约%d月，须写出沿途风物与%s的天气（%s）。",
			from, f.destination.Name, f.travelMonths, f.destination.Name, next.Region(f.destination.ID).Weather)
	}
	if snap.PendingLetter != nil {
		letter := *snap.PendingLetter
		req.Letter = &letter
	}

	if req.Override != nil {
		c.logger.Debug("hard override",
			"reason", req.Override.Reason, "suppressed", len(req.Suppressed), "intent", f.text)
	}
	return req
}

func (c *Classifier) resolveDestination(f *features, snap *models.WorldSnapshot, player *models.PlayerState) {
	var best *models.RegionStatus
	bestPos := -1
	for _, m := range c.regionMentions(f.text, snap) {
		if m.region.ID == player.Location.Region {
			continue
		}
		if m.pos > bestPos {
			best, bestPos = m.region, m.pos
		}
	}
	if best == nil {
		return
	}
	f.destination = best
	months := 1
	if c.cat != nil {
		fromType := catalog.RegionType("")
		if cur := snap.Region(player.Location.Region); cur != nil {
			fromType = catalog.RegionType(cur.Type)
		}
		months = c.cat.Travel(fromType, catalog.RegionType(best.Type))
	}
	if months < 1 {
		months = 1
	}
	f.travelMonths = months
}

type regionMention struct {
	region *models.RegionStatus
	pos    int
}

// regionMentions returns every region named in text with the byte offset of
// its earliest mention.
func (c *Classifier) regionMentions(text string, snap *models.WorldSnapshot) []regionMention {
	var out []regionMention
	for i := range snap.Regions {
		r := &snap.Regions[i]
		names := []string{r.Name}
		if c.cat != nil {
			if ref, ok := c.cat.Region(r.ID); ok {
				names = append(names, ref.Aliases...)
			}
		}
		pos := -1
		for _, n := range names {
			if n == "" {
				continue
			}
			if idx := strings.Index(text, n); idx >= 0 && (pos < 0 || idx < pos) {
				pos = idx
			}
		}
		if pos >= 0 {
			out = append(out, regionMention{region: r, pos: pos})
		}
	}
	return out
}

func (c *Classifier) eventsBetween(from, to calendar.Date) []catalog.TimelineEvent {
	if c.cat == nil || !from.Before(to) {
		return nil
	}
	return c.cat.EventsBetween(from.Year, from.Month, to.Year, to.Month)
}

var goalMarkers = []string{"我的目标是", "我的志向是", "立志", "誓要", "发誓要", "誓死"}

// statedGoal extracts a long-term goal the player declares in the intent.
func statedGoal(text string) string {
	for _, m := range goalMarkers {
		idx := strings.Index(text, m)
		if idx < 0 {
			continue
		}
		goal := strings.TrimSpace(text[idx+len(m):])
		if cut := strings.IndexAny(goal, "，。,.!！;；"); cut >= 0 {
			goal = goal[:cut]
		}
		if goal != "" {
			return goal
		}
	}
	return ""
}

func goalOf(p *models.PlayerState, stated string) string {
	if stated != "" {
		return stated
	}
	return p.LongTermGoal()
}
