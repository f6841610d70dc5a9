package models

import "math"

// Stat names a bounded numeric field of the player. Effect tokens use these
// names as keys.
type Stat string

const (
	StatStrength     Stat = "strength"
	StatIntelligence Stat = "intelligence"
	StatCharisma     Stat = "charisma"
	StatLeadership   Stat = "leadership"
	StatGold         Stat = "gold"
	StatFood         Stat = "food"
	StatSoldiers     Stat = "soldiers"
	StatLegend       Stat = "legend"
	StatReputation   Stat = "reputation"
	StatFame         Stat = "fame"
	StatInfamy       Stat = "infamy"
	StatStamina      Stat = "stamina"
	StatHealth       Stat = "health"
	StatHunger       Stat = "hunger"
)

// Bounds is an inclusive range.
type Bounds struct {
	Min, Max int
}

// Clamp forces v into the range.
func (b Bounds) Clamp(v int) int {
	if v < b.Min {
		return b.Min
	}
	if v > b.Max {
		return b.Max
	}
	return v
}

const maxResource = 1_000_000_000

var statBounds = map[Stat]Bounds{
	StatStrength:     {0, 100},
	StatIntelligence: {0, 100},
	StatCharisma:     {0, 100},
	StatLeadership:   {0, 100},
	StatGold:         {0, maxResource},
	StatFood:         {0, maxResource},
	StatSoldiers:     {0, maxResource},
	StatLegend:       {0, 1000},
	StatReputation:   {-100, 100},
	StatFame:         {0, 100},
	StatInfamy:       {0, 100},
	StatStamina:      {0, 100},
	StatHealth:       {0, 100},
	StatHunger:       {0, 100},
}

var statAliases = map[string]Stat{
	"str":       StatStrength,
	"force":     StatStrength,
	"martial":   StatStrength,
	"int":       StatIntelligence,
	"wisdom":    StatIntelligence,
	"cha":       StatCharisma,
	"charm":     StatCharisma,
	"lead":      StatLeadership,
	"command":   StatLeadership,
	"money":     StatGold,
	"grain":     StatFood,
	"troops":    StatSoldiers,
	"army":      StatSoldiers,
	"prestige":  StatReputation,
	"notoriety": StatInfamy,
	"energy":    StatStamina,
	"hp":        StatHealth,
}

// ParseStat resolves an effect key to a Stat.
func ParseStat(key string) (Stat, bool) {
	s := Stat(key)
	if _, ok := statBounds[s]; ok {
		return s, true
	}
	s, ok := statAliases[key]
	return s, ok
}

// StatBounds returns the declared bounds of s.
func StatBounds(s Stat) (Bounds, bool) {
	b, ok := statBounds[s]
	return b, ok
}

// Debuff is a lasting impairment carried by the player.
type Debuff string

const (
	DebuffWounded  Debuff = "wounded"
	DebuffStarving Debuff = "starving"
	DebuffPoisoned Debuff = "poisoned"
)

// Label returns the Chinese name of the debuff.
func (d Debuff) Label() string {
	switch d {
	case DebuffWounded:
		return "负伤"
	case DebuffStarving:
		return "饥饿"
	case DebuffPoisoned:
		return "中毒"
	}
	return string(d)
}

// Attributes are the four core stats, each 0-100.
type Attributes struct {
	Strength     int `json:"strength"`
	Intelligence int `json:"intelligence"`
	Charisma     int `json:"charisma"`
	Leadership   int `json:"leadership"`
}

// Resources are non-negative stockpiles.
type Resources struct {
	Gold     int `json:"gold"`
	Food     int `json:"food"`
	Soldiers int `json:"soldiers"`
}

// Location is where the player stands.
type Location struct {
	Region string `json:"region"`
	Scene  string `json:"scene"`
}

const (
	MaxHostileFactions = 8
	MaxGoals           = 5
)

// PlayerState is the player half of a save. Numeric fields are only written
// through Set and Adjust, which clamp to the declared bounds.
type PlayerState struct {
	Name       string     `json:"name"`
	BirthYear  int        `json:"birth_year"`
	Attributes Attributes `json:"attributes"`
	Resources  Resources  `json:"resources"`
	Legend     int        `json:"legend"`
	Reputation int        `json:"reputation"`
	Fame       int        `json:"fame"`
	Infamy     int        `json:"infamy"`
	Stamina    int        `json:"stamina"`
	Health     int        `json:"health"`
	Hunger     int        `json:"hunger"`
	Location   Location   `json:"location"`
	Debuffs    []Debuff   `json:"debuffs"`

	HostileFactions []string `json:"hostile_factions"`
	Goals           []string `json:"goals"`
}

func (p *PlayerState) field(s Stat) *int {
	switch s {
	case StatStrength:
		return &p.Attributes.Strength
	case StatIntelligence:
		return &p.Attributes.Intelligence
	case StatCharisma:
		return &p.Attributes.Charisma
	case StatLeadership:
		return &p.Attributes.Leadership
	case StatGold:
		return &p.Resources.Gold
	case StatFood:
		return &p.Resources.Food
	case StatSoldiers:
		return &p.Resources.Soldiers
	case StatLegend:
		return &p.Legend
	case StatReputation:
		return &p.Reputation
	case StatFame:
		return &p.Fame
	case StatInfamy:
		return &p.Infamy
	case StatStamina:
		return &p.Stamina
	case StatHealth:
		return &p.Health
	case StatHunger:
		return &p.Hunger
	}
	return nil
}

// Get returns the current value of s.
func (p *PlayerState) Get(s Stat) int {
	if f := p.field(s); f != nil {
		return *f
	}
	return 0
}

// Set writes v to s, clamped to its bounds. Unknown stats are ignored.
func (p *PlayerState) Set(s Stat, v int) {
	f := p.field(s)
	if f == nil {
		return
	}
	*f = statBounds[s].Clamp(v)
}

// Adjust adds delta to s with saturating arithmetic, then clamps.
func (p *PlayerState) Adjust(s Stat, delta int) {
	f := p.field(s)
	if f == nil {
		return
	}
	p.Set(s, SaturatingAdd(*f, delta))
}

// Normalize clamps every stat into range. Used on load so that hand-edited
// or older saves cannot carry out-of-bound values.
func (p *PlayerState) Normalize() {
	for s := range statBounds {
		p.Set(s, p.Get(s))
	}
	p.HostileFactions = keepRecent(p.HostileFactions, MaxHostileFactions)
	p.Goals = keepRecent(p.Goals, MaxGoals)
}

// Age returns the player's age in year, never negative.
func (p *PlayerState) Age(year int) int {
	if age := year - p.BirthYear; age > 0 {
		return age
	}
	return 0
}

// HasDebuff reports whether d is active.
func (p *PlayerState) HasDebuff(d Debuff) bool {
	for _, x := range p.Debuffs {
		if x == d {
			return true
		}
	}
	return false
}

// AddDebuff activates d once.
func (p *PlayerState) AddDebuff(d Debuff) {
	if !p.HasDebuff(d) {
		p.Debuffs = append(p.Debuffs, d)
	}
}

// RemoveDebuff clears d.
func (p *PlayerState) RemoveDebuff(d Debuff) {
	out := p.Debuffs[:0]
	for _, x := range p.Debuffs {
		if x != d {
			out = append(out, x)
		}
	}
	p.Debuffs = out
}

// AddHostileFaction records faction as hostile, keeping the most recent
// entries. A repeated faction moves to the end.
func (p *PlayerState) AddHostileFaction(faction string) {
	if faction == "" {
		return
	}
	p.HostileFactions = appendRecent(p.HostileFactions, faction, MaxHostileFactions)
}

// IsHostile reports whether faction is on the hostile list.
func (p *PlayerState) IsHostile(faction string) bool {
	for _, f := range p.HostileFactions {
		if f == faction {
			return true
		}
	}
	return false
}

// AddGoal records an active narrative goal, keeping the most recent entries.
func (p *PlayerState) AddGoal(goal string) {
	if goal == "" {
		return
	}
	p.Goals = appendRecent(p.Goals, goal, MaxGoals)
}

// LongTermGoal returns the most recent goal, or "".
func (p *PlayerState) LongTermGoal() string {
	if len(p.Goals) == 0 {
		return ""
	}
	return p.Goals[len(p.Goals)-1]
}

// Clone returns a deep copy.
func (p *PlayerState) Clone() *PlayerState {
	if p == nil {
		return nil
	}
	out := *p
	if p.Debuffs != nil {
		out.Debuffs = append(make([]Debuff, 0, len(p.Debuffs)), p.Debuffs...)
	}
	out.HostileFactions = cloneStrings(p.HostileFactions)
	out.Goals = cloneStrings(p.Goals)
	return &out
}

func appendRecent(list []string, v string, max int) []string {
	out := make([]string, 0, len(list)+1)
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	out = append(out, v)
	return keepRecent(out, max)
}

func keepRecent(list []string, max int) []string {
	if len(list) <= max {
		return list
	}
	return append([]string(nil), list[len(list)-max:]...)
}

// SaturatingAdd adds without wrapping around on overflow.
func SaturatingAdd(a, b int) int {
	if b > 0 && a > math.MaxInt-b {
		return math.MaxInt
	}
	if b < 0 && a < math.MinInt-b {
		return math.MinInt
	}
	return a + b
}
