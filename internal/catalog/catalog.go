// Package catalog holds the static reference data of the chronicle: regions,
// factions, historical characters and the reference timeline. The data is
// embedded YAML, loaded once and read-only afterwards.
package catalog

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v2"
)

//go:embed data/*.yaml
var dataFS embed.FS

// RegionType classifies a region for travel-time lookups and weather.
type RegionType string

const (
	RegionCentral   RegionType = "central"
	RegionNorth     RegionType = "north"
	RegionSouth     RegionType = "south"
	RegionWest      RegionType = "west"
	RegionSouthwest RegionType = "southwest"
)

// Region is a province of the map.
type Region struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Aliases   []string   `yaml:"aliases"`
	Type      RegionType `yaml:"type"`
	Owner     string     `yaml:"owner"`
	Governor  int        `yaml:"governor"`
	Stability int        `yaml:"stability"`
}

// WeightBracket dampens a faction's expansion between two years (inclusive).
type WeightBracket struct {
	From   int     `yaml:"from"`
	To     int     `yaml:"to"`
	Weight float64 `yaml:"weight"`
}

// Faction is a contender in the territorial contest.
type Faction struct {
	ID       string          `yaml:"id"`
	Name     string          `yaml:"name"`
	Ambition float64         `yaml:"ambition"`
	Power    float64         `yaml:"power"`
	Leader   int             `yaml:"leader"`
	Weights  []WeightBracket `yaml:"weights"`
}

// HistoricalWeight returns the expansion weight for year. Years outside every
// bracket weigh 1.
func (f Faction) HistoricalWeight(year int) float64 {
	for _, b := range f.Weights {
		if year >= b.From && (b.To == 0 || year <= b.To) {
			return b.Weight
		}
	}
	return 1
}

// Character is the static template of a historical figure.
type Character struct {
	ID                 int      `yaml:"id"`
	Name               string   `yaml:"name"`
	Aliases            []string `yaml:"aliases"`
	BirthYear          int      `yaml:"birth_year"`
	DeathYear          int      `yaml:"death_year"`
	Faction            string   `yaml:"faction"`
	Personality        string   `yaml:"personality"`
	SpeechStyle        string   `yaml:"speech_style"`
	DefeatThreshold    int      `yaml:"defeat_threshold"`
	EncounterThreshold int      `yaml:"encounter_threshold"`
	Loyalty            int      `yaml:"loyalty"`
}

// TimelineEvent is one entry of the reference timeline.
type TimelineEvent struct {
	Year    int      `yaml:"year"`
	Month   int      `yaml:"month"`
	Label   string   `yaml:"label"`
	Summary string   `yaml:"summary"`
	Hooks   []string `yaml:"hooks"`
}

// Catalog is the full set of reference data.
type Catalog struct {
	Regions    []Region        `yaml:"regions"`
	Factions   []Faction       `yaml:"factions"`
	Characters []Character     `yaml:"characters"`
	Timeline   []TimelineEvent `yaml:"timeline"`

	// TravelMonths maps "from>to" region types to travel time.
	TravelMonths map[string]int `yaml:"travel_months"`

	regionIndex    map[string]int
	characterIndex map[int]int
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the embedded catalog, parsed on first use.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(dataFS)
	})
	return defaultCat, defaultErr
}

// MustDefault is Default for callers that cannot proceed without reference data.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

type fileReader interface {
	ReadFile(name string) ([]byte, error)
}

// Load parses the catalog files from fsys.
func Load(fsys fileReader) (*Catalog, error) {
	c := &Catalog{}
	files := []string{"data/regions.yaml", "data/factions.yaml", "data/characters.yaml", "data/timeline.yaml"}
	for _, name := range files {
		data, err := fsys.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		var part Catalog
		if err := yaml.Unmarshal(data, &part); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		c.merge(&part)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) merge(part *Catalog) {
	c.Regions = append(c.Regions, part.Regions...)
	c.Factions = append(c.Factions, part.Factions...)
	c.Characters = append(c.Characters, part.Characters...)
	c.Timeline = append(c.Timeline, part.Timeline...)
	if len(part.TravelMonths) > 0 {
		if c.TravelMonths == nil {
			c.TravelMonths = make(map[string]int, len(part.TravelMonths))
		}
		for k, v := range part.TravelMonths {
			c.TravelMonths[k] = v
		}
	}
}

func (c *Catalog) index() error {
	c.regionIndex = make(map[string]int, len(c.Regions))
	for i, r := range c.Regions {
		if _, dup := c.regionIndex[r.ID]; dup {
			return fmt.Errorf("duplicate region id: %s", r.ID)
		}
		c.regionIndex[r.ID] = i
	}
	c.characterIndex = make(map[int]int, len(c.Characters))
	for i, ch := range c.Characters {
		if _, dup := c.characterIndex[ch.ID]; dup {
			return fmt.Errorf("duplicate character id: %d", ch.ID)
		}
		c.characterIndex[ch.ID] = i
	}
	sort.SliceStable(c.Timeline, func(i, j int) bool {
		a, b := c.Timeline[i], c.Timeline[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return nil
}

// Region looks up a region by id.
func (c *Catalog) Region(id string) (Region, bool) {
	i, ok := c.regionIndex[id]
	if !ok {
		return Region{}, false
	}
	return c.Regions[i], true
}

// Character looks up a character template by id.
func (c *Catalog) Character(id int) (Character, bool) {
	i, ok := c.characterIndex[id]
	if !ok {
		return Character{}, false
	}
	return c.Characters[i], true
}

// Faction looks up a faction by id.
func (c *Catalog) Faction(id string) (Faction, bool) {
	for _, f := range c.Factions {
		if f.ID == id {
			return f, true
		}
	}
	return Faction{}, false
}

// Travel returns the travel time in months between two region types.
// Unknown pairs cost one month; identical types cost none unless listed.
func (c *Catalog) Travel(from, to RegionType) int {
	if m, ok := c.TravelMonths[string(from)+">"+string(to)]; ok {
		return m
	}
	if m, ok := c.TravelMonths[string(to)+">"+string(from)]; ok {
		return m
	}
	if from == to {
		return 0
	}
	return 1
}

// EventsBetween returns timeline events strictly after (fromYear, fromMonth)
// and at or before (toYear, toMonth), in chronological order.
func (c *Catalog) EventsBetween(fromYear, fromMonth, toYear, toMonth int) []TimelineEvent {
	from := fromYear*12 + fromMonth
	to := toYear*12 + toMonth
	var out []TimelineEvent
	for _, e := range c.Timeline {
		k := e.Year*12 + e.Month
		if k > from && k <= to {
			out = append(out, e)
		}
	}
	return out
}
