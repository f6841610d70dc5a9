package models

// RelationType is the closed set of relation tags between the player and a
// character.
type RelationType string

const (
	RelationNone         RelationType = "none"
	RelationAcquaintance RelationType = "acquaintance"
	RelationSwornBrother RelationType = "sworn_brother"
	RelationSpouse       RelationType = "spouse"
	RelationLordVassal   RelationType = "lord_vassal"
	RelationAdmiration   RelationType = "admiration"
)

// Valid reports whether r is one of the known relation tags.
func (r RelationType) Valid() bool {
	switch r {
	case RelationNone, RelationAcquaintance, RelationSwornBrother,
		RelationSpouse, RelationLordVassal, RelationAdmiration:
		return true
	}
	return false
}

// Label returns the Chinese name of the relation.
func (r RelationType) Label() string {
	switch r {
	case RelationAcquaintance:
		return "相识"
	case RelationSwornBrother:
		return "结义兄弟"
	case RelationSpouse:
		return "夫妻"
	case RelationLordVassal:
		return "君臣"
	case RelationAdmiration:
		return "仰慕"
	default:
		return "素不相识"
	}
}

// BondVersion is the current shape of Bond.
const BondVersion = 2

// Bond is the relationship of a character with the player.
//
// Version 1 bonds stored memories under "memory" and had no relation type or
// interaction stamp; they are upgraded by bond.Migrate at load time.
type Bond struct {
	Version    int          `json:"version"`
	Affinity   int          `json:"affinity"`
	Relation   RelationType `json:"relation"`
	Memories   []string     `json:"memories"`
	LastYear   int          `json:"last_year"`
	LastMonth  int          `json:"last_month"`
	DecayYear  int          `json:"decay_year"`
	DecayMonth int          `json:"decay_month"`

	LegacyMemories []string `json:"memory,omitempty"`
}

// Clone returns a deep copy.
func (b *Bond) Clone() *Bond {
	if b == nil {
		return nil
	}
	out := *b
	out.Memories = cloneStrings(b.Memories)
	out.LegacyMemories = cloneStrings(b.LegacyMemories)
	return &out
}

// Character is a historical figure as tracked by a save. Records are never
// deleted; death only flips IsAlive.
type Character struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Aliases            []string `json:"aliases,omitempty"`
	BirthYear          int      `json:"birth_year"`
	DeathYear          int      `json:"death_year"`
	IsAlive            bool     `json:"is_alive"`
	CurrentAge         int      `json:"current_age"`
	Faction            string   `json:"faction"`
	Personality        string   `json:"personality"`
	SpeechStyle        string   `json:"speech_style"`
	DefeatThreshold    int      `json:"defeat_threshold"`
	EncounterThreshold int      `json:"encounter_threshold"`
	Loyalty            int      `json:"loyalty"`
	Bond               *Bond    `json:"bond,omitempty"`
}

// Names returns the name followed by all aliases.
func (c *Character) Names() []string {
	return append([]string{c.Name}, c.Aliases...)
}

// Clone returns a deep copy.
func (c *Character) Clone() *Character {
	if c == nil {
		return nil
	}
	out := *c
	out.Aliases = cloneStrings(c.Aliases)
	out.Bond = c.Bond.Clone()
	return &out
}

// CloneCharacters deep-copies a character list.
func CloneCharacters(in []*Character) []*Character {
	if in == nil {
		return nil
	}
	out := make([]*Character, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}

// FindCharacter returns the character with id, or nil.
func FindCharacter(chars []*Character, id int) *Character {
	for _, c := range chars {
		if c != nil && c.ID == id {
			return c
		}
	}
	return nil
}
