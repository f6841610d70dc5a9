// Package effects folds the effect tokens returned by the narrative backend
// back into durable save state and records the chronicle.
package effects

import (
	"regexp"
	"strconv"
	"strings"

	"Luanshi/server/internal/models"
)

// Kind tags an Effect variant.
type Kind int

const (
	KindNoop Kind = iota
	KindNumeric
	KindFavor
	KindRelation
	KindMemory
	KindHostileFaction
	KindCrucialMemory
	KindGoal
	KindDebuff
	KindCure
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindFavor:
		return "favor"
	case KindRelation:
		return "relation"
	case KindMemory:
		return "memory"
	case KindHostileFaction:
		return "hostile_faction"
	case KindCrucialMemory:
		return "crucial_memory"
	case KindGoal:
		return "goal"
	case KindDebuff:
		return "debuff"
	case KindCure:
		return "cure"
	default:
		return "noop"
	}
}

// Effect is one parsed token. Which fields are meaningful depends on Kind.
type Effect struct {
	Kind        Kind
	Raw         string
	Stat        models.Stat
	Delta       int
	CharacterID int
	Relation    models.RelationType
	Text        string
}

var (
	favorToken    = regexp.MustCompile(`^npc_(\d+)_favor([+-]\d+)$`)
	relationToken = regexp.MustCompile(`^npc_(\d+)_relation=(acquaintance|sworn_brother|spouse)$`)
	memoryToken   = regexp.MustCompile(`^npc_(\d+)_memory=(.+)$`)
	hostileToken  = regexp.MustCompile(`^hostile_faction=(.+)$`)
	crucialToken  = regexp.MustCompile(`^crucial_memory=(.+)$`)
	goalToken     = regexp.MustCompile(`^goal=(.+)$`)
	debuffToken   = regexp.MustCompile(`^(debuff|cure)=(poisoned)$`)
	numericToken  = regexp.MustCompile(`^([a-zA-Z_]+)([+-]\d+)$`)
)

// Parse maps a token to an Effect. It is total: anything it does not
// recognise, including numbers that overflow, becomes KindNoop.
func Parse(token string) Effect {
	raw := token
	token = strings.TrimSpace(token)
	noop := Effect{Kind: KindNoop, Raw: raw}

	if m := favorToken.FindStringSubmatch(token); m != nil {
		id, err1 := strconv.Atoi(m[1])
		delta, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil {
			return noop
		}
		return Effect{Kind: KindFavor, Raw: raw, CharacterID: id, Delta: delta}
	}
	if m := relationToken.FindStringSubmatch(token); m != nil {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return noop
		}
		return Effect{Kind: KindRelation, Raw: raw, CharacterID: id, Relation: models.RelationType(m[2])}
	}
	if m := memoryToken.FindStringSubmatch(token); m != nil {
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return noop
		}
		return Effect{Kind: KindMemory, Raw: raw, CharacterID: id, Text: strings.TrimSpace(m[2])}
	}
	if m := hostileToken.FindStringSubmatch(token); m != nil {
		return Effect{Kind: KindHostileFaction, Raw: raw, Text: strings.TrimSpace(m[1])}
	}
	if m := crucialToken.FindStringSubmatch(token); m != nil {
		return Effect{Kind: KindCrucialMemory, Raw: raw, Text: strings.TrimSpace(m[1])}
	}
	if m := goalToken.FindStringSubmatch(token); m != nil {
		return Effect{Kind: KindGoal, Raw: raw, Text: strings.TrimSpace(m[1])}
	}
	if m := debuffToken.FindStringSubmatch(token); m != nil {
		kind := KindDebuff
		if m[1] == "cure" {
			kind = KindCure
		}
		return Effect{Kind: kind, Raw: raw, Text: m[2]}
	}
	if m := numericToken.FindStringSubmatch(token); m != nil {
		stat, ok := models.ParseStat(strings.ToLower(m[1]))
		if !ok {
			return noop
		}
		delta, err := strconv.Atoi(m[2])
		if err != nil {
			return noop
		}
		return Effect{Kind: KindNumeric, Raw: raw, Stat: stat, Delta: delta}
	}
	return noop
}

// ParseAll parses every token, keeping order.
func ParseAll(tokens []string) []Effect {
	out := make([]Effect, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, Parse(t))
	}
	return out
}
