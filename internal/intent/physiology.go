package intent

import (
	"strings"

	"Luanshi/server/internal/models"
)

// Failure causes.
const (
	CauseHealth = "health"
	CauseHunger = "hunger"
	CauseBoth   = "both"
)

// Physiology is the bodily state behind a turn's odds.
type Physiology struct {
	Health int     `json:"health"`
	Hunger int     `json:"hunger"`
	Factor float64 `json:"factor"`
	Failed bool    `json:"failed"`
	Cause  string  `json:"cause,omitempty"`
}

// assess computes the physiological success factor and, for high-energy
// intents, forced failure.
func (c *Classifier) assess(p *models.PlayerState, cat Category) Physiology {
	health := clampPercent(p.Health)
	hunger := clampPercent(p.Hunger)
	ph := Physiology{
		Health: health,
		Hunger: hunger,
		Factor: float64(health) / 100 * (1 - float64(hunger)/100),
	}
	if !cat.IsHighEnergy() {
		return ph
	}
	weak := health < c.cfg.HealthFloor
	starved := hunger > c.cfg.HungerCeiling
	switch {
	case weak && starved:
		ph.Cause = CauseBoth
	case weak:
		ph.Cause = CauseHealth
	case starved:
		ph.Cause = CauseHunger
	}
	ph.Failed = ph.Cause != ""
	return ph
}

func physiologyOverride(ph Physiology) Override {
	var why string
	switch ph.Cause {
	case CauseHealth:
		why = "主角伤病缠身、气血两亏"
	case CauseHunger:
		why = "主角饥肠辘辘、手足无力"
	default:
		why = "主角既伤病缠身，又饥饿难耐"
	}
	return Override{
		Reason:      ReasonPhysiologicalFailure,
		Instruction: why + "，此番必然力不从心而失败。失败须归因于此，不可另找缘由。",
	}
}

// Debuff describes impairments that weigh on the turn.
type Debuff struct {
	Active    []models.Debuff `json:"active"`
	Penalized bool            `json:"penalized"`
	Directive string          `json:"directive,omitempty"`
}

func assessDebuffs(p *models.PlayerState, cat Category) Debuff {
	d := Debuff{Active: append([]models.Debuff(nil), p.Debuffs...)}
	if len(d.Active) == 0 || !(cat.IsCombat() || cat.IsMovement()) {
		return d
	}
	labels := make([]string, 0, len(d.Active))
	for _, x := range d.Active {
		labels = append(labels, x.Label())
	}
	d.Penalized = true
	d.Directive = "叙述的第一句必须写出主角" + strings.Join(labels, "、") + "之状对此番行动的拖累。"
	return d
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
