package intent

import (
	"fmt"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/models"
)

// Override reasons.
const (
	ReasonTargetDeceased       = "target_deceased"
	ReasonTargetUnborn         = "target_unborn"
	ReasonImpossibleBattle     = "impossible_battle"
	ReasonInsufficientFood     = "insufficient_food"
	ReasonNoArmy               = "no_army"
	ReasonRefusedAudience      = "refused_audience"
	ReasonInsufficientGold     = "insufficient_gold"
	ReasonPhysiologicalFailure = "physiological_failure"
)

// Override is an outcome the narrative backend must not contradict.
type Override struct {
	Reason      string `json:"reason"`
	Instruction string `json:"instruction"`
}

type ruleContext struct {
	f      *features
	player *models.PlayerState
	year   int
}

type overrideRule struct {
	reason string
	check  func(ctx *ruleContext) (string, bool)
}

// overrideRules are in priority order. The first match is surfaced; every
// other match is kept as a suppressed diagnostic.
var overrideRules = []overrideRule{
	{ReasonTargetDeceased, func(ctx *ruleContext) (string, bool) {
		for _, t := range ctx.f.targets {
			if !t.IsAlive {
				return fmt.Sprintf("%s已于%s辞世，主角无法与其相见或交手。须如实描写人已不在，可写其遗迹、故人追忆。",
					t.Name, calendar.FormatEraYear(t.DeathYear, 0)), true
			}
		}
		return "", false
	}},
	{ReasonTargetUnborn, func(ctx *ruleContext) (string, bool) {
		for _, t := range ctx.f.targets {
			if t.BirthYear > ctx.year {
				return fmt.Sprintf("此时%s尚未出世，世间无此人。须描写主角遍寻不得、无人知晓此名。", t.Name), true
			}
		}
		return "", false
	}},
	{ReasonImpossibleBattle, func(ctx *ruleContext) (string, bool) {
		if !ctx.f.category.IsCombat() {
			return "", false
		}
		strength := ctx.player.Attributes.Strength
		for _, t := range ctx.f.targets {
			if t.IsAlive && t.DefeatThreshold > 0 && strength < t.DefeatThreshold {
				return fmt.Sprintf("主角武力%d，远不及%s（至少需%d）。必须描写主角落败、负伤或被迫退走，绝不可写成获胜或击杀对方。",
					strength, t.Name, t.DefeatThreshold), true
			}
		}
		return "", false
	}},
	{ReasonInsufficientFood, func(ctx *ruleContext) (string, bool) {
		if ctx.f.category != CategoryExpedition || ctx.player.Resources.Food > 0 {
			return "", false
		}
		return "军中已无存粮，远征无以为继。必须描写出师受挫、军心涣散或被迫折返，不得写成顺利成行。", true
	}},
	{ReasonNoArmy, func(ctx *ruleContext) (string, bool) {
		if ctx.f.category != CategoryExpedition || ctx.player.Resources.Soldiers > 0 {
			return "", false
		}
		return "主角麾下并无一兵一卒，无从出征。须描写主角孤身一人、无力成军。", true
	}},
	{ReasonRefusedAudience, func(ctx *ruleContext) (string, bool) {
		if ctx.f.category != CategorySocial {
			return "", false
		}
		for _, t := range ctx.f.targets {
			if t.IsAlive && t.EncounterThreshold > 0 && t.EncounterThreshold < ctx.player.Infamy {
				return fmt.Sprintf("主角恶名在外（恶名%d），%s不愿相见。必须描写被拒之门外或冷遇，不得写成相谈甚欢。",
					ctx.player.Infamy, t.Name), true
			}
		}
		return "", false
	}},
	{ReasonInsufficientGold, func(ctx *ruleContext) (string, bool) {
		if ctx.f.category != CategoryCommerce || ctx.player.Resources.Gold > 0 {
			return "", false
		}
		return "主角囊中空空，身无分文。交易、贿赂或募兵须以失败告终。", true
	}},
}

// evaluateOverrides returns the highest-priority override, if any, and the
// other matching overrides in priority order.
func evaluateOverrides(ctx *ruleContext) (*Override, []Override) {
	var active *Override
	var suppressed []Override
	for _, r := range overrideRules {
		instruction, ok := r.check(ctx)
		if !ok {
			continue
		}
		o := Override{Reason: r.reason, Instruction: instruction}
		if active == nil {
			active = &o
			continue
		}
		suppressed = append(suppressed, o)
	}
	return active, suppressed
}
