package prompts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/models"
)

const (
	none     = "无"
	maxFlags = 10
)

// BuildTurnContext projects an annotated request onto template variables.
// memories are recalled chronicle lines, most relevant first.
func BuildTurnContext(req *intent.AnnotatedRequest, memories []string) map[string]string {
	vars := map[string]string{
		"date":        calendar.FormatDate(req.Date),
		"season":      req.Date.Season().String(),
		"elapsed":     elapsedText(req.DeltaDays),
		"player":      playerText(req.Player, req.Date.Year),
		"location":    locationText(req),
		"regions":     regionsText(req.World),
		"characters":  charactersText(req),
		"memories":    joinOr(memories, "\n"),
		"history":     orNone(req.HistoricalSummary),
		"rumors":      joinOr(req.RumorHints, "\n"),
		"canon":       flagsText(req.World, false),
		"deviations":  flagsText(req.World, true),
		"directives":  numbered(req.Directives()),
		"word_budget": strconv.Itoa(req.Style.WordBudget),
		"intent":      req.Intent,
	}
	return vars
}

func elapsedText(days int) string {
	switch {
	case days <= 0:
		return "片刻"
	case days < calendar.DaysPerMonth:
		return fmt.Sprintf("%d日", days)
	case days < calendar.DaysPerYear:
		return fmt.Sprintf("约%d月", intent.ElapsedMonths(days))
	default:
		return fmt.Sprintf("约%d年", days/calendar.DaysPerYear)
	}
}

func playerText(p *models.PlayerState, year int) string {
	if p == nil {
		return none
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s，年%d。武%d 智%d 魅%d 统%d。", p.Name, p.Age(year),
		p.Attributes.Strength, p.Attributes.Intelligence, p.Attributes.Charisma, p.Attributes.Leadership)
	fmt.Fprintf(&b, "金%s 粮%s 兵%s。声望%d 名望%d 恶名%d 传奇%d。", humanize.Comma(int64(p.Resources.Gold)),
		humanize.Comma(int64(p.Resources.Food)), humanize.Comma(int64(p.Resources.Soldiers)),
		p.Reputation, p.Fame, p.Infamy, p.Legend)
	fmt.Fprintf(&b, "体力%d 健康%d 饥饿%d。", p.Stamina, p.Health, p.Hunger)
	if len(p.Debuffs) > 0 {
		labels := make([]string, 0, len(p.Debuffs))
		for _, d := range p.Debuffs {
			labels = append(labels, d.Label())
		}
		b.WriteString("状态：" + strings.Join(labels, "、") + "。")
	}
	if goal := p.LongTermGoal(); goal != "" {
		b.WriteString("志向：" + goal + "。")
	}
	return b.String()
}

func locationText(req *intent.AnnotatedRequest) string {
	if req.Player == nil || req.World == nil {
		return none
	}
	r := req.World.Region(req.Player.Location.Region)
	if r == nil {
		return orNone(req.Player.Location.Scene)
	}
	return fmt.Sprintf("%s·%s，天气%s", r.Name, req.Player.Location.Scene, r.Weather)
}

func regionsText(w *models.WorldSnapshot) string {
	if w == nil || len(w.Regions) == 0 {
		return none
	}
	lines := make([]string, 0, len(w.Regions))
	for _, r := range w.Regions {
		lines = append(lines, fmt.Sprintf("%s：%s，%s", r.Name, r.Owner, r.Weather))
	}
	return strings.Join(lines, "\n")
}

// charactersText lists named targets first, then anyone the player has a
// bond with.
func charactersText(req *intent.AnnotatedRequest) string {
	seen := map[int]bool{}
	var lines []string
	add := func(c *models.Character) {
		if c == nil || seen[c.ID] {
			return
		}
		seen[c.ID] = true
		status := fmt.Sprintf("年%d", c.CurrentAge)
		if !c.IsAlive {
			status = "已故"
		}
		line := fmt.Sprintf("[%d] %s（%s）%s；%s", c.ID, c.Name, status, c.Personality, c.SpeechStyle)
		if c.Bond != nil {
			line += fmt.Sprintf("；好感%d，%s", c.Bond.Affinity, c.Bond.Relation.Label())
			if n := len(c.Bond.Memories); n > 0 {
				line += "；记得：" + c.Bond.Memories[n-1]
			}
		}
		lines = append(lines, line)
	}
	for _, id := range req.Targets {
		add(models.FindCharacter(req.Characters, id))
	}
	for _, c := range req.Characters {
		if c != nil && c.Bond != nil && c.Bond.Affinity > 0 {
			add(c)
		}
	}
	return joinOr(lines, "\n")
}

// flagsText lists the most recent canon or deviation flags of w.
func flagsText(w *models.WorldSnapshot, deviations bool) string {
	if w == nil {
		return none
	}
	flags := w.CanonFlags
	if deviations {
		flags = w.DeviationFlags
	}
	if len(flags) > maxFlags {
		flags = flags[len(flags)-maxFlags:]
	}
	return joinOr(flags, "、")
}

func numbered(lines []string) string {
	if len(lines) == 0 {
		return none
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%d. %s", i+1, l)
	}
	return strings.Join(out, "\n")
}

func joinOr(lines []string, sep string) string {
	if len(lines) == 0 {
		return none
	}
	return strings.Join(lines, sep)
}

func orNone(s string) string {
	if s == "" {
		return none
	}
	return s
}
