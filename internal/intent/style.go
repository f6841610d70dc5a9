package intent

import (
	"fmt"
	"strings"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/catalog"
)

// Tier is the narrative feedback tier.
type Tier int

const (
	TierShort  Tier = 1
	TierMedium Tier = 2
	TierLong   Tier = 3
)

// TierFor maps elapsed months to a tier.
func TierFor(months int) Tier {
	switch {
	case months <= 1:
		return TierShort
	case months < 12:
		return TierMedium
	default:
		return TierLong
	}
}

// Style tells the backend how long and how structured the narration is.
type Style struct {
	WordBudget int      `json:"word_budget"`
	Directives []string `json:"directives"`
}

var tierBudgets = map[Tier]int{
	TierShort:  300,
	TierMedium: 600,
	TierLong:   1200,
}

func buildStyle(tier Tier, from, to calendar.Date, goal string) Style {
	s := Style{WordBudget: tierBudgets[tier]}
	switch tier {
	case TierShort:
		s.Directives = append(s.Directives, "简洁叙事，聚焦眼前一幕。")
	case TierMedium:
		s.Directives = append(s.Directives,
			fmt.Sprintf("须点出时令变化：自%s入%s，以景物写光阴流转。", from.Season(), to.Season()))
	case TierLong:
		s.Directives = append(s.Directives,
			"采用三段式：其一写主角这些年的个人际遇；其二借市井传闻、茶客闲谈或过客之口侧写天下大势，不可用全知旁白直述；其三回到当下，落在眼前一幕。")
		if goal != "" {
			s.Directives = append(s.Directives, fmt.Sprintf("结尾须呼应主角的夙愿：%s。", goal))
		}
	}
	return s
}

// historicalSummary renders timeline events that fell in the elapsed range.
func historicalSummary(events []catalog.TimelineEvent) string {
	if len(events) == 0 {
		return ""
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("%s，%s：%s", calendar.FormatEraYear(e.Year, e.Month), e.Label, e.Summary))
	}
	return strings.Join(lines, "\n")
}

// rumorHints turns timeline hooks and war reports into hearsay lines.
func rumorHints(events []catalog.TimelineEvent, reports []string) []string {
	var out []string
	for _, e := range events {
		for _, h := range e.Hooks {
			out = append(out, "坊间传言："+h)
		}
	}
	for _, r := range reports {
		r = strings.TrimPrefix(r, "【战报】")
		out = append(out, "过往商旅说起："+r)
	}
	return out
}
