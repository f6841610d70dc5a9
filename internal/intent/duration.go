package intent

import (
	"regexp"
	"strings"

	"Luanshi/server/internal/calendar"
)

// DurationSource names the rule that fixed a turn's time cost.
type DurationSource string

const (
	DurationZeroVerb DurationSource = "zero_verb"
	DurationExplicit DurationSource = "explicit"
	DurationLongVerb DurationSource = "long_verb"
	DurationTravel   DurationSource = "travel"
	DurationDefault  DurationSource = "default"
)

var (
	explicitDuration = regexp.MustCompile(`(\d+|[零一二两三四五六七八九十百]+)\s*(年|个月|月|旬|天|日)`)
	vagueDuration    = regexp.MustCompile(`(半年|数年|几年|数月|几个月|数日|几天)`)
	gregorianYear    = regexp.MustCompile(`公元\s*(\d+)\s*年`)
	eraDate          = buildEraDate()
)

func buildEraDate() *regexp.Regexp {
	names := make([]string, 0, len(calendar.Eras))
	for _, e := range calendar.Eras {
		names = append(names, regexp.QuoteMeta(e.Name))
	}
	return regexp.MustCompile(`(?:` + strings.Join(names, "|") + `)(?:元|[零一二两三四五六七八九十百]+|\d+)年(?:正月|[一二三四五六七八九十]+月|\d+月)?`)
}

var vagueDays = map[string]int{
	"半年":  MonthsToDays(6),
	"数年":  3 * calendar.DaysPerYear,
	"几年":  3 * calendar.DaysPerYear,
	"数月":  MonthsToDays(3),
	"几个月": MonthsToDays(3),
	"数日":  3,
	"几天":  3,
}

// stripDates removes calendar dates so "建安五年三月" is not read as a duration.
func stripDates(text string) string {
	text = gregorianYear.ReplaceAllString(text, " ")
	return eraDate.ReplaceAllString(text, " ")
}

// ParseExplicitDuration sums every explicit duration in text, in days.
func ParseExplicitDuration(text string) (int, bool) {
	text = stripDates(text)
	total, found := 0, false
	for _, m := range explicitDuration.FindAllStringSubmatch(text, -1) {
		n, ok := calendar.ParseNumeral(m[1])
		if !ok {
			continue
		}
		switch m[2] {
		case "年":
			total += n * calendar.DaysPerYear
		case "个月", "月":
			total += MonthsToDays(n)
		case "旬":
			total += n * 10
		default:
			total += n
		}
		found = true
	}
	for _, m := range vagueDuration.FindAllString(text, -1) {
		total += vagueDays[m]
		found = true
	}
	return total, found
}

// MonthsToDays converts a month count to days, whole years counting 365.
func MonthsToDays(months int) int {
	if months <= 0 {
		return 0
	}
	return months/calendar.MonthsPerYear*calendar.DaysPerYear + months%calendar.MonthsPerYear*calendar.DaysPerMonth
}

// ElapsedMonths converts a day delta to whole months, whole years counting 12.
func ElapsedMonths(days int) int {
	if days <= 0 {
		return 0
	}
	return days/calendar.DaysPerYear*calendar.MonthsPerYear + days%calendar.DaysPerYear/calendar.DaysPerMonth
}

type durationRule struct {
	source DurationSource
	apply  func(c *Classifier, f *features) (int, bool)
}

// durationRules are evaluated in order, first match wins.
var durationRules = []durationRule{
	{DurationZeroVerb, func(_ *Classifier, f *features) (int, bool) {
		return 0, containsAny(f.text, zeroDurationVerbs)
	}},
	{DurationExplicit, func(_ *Classifier, f *features) (int, bool) {
		return ParseExplicitDuration(f.text)
	}},
	{DurationLongVerb, func(c *Classifier, f *features) (int, bool) {
		if !containsAny(f.text, longDurationVerbs) {
			return 0, false
		}
		return MonthsToDays(c.cfg.LongVerbMonths), true
	}},
	{DurationTravel, func(_ *Classifier, f *features) (int, bool) {
		if f.destination == nil {
			return 0, false
		}
		return MonthsToDays(f.travelMonths), true
	}},
	{DurationDefault, func(c *Classifier, f *features) (int, bool) {
		if f.mode == ModeDialogue {
			return 0, true
		}
		return c.cfg.DefaultActionDays, true
	}},
}

func (c *Classifier) duration(f *features) (int, DurationSource) {
	for _, r := range durationRules {
		days, ok := r.apply(c, f)
		if !ok {
			continue
		}
		if days > c.cfg.MaxDays {
			days = c.cfg.MaxDays
		}
		if days < 0 {
			days = 0
		}
		return days, r.source
	}
	return 0, DurationDefault
}
