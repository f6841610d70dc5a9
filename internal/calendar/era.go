package calendar

import "strings"

// Era is a reign title starting in a given year.
type Era struct {
	Name      string
	StartYear int
}

// Eras is ordered by StartYear.
var Eras = []Era{
	{Name: "熹平", StartYear: 172},
	{Name: "光和", StartYear: 178},
	{Name: "中平", StartYear: 184},
	{Name: "初平", StartYear: 190},
	{Name: "兴平", StartYear: 194},
	{Name: "建安", StartYear: 196},
	{Name: "黄初", StartYear: 220},
	{Name: "太和", StartYear: 227},
	{Name: "青龙", StartYear: 233},
	{Name: "景初", StartYear: 237},
	{Name: "正始", StartYear: 240},
	{Name: "嘉平", StartYear: 249},
	{Name: "正元", StartYear: 254},
	{Name: "甘露", StartYear: 256},
	{Name: "景元", StartYear: 260},
	{Name: "咸熙", StartYear: 264},
	{Name: "泰始", StartYear: 265},
	{Name: "咸宁", StartYear: 275},
	{Name: "太康", StartYear: 280},
}

// EraOf returns the era covering year and the 1-based ordinal year within it.
// Years before the first era are reported as year 1 of the first era.
func EraOf(year int) (Era, int) {
	era := Eras[0]
	for _, e := range Eras {
		if e.StartYear > year {
			break
		}
		era = e
	}
	ordinal := year - era.StartYear + 1
	if ordinal < 1 {
		ordinal = 1
	}
	return era, ordinal
}

// FormatEraYear renders "建安元年" style text. A month in 1-12 is appended as
// "三月"; month 0 omits it.
func FormatEraYear(year, month int) string {
	era, ordinal := EraOf(year)

	var b strings.Builder
	b.WriteString(era.Name)
	if ordinal == 1 {
		b.WriteString("元")
	} else {
		b.WriteString(Numeral(ordinal))
	}
	b.WriteString("年")
	if month >= 1 && month <= MonthsPerYear {
		b.WriteString(MonthName(month))
	}
	return b.String()
}

// FormatDate renders the era year and month of d.
func FormatDate(d Date) string {
	return FormatEraYear(d.Year, d.Month)
}

// MonthName returns the traditional month name, "正月" for the first month.
func MonthName(month int) string {
	if month == 1 {
		return "正月"
	}
	return Numeral(month) + "月"
}

// ParseEraYear resolves "建安五年" style prefixes to an absolute year. It reports
// false when the text does not start with a known era name followed by an
// ordinal year.
func ParseEraYear(text string) (int, bool) {
	for _, e := range Eras {
		if !strings.HasPrefix(text, e.Name) {
			continue
		}
		rest := strings.TrimPrefix(text, e.Name)
		idx := strings.Index(rest, "年")
		if idx <= 0 {
			return 0, false
		}
		num := rest[:idx]
		if num == "元" {
			return e.StartYear, true
		}
		n, ok := ParseNumeral(num)
		if !ok || n < 1 {
			return 0, false
		}
		return e.StartYear + n - 1, true
	}
	return 0, false
}
