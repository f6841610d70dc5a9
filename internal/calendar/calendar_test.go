package calendar

import "testing"

func TestFromDays(t *testing.T) {
	tests := []struct {
		days int
		want Date
	}{
		{0, Date{Year: 184, Month: 1, Day: 1}},
		{14, Date{Year: 184, Month: 1, Day: 15}},
		{30, Date{Year: 184, Month: 2, Day: 1}},
		{329, Date{Year: 184, Month: 11, Day: 30}},
		{330, Date{Year: 184, Month: 12, Day: 1}},
		{364, Date{Year: 184, Month: 12, Day: 35}},
		{365, Date{Year: 185, Month: 1, Day: 1}},
		{3650, Date{Year: 194, Month: 1, Day: 1}},
		{-20, Date{Year: 184, Month: 1, Day: 1}},
	}
	for _, tt := range tests {
		if got := FromDays(tt.days); got != tt.want {
			t.Errorf("FromDays(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestToDaysRoundTrip(t *testing.T) {
	for days := 0; days < 3*DaysPerYear; days++ {
		if got := ToDays(FromDays(days)); got != days {
			t.Fatalf("ToDays(FromDays(%d)) = %d", days, got)
		}
	}
}

func TestFromDaysMonotonic(t *testing.T) {
	prev := FromDays(0)
	for days := 1; days < 5*DaysPerYear; days++ {
		cur := FromDays(days)
		if cur.Before(prev) {
			t.Fatalf("date went backwards at day %d: %v -> %v", days, prev, cur)
		}
		prev = cur
	}
}

func TestMonthsBetween(t *testing.T) {
	a := Date{Year: 184, Month: 1, Day: 1}
	if got := MonthsBetween(a, Date{Year: 194, Month: 1, Day: 1}); got != 120 {
		t.Fatalf("expected 120 months, got %d", got)
	}
	if got := MonthsBetween(a, Date{Year: 184, Month: 1, Day: 15}); got != 0 {
		t.Fatalf("expected 0 months within the same month, got %d", got)
	}
	if got := MonthsBetween(Date{Year: 190, Month: 1}, a); got != 0 {
		t.Fatalf("expected 0 for reversed range, got %d", got)
	}
}

func TestFormatEraYear(t *testing.T) {
	tests := []struct {
		year, month int
		want        string
	}{
		{184, 0, "中平元年"},
		{184, 1, "中平元年正月"},
		{196, 0, "建安元年"},
		{200, 10, "建安五年十月"},
		{208, 12, "建安十三年十二月"},
		{219, 0, "建安二十四年"},
		{150, 0, "熹平元年"},
	}
	for _, tt := range tests {
		if got := FormatEraYear(tt.year, tt.month); got != tt.want {
			t.Errorf("FormatEraYear(%d, %d) = %q, want %q", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestParseEraYear(t *testing.T) {
	tests := []struct {
		text string
		want int
		ok   bool
	}{
		{"建安五年", 200, true},
		{"建安元年春", 196, true},
		{"中平十年", 193, true},
		{"洛阳", 0, false},
		{"建安年", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseEraYear(tt.text)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseEraYear(%q) = %d, %v; want %d, %v", tt.text, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNumerals(t *testing.T) {
	for n := 0; n <= 999; n++ {
		got, ok := ParseNumeral(Numeral(n))
		if !ok || got != n {
			t.Fatalf("ParseNumeral(Numeral(%d)=%q) = %d, %v", n, Numeral(n), got, ok)
		}
	}
	if got, ok := ParseNumeral("两"); !ok || got != 2 {
		t.Fatalf("expected 两 = 2, got %d %v", got, ok)
	}
	if _, ok := ParseNumeral("十年"); ok {
		t.Fatalf("expected non-numeral to fail")
	}
}

func TestSeasonOf(t *testing.T) {
	if SeasonOf(1) != Spring || SeasonOf(6) != Summer || SeasonOf(9) != Autumn || SeasonOf(12) != Winter {
		t.Fatalf("unexpected season mapping")
	}
}
