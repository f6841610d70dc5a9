package world

import (
	"reflect"
	"strings"
	"testing"

	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/models"
)

func newTestSimulator(t *testing.T) (*Simulator, *catalog.Catalog) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return NewSimulator(cat, DefaultConfig(), nil), cat
}

func TestAdvanceDeterministic(t *testing.T) {
	sim, cat := newTestSimulator(t)
	snap := NewSnapshot(cat)
	chars := NewCharacters(cat)

	a, aChars, aReports := sim.Advance(snap, chars, 14)
	b, bChars, bReports := sim.Advance(snap, chars, 14)

	if a.TotalDays != 14 || b.TotalDays != 14 {
		t.Fatalf("total days = %d/%d, want 14", a.TotalDays, b.TotalDays)
	}
	if a.Date() != b.Date() {
		t.Fatalf("dates differ: %v vs %v", a.Date(), b.Date())
	}
	if d := a.Date(); d.Year != 184 || d.Month < 1 {
		t.Fatalf("date = %v", d)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("snapshots differ:\n%+v\n%+v", a, b)
	}
	if !reflect.DeepEqual(aChars, bChars) {
		t.Fatal("characters differ")
	}
	if !reflect.DeepEqual(aReports, bReports) {
		t.Fatalf("reports differ: %v vs %v", aReports, bReports)
	}
}

func TestAdvanceDoesNotMutateInput(t *testing.T) {
	sim, cat := newTestSimulator(t)
	snap := NewSnapshot(cat)
	chars := NewCharacters(cat)
	before := snap.Clone()
	beforeChars := models.CloneCharacters(chars)

	for i := 0; i < 5; i++ {
		sim.Advance(snap, chars, 365)
	}
	if !reflect.DeepEqual(snap, before) {
		t.Fatal("snapshot mutated")
	}
	if !reflect.DeepEqual(chars, beforeChars) {
		t.Fatal("characters mutated")
	}
}

func TestAdvanceNegativeDelta(t *testing.T) {
	sim, cat := newTestSimulator(t)
	snap := NewSnapshot(cat)
	snap.TotalDays = 100

	next, _, reports := sim.Advance(snap, nil, -30)
	if next.TotalDays != 100 {
		t.Fatalf("total days = %d, want 100", next.TotalDays)
	}
	if len(reports) != 0 {
		t.Fatalf("zero advance produced reports: %v", reports)
	}
	for _, r := range next.Regions {
		if r.Weather == "" {
			t.Fatalf("region %s has no weather", r.ID)
		}
	}
}

func TestAdvanceMonotonic(t *testing.T) {
	sim, cat := newTestSimulator(t)
	snap := NewSnapshot(cat)
	chars := NewCharacters(cat)
	deltas := []int{0, 1, 29, 30, 0, 400, 7, 3650, -5, 90}

	prev := snap.Date()
	for _, d := range deltas {
		next, nextChars, _ := sim.Advance(snap, chars, d)
		if next.TotalDays < snap.TotalDays {
			t.Fatalf("day counter went backwards: %d -> %d", snap.TotalDays, next.TotalDays)
		}
		date := next.Date()
		if date.Year < prev.Year || (date.Year == prev.Year && date.Month < prev.Month) {
			t.Fatalf("date went backwards: %v -> %v", prev, date)
		}
		snap, chars, prev = next, nextChars, date
	}
}

func TestRefreshCharacters(t *testing.T) {
	chars := []*models.Character{
		{ID: 1, BirthYear: 180, DeathYear: 195},
		{ID: 2, BirthYear: 210, DeathYear: 260},
		{ID: 3, BirthYear: 150},
	}
	RefreshCharacters(chars, 200)

	if chars[0].IsAlive || chars[0].CurrentAge != 20 {
		t.Fatalf("char 1: alive=%v age=%d, want dead at 20", chars[0].IsAlive, chars[0].CurrentAge)
	}
	if !chars[1].IsAlive || chars[1].CurrentAge != 0 {
		t.Fatalf("unborn char: alive=%v age=%d", chars[1].IsAlive, chars[1].CurrentAge)
	}
	if !chars[2].IsAlive || chars[2].CurrentAge != 50 {
		t.Fatalf("char 3: alive=%v age=%d", chars[2].IsAlive, chars[2].CurrentAge)
	}
}

func TestAdvanceKillsCharacters(t *testing.T) {
	sim, cat := newTestSimulator(t)
	snap := NewSnapshot(cat)
	chars := []*models.Character{{ID: 9, Name: "测试", BirthYear: 180, DeathYear: 195}}

	next, nextChars, _ := sim.Advance(snap, chars, 16*365)
	if next.Date().Year != 200 {
		t.Fatalf("year = %d", next.Date().Year)
	}
	if nextChars[0].IsAlive || nextChars[0].CurrentAge != 20 {
		t.Fatalf("alive=%v age=%d", nextChars[0].IsAlive, nextChars[0].CurrentAge)
	}
}

func TestWeatherReproducible(t *testing.T) {
	sim, _ := newTestSimulator(t)
	other := NewSimulator(&catalog.Catalog{}, DefaultConfig(), nil)
	for day := 0; day < 400; day += 13 {
		for idx := 0; idx < 12; idx++ {
			a := sim.WeatherFor(day, idx, catalog.RegionNorth)
			b := other.WeatherFor(day, idx, catalog.RegionNorth)
			if a != b || a == "" {
				t.Fatalf("day %d region %d: %q vs %q", day, idx, a, b)
			}
		}
	}
}

func contestCatalog() *catalog.Catalog {
	return &catalog.Catalog{
		Factions: []catalog.Faction{
			{ID: "wei", Name: "魏军", Ambition: 1, Power: 1, Leader: 1},
		},
	}
}

func contestSnapshot() *models.WorldSnapshot {
	return &models.WorldSnapshot{
		Regions: []models.RegionStatus{
			{ID: "jizhou", Name: "冀州", Type: "north", Owner: "yuan", Governor: 2, Stability: 60},
		},
	}
}

func TestExpansionSurrender(t *testing.T) {
	sim := NewSimulator(contestCatalog(), Config{ExpansionBaseRate: 1, SurrenderLoyalty: 30}, nil)
	chars := []*models.Character{
		{ID: 1, Name: "曹操", BirthYear: 155, DeathYear: 220},
		{ID: 2, Name: "韩馥", BirthYear: 150, DeathYear: 220, Loyalty: 10},
	}

	next, nextChars, reports := sim.Advance(contestSnapshot(), chars, 30)
	if len(reports) != 1 {
		t.Fatalf("reports = %v", reports)
	}
	if !strings.Contains(reports[0], "不战而降") || !strings.Contains(reports[0], "韩馥") {
		t.Fatalf("report = %q, want surrender", reports[0])
	}
	r := next.Region("jizhou")
	if r.Owner != "wei" || r.Governor != 2 {
		t.Fatalf("region = %+v", r)
	}
	if models.FindCharacter(nextChars, 2).Faction != "wei" {
		t.Fatal("governor did not change sides")
	}
}

func TestExpansionConquest(t *testing.T) {
	sim := NewSimulator(contestCatalog(), Config{ExpansionBaseRate: 1, SurrenderLoyalty: 30}, nil)
	chars := []*models.Character{
		{ID: 1, Name: "曹操", BirthYear: 155, DeathYear: 220},
		{ID: 2, Name: "审配", BirthYear: 150, DeathYear: 220, Loyalty: 95},
	}

	next, _, reports := sim.Advance(contestSnapshot(), chars, 30)
	if len(reports) != 1 || !strings.Contains(reports[0], "魏军攻取冀州") {
		t.Fatalf("reports = %v", reports)
	}
	r := next.Region("jizhou")
	if r.Owner != "wei" || r.Governor != 0 || r.Stability != 40 {
		t.Fatalf("region = %+v", r)
	}
}

func TestExpansionSkipsDeadLeader(t *testing.T) {
	sim := NewSimulator(contestCatalog(), Config{ExpansionBaseRate: 1}, nil)
	chars := []*models.Character{{ID: 1, Name: "曹操", BirthYear: 155, DeathYear: 160}}

	next, _, reports := sim.Advance(contestSnapshot(), chars, 30)
	if len(reports) != 0 || next.Region("jizhou").Owner != "yuan" {
		t.Fatalf("dead leader expanded: %v", reports)
	}
}

func TestExpansionHistoricalWeight(t *testing.T) {
	cat := contestCatalog()
	cat.Factions[0].Weights = []catalog.WeightBracket{{From: 184, To: 199, Weight: 0}}
	sim := NewSimulator(cat, Config{ExpansionBaseRate: 1}, nil)
	chars := []*models.Character{{ID: 1, Name: "曹操", BirthYear: 155, DeathYear: 220}}

	_, _, reports := sim.Advance(contestSnapshot(), chars, 30)
	if len(reports) != 0 {
		t.Fatalf("anachronistic expansion: %v", reports)
	}
}

func TestMixSeedSpreads(t *testing.T) {
	seen := map[int64]bool{}
	for day := int64(0); day < 50; day++ {
		for f := int64(0); f < 10; f++ {
			seen[mixSeed(1, day, f, 184)] = true
		}
	}
	if len(seen) != 500 {
		t.Fatalf("seed collisions: %d distinct of 500", len(seen))
	}
}
