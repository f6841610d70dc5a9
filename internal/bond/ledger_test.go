package bond

import (
	"fmt"
	"reflect"
	"testing"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/models"
)

var t184 = calendar.Date{Year: 184, Month: 1, Day: 1}

func TestEnsureCreatesZeroBond(t *testing.T) {
	l := NewLedger(Config{})
	c := &models.Character{ID: 1001}

	b := l.Ensure(c, t184)
	if b.Affinity != 0 || b.Relation != models.RelationNone || b.Version != models.BondVersion {
		t.Fatalf("bond = %+v", b)
	}
	if b.LastYear != 184 || b.LastMonth != 1 {
		t.Fatalf("stamp = %d/%d", b.LastYear, b.LastMonth)
	}
	b.Affinity = 33
	if again := l.Ensure(c, calendar.Date{Year: 190, Month: 5, Day: 1}); again != b || again.Affinity != 33 || again.LastYear != 184 {
		t.Fatalf("Ensure not idempotent: %+v", again)
	}
}

func TestMigrateLegacyBondIsLossless(t *testing.T) {
	legacy := []string{"桃园初见", "共饮", "虎牢关并肩"}
	b := &models.Bond{Affinity: 50, LegacyMemories: append([]string(nil), legacy...)}
	now := calendar.Date{Year: 190, Month: 3, Day: 1}

	Migrate(b, now)
	if !reflect.DeepEqual(b.Memories, legacy) {
		t.Fatalf("memories = %v, want %v", b.Memories, legacy)
	}
	if b.LegacyMemories != nil {
		t.Fatalf("legacy field not cleared: %v", b.LegacyMemories)
	}
	if b.Relation != models.RelationNone {
		t.Fatalf("relation = %q", b.Relation)
	}
	if b.LastYear != 190 || b.LastMonth != 3 || b.Version != models.BondVersion {
		t.Fatalf("bond = %+v", b)
	}
	if b.Affinity != 50 {
		t.Fatalf("affinity changed: %d", b.Affinity)
	}

	snapshot := *b
	snapshot.Memories = append([]string(nil), b.Memories...)
	Migrate(b, calendar.Date{Year: 200, Month: 1, Day: 1})
	if !reflect.DeepEqual(*b, snapshot) {
		t.Fatalf("second migration changed bond: %+v", b)
	}
}

func TestMigrateMergesBothShapes(t *testing.T) {
	b := &models.Bond{
		Version:        1,
		Memories:       []string{"new"},
		LegacyMemories: []string{"old1", "old2"},
		Relation:       models.RelationAcquaintance,
		LastYear:       188,
		LastMonth:      6,
	}
	Migrate(b, calendar.Date{Year: 190, Month: 1, Day: 1})
	if want := []string{"old1", "old2", "new"}; !reflect.DeepEqual(b.Memories, want) {
		t.Fatalf("memories = %v, want %v", b.Memories, want)
	}
	if b.Relation != models.RelationAcquaintance || b.LastYear != 188 {
		t.Fatalf("existing fields overwritten: %+v", b)
	}
}

func TestMigrateSave(t *testing.T) {
	s := &models.Save{
		Version: 1,
		World:   &models.WorldSnapshot{TotalDays: 365},
		Characters: []*models.Character{
			{ID: 1, Bond: &models.Bond{LegacyMemories: []string{"a"}}},
			{ID: 2},
		},
	}
	MigrateSave(s)
	if s.Version != models.SaveVersion {
		t.Fatalf("save version = %d", s.Version)
	}
	b := s.Characters[0].Bond
	if b.Version != models.BondVersion || b.LastYear != 185 || len(b.Memories) != 1 {
		t.Fatalf("bond = %+v", b)
	}
	if s.Characters[1].Bond != nil {
		t.Fatal("bond created for untouched character")
	}
}

func TestUpdateAffinityClamps(t *testing.T) {
	l := NewLedger(Config{})
	c := &models.Character{ID: 1}
	deltas := []int{50, 70, -300, 1 << 62, -(1 << 62), 5}
	for _, d := range deltas {
		l.UpdateAffinity(c, d, t184, "")
		if a := c.Bond.Affinity; a < 0 || a > 100 {
			t.Fatalf("affinity %d out of range after %d", a, d)
		}
	}
	if c.Bond.Affinity != 5 {
		t.Fatalf("affinity = %d, want 5", c.Bond.Affinity)
	}
}

func TestMemoryCap(t *testing.T) {
	l := NewLedger(Config{})
	c := &models.Character{ID: 2010}
	for i := 0; i < 35; i++ {
		l.AppendMemory(c, fmt.Sprintf("m%02d", i), t184)
	}
	mem := c.Bond.Memories
	if len(mem) != 30 {
		t.Fatalf("len = %d, want 30", len(mem))
	}
	for i, m := range mem {
		if want := fmt.Sprintf("m%02d", i+5); m != want {
			t.Fatalf("mem[%d] = %q, want %q", i, m, want)
		}
	}
}

func TestAgeGates(t *testing.T) {
	l := NewLedger(Config{})
	for player := 0; player <= 30; player++ {
		for npc := 0; npc <= 30; npc++ {
			want := player >= 16 && npc >= 16
			if got := l.CanBecomeSwornBrother(player, npc); got != want {
				t.Fatalf("sworn(%d,%d) = %v", player, npc, got)
			}
			if got := l.CanMarry(player, npc); got != want {
				t.Fatalf("marry(%d,%d) = %v", player, npc, got)
			}
		}
	}
}

func TestApplyDecay(t *testing.T) {
	l := NewLedger(Config{})
	c := &models.Character{ID: 1}
	l.UpdateAffinity(c, 50, t184, "")

	l.ApplyDecay([]*models.Character{c}, calendar.Date{Year: 184, Month: 6, Day: 1})
	if c.Bond.Affinity != 40 {
		t.Fatalf("affinity = %d, want 40 after 5 months", c.Bond.Affinity)
	}
	// Same month again charges nothing.
	l.ApplyDecay([]*models.Character{c}, calendar.Date{Year: 184, Month: 6, Day: 20})
	if c.Bond.Affinity != 40 {
		t.Fatalf("affinity = %d, decay double counted", c.Bond.Affinity)
	}
	l.ApplyDecay([]*models.Character{c}, calendar.Date{Year: 184, Month: 8, Day: 1})
	if c.Bond.Affinity != 36 {
		t.Fatalf("affinity = %d, want 36", c.Bond.Affinity)
	}
	// Interaction resets the clock.
	l.UpdateAffinity(c, 0, calendar.Date{Year: 185, Month: 1, Day: 1}, "")
	l.ApplyDecay([]*models.Character{c}, calendar.Date{Year: 185, Month: 1, Day: 30})
	if c.Bond.Affinity != 36 {
		t.Fatalf("affinity = %d after fresh interaction", c.Bond.Affinity)
	}
}

func TestDecayBounded(t *testing.T) {
	for affinity := 0; affinity <= 100; affinity += 7 {
		for months := 0; months <= 120; months += 3 {
			got := DecayAmount(months, 2, affinity)
			if got < 0 || got > affinity || got > months*2 {
				t.Fatalf("DecayAmount(%d, 2, %d) = %d", months, affinity, got)
			}
			if affinity-got < 0 {
				t.Fatalf("affinity below zero")
			}
		}
	}
	if got := DecayAmount(1<<40, 2, 80); got != 80 {
		t.Fatalf("huge month count = %d, want 80", got)
	}
}

func TestSetRelation(t *testing.T) {
	l := NewLedger(Config{})
	c := &models.Character{ID: 1}
	if !l.SetRelation(c, models.RelationAcquaintance, t184) {
		t.Fatal("expected change")
	}
	if l.SetRelation(c, models.RelationAcquaintance, t184) {
		t.Fatal("repeat reported as change")
	}
	if l.SetRelation(c, models.RelationType("enemy"), t184) {
		t.Fatal("unknown relation accepted")
	}
	if c.Bond.Relation != models.RelationAcquaintance {
		t.Fatalf("relation = %q", c.Bond.Relation)
	}
	if l.AffinityFloor(models.RelationSwornBrother) != 80 || l.AffinityFloor(models.RelationSpouse) != 90 {
		t.Fatal("unexpected floors")
	}
}
