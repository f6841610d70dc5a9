package intent

import (
	"reflect"
	"strings"
	"testing"

	"Luanshi/server/internal/bond"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/models"
	"Luanshi/server/internal/world"
)

type fixture struct {
	c      *Classifier
	snap   *models.WorldSnapshot
	chars  []*models.Character
	player *models.PlayerState
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	sim := world.NewSimulator(cat, world.DefaultConfig(), nil)
	return &fixture{
		c:     NewClassifier(Config{}, cat, sim, bond.NewLedger(bond.Config{}), nil),
		snap:  world.NewSnapshot(cat),
		chars: world.NewCharacters(cat),
		player: &models.PlayerState{
			Name:       "李平",
			BirthYear:  164,
			Attributes: models.Attributes{Strength: 70, Intelligence: 60, Charisma: 60, Leadership: 50},
			Resources:  models.Resources{Gold: 100, Food: 500, Soldiers: 200},
			Health:     100,
			Stamina:    100,
			Location:   models.Location{Region: "youzhou", Scene: "涿县"},
		},
	}
}

func (fx *fixture) classify(text string) *AnnotatedRequest {
	return fx.c.Classify(fx.snap, fx.chars, fx.player, text, ModeAction)
}

func TestImpossibleBattle(t *testing.T) {
	fx := newFixture(t)

	req := fx.classify("击杀吕布")
	if req.Override == nil || req.Override.Reason != ReasonImpossibleBattle {
		t.Fatalf("override = %+v, want impossible_battle", req.Override)
	}
	if !strings.Contains(req.Override.Instruction, "吕布") {
		t.Fatalf("instruction = %q", req.Override.Instruction)
	}

	fx.player.Attributes.Strength = 90
	if req := fx.classify("击杀吕布"); req.Override != nil {
		t.Fatalf("override = %+v, want none", req.Override)
	}
}

func TestInsufficientFood(t *testing.T) {
	fx := newFixture(t)
	fx.player.Resources.Food = 0

	req := fx.classify("长途远征")
	if req.Override == nil || req.Override.Reason != ReasonInsufficientFood {
		t.Fatalf("override = %+v, want insufficient_food", req.Override)
	}
	if req.Category != CategoryExpedition {
		t.Fatalf("category = %s", req.Category)
	}
}

func TestOnlyHighestPriorityOverrideSurfaces(t *testing.T) {
	fx := newFixture(t)
	fx.player.Attributes.Strength = 10
	fx.player.Resources.Food = 0
	fx.player.Resources.Soldiers = 0

	req := fx.classify("长途远征讨伐吕布")
	if req.Override == nil || req.Override.Reason != ReasonImpossibleBattle {
		t.Fatalf("override = %+v", req.Override)
	}
	var reasons []string
	for _, o := range req.Suppressed {
		reasons = append(reasons, o.Reason)
	}
	if want := []string{ReasonInsufficientFood, ReasonNoArmy}; !reflect.DeepEqual(reasons, want) {
		t.Fatalf("suppressed = %v, want %v", reasons, want)
	}
	if got := req.Directives()[0]; got != req.Override.Instruction {
		t.Fatalf("first directive = %q", got)
	}
}

func TestTenYearSeclusion(t *testing.T) {
	fx := newFixture(t)

	req := fx.classify("闭关十年")
	if req.DeltaDays != 3650 || req.DurationSource != DurationExplicit {
		t.Fatalf("delta = %d source = %s", req.DeltaDays, req.DurationSource)
	}
	if req.World.Date().Year != 194 || req.Date.Year != 194 {
		t.Fatalf("year = %d, want 194", req.World.Date().Year)
	}
	if req.Tier != TierLong {
		t.Fatalf("tier = %d, want 3", req.Tier)
	}
	if len(req.TimelineEvents) == 0 || req.HistoricalSummary == "" {
		t.Fatal("expected timeline events in a ten-year span")
	}
	if len(req.RumorHints) == 0 {
		t.Fatal("expected rumor hints")
	}
	if fx.snap.TotalDays != 0 {
		t.Fatal("input snapshot advanced")
	}
}

func TestLongVerbDefaultsToAYear(t *testing.T) {
	fx := newFixture(t)
	req := fx.classify("闭关修炼")
	if req.DeltaDays != 365 || req.ElapsedMonths != 12 || req.Tier != TierLong {
		t.Fatalf("delta=%d months=%d tier=%d", req.DeltaDays, req.ElapsedMonths, req.Tier)
	}
}

func TestTierGoalAnchor(t *testing.T) {
	fx := newFixture(t)
	fx.player.Goals = []string{"匡扶汉室"}
	req := fx.classify("隐居三年")
	found := false
	for _, d := range req.Style.Directives {
		if strings.Contains(d, "匡扶汉室") {
			found = true
		}
	}
	if !found {
		t.Fatalf("goal anchor missing: %v", req.Style.Directives)
	}
}

func TestZeroDurationTakesPrecedence(t *testing.T) {
	fx := newFixture(t)
	for _, text := range []string{"观察三年", "偷听吕布与董卓密谈", "贿赂守门的士卒"} {
		req := fx.classify(text)
		if req.DeltaDays != 0 || req.DurationSource != DurationZeroVerb {
			t.Fatalf("%s: delta=%d source=%s", text, req.DeltaDays, req.DurationSource)
		}
		if req.Tier != TierShort {
			t.Fatalf("%s: tier=%d", text, req.Tier)
		}
	}
}

func TestDefaultDurationByMode(t *testing.T) {
	fx := newFixture(t)
	if req := fx.c.Classify(fx.snap, fx.chars, fx.player, "与店家闲聊几句", ModeDialogue); req.DeltaDays != 0 {
		t.Fatalf("dialogue delta = %d", req.DeltaDays)
	}
	if req := fx.classify("在城中四处走走"); req.DeltaDays != 30 || req.DurationSource != DurationDefault {
		t.Fatalf("action delta = %d source = %s", req.DeltaDays, req.DurationSource)
	}
}

func TestParseExplicitDuration(t *testing.T) {
	tests := []struct {
		text string
		days int
		ok   bool
	}{
		{"苦练三个月", 90, true},
		{"游历两年", 730, true},
		{"休养十天", 10, true},
		{"等候半年", 180, true},
		{"练兵 12 个月", 365, true},
		{"三年零六个月", 3*365 + 180, true},
		{"建安五年三月，我在许昌", 0, false},
		{"公元200年之事", 0, false},
		{"随便走走", 0, false},
	}
	for _, tt := range tests {
		days, ok := ParseExplicitDuration(Normalize(tt.text))
		if days != tt.days || ok != tt.ok {
			t.Errorf("%q: got (%d,%v), want (%d,%v)", tt.text, days, ok, tt.days, tt.ok)
		}
	}
}

func TestNormalizeFullWidth(t *testing.T) {
	if got := Normalize("  苦练　３个月  "); got != "苦练 3个月" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestTravel(t *testing.T) {
	fx := newFixture(t)
	req := fx.classify("从涿县动身前往许昌")
	if req.Destination != "yuzhou" || req.TravelMonths != 2 {
		t.Fatalf("destination=%q months=%d", req.Destination, req.TravelMonths)
	}
	if req.DeltaDays != 60 || req.DurationSource != DurationTravel {
		t.Fatalf("delta=%d source=%s", req.DeltaDays, req.DurationSource)
	}
	if !strings.Contains(req.TravelFlavor, "豫州") && !strings.Contains(req.TravelFlavor, "许") {
		t.Fatalf("travel flavor = %q", req.TravelFlavor)
	}
	if req.Tier != TierMedium {
		t.Fatalf("tier = %d", req.Tier)
	}
}

func TestInstantActionDoesNotTravel(t *testing.T) {
	fx := newFixture(t)
	req := fx.classify("前往益州打探消息")
	if req.DurationSource != DurationZeroVerb || req.DeltaDays != 0 {
		t.Fatalf("delta=%d source=%s", req.DeltaDays, req.DurationSource)
	}
	if req.Destination != "" || req.TravelFlavor != "" {
		t.Fatalf("destination=%q flavor=%q", req.Destination, req.TravelFlavor)
	}
}

func TestRefusedAudience(t *testing.T) {
	fx := newFixture(t)
	fx.player.Infamy = 90
	req := fx.classify("拜见曹操")
	if req.Override == nil || req.Override.Reason != ReasonRefusedAudience {
		t.Fatalf("override = %+v", req.Override)
	}
	fx.player.Infamy = 50
	if req := fx.classify("拜见曹操"); req.Override != nil {
		t.Fatalf("override = %+v, want none", req.Override)
	}
}

func TestTargetDeceased(t *testing.T) {
	fx := newFixture(t)
	fx.snap.TotalDays = 2 * 365
	req := fx.classify("拜见张角")
	if req.Override == nil || req.Override.Reason != ReasonTargetDeceased {
		t.Fatalf("override = %+v", req.Override)
	}
}

func TestPhysiologicalGate(t *testing.T) {
	tests := []struct {
		health, hunger int
		cause          string
	}{
		{10, 0, CauseHealth},
		{100, 90, CauseHunger},
		{10, 90, CauseBoth},
		{50, 50, ""},
	}
	for _, tt := range tests {
		fx := newFixture(t)
		fx.player.Attributes.Strength = 100
		fx.player.Health = tt.health
		fx.player.Hunger = tt.hunger
		req := fx.classify("攻打黄巾贼寨")
		if req.Physiology.Cause != tt.cause || req.Physiology.Failed != (tt.cause != "") {
			t.Fatalf("health=%d hunger=%d: %+v", tt.health, tt.hunger, req.Physiology)
		}
		if tt.cause != "" && (req.Override == nil || req.Override.Reason != ReasonPhysiologicalFailure) {
			t.Fatalf("override = %+v", req.Override)
		}
		if tt.cause == "" && req.Physiology.Factor != 0.25 {
			t.Fatalf("factor = %v", req.Physiology.Factor)
		}
	}

	fx := newFixture(t)
	fx.player.Health = 5
	if req := fx.classify("与店家闲聊"); req.Physiology.Failed {
		t.Fatal("low-energy intent gated by physiology")
	}
}

func TestDebuffPenalty(t *testing.T) {
	fx := newFixture(t)
	fx.player.Attributes.Strength = 100
	fx.player.Debuffs = []models.Debuff{models.DebuffWounded}

	req := fx.classify("攻打黄巾贼寨")
	if !req.Debuff.Penalized || req.SuccessChance != 0.5 {
		t.Fatalf("debuff = %+v chance = %v", req.Debuff, req.SuccessChance)
	}
	if !strings.Contains(req.Debuff.Directive, "负伤") {
		t.Fatalf("directive = %q", req.Debuff.Directive)
	}
	if req := fx.classify("读书"); req.Debuff.Penalized {
		t.Fatal("training penalised by debuff")
	}
}

func TestLogicConflicts(t *testing.T) {
	fx := newFixture(t)
	fx.snap.LogicConflicts = 2

	req := fx.classify("我在成都，打探消息")
	if len(req.Conflicts) != 1 || req.Conflicts[0].Kind != "region" {
		t.Fatalf("conflicts = %+v", req.Conflicts)
	}
	if req.LogicConflictCount != 3 || !req.TreatAsConfused || req.World.LogicConflicts != 3 {
		t.Fatalf("count = %d confused = %v", req.LogicConflictCount, req.TreatAsConfused)
	}
	if fx.snap.LogicConflicts != 2 {
		t.Fatal("input snapshot mutated")
	}

	fx.snap.LogicConflicts = 0
	req = fx.classify("公元250年，我打探消息")
	if len(req.Conflicts) != 1 || req.Conflicts[0].Kind != "year" || req.TreatAsConfused {
		t.Fatalf("conflicts = %+v", req.Conflicts)
	}
	if req := fx.classify("中平二年，我在涿县打探消息"); len(req.Conflicts) != 0 {
		t.Fatalf("false conflict: %+v", req.Conflicts)
	}
}

func TestClassifyDoesNotMutate(t *testing.T) {
	fx := newFixture(t)
	before := fx.snap.Clone()
	beforeChars := models.CloneCharacters(fx.chars)
	beforePlayer := fx.player.Clone()

	fx.classify("闭关二十年")
	fx.classify("前往成都")

	if !reflect.DeepEqual(fx.snap, before) || !reflect.DeepEqual(fx.chars, beforeChars) || !reflect.DeepEqual(fx.player, beforePlayer) {
		t.Fatal("classification mutated its inputs")
	}
}

func TestEvilDeedAndGoal(t *testing.T) {
	fx := newFixture(t)
	req := fx.classify("率众屠城")
	if !req.EvilDeed {
		t.Fatal("evil deed not flagged")
	}
	req = fx.classify("我立志匡扶汉室，苦练武艺")
	if req.StatedGoal != "匡扶汉室" {
		t.Fatalf("goal = %q", req.StatedGoal)
	}
}

func TestPendingLetter(t *testing.T) {
	fx := newFixture(t)
	fx.snap.PendingLetter = &models.DelayedLetter{CharacterID: 1001, Name: "刘备", Year: 194, Month: 1}
	req := fx.classify("打探消息")
	if req.Letter == nil || req.Letter.Name != "刘备" {
		t.Fatalf("letter = %+v", req.Letter)
	}
}
