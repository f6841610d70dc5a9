package effects

import (
	"fmt"
	"log/slog"
	"sort"

	"Luanshi/server/internal/bond"
	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/intent"
	"Luanshi/server/internal/models"
)

// Config tunes the applier.
type Config struct {
	HistoryRetention int `yaml:"history_retention"`
	FoodPerMonth     int `yaml:"food_per_month"`
	SoldiersPerFood  int `yaml:"soldiers_per_food"`
	GoldPerMonth     int `yaml:"gold_per_month"`
	StarvationHunger int `yaml:"starvation_hunger"`
	WoundedHealth    int `yaml:"wounded_health"`
	PoisonHealth     int `yaml:"poison_health"`
	EvilDeedInfamy   int `yaml:"evil_deed_infamy"`
	LetterAffinity   int `yaml:"letter_affinity"`
	LetterMonths     int `yaml:"letter_months"`
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		HistoryRetention: models.DefaultHistoryRetention,
		FoodPerMonth:     10,
		SoldiersPerFood:  100,
		GoldPerMonth:     5,
		StarvationHunger: 20,
		WoundedHealth:    40,
		PoisonHealth:     5,
		EvilDeedInfamy:   10,
		LetterAffinity:   60,
		LetterMonths:     12,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.HistoryRetention <= 0 {
		c.HistoryRetention = d.HistoryRetention
	}
	if c.FoodPerMonth <= 0 {
		c.FoodPerMonth = d.FoodPerMonth
	}
	if c.SoldiersPerFood <= 0 {
		c.SoldiersPerFood = d.SoldiersPerFood
	}
	if c.GoldPerMonth <= 0 {
		c.GoldPerMonth = d.GoldPerMonth
	}
	if c.StarvationHunger <= 0 {
		c.StarvationHunger = d.StarvationHunger
	}
	if c.WoundedHealth <= 0 {
		c.WoundedHealth = d.WoundedHealth
	}
	if c.PoisonHealth <= 0 {
		c.PoisonHealth = d.PoisonHealth
	}
	if c.EvilDeedInfamy <= 0 {
		c.EvilDeedInfamy = d.EvilDeedInfamy
	}
	if c.LetterAffinity <= 0 {
		c.LetterAffinity = d.LetterAffinity
	}
	if c.LetterMonths <= 0 {
		c.LetterMonths = d.LetterMonths
	}
	return c
}

// Result summarises what a turn changed.
type Result struct {
	Applied         []Effect              `json:"-"`
	Skipped         []string              `json:"skipped,omitempty"`
	Milestones      []string              `json:"milestones,omitempty"`
	CrucialMemories []string              `json:"crucial_memories,omitempty"`
	Entries         []models.HistoryEntry `json:"entries,omitempty"`
	Letter          *models.DelayedLetter `json:"letter,omitempty"`
}

// Applier commits a classified turn and its backend effects.
type Applier struct {
	cfg      Config
	cat      *catalog.Catalog
	ledger   *bond.Ledger
	recorder *Recorder
	logger   *slog.Logger
}

// NewApplier creates an applier.
func NewApplier(cfg Config, cat *catalog.Catalog, ledger *bond.Ledger, logger *slog.Logger) *Applier {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{
		cfg:      cfg,
		cat:      cat,
		ledger:   ledger,
		recorder: NewRecorder(cfg.HistoryRetention),
		logger:   logger.With("component", "effects"),
	}
}

// Apply returns the save as it stands after the turn. prev is not modified;
// the advanced world and characters come from req. Malformed or unknown
// tokens are skipped one by one.
func (a *Applier) Apply(prev *models.Save, req *intent.AnnotatedRequest, tokens []string, turnID string) (*models.Save, *Result) {
	next := prev.Clone()
	if req.World != nil {
		next.World = req.World.Clone()
	}
	if req.Characters != nil {
		next.Characters = models.CloneCharacters(req.Characters)
	}
	if next.Player == nil {
		next.Player = &models.PlayerState{}
	}
	player := next.Player
	date := next.World.Date()
	res := &Result{}

	effects := ParseAll(tokens)
	for _, e := range effects {
		if e.Kind == KindNoop {
			res.Skipped = append(res.Skipped, e.Raw)
		}
	}

	a.applyNumeric(player, effects, res)
	a.applyFavor(next.Characters, effects, date, res)
	a.applyRelations(next.World, next.Characters, player, effects, date, res)
	a.applyMemories(next.Characters, effects, date, res)

	for _, e := range effects {
		switch e.Kind {
		case KindHostileFaction:
			player.AddHostileFaction(a.factionID(e.Text))
			res.Applied = append(res.Applied, e)
		case KindGoal:
			player.AddGoal(e.Text)
			res.Applied = append(res.Applied, e)
		case KindCrucialMemory:
			res.CrucialMemories = append(res.CrucialMemories, e.Text)
			res.Applied = append(res.Applied, e)
		case KindDebuff:
			player.AddDebuff(models.Debuff(e.Text))
			res.Applied = append(res.Applied, e)
		case KindCure:
			player.RemoveDebuff(models.Debuff(e.Text))
			res.Applied = append(res.Applied, e)
		}
	}
	if req.StatedGoal != "" {
		player.AddGoal(req.StatedGoal)
	}

	if req.EvilDeed {
		player.Adjust(models.StatInfamy, a.cfg.EvilDeedInfamy)
		if r := next.World.Region(prev.Player.Location.Region); r != nil {
			player.AddHostileFaction(r.Owner)
		}
		next.World.AddDeviation(fmt.Sprintf("主角于%s作恶", regionName(next.World, prev.Player.Location.Region)))
	}
	for _, e := range req.TimelineEvents {
		next.World.AddCanon(e.Label)
	}

	if req.Destination != "" && req.Override == nil && req.DurationSource != intent.DurationZeroVerb {
		if r := next.World.Region(req.Destination); r != nil {
			player.Location = models.Location{Region: r.ID, Scene: r.Name}
		}
	}

	a.upkeep(player, req.ElapsedMonths)
	a.conditions(player, req.ElapsedMonths)
	a.ledger.ApplyDecay(next.Characters, date)

	if req.Letter != nil {
		res.Milestones = append(res.Milestones, fmt.Sprintf("收到%s的来信", req.Letter.Name))
		next.World.PendingLetter = nil
	}
	if req.ElapsedMonths >= a.cfg.LetterMonths {
		if letter := a.armLetter(next.Characters, date); letter != nil {
			next.World.PendingLetter = letter
			res.Letter = letter
		}
	}

	res.Entries = a.recorder.Record(prev, next, req, res, turnID)
	next.History = a.recorder.Append(next.History, res.Entries...)
	next.Turns++
	next.Version = models.SaveVersion
	player.Normalize()
	return next, res
}

// applyNumeric sums deltas per stat, then writes each sum once through the
// clamping path, in first-seen order.
func (a *Applier) applyNumeric(player *models.PlayerState, effects []Effect, res *Result) {
	sums := map[models.Stat]int{}
	var order []models.Stat
	for _, e := range effects {
		if e.Kind != KindNumeric {
			continue
		}
		if _, seen := sums[e.Stat]; !seen {
			order = append(order, e.Stat)
		}
		sums[e.Stat] = models.SaturatingAdd(sums[e.Stat], e.Delta)
		res.Applied = append(res.Applied, e)
	}
	for _, s := range order {
		player.Adjust(s, sums[s])
	}
}

func (a *Applier) applyFavor(chars []*models.Character, effects []Effect, now calendar.Date, res *Result) {
	sums := map[int]int{}
	var order []int
	for _, e := range effects {
		if e.Kind != KindFavor {
			continue
		}
		c := models.FindCharacter(chars, e.CharacterID)
		if c == nil || !c.IsAlive {
			res.Skipped = append(res.Skipped, e.Raw)
			continue
		}
		if _, seen := sums[e.CharacterID]; !seen {
			order = append(order, e.CharacterID)
		}
		sums[e.CharacterID] = models.SaturatingAdd(sums[e.CharacterID], e.Delta)
		res.Applied = append(res.Applied, e)
	}
	for _, id := range order {
		a.ledger.UpdateAffinity(models.FindCharacter(chars, id), sums[id], now, "")
	}
}

var relationRank = map[models.RelationType]int{
	models.RelationNone:         0,
	models.RelationAcquaintance: 1,
	models.RelationAdmiration:   2,
	models.RelationLordVassal:   3,
	models.RelationSwornBrother: 4,
	models.RelationSpouse:       4,
}

func (a *Applier) applyRelations(w *models.WorldSnapshot, chars []*models.Character, player *models.PlayerState, effects []Effect, now calendar.Date, res *Result) {
	for _, e := range effects {
		if e.Kind != KindRelation {
			continue
		}
		c := models.FindCharacter(chars, e.CharacterID)
		if c == nil || !c.IsAlive || !a.relationAllowed(c, player, e.Relation, now) {
			res.Skipped = append(res.Skipped, e.Raw)
			continue
		}
		if a.ledger.SetRelation(c, e.Relation, now) {
			milestone := fmt.Sprintf("与%s%s", c.Name, relationPhrase(e.Relation))
			res.Milestones = append(res.Milestones, milestone)
			if e.Relation == models.RelationSwornBrother || e.Relation == models.RelationSpouse {
				w.AddDeviation("主角" + milestone)
			}
		}
		res.Applied = append(res.Applied, e)
	}
}

// relationAllowed enforces the age gate and affinity floor for sworn
// brotherhood and marriage, and refuses to demote an existing bond.
func (a *Applier) relationAllowed(c *models.Character, player *models.PlayerState, rel models.RelationType, now calendar.Date) bool {
	b := a.ledger.Ensure(c, now)
	if relationRank[rel] < relationRank[b.Relation] {
		return false
	}
	playerAge := player.Age(now.Year)
	switch rel {
	case models.RelationSwornBrother:
		if !a.ledger.CanBecomeSwornBrother(playerAge, c.CurrentAge) {
			return false
		}
	case models.RelationSpouse:
		if !a.ledger.CanMarry(playerAge, c.CurrentAge) {
			return false
		}
	default:
		return true
	}
	return b.Affinity >= a.ledger.AffinityFloor(rel)
}

func relationPhrase(rel models.RelationType) string {
	switch rel {
	case models.RelationSwornBrother:
		return "义结金兰"
	case models.RelationSpouse:
		return "结为夫妻"
	case models.RelationAcquaintance:
		return "相识"
	}
	return "结为" + rel.Label()
}

func (a *Applier) applyMemories(chars []*models.Character, effects []Effect, now calendar.Date, res *Result) {
	for _, e := range effects {
		if e.Kind != KindMemory {
			continue
		}
		c := models.FindCharacter(chars, e.CharacterID)
		if c == nil || e.Text == "" {
			res.Skipped = append(res.Skipped, e.Raw)
			continue
		}
		a.ledger.AppendMemory(c, e.Text, now)
		res.Applied = append(res.Applied, e)
	}
}

// upkeep charges food and gold per elapsed month. A food shortfall empties
// the granary and leaves the player starving; a paid month eases hunger by
// the same step.
func (a *Applier) upkeep(player *models.PlayerState, months int) {
	if months <= 0 {
		return
	}
	perMonth := a.cfg.FoodPerMonth + player.Resources.Soldiers/a.cfg.SoldiersPerFood
	food := saturatingMul(months, perMonth)
	gold := saturatingMul(months, a.cfg.GoldPerMonth)

	if player.Resources.Food < food {
		player.Set(models.StatFood, 0)
		player.AddDebuff(models.DebuffStarving)
		player.Adjust(models.StatHunger, a.cfg.StarvationHunger)
	} else {
		player.Adjust(models.StatFood, -food)
		player.RemoveDebuff(models.DebuffStarving)
		player.Adjust(models.StatHunger, -saturatingMul(months, a.cfg.StarvationHunger))
	}
	player.Adjust(models.StatGold, -gold)
}

// conditions ticks poison per elapsed month, then derives wounded from
// health so it lifts once the player recovers.
func (a *Applier) conditions(player *models.PlayerState, months int) {
	if player.HasDebuff(models.DebuffPoisoned) {
		player.Adjust(models.StatHealth, -saturatingMul(months, a.cfg.PoisonHealth))
	}
	if player.Health < a.cfg.WoundedHealth {
		player.AddDebuff(models.DebuffWounded)
	} else {
		player.RemoveDebuff(models.DebuffWounded)
	}
}

// armLetter picks the most bonded living character, lowest id on ties.
func (a *Applier) armLetter(chars []*models.Character, now calendar.Date) *models.DelayedLetter {
	candidates := make([]*models.Character, 0)
	for _, c := range chars {
		if c != nil && c.IsAlive && c.Bond != nil && c.Bond.Affinity >= a.cfg.LetterAffinity {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Bond.Affinity != candidates[j].Bond.Affinity {
			return candidates[i].Bond.Affinity > candidates[j].Bond.Affinity
		}
		return candidates[i].ID < candidates[j].ID
	})
	c := candidates[0]
	return &models.DelayedLetter{CharacterID: c.ID, Name: c.Name, Year: now.Year, Month: now.Month}
}

// factionID resolves a faction name to its id; unknown values pass through.
func (a *Applier) factionID(v string) string {
	if a.cat == nil {
		return v
	}
	for _, f := range a.cat.Factions {
		if f.ID == v || f.Name == v {
			return f.ID
		}
	}
	return v
}

func saturatingMul(a, b int) int {
	if a <= 0 || b <= 0 {
		return 0
	}
	const max = int(^uint(0) >> 1)
	if a > max/b {
		return max
	}
	return a * b
}
