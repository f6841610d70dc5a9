// Package intent classifies a player's free-text intent against the current
// snapshot and annotates the narrative request with time cost, hard
// overrides, physiological gating and style directives. It never mutates the
// snapshot it is given.
package intent

import (
	"strings"

	"golang.org/x/text/width"

	"Luanshi/server/internal/models"
)

// Mode tells the classifier whether the turn is an action or plain talk.
type Mode string

const (
	ModeAction   Mode = "action"
	ModeDialogue Mode = "dialogue"
)

// Category is the coarse class of an intent.
type Category string

const (
	CategoryExpedition  Category = "expedition"
	CategoryCombat      Category = "combat"
	CategoryMovement    Category = "movement"
	CategorySocial      Category = "social"
	CategoryCommerce    Category = "commerce"
	CategoryTraining    Category = "training"
	CategoryRest        Category = "rest"
	CategoryObservation Category = "observation"
	CategoryGeneral     Category = "general"
)

// IsCombat reports whether debuffs penalise the intent as a fight.
func (c Category) IsCombat() bool {
	return c == CategoryCombat || c == CategoryExpedition
}

// IsMovement reports whether debuffs penalise the intent as travel.
func (c Category) IsMovement() bool {
	return c == CategoryMovement || c == CategoryExpedition
}

// IsHighEnergy reports whether the intent is gated by physiology.
func (c Category) IsHighEnergy() bool {
	switch c {
	case CategoryCombat, CategoryExpedition, CategoryTraining:
		return true
	}
	return false
}

type keywordRule struct {
	category Category
	keywords []string
}

// Category rules are evaluated in order; the first rule with a matching
// keyword wins.
var categoryRules = []keywordRule{
	{CategoryExpedition, []string{"远征", "长途", "出征", "北伐", "南征", "西征", "东征", "率军"}},
	{CategoryCombat, []string{"击杀", "刺杀", "斩杀", "杀死", "攻打", "攻击", "进攻", "围攻", "讨伐", "决斗", "单挑", "挑战", "交战", "厮杀", "击败", "打败", "杀"}},
	{CategoryMovement, []string{"前往", "赶往", "奔赴", "投奔", "北上", "南下", "西进", "东进", "返回", "回到", "启程", "出发", "迁往", "动身", "去"}},
	{CategorySocial, []string{"拜见", "拜访", "求见", "谒见", "结交", "结拜", "结义", "求亲", "提亲", "成亲", "投靠", "游说", "劝说", "宴请", "请教", "交谈", "说服"}},
	{CategoryCommerce, []string{"贿赂", "行贿", "购买", "买", "卖", "经商", "贸易", "采购", "募兵", "招兵"}},
	{CategoryTraining, []string{"闭关", "修炼", "苦练", "练武", "习武", "研读", "读书", "练兵", "操练"}},
	{CategoryRest, []string{"休息", "歇息", "养伤", "隐居", "睡"}},
	{CategoryObservation, []string{"观察", "打量", "偷听", "窃听", "打探", "环顾", "查看", "询问", "聆听", "看看"}},
}

// Zero-duration verbs pin the time cost to nothing regardless of any other
// match.
var zeroDurationVerbs = []string{
	"观察", "打量", "偷听", "窃听", "打探", "环顾", "查看", "询问", "聆听", "看看", "贿赂", "行贿",
}

// Long-duration verbs default to a year when no explicit duration is given.
var longDurationVerbs = []string{"闭关", "修炼", "苦练", "隐居", "养伤", "游历", "屯田"}

var evilDeedKeywords = []string{
	"屠城", "屠村", "屠戮", "劫掠", "抢劫", "掳掠", "烧杀", "放火", "纵火", "背叛", "弑", "滥杀", "欺压百姓",
}

// Normalize folds full-width forms to their narrow equivalents and collapses
// whitespace.
func Normalize(text string) string {
	text = width.Narrow.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// Categorize applies the category rules to normalized text.
func Categorize(text string) Category {
	for _, r := range categoryRules {
		if containsAny(text, r.keywords) {
			return r.category
		}
	}
	return CategoryGeneral
}

// IsEvilDeed reports whether the intent describes an atrocity that earns
// infamy and the enmity of the local ruler.
func IsEvilDeed(text string) bool {
	return containsAny(Normalize(text), evilDeedKeywords)
}

// FindTargets returns the characters named in text, in roster order.
func FindTargets(text string, chars []*models.Character) []*models.Character {
	var out []*models.Character
	for _, c := range chars {
		if c == nil {
			continue
		}
		for _, name := range c.Names() {
			if name != "" && strings.Contains(text, name) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
