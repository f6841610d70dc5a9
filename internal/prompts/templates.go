package prompts

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// TemplateEngine manages prompt templates
type TemplateEngine struct {
	templates map[string]*Template
	mu        sync.RWMutex
}

// Template represents a prompt template with variables
type Template struct {
	Name        string   `json:"name"`
	Content     string   `json:"content"`
	Variables   []string `json:"variables"`
	Description string   `json:"description"`
}

var varRegex = regexp.MustCompile(`\{\{(\w+)\}\}`)

// NewTemplateEngine creates a new template engine
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{
		templates: make(map[string]*Template),
	}
}

// RegisterTemplate registers a new template
func (e *TemplateEngine) RegisterTemplate(tmpl *Template) error {
	if tmpl == nil || tmpl.Name == "" {
		return fmt.Errorf("template has no name")
	}
	if len(tmpl.Variables) == 0 {
		tmpl.Variables = ParseTemplateVariables(tmpl.Content)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[tmpl.Name] = tmpl
	return nil
}

// GetTemplate retrieves a template by name
func (e *TemplateEngine) GetTemplate(name string) (*Template, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tmpl, ok := e.templates[name]
	if !ok {
		return nil, fmt.Errorf("template not found: %s", name)
	}
	return tmpl, nil
}

// Render renders a template, replacing {{name}} placeholders with vars.
// Placeholders without a value are left empty.
func (e *TemplateEngine) Render(templateName string, vars map[string]string) (string, error) {
	tmpl, err := e.GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	return varRegex.ReplaceAllStringFunc(tmpl.Content, func(match string) string {
		return vars[varRegex.FindStringSubmatch(match)[1]]
	}), nil
}

// ParseTemplateVariables extracts the sorted, de-duplicated variables of a
// template.
func ParseTemplateVariables(templateContent string) []string {
	matches := varRegex.FindAllStringSubmatch(templateContent, -1)

	uniqueVars := make(map[string]bool)
	for _, match := range matches {
		if len(match) > 1 {
			uniqueVars[match[1]] = true
		}
	}

	vars := make([]string, 0, len(uniqueVars))
	for v := range uniqueVars {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	return vars
}

// ImportTemplates registers templates from a JSON array, replacing built-ins
// of the same name.
func (e *TemplateEngine) ImportTemplates(jsonData []byte) error {
	var list []Template
	if err := json.Unmarshal(jsonData, &list); err != nil {
		return fmt.Errorf("failed to unmarshal templates: %w", err)
	}
	for i := range list {
		tmpl := list[i]
		tmpl.Variables = ParseTemplateVariables(tmpl.Content)
		if err := e.RegisterTemplate(&tmpl); err != nil {
			return fmt.Errorf("failed to register template %d: %w", i, err)
		}
	}
	return nil
}

// InitializeDefaultTemplates registers the built-in turn templates.
func (e *TemplateEngine) InitializeDefaultTemplates() error {
	for _, tmpl := range defaultTemplates() {
		if err := e.RegisterTemplate(tmpl); err != nil {
			return fmt.Errorf("failed to register template %s: %w", tmpl.Name, err)
		}
	}
	return nil
}

const (
	TemplateSystem = "turn_system"
	TemplateTurn   = "turn_user"
)

func defaultTemplates() []*Template {
	return []*Template{
		{
			Name:        TemplateSystem,
			Description: "Fixed rules for the narrator",
			Content: `你是一部东汉末年三国题材互动小说的叙事者。

## 写作要求
1. 使用古风白话文，人物称谓如"主公"、"将军"、"足下"、"在下"
2. 严禁出现任何现代词汇与概念
3. 历史人物的言行须符合其性格与说话风格
4. "必须遵守的指令"一节的每一条都优先于你自己的构思，尤其是失败、拒绝、落败类的结局不得改写为成功
5. 时间、地点、人物生死以给出的世界状态为准，不得自行增删

## 回复格式
只输出一个 JSON 对象，不要输出其他内容：
{"narrative": "叙事正文", "effects": ["效果标记"], "suggestions": [{"text": "下一步行动建议", "goal_aligned": true}]}

## 效果标记语法
- 数值变化：<属性名><+|-><整数>，属性名为 strength intelligence charisma leadership gold food soldiers legend reputation fame infamy stamina health hunger，例如 strength+2、gold-30
- 好感变化：npc_<人物编号>_favor<+|-><整数>，例如 npc_1002_favor+5
- 关系变化：npc_<人物编号>_relation=<acquaintance|sworn_brother|spouse>
- 记忆碎片：npc_<人物编号>_memory=<一句话>
- 敌对势力：hostile_faction=<势力编号>
- 关键记忆：crucial_memory=<一句话>
- 新的志向：goal=<一句话>
- 中毒与解毒：debuff=poisoned、cure=poisoned
suggestions 最多三条。`,
		},
		{
			Name:        TemplateTurn,
			Description: "Per-turn state and directives",
			Content: `## 当前时间
{{date}}（{{season}}），距上回合过去{{elapsed}}

## 主角
{{player}}

## 所在之地
{{location}}

## 天下形势
{{regions}}

## 相关人物
{{characters}}

## 往事
{{memories}}

## 史事
{{history}}

## 传闻
{{rumors}}

## 已发生的史事
{{canon}}

## 因主角而改变的历史
{{deviations}}

## 必须遵守的指令
{{directives}}

## 篇幅
约{{word_budget}}字

## 玩家的行动
{{intent}}`,
		},
	}
}
