package engine

import (
	"encoding/json"
	"strings"
)

const (
	maxSuggestions    = 3
	fallbackNarrative = "风云变幻，一时无话。"
)

// Suggestion is a next-action hint returned to the player.
type Suggestion struct {
	Text        string `json:"text"`
	GoalAligned bool   `json:"goal_aligned"`
}

// Reply is the parsed backend output.
type Reply struct {
	Narrative   string       `json:"narrative"`
	Effects     []string     `json:"effects"`
	Suggestions []Suggestion `json:"suggestions"`
}

// ParseReply extracts a Reply from raw backend text. It never fails: text
// that is not a JSON object becomes the narrative with no effects.
func ParseReply(raw string) Reply {
	body := stripFences(strings.TrimSpace(raw))

	var reply Reply
	start, end := strings.Index(body, "{"), strings.LastIndex(body, "}")
	var fields map[string]json.RawMessage
	if start < 0 || end <= start || json.Unmarshal([]byte(body[start:end+1]), &fields) != nil {
		reply = Reply{Narrative: body}
	} else {
		reply = Reply{
			Narrative:   decodeText(fields["narrative"]),
			Effects:     decodeEffects(fields["effects"]),
			Suggestions: decodeSuggestions(fields["suggestions"]),
		}
	}

	reply.Narrative = strings.TrimSpace(reply.Narrative)
	if reply.Narrative == "" {
		reply.Narrative = fallbackNarrative
	}

	effects := reply.Effects[:0:0]
	for _, e := range reply.Effects {
		if e = strings.TrimSpace(e); e != "" {
			effects = append(effects, e)
		}
	}
	reply.Effects = effects

	suggestions := make([]Suggestion, 0, maxSuggestions)
	for _, s := range reply.Suggestions {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		suggestions = append(suggestions, s)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	reply.Suggestions = suggestions
	return reply
}

// Each field is decoded on its own so one mistyped field does not cost the
// others.
func decodeText(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// decodeEffects accepts a list of tokens, a single token, or a list with
// non-string members, which are dropped.
func decodeEffects(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if json.Unmarshal(raw, &list) == nil {
		return list
	}
	var single string
	if json.Unmarshal(raw, &single) == nil {
		return []string{single}
	}
	var mixed []json.RawMessage
	if json.Unmarshal(raw, &mixed) != nil {
		return nil
	}
	for _, m := range mixed {
		if s := decodeText(m); s != "" {
			list = append(list, s)
		}
	}
	return list
}

// decodeSuggestions accepts objects or bare strings.
func decodeSuggestions(raw json.RawMessage) []Suggestion {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		var s Suggestion
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
			continue
		}
		if text := decodeText(item); text != "" {
			out = append(out, Suggestion{Text: text})
		}
	}
	return out
}

func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
