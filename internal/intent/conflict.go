package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/models"
)

var locationClaim = regexp.MustCompile(`(?:我|吾|俺|在下)(?:现在|如今|此刻|正|已经|已)?(?:身在|身处|位于|在|到了)([^\s,，。!！?？、]{1,8})`)

// Conflict is one contradiction between the intent and the world.
type Conflict struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// detectConflicts finds claims about place and time that contradict the
// authoritative snapshot.
func (c *Classifier) detectConflicts(text string, snap *models.WorldSnapshot, player *models.PlayerState, year int) []Conflict {
	var out []Conflict

	if m := locationClaim.FindStringSubmatch(text); m != nil {
		if claimed := c.matchRegion(m[1], snap); claimed != nil && claimed.ID != player.Location.Region {
			actual := player.Location.Region
			if r := snap.Region(actual); r != nil {
				actual = r.Name
			}
			out = append(out, Conflict{
				Kind:   "region",
				Detail: fmt.Sprintf("主角自称身在%s，实则身在%s", claimed.Name, actual),
			})
		}
	}

	if claimed, ok := claimedYear(text); ok {
		diff := claimed - year
		if diff < 0 {
			diff = -diff
		}
		if diff > c.cfg.YearConflictTolerance {
			out = append(out, Conflict{
				Kind:   "year",
				Detail: fmt.Sprintf("主角提及%s，而今乃%s", calendar.FormatEraYear(claimed, 0), calendar.FormatEraYear(year, 0)),
			})
		}
	}
	return out
}

func claimedYear(text string) (int, bool) {
	if m := gregorianYear.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	for _, e := range calendar.Eras {
		idx := strings.Index(text, e.Name)
		if idx < 0 {
			continue
		}
		if y, ok := calendar.ParseEraYear(text[idx:]); ok {
			return y, true
		}
	}
	return 0, false
}

// matchRegion returns the region mentioned first in text.
func (c *Classifier) matchRegion(text string, snap *models.WorldSnapshot) *models.RegionStatus {
	var best *models.RegionStatus
	bestPos := -1
	for _, m := range c.regionMentions(text, snap) {
		if bestPos < 0 || m.pos < bestPos {
			best, bestPos = m.region, m.pos
		}
	}
	return best
}
