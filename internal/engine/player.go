package engine

import (
	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/models"
)

const (
	defaultPlayerName   = "无名氏"
	defaultPlayerRegion = "youzhou"
	defaultPlayerAge    = 20
)

// newPlayer builds the starting protagonist. Unknown regions fall back to
// Youzhou.
func newPlayer(req NewGameRequest, snap *models.WorldSnapshot) *models.PlayerState {
	name := req.Name
	if name == "" {
		name = defaultPlayerName
	}
	birth := req.BirthYear
	if birth <= 0 || birth > calendar.StartYear {
		birth = calendar.StartYear - defaultPlayerAge
	}
	region := snap.Region(req.Region)
	if region == nil {
		region = snap.Region(defaultPlayerRegion)
	}

	p := &models.PlayerState{
		Name:       name,
		BirthYear:  birth,
		Attributes: models.Attributes{Strength: 50, Intelligence: 50, Charisma: 50, Leadership: 50},
		Resources:  models.Resources{Gold: 100, Food: 100},
		Stamina:    100,
		Health:     100,
		Debuffs:    []models.Debuff{},

		HostileFactions: []string{},
		Goals:           []string{},
	}
	if region != nil {
		p.Location = models.Location{Region: region.ID, Scene: region.Name}
	}
	p.Normalize()
	return p
}
