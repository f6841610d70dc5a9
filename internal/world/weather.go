package world

import (
	"Luanshi/server/internal/calendar"
	"Luanshi/server/internal/catalog"
	"Luanshi/server/internal/models"
)

var seasonalWeather = map[calendar.Season][]string{
	calendar.Spring: {"晴", "和风", "春雨", "阴", "薄雾"},
	calendar.Summer: {"烈日", "闷热", "雷雨", "暴雨", "晴"},
	calendar.Autumn: {"秋高气爽", "晴", "大风", "阴雨", "霜降"},
	calendar.Winter: {"寒风", "阴冷", "晴寒", "小雪", "大雪"},
}

// Regional variants replace the generic template where geography dominates.
var regionalWeather = map[catalog.RegionType]map[calendar.Season][]string{
	catalog.RegionNorth: {
		calendar.Spring: {"风沙", "晴", "春寒", "阴"},
		calendar.Winter: {"暴雪", "大雪", "朔风", "冰封"},
	},
	catalog.RegionSouth: {
		calendar.Summer: {"梅雨", "湿热", "暴雨", "烈日"},
		calendar.Winter: {"湿冷", "阴雨", "晴", "薄雾"},
	},
	catalog.RegionWest: {
		calendar.Spring: {"风沙", "干旱", "晴", "大风"},
		calendar.Autumn: {"风沙", "早霜", "晴", "大风"},
	},
	catalog.RegionSouthwest: {
		calendar.Summer: {"瘴雨", "湿热", "云雾", "暴雨"},
		calendar.Autumn: {"云雾", "阴雨", "晴", "山岚"},
	},
}

const (
	dayFrequency    = 0.07
	regionFrequency = 1.37
)

// WeatherFor returns the weather tag for a region on an absolute day. The
// draw is a coherent noise sample keyed off (day, region index), so adjacent
// days tend to share weather and the result is reproducible.
func (s *Simulator) WeatherFor(totalDays, regionIndex int, regionType catalog.RegionType) string {
	season := calendar.FromDays(totalDays).Season()
	options := seasonalWeather[season]
	if byType, ok := regionalWeather[regionType]; ok {
		if v, ok := byType[season]; ok {
			options = v
		}
	}
	v := s.weather.Eval2(float64(totalDays)*dayFrequency, float64(regionIndex)*regionFrequency)
	i := int(v * float64(len(options)))
	if i < 0 {
		i = 0
	}
	if i >= len(options) {
		i = len(options) - 1
	}
	return options[i]
}

func (s *Simulator) refreshWeather(snap *models.WorldSnapshot) {
	for i := range snap.Regions {
		r := &snap.Regions[i]
		r.Weather = s.WeatherFor(snap.TotalDays, i, catalog.RegionType(r.Type))
	}
}
