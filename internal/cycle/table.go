package cycle

import (
	"time"

	"CycleDCA/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Table is the hand-specified history of four Bitcoin cycles.
// Windows inside a cycle are contiguous; boundary days belong to the earlier window.
// The last two windows of the 2022 cycle extend past the known data and are projections.
var Table = []model.Cycle{
	{
		Name:        "2011-2015",
		AllTimeHigh: 1163,
		Windows: []model.CyclePhaseWindow{
			{Start: day(2011, time.November, 18), End: day(2012, time.November, 28), Type: model.PhaseAccumulation, PriceRange: "$2 - $13"},
			{Start: day(2012, time.November, 28), End: day(2013, time.December, 4), Type: model.PhaseBullRun, PriceRange: "$12 - $1,163"},
			{Start: day(2013, time.December, 4), End: day(2015, time.January, 14), Type: model.PhaseBearMarket, PriceRange: "$1,163 - $170"},
		},
	},
	{
		Name:        "2015-2018",
		AllTimeHigh: 19783,
		Windows: []model.CyclePhaseWindow{
			{Start: day(2015, time.January, 14), End: day(2016, time.July, 9), Type: model.PhaseAccumulation, PriceRange: "$170 - $650"},
			{Start: day(2016, time.July, 9), End: day(2017, time.December, 17), Type: model.PhaseBullRun, PriceRange: "$650 - $19,783"},
			{Start: day(2017, time.December, 17), End: day(2018, time.December, 15), Type: model.PhaseBearMarket, PriceRange: "$19,783 - $3,122"},
		},
	},
	{
		Name:        "2018-2022",
		AllTimeHigh: 69000,
		Windows: []model.CyclePhaseWindow{
			{Start: day(2018, time.December, 15), End: day(2020, time.May, 11), Type: model.PhaseAccumulation, PriceRange: "$3,122 - $8,600"},
			{Start: day(2020, time.May, 11), End: day(2021, time.November, 10), Type: model.PhaseBullRun, PriceRange: "$8,600 - $69,000"},
			{Start: day(2021, time.November, 10), End: day(2022, time.November, 21), Type: model.PhaseBearMarket, PriceRange: "$69,000 - $15,476"},
		},
	},
	{
		Name:        "2022-2026",
		AllTimeHigh: 126000,
		Windows: []model.CyclePhaseWindow{
			{Start: day(2022, time.November, 21), End: day(2024, time.April, 19), Type: model.PhaseAccumulation, PriceRange: "$15,476 - $64,000"},
			{Start: day(2024, time.April, 19), End: day(2025, time.October, 6), Type: model.PhaseBullRun, PriceRange: "$64,000 - $126,000", Projected: true},
			{Start: day(2025, time.October, 6), End: day(2026, time.October, 15), Type: model.PhaseBearMarket, PriceRange: "$126,000 - $45,000", Projected: true},
		},
	},
}

// DefaultAllTimeHighCycle names the cycle whose peak is used when no single
// cycle fully contains a requested range.
const DefaultAllTimeHighCycle = "2018-2022"
