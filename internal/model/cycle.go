package model

import "time"

// Phase is a named market-cycle phase.
type Phase string

const (
	PhaseAccumulation Phase = "accumulation"
	PhaseBullRun      Phase = "bullRun"
	PhaseBearMarket   Phase = "bearMarket"
)

// Phases lists every phase in cycle order.
var Phases = []Phase{PhaseAccumulation, PhaseBullRun, PhaseBearMarket}

// CyclePhaseWindow is one inclusive calendar-day span of a cycle.
type CyclePhaseWindow struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Type       Phase     `json:"type"`
	PriceRange string    `json:"priceRange"`
	Projected  bool      `json:"projected"`
}

// Contains reports whether the calendar day of t lies inside the window.
func (w CyclePhaseWindow) Contains(t time.Time) bool {
	d := DayOf(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// Cycle is an accumulation, bull run and bear market in that order.
type Cycle struct {
	Name        string             `json:"name"`
	Windows     []CyclePhaseWindow `json:"windows"`
	AllTimeHigh float64            `json:"allTimeHigh"`
}

// Start returns the first day of the cycle.
func (c Cycle) Start() time.Time { return c.Windows[0].Start }

// End returns the last day of the cycle.
func (c Cycle) End() time.Time { return c.Windows[len(c.Windows)-1].End }
