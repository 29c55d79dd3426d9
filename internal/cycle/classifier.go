// Package cycle maps calendar days to market-cycle phases using a static table.
package cycle

import (
	"time"

	"CycleDCA/internal/model"
)

// Classifier is a pure lookup over a cycle table. It holds no mutable state.
type Classifier struct {
	cycles     []model.Cycle
	windows    []model.CyclePhaseWindow
	defaultATH float64
}

// NewClassifier builds a classifier over cycles. defaultCycle names the cycle
// whose all-time high backs AllTimeHigh when no cycle contains the range.
func NewClassifier(cycles []model.Cycle, defaultCycle string) *Classifier {
	c := &Classifier{cycles: cycles}
	for _, cy := range cycles {
		c.windows = append(c.windows, cy.Windows...)
		if cy.Name == defaultCycle {
			c.defaultATH = cy.AllTimeHigh
		}
	}
	return c
}

// Default returns the classifier over the built-in table.
func Default() *Classifier {
	return NewClassifier(Table, DefaultAllTimeHighCycle)
}

// Classify returns the phase of the first window containing t, or
// accumulation when none does.
func (c *Classifier) Classify(t time.Time) model.Phase {
	for _, w := range c.windows {
		if w.Contains(t) {
			return w.Type
		}
	}
	return model.PhaseAccumulation
}

// Window returns the first window containing t.
func (c *Classifier) Window(t time.Time) (model.CyclePhaseWindow, bool) {
	for _, w := range c.windows {
		if w.Contains(t) {
			return w, true
		}
	}
	return model.CyclePhaseWindow{}, false
}

// WindowsInRange returns every window overlapping [start, end].
func (c *Classifier) WindowsInRange(start, end time.Time) []model.CyclePhaseWindow {
	from, to := model.DayOf(start), model.DayOf(end)
	var out []model.CyclePhaseWindow
	for _, w := range c.windows {
		if w.End.Before(from) || w.Start.After(to) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// AllTimeHigh returns the peak of the cycle that fully contains [start, end],
// falling back to the default cycle's peak.
func (c *Classifier) AllTimeHigh(start, end time.Time) float64 {
	from, to := model.DayOf(start), model.DayOf(end)
	for _, cy := range c.cycles {
		if !from.Before(cy.Start()) && !to.After(cy.End()) {
			return cy.AllTimeHigh
		}
	}
	return c.defaultATH
}

// Cycles returns the configured table.
func (c *Classifier) Cycles() []model.Cycle {
	return c.cycles
}
