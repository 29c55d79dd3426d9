// Package upsert writes the observed daily price into the per-year files with
// peak-capture semantics.
package upsert

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"CycleDCA/internal/model"
	"CycleDCA/internal/yearfile"
)

// ErrInvalidPayload marks an upsert request rejected before any write.
var ErrInvalidPayload = errors.New("invalid upsert payload")

var validate = validator.New()

// Outcome reports what an upsert did to the stored row.
type Outcome struct {
	Date     string
	Price    float64 // stored price after the upsert
	Previous float64 // stored price before, zero when created
	Action   model.UpsertAction
	Changed  bool
	Seeded   bool // a Jan 1 zero row was written with a new year file
}

// Policy applies daily observations to a year-file directory. Apply calls
// are serialized.
type Policy struct {
	Years *yearfile.Dir

	mu sync.Mutex
}

// NewPolicy creates a policy over dir.
func NewPolicy(dir *yearfile.Dir) *Policy {
	return &Policy{Years: dir}
}

// Validate checks a request and returns its date. The year must match the date.
func Validate(req *model.UpsertRequest) (time.Time, error) {
	if err := validate.Struct(req); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if day.Year() != *req.Year {
		return time.Time{}, fmt.Errorf("%w: year %d does not match date %s", ErrInvalidPayload, *req.Year, req.Date)
	}
	return day, nil
}

// ApplyRequest validates req and applies it.
func (p *Policy) ApplyRequest(req *model.UpsertRequest) (*Outcome, error) {
	day, err := Validate(req)
	if err != nil {
		return nil, err
	}
	return p.Apply(day, *req.Price)
}

// Apply records price for the calendar day of day:
//   - a missing year file is created, seeded with a Jan 1 zero row unless day is Jan 1;
//   - a missing row is created;
//   - an existing row is replaced only by a strictly higher price.
//
// Prices compare at the two decimals stored on disk. The file is rewritten
// sorted, through a temp file and rename.
func (p *Policy) Apply(day time.Time, price float64) (*Outcome, error) {
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidPayload)
	}
	day = model.DayOf(day)
	year := day.Year()
	price = yearfile.Round2(price)

	p.mu.Lock()
	defer p.mu.Unlock()

	out := &Outcome{Date: day.Format(model.DateLayout)}

	series, err := p.Years.Load(year)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		series = nil
		jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		if !day.Equal(jan1) {
			series = append(series, model.NewDailyPoint(jan1, 0))
			out.Seeded = true
		}
	default:
		return nil, fmt.Errorf("load year %d: %w", year, err)
	}

	idx := -1
	for i, pt := range series {
		if pt.Date == out.Date {
			idx = i
			break
		}
	}

	if idx < 0 {
		series = append(series, model.NewDailyPoint(day, price))
		out.Action = model.ActionCreated
		out.Price = price
		out.Changed = true
	} else {
		existing := yearfile.Round2(series[idx].Price)
		out.Action = model.ActionUpdated
		out.Previous = existing
		out.Price = existing
		if price > existing {
			series[idx].Price = price
			out.Price = price
			out.Changed = true
		}
	}

	series.Sort()
	if err := p.Years.Write(year, series); err != nil {
		return nil, fmt.Errorf("write year %d: %w", year, err)
	}
	return out, nil
}
