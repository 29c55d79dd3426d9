// Package yearfile reads and writes the per-year price files:
//
//	"Date";"Price"
//	"2024-01-01";"42280,23"
//
// Every field is quoted, fields are separated by semicolons, prices carry two
// decimals with a comma separator, and rows are sorted ascending by date.
package yearfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"CycleDCA/internal/model"
)

// Header is the first line of every price file.
const Header = `"Date";"Price"`

// ErrMalformed marks a row that cannot be parsed.
var ErrMalformed = errors.New("malformed price row")

// FormatPrice renders p with two decimals and a comma separator.
func FormatPrice(p float64) string {
	return strings.Replace(decimal.NewFromFloat(p).StringFixed(2), ".", ",", 1)
}

// ParsePrice accepts both comma and dot decimal separators.
func ParsePrice(s string) (float64, error) {
	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q", ErrMalformed, s)
	}
	f, _ := d.Float64()
	return f, nil
}

// Round2 rounds p to the precision stored on disk.
func Round2(p float64) float64 {
	f, _ := decimal.NewFromFloat(p).Round(2).Float64()
	return f
}

// Encode writes the header and one quoted row per point, sorted by date.
func Encode(w io.Writer, series model.PriceSeries) error {
	sorted := series.Clone()
	sorted.Sort()

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(Header + "\n"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, p := range sorted {
		if _, err := fmt.Fprintf(bw, "%q;%q\n", p.Date, FormatPrice(p.Price)); err != nil {
			return fmt.Errorf("write row %s: %w", p.Date, err)
		}
	}
	return bw.Flush()
}

const utf8BOM = "\uFEFF"

// Decode parses a price file. The header row is optional; blank lines are skipped.
// Zero prices are kept so a round trip preserves seed rows.
func Decode(r io.Reader) (model.PriceSeries, error) {
	br := bufio.NewReader(r)
	if lead, err := br.Peek(len(utf8BOM)); err == nil && string(lead) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	cr := csv.NewReader(br)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out model.PriceSeries
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("%w: line %d has %d fields", ErrMalformed, line, len(rec))
		}
		dateField := strings.TrimSpace(rec[0])
		if line == 1 && strings.EqualFold(dateField, "Date") {
			continue
		}
		t, err := model.ParseDate(dateField)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, line, err)
		}
		price, err := ParsePrice(rec[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, model.NewDailyPoint(t, price))
	}
	out.Sort()
	return out, nil
}
