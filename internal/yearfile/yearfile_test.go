package yearfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CycleDCA/internal/model"
)

func pt(date string, price float64) model.PricePoint {
	t, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.NewDailyPoint(t, price)
}

func TestEncode_Format(t *testing.T) {
	var buf bytes.Buffer
	s := model.PriceSeries{pt("2024-01-02", 45000.5), pt("2024-01-01", 0)}
	require.NoError(t, Encode(&buf, s))

	want := "\"Date\";\"Price\"\n" +
		"\"2024-01-01\";\"0,00\"\n" +
		"\"2024-01-02\";\"45000,50\"\n"
	assert.Equal(t, want, buf.String())
}

func TestDecode_AcceptsDotAndMissingHeader(t *testing.T) {
	in := "\"2023-05-01\";\"28000.12\"\n\n\"2023-04-30\";\"27999,99\"\n"
	s, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, s, 2)
	assert.Equal(t, "2023-04-30", s[0].Date)
	assert.Equal(t, 27999.99, s[0].Price)
	assert.Equal(t, 28000.12, s[1].Price)
}

func TestDecode_LeadingBOM(t *testing.T) {
	for name, in := range map[string]string{
		"header":    "\uFEFF\"Date\";\"Price\"\n\"2024-01-02\";\"45000,50\"\n",
		"no header": "\uFEFF\"2024-01-02\";\"45000,50\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			s, err := Decode(strings.NewReader(in))
			require.NoError(t, err)
			require.Len(t, s, 1)
			assert.Equal(t, "2024-01-02", s[0].Date)
			assert.Equal(t, 45000.5, s[0].Price)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(strings.NewReader("\"Date\";\"Price\"\n\"not-a-date\";\"1,00\"\n"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode(strings.NewReader("\"2023-01-01\";\"abc\"\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestRoundTrip(t *testing.T) {
	orig := model.PriceSeries{
		pt("2021-01-01", 0),
		pt("2021-01-02", 29374.15),
		pt("2021-01-03", 32127.27),
		pt("2021-11-10", 68789.63),
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, orig))

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(orig))
	for i := range orig {
		assert.Equal(t, orig[i].Date, got[i].Date)
		assert.InDelta(t, orig[i].Price, got[i].Price, 1e-9)
	}
}

func TestFormatPrice_RoundsToCents(t *testing.T) {
	assert.Equal(t, "1,24", FormatPrice(1.235))
	assert.Equal(t, "100000,00", FormatPrice(100000))
	assert.Equal(t, 10.13, Round2(10.126))
}

func TestDir_WriteLoadYears(t *testing.T) {
	d := NewDir(filepath.Join(t.TempDir(), "btc"))

	years, err := d.Years()
	require.NoError(t, err)
	assert.Empty(t, years)

	_, err = d.Load(2022)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	require.NoError(t, d.Write(2022, model.PriceSeries{pt("2022-03-01", 43000)}))
	require.NoError(t, d.Write(2020, model.PriceSeries{pt("2020-03-01", 8600)}))
	require.NoError(t, os.WriteFile(filepath.Join(d.Root, "complete.csv"), []byte(Header+"\n"), 0o644))

	years, err = d.Years()
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2022}, years)
	assert.True(t, d.Exists(2022))
	assert.False(t, d.Exists(2021))

	s, err := d.Load(2022)
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), s[0].Time)

	entries, err := os.ReadDir(d.Root)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "temp file left behind: %s", e.Name())
	}
}
