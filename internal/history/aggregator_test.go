package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CycleDCA/internal/clock"
	"CycleDCA/internal/model"
	"CycleDCA/internal/seriescache"
	"CycleDCA/internal/store"
	"CycleDCA/internal/yearfile"
)

func pt(date string, price float64) model.PricePoint {
	t, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.NewDailyPoint(t, price)
}

func byDate(s model.PriceSeries) map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, p := range s {
		out[p.Date] = p.Price
	}
	return out
}

type fakeCurrent struct {
	series model.PriceSeries
	err    error
}

func (f *fakeCurrent) CurrentYear(_ context.Context, _ int, _ time.Time) (model.PriceSeries, error) {
	return f.series, f.err
}

type fakeSpot struct {
	price float64
	err   error
	calls int
}

func (f *fakeSpot) CurrentPrice(_ context.Context, _ string) (float64, error) {
	f.calls++
	return f.price, f.err
}

type memStore struct {
	store.NoopStore
	entries map[string]*store.Entry
}

func newMemStore() *memStore { return &memStore{entries: map[string]*store.Entry{}} }

func (m *memStore) LoadSeries(_ context.Context, key string) (*store.Entry, error) {
	if e, ok := m.entries[key]; ok {
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (m *memStore) SaveSeries(_ context.Context, e *store.Entry) error {
	m.entries[e.Key] = e
	return nil
}

func writeYears(t *testing.T, dir *yearfile.Dir, files map[int]model.PriceSeries) {
	t.Helper()
	for y, s := range files {
		require.NoError(t, dir.Write(y, s))
	}
}

func TestAggregator_SourcePrecedence(t *testing.T) {
	root := filepath.Join(t.TempDir(), "BTC")
	dir := yearfile.NewDir(root)
	writeYears(t, dir, map[int]model.PriceSeries{
		2020: {pt("2020-01-01", 0), pt("2020-03-01", 100), pt("2020-07-01", 200)},
		2021: {pt("2021-05-01", 300)},
		2022: {pt("2022-01-01", 0), pt("2022-02-01", 400)},
	})
	bulk := filepath.Join(root, "complete.csv")
	require.NoError(t, yearfile.WriteFile(bulk, model.PriceSeries{pt("2020-06-01", 210), pt("2020-07-01", 220)}))

	st := newMemStore()
	clk := clock.NewManual(time.Date(2022, 3, 10, 15, 0, 0, 0, time.UTC))
	spot := &fakeSpot{price: 430}
	var refreshed *model.MultiResolutionSeries

	agg, err := New(Config{
		Symbol:     "BTC",
		Milestones: model.PriceSeries{pt("2013-01-01", 13.3)},
		BulkFile:   bulk,
		Years:      dir,
		Current:    &fakeCurrent{series: model.PriceSeries{pt("2022-02-01", 410), pt("2022-03-01", 420)}},
		Spot:       spot,
		Store:      st,
		Clock:      clk,
		OnRefresh:  func(s *model.MultiResolutionSeries) { refreshed = s },
	})
	require.NoError(t, err)
	require.NoError(t, agg.Init(context.Background()))

	s := agg.Series()
	assert.Equal(t, map[string]float64{
		"2013-01-01": 13.3,
		"2020-03-01": 100,
		"2020-06-01": 210,
		"2020-07-01": 220, // bulk wins inside its span
		"2021-05-01": 300,
		"2022-02-01": 410, // current year spliced over the stale file entry
		"2022-03-01": 420,
		"2022-03-10": 430, // spot top-up
	}, byDate(s.Daily))

	for i := 1; i < len(s.Daily); i++ {
		assert.True(t, s.Daily[i-1].Time.Before(s.Daily[i].Time))
	}
	assert.Equal(t, "2013-01-01", s.DataRange.Start.Format(model.DateLayout))
	assert.Equal(t, "2022-03-10", s.DataRange.End.Format(model.DateLayout))
	assert.Equal(t, clk.Now(), s.LastUpdated)
	assert.Same(t, s, refreshed)

	saved := st.entries["BTC:daily"]
	require.NotNil(t, saved)
	assert.Len(t, saved.Series, 7, "persisted before the spot top-up")
}

func TestAggregator_CurrentYearFailureKeepsFileEntries(t *testing.T) {
	dir := yearfile.NewDir(t.TempDir())
	writeYears(t, dir, map[int]model.PriceSeries{2022: {pt("2022-02-01", 400)}})

	agg, err := New(Config{
		Symbol:  "BTC",
		Years:   dir,
		Current: &fakeCurrent{err: errors.New("providers down")},
		Clock:   clock.NewManual(time.Date(2022, 3, 10, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.NoError(t, agg.Init(context.Background()))
	assert.Equal(t, map[string]float64{"2022-02-01": 400}, byDate(agg.Series().Daily))
}

func TestAggregator_FallsBackToPersisted(t *testing.T) {
	st := newMemStore()
	st.entries["BTC:daily"] = &store.Entry{Key: "BTC:daily", Series: model.PriceSeries{pt("2021-01-01", 29000), pt("2021-01-02", 29500)}}

	agg, err := New(Config{
		Symbol:     "BTC",
		Milestones: DefaultMilestones,
		BulkFile:   filepath.Join(t.TempDir(), "missing.csv"),
		Years:      yearfile.NewDir(filepath.Join(t.TempDir(), "empty")),
		Current:    &fakeCurrent{err: errors.New("down")},
		Spot:       &fakeSpot{err: errors.New("down")},
		Store:      st,
		Clock:      clock.NewManual(time.Date(2022, 3, 10, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	require.NoError(t, agg.Init(context.Background()))
	assert.Equal(t, map[string]float64{"2021-01-01": 29000, "2021-01-02": 29500}, byDate(agg.Series().Daily))
}

func TestAggregator_NoDataAnywhere(t *testing.T) {
	agg, err := New(Config{Symbol: "XYZ", Clock: clock.NewManual(time.Date(2022, 3, 10, 0, 0, 0, 0, time.UTC))})
	require.NoError(t, err)
	require.NoError(t, agg.Init(context.Background()))
	s := agg.Series()
	assert.True(t, s.Empty())
	assert.Empty(t, s.Hourly)
	assert.True(t, s.DataRange.Start.IsZero())
}

func TestAggregator_Interpolation(t *testing.T) {
	dir := yearfile.NewDir(t.TempDir())
	writeYears(t, dir, map[int]model.PriceSeries{2021: {pt("2021-03-01", 100), pt("2021-03-02", 124), pt("2021-03-03", 148)}})

	agg, err := New(Config{
		Symbol:       "BTC",
		Years:        dir,
		Clock:        clock.NewManual(time.Date(2021, 3, 3, 0, 0, 0, 0, time.UTC)),
		HourlyDays:   0,
		Minute15Days: 1,
	})
	require.NoError(t, err)
	require.NoError(t, agg.Init(context.Background()))
	s := agg.Series()

	require.Len(t, s.Hourly, 2*24+1)
	assert.InDelta(t, 101.0, s.Hourly[1].Price, 1e-9)
	assert.Equal(t, "2021-03-02", s.Hourly[24].Date)

	require.Len(t, s.Minute15, 96+1)
	assert.Equal(t, "2021-03-02", s.Minute15[0].Date)
	for _, p := range s.Minute15 {
		assert.Greater(t, p.Price, 0.0)
	}
}

func TestAggregator_RefreshStalenessAndDispose(t *testing.T) {
	clk := clock.NewManual(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	spot := &fakeSpot{price: 27000}
	agg, err := New(Config{Symbol: "BTC", Spot: spot, Clock: clk, RefreshInterval: time.Hour})
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, agg.Stale())
	require.NoError(t, agg.Init(ctx))
	assert.False(t, agg.Stale())

	ok, err := agg.Refresh(ctx, false)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = agg.Refresh(ctx, true)
	require.NoError(t, err)
	assert.True(t, ok)

	clk.Advance(time.Hour)
	assert.True(t, agg.Stale())
	ok, err = agg.Refresh(ctx, false)
	require.NoError(t, err)
	assert.True(t, ok)

	before := agg.Series()
	agg.Dispose()
	_, err = agg.Refresh(ctx, true)
	assert.ErrorIs(t, err, ErrDisposed)
	assert.Same(t, before, agg.Series())
}

func TestNew_RequiresSymbol(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

type rangeFetcher struct{ data model.PriceSeries }

func (r rangeFetcher) FetchRange(_ context.Context, _ string, start, end time.Time) (model.PriceSeries, error) {
	return r.data.Between(start, end), nil
}

func TestCachedCurrentYear_FileWins(t *testing.T) {
	dir := yearfile.NewDir(t.TempDir())
	writeYears(t, dir, map[int]model.PriceSeries{2024: {pt("2024-01-01", 0), pt("2024-01-02", 45500)}})
	cache := seriescache.New(nil, rangeFetcher{data: model.PriceSeries{
		pt("2023-12-31", 42000), pt("2024-01-01", 44000), pt("2024-01-02", 45000), pt("2024-01-03", 46000),
	}}, nil)

	src := &CachedCurrentYear{Symbol: "BTC", Cache: cache, Years: dir}
	got, err := src.CurrentYear(context.Background(), 2024, time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2024-01-01": 44000, "2024-01-02": 45500, "2024-01-03": 46000}, byDate(got))
}

func TestCachedCurrentYear_MissingFileUsesFetched(t *testing.T) {
	dir := yearfile.NewDir(t.TempDir())
	cache := seriescache.New(nil, rangeFetcher{data: model.PriceSeries{
		pt("2024-01-01", 44000), pt("2024-01-02", 45000),
	}}, nil)

	src := &CachedCurrentYear{Symbol: "BTC", Cache: cache, Years: dir}
	got, err := src.CurrentYear(context.Background(), 2024, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2024-01-01": 44000, "2024-01-02": 45000}, byDate(got))
	assert.False(t, dir.Exists(2024))
}

func TestDefaultMilestones_Sorted(t *testing.T) {
	for i := 1; i < len(DefaultMilestones); i++ {
		assert.True(t, DefaultMilestones[i-1].Time.Before(DefaultMilestones[i].Time))
	}
	first, _ := DefaultMilestones.First()
	last, _ := DefaultMilestones.Last()
	assert.Equal(t, "2010-07-17", first.Date)
	assert.Equal(t, "2013-01-01", last.Date)
}
