package core

// PeriodSummary is the read-only aggregate for one budget period.
// Remaining is always Allocated - Spent - Projected.
type PeriodSummary struct {
	PeriodID  int64
	Allocated Money
	Spent     Money
	Projected Money
	Remaining Money
}

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Amount     Money
}

// SeriesPoint is one day of the chart-ready cumulative series:
// Spent and Budget are prefix sums up to and including Date.
type SeriesPoint struct {
	Date   Date
	Spent  Money
	Budget Money
}
