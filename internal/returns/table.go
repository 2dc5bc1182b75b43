package returns

import "catalyst-trader/internal/models"

// intervalStats is one row of the historical tier x interval table.
type intervalStats struct {
	MeanPct    float64
	MedianPct  float64
	StdDevPct  float64
	SampleSize int
}

// Intervals is the canonical furthest-to-nearest ordering of pre-event
// look-back intervals.
var Intervals = []struct {
	Tag  models.ReturnInterval
	Days int
}{
	{models.Interval60D, 60},
	{models.Interval45D, 45},
	{models.Interval30D, 30},
	{models.Interval14D, 14},
	{models.Interval7D, 7},
	{models.Interval1D, 1},
}

// historicalTable holds empirical pre-event return statistics per tier and
// interval. The numbers are calibration data, not verified financial truths;
// tune them here, not in code.
var historicalTable = map[models.RiskTier]map[models.ReturnInterval]intervalStats{
	models.TierLow: {
		models.Interval60D: {MeanPct: 4.2, MedianPct: 3.1, StdDevPct: 8.5, SampleSize: 184},
		models.Interval45D: {MeanPct: 5.0, MedianPct: 3.8, StdDevPct: 9.2, SampleSize: 184},
		models.Interval30D: {MeanPct: 6.1, MedianPct: 4.6, StdDevPct: 10.4, SampleSize: 184},
		models.Interval14D: {MeanPct: 7.4, MedianPct: 5.5, StdDevPct: 12.8, SampleSize: 184},
		models.Interval7D:  {MeanPct: 8.2, MedianPct: 6.0, StdDevPct: 15.1, SampleSize: 184},
		models.Interval1D:  {MeanPct: 9.0, MedianPct: 6.4, StdDevPct: 19.7, SampleSize: 184},
	},
	models.TierModerate: {
		models.Interval60D: {MeanPct: 5.6, MedianPct: 3.9, StdDevPct: 11.3, SampleSize: 142},
		models.Interval45D: {MeanPct: 6.8, MedianPct: 4.7, StdDevPct: 12.6, SampleSize: 142},
		models.Interval30D: {MeanPct: 8.3, MedianPct: 5.8, StdDevPct: 14.9, SampleSize: 142},
		models.Interval14D: {MeanPct: 10.1, MedianPct: 7.0, StdDevPct: 18.4, SampleSize: 142},
		models.Interval7D:  {MeanPct: 11.6, MedianPct: 7.9, StdDevPct: 22.0, SampleSize: 142},
		models.Interval1D:  {MeanPct: 12.8, MedianPct: 8.5, StdDevPct: 28.6, SampleSize: 142},
	},
	models.TierElevated: {
		models.Interval60D: {MeanPct: 7.1, MedianPct: 4.4, StdDevPct: 15.8, SampleSize: 97},
		models.Interval45D: {MeanPct: 8.9, MedianPct: 5.5, StdDevPct: 17.9, SampleSize: 97},
		models.Interval30D: {MeanPct: 11.0, MedianPct: 6.9, StdDevPct: 21.2, SampleSize: 97},
		models.Interval14D: {MeanPct: 13.7, MedianPct: 8.4, StdDevPct: 26.5, SampleSize: 97},
		models.Interval7D:  {MeanPct: 15.9, MedianPct: 9.6, StdDevPct: 32.1, SampleSize: 97},
		models.Interval1D:  {MeanPct: 17.8, MedianPct: 10.5, StdDevPct: 41.3, SampleSize: 97},
	},
	models.TierSpeculative: {
		models.Interval60D: {MeanPct: 9.4, MedianPct: 4.9, StdDevPct: 22.7, SampleSize: 61},
		models.Interval45D: {MeanPct: 11.8, MedianPct: 6.1, StdDevPct: 26.0, SampleSize: 61},
		models.Interval30D: {MeanPct: 14.6, MedianPct: 7.7, StdDevPct: 31.1, SampleSize: 61},
		models.Interval14D: {MeanPct: 18.2, MedianPct: 9.5, StdDevPct: 39.4, SampleSize: 61},
		models.Interval7D:  {MeanPct: 21.3, MedianPct: 11.0, StdDevPct: 48.2, SampleSize: 61},
		models.Interval1D:  {MeanPct: 24.1, MedianPct: 12.1, StdDevPct: 62.5, SampleSize: 61},
	},
}
