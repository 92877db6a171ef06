package models

// Interval is one five-minute price observation for a market region.
// (settlement_ts, regionid) is the unique primary key; rows are append-only
// and never updated.
type Interval struct {
	SettlementTS            int64    `json:"settlement_ts"`
	RegionID                string   `json:"regionid"`
	Region                  *string  `json:"region"`
	RRP                     *float64 `json:"rrp"`
	TotalDemand             *float64 `json:"totaldemand"`
	PeriodType              *string  `json:"periodtype"`
	NetInterchange          *float64 `json:"netinterchange"`
	ScheduledGeneration     *float64 `json:"scheduledgeneration"`
	SemiScheduledGeneration *float64 `json:"semischeduledgeneration"`
	APCFlag                 *float64 `json:"apcflag"`
}

// IntervalKey identifies an interval row.
type IntervalKey struct {
	SettlementTS int64
	RegionID     string
}

// Key returns the primary key of the interval.
func (i *Interval) Key() IntervalKey {
	return IntervalKey{SettlementTS: i.SettlementTS, RegionID: i.RegionID}
}

// SyncSummary reports one ingestion cycle.
type SyncSummary struct {
	Parsed   int `json:"parsed"`
	Inserted int `json:"inserted"`
}
