package model

// Job is one alert waiting for enrichment. Reply has room for exactly one
// Result so a worker never blocks on a caller that stopped waiting.
type Job struct {
	Alert RawAlert
	Reply chan Result
}

// NewJob returns a Job with a buffered reply slot.
func NewJob(alert RawAlert) Job { //nolint:gocritic // RawAlert copied into the job
	return Job{Alert: alert, Reply: make(chan Result, 1)}
}

// Result is what a worker reports after the alert is stored.
type Result struct {
	Alert EnrichedAlert
	// Count is the store size right after this alert was appended.
	Count int
}
