package sendalerts

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
)

// Submission outcomes.
const (
	outcomeSuccess      = "success"
	outcomeBackpressure = "backpressure"
	outcomeFailed       = "failed"
)
