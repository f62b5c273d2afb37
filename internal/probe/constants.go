package probe

// HTTP status code constants.
const (
	StatusOK              = 200
	StatusCreated         = 201
	StatusTooManyRequests = 429
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PercentageMultiplier = 100
	orderingSamples      = 5
)
