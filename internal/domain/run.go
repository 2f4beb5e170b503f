package domain

import "time"

// RunRecord captures everything a single screener run observed.
type RunRecord struct {
	ID         string
	Symbol     string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    RunOutcome
	Signal     *Signal
	Expiration string
	Suggested  *RankedContract
	AlertSent  bool
	Ranked     []RankedContract
	Error      string
}
