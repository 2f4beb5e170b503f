package domain

// VWAPMode selects how VWAP is accumulated.
type VWAPMode string

const (
	VWAPCumulative VWAPMode = "cumulative"
	VWAPRolling    VWAPMode = "rolling"
)

// SignalKind classifies the outcome of the buy rule.
type SignalKind string

const (
	SignalNone             SignalKind = "none"
	SignalMomentumBreakout SignalKind = "momentum_breakout"
	SignalReversalBounce   SignalKind = "reversal_bounce"
)

// RunOutcome describes how a screener run ended.
type RunOutcome string

const (
	OutcomeCompleted        RunOutcome = "completed"
	OutcomeMarketClosed     RunOutcome = "market_closed"
	OutcomeInsufficientData RunOutcome = "insufficient_data"
	OutcomeNoExpirations    RunOutcome = "no_expirations"
	OutcomeNoCandidates     RunOutcome = "no_candidates"
	OutcomeFailed           RunOutcome = "failed"
)

// NotifyMode selects what, if anything, is delivered when an alert fires.
type NotifyMode string

const (
	NotifyNone  NotifyMode = "none"
	NotifyText  NotifyMode = "text"
	NotifyImage NotifyMode = "image"
)
