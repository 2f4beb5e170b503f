package ports

import (
	"time"

	"itmScreener/internal/domain"
)

// Metrics records pipeline observations.
type Metrics interface {
	ObserveRun(symbol string, outcome domain.RunOutcome, duration time.Duration)
	ObserveStage(stage string, duration time.Duration)
	ObserveSignal(symbol string, kind domain.SignalKind)
	ObserveCandidates(symbol string, count int)
	ObserveNotification(transport, result string)
}
