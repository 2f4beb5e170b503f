package ports

import (
	"time"

	"itmScreener/internal/domain"
)

// Presenter renders pipeline progress for a human operator.
type Presenter interface {
	Header(symbol string, now time.Time)
	Snapshot(symbol string, snapshot domain.IndicatorSnapshot)
	Signal(symbol string, signal domain.Signal)
	Expiration(label string)
	Ranking(ranking *domain.Ranking)
	Notice(level NoticeLevel, msg string)
}

// NoticeLevel grades operator-facing messages.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeWarn
	NoticeError
)
