package ports

import (
	"context"
	"time"

	"itmScreener/internal/domain"
)

// Notifier delivers alert messages over a messaging transport.
type Notifier interface {
	// Name identifies the transport (e.g., "telegram").
	Name() string

	// SendText delivers a plain-text message.
	SendText(ctx context.Context, alert *domain.Alert) error

	// SendImage delivers the alert text together with a PNG image.
	SendImage(ctx context.Context, alert *domain.Alert, image []byte) error
}

// AlertCooldown suppresses repeated delivery of the same alert.
type AlertCooldown interface {
	// Acquire returns true if key was not delivered within ttl and marks it delivered.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release frees a slot claimed by Acquire whose alert was not delivered.
	Release(ctx context.Context, key string) error
}

// ChartRenderer renders a price chart with indicator overlays as PNG bytes.
type ChartRenderer interface {
	Render(ctx context.Context, symbol string, bars []*domain.Bar, series *domain.IndicatorSeries) ([]byte, error)
}

// SessionGate decides whether the screener should run at a given instant.
type SessionGate interface {
	IsOpen(t time.Time) bool
}
