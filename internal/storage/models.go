package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// LastRequestRecord is the durable per-user dispense record for one network.
type LastRequestRecord struct {
	UserID          string
	LastRequestedAt int64
	LastAddress     string
}

// RequestedAt returns the record timestamp as wall-clock time.
func (r LastRequestRecord) RequestedAt() time.Time {
	return time.Unix(r.LastRequestedAt, 0).UTC()
}

// ParticipationSample is a persisted per-epoch participation observation.
type ParticipationSample struct {
	Network      string
	Epoch        uint64
	CurrentRate  decimal.Decimal
	PreviousRate decimal.Decimal
	TakenAt      time.Time
}
