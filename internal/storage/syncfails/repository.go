package syncfails

import (
	"context"
	"time"
)

// Record is one failed sync batch, kept so a later run can replay it.
type Record struct {
	Id        uint64
	StartTime *time.Time
	Entity    string
	Payload   string
	Error     string
}

type Repository interface {
	Save(ctx context.Context, startTime *time.Time, entity, payload string, err error) error

	GetFails(ctx context.Context, notAfter *time.Time) ([]*Record, error)
	DeleteById(ctx context.Context, id uint64) error
}
