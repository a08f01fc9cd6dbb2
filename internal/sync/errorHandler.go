package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"maktaba/internal/storage/syncfails"
)

type ErrorHandler interface {
	Handle(ctx context.Context, entity, payload string, err error) error
}

// StoringHandler records failed batches so a later run can replay them.
type StoringHandler struct {
	StartTime *time.Time
	Logger    *slog.Logger
	Fails     syncfails.Repository
}

func (s *StoringHandler) Handle(ctx context.Context, entity, payload string, cause error) error {
	err := s.Fails.Save(ctx, s.StartTime, entity, payload, cause)
	if err != nil {
		err = fmt.Errorf("saving fail: %w", err)
	}

	return err
}
