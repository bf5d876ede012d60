package realtime

import (
	"context"
	"errors"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/port"

	"go.uber.org/zap"
)

// Fanout publishes every event to the local hub first and then to each
// remote. A failing remote never keeps the event from local readers.
type Fanout struct {
	local   port.EventPublisher
	remotes []port.EventPublisher
	logger  *zap.Logger
}

// NewFanout builds a publisher over local and remotes.
func NewFanout(logger *zap.Logger, local port.EventPublisher, remotes ...port.EventPublisher) *Fanout {
	return &Fanout{local: local, remotes: remotes, logger: logger}
}

// Publish implements port.EventPublisher. The returned error joins the
// failures of every publisher.
func (f *Fanout) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	var errs []error
	if err := f.local.Publish(ctx, ev); err != nil {
		errs = append(errs, err)
	}
	for _, r := range f.remotes {
		if err := r.Publish(ctx, ev); err != nil {
			f.logger.Warn("realtime: remote publish failed",
				zap.Strings("events", ev.Events),
				zap.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
