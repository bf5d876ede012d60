package handler

import (
	"net/http"

	"github.com/boddenberg/financio-bfa-go/internal/domain"
	"github.com/boddenberg/financio-bfa-go/internal/port"

	"go.uber.org/zap"
)

// ingestEventHandler accepts a realtime change event forwarded by the BaaS
// and hands it to the invalidation hub. Callers may only announce changes
// to their own documents.
func ingestEventHandler(events port.EventPublisher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/events")
		defer span.End()

		var ev domain.ChangeEvent
		if err := decodeJSON(r, &ev); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if len(ev.Events) == 0 {
			handleServiceError(w, &domain.ErrValidation{Field: "events", Message: "required"}, logger)
			return
		}
		if owner := ev.OwnerID(); owner != UserIDFromContext(ctx) {
			handleServiceError(w, &domain.ErrForbidden{Action: "publish events for another owner"}, logger)
			return
		}

		if err := events.Publish(ctx, ev); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	}
}
