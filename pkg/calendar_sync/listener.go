package calendar_sync

import (
	"errors"

	"github.com/adflow/erp-calendar/internal/event_bus"
	"github.com/adflow/erp-calendar/pkg/google"
	log "github.com/sirupsen/logrus"
)

// ListenForChanges runs a pull sync whenever Google reports a change on a watched calendar.
func (e *Engine) ListenForChanges(bus *event_bus.EventBus) (unsubscribe func()) {
	return event_bus.SubscribeTyped(bus, event_bus.GoogleCalendarChangedType,
		func(ev event_bus.EventT[event_bus.GoogleCalendarChanged]) error {
			result, err := e.Sync(ev.Context(), ev.Data.UserId, Pull)
			if errors.Is(err, google.ErrNotConnected) || errors.Is(err, google.ErrNotConfigured) {
				log.Debugf("Skipping notification sync for user %d: %v", ev.Data.UserId, err)
				return nil
			}
			if err != nil {
				return err
			}
			log.Debugf("Notification sync for user %d pulled %d and updated %d events",
				ev.Data.UserId, result.Pulled, result.Updated)
			return nil
		})
}
