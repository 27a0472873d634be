package realtime

import (
	"context"
	"errors"

	"github.com/ukydev/service-center/internal/models"
)

// Server to client event names.
const (
	EventProgressUpdate     = "progressUpdate"
	EventSystemNotification = "systemNotification"
)

// UserRoom is the personal room of a user. It is the only addressing
// mechanism for pushes.
func UserRoom(userID string) string {
	return "user_" + userID
}

// Frame is one websocket message.
type Frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// ProgressUpdatePayload is the body of a progressUpdate event.
type ProgressUpdatePayload struct {
	ProgressLog  *models.ProgressLog  `json:"progressLog"`
	Notification *models.Notification `json:"notification"`
}

// Emitter delivers an event to everyone in a room.
type Emitter interface {
	Emit(ctx context.Context, room, event string, payload interface{}) error
}

// Fanout emits to several emitters, attempting all of them.
type Fanout []Emitter

// Emit implements Emitter.
func (f Fanout) Emit(ctx context.Context, room, event string, payload interface{}) error {
	var errs []error
	for _, e := range f {
		if err := e.Emit(ctx, room, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
