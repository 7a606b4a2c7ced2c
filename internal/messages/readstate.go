package messages

import (
	"log"

	"github.com/roamhq/roamchat/internal/types"
)

// ReadTracker records read acknowledgments. Durable per-user read
// cursors are an extension point behind this interface.
type ReadTracker interface {
	MarkRead(accountId int, room types.Room) (bool, error)
}

// NoopReadTracker acknowledges reads without persisting a cursor.
// Read events still fan out to other channel subscribers, so clients
// can track read state themselves.
type NoopReadTracker struct {
	log *log.Logger
}

func NewNoopReadTracker(logger *log.Logger) *NoopReadTracker {
	return &NoopReadTracker{log: logger}
}

func (t *NoopReadTracker) MarkRead(accountId int, room types.Room) (bool, error) {
	t.log.Printf("mark read: account %d room %q", accountId, room.ExternalId)
	return true, nil
}
