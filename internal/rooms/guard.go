package rooms

import (
	"fmt"
	"log"

	"github.com/roamhq/roamchat/internal/types"
)

// GroupDirectory is the external membership collaborator consulted for
// group rooms.
type GroupDirectory interface {
	IsGroupMember(accountId, groupId int) (bool, error)
}

// Guard decides whether a requester may read or write a room. It is
// applied before joining a channel, sending, fetching history and
// marking read.
type Guard struct {
	log    *log.Logger
	groups GroupDirectory
}

func NewGuard(logger *log.Logger, groups GroupDirectory) *Guard {
	return &Guard{log: logger, groups: groups}
}

// CanAccess returns ErrUnauthorized when the requester may not access
// the room. Direct rooms admit only the two participants; group rooms
// admit current members of the owning group.
func (g *Guard) CanAccess(requesterId int, room types.Room) error {
	switch room.Kind {
	case types.RoomKindDirect:
		if requesterId != room.CreatorId && requesterId != room.ReceiverId {
			return ErrUnauthorized
		}
		return nil
	case types.RoomKindGroup:
		ok, err := g.groups.IsGroupMember(requesterId, room.ReceiverId)
		if err != nil {
			return fmt.Errorf("group membership lookup: %w", err)
		}
		if !ok {
			return ErrUnauthorized
		}
		return nil
	default:
		return fmt.Errorf("unknown room kind %q", room.Kind)
	}
}
