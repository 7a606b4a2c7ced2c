package rooms

import (
	"errors"
	"fmt"
	"log"

	"github.com/teris-io/shortid"

	"github.com/roamhq/roamchat/internal/database"
	"github.com/roamhq/roamchat/internal/types"
)

// Resolver maps any reference form to one canonical room, creating it
// lazily. Creation is idempotent under concurrency: the store's unique
// indexes serialize the check-and-create, and a lost race is resolved
// by re-fetching the winning row.
type Resolver struct {
	log *log.Logger
	db  database.Repository
}

func NewResolver(logger *log.Logger, db database.Repository) *Resolver {
	return &Resolver{log: logger, db: db}
}

func (r *Resolver) Resolve(ref Ref) (types.Room, error) {
	switch ref.kind {
	case RefCanonical:
		return r.ResolveById(ref.canonicalId)
	case RefDirectPair:
		return r.ResolveOrCreateDirect(ref.userA, ref.userB)
	case RefGroup:
		return r.ResolveOrCreateGroup(ref.groupId)
	default:
		return types.Room{}, fmt.Errorf("%w: unresolved reference", ErrInvalidRef)
	}
}

func (r *Resolver) ResolveById(externalId string) (types.Room, error) {
	room, err := r.db.GetRoomByExternalId(externalId)
	if errors.Is(err, database.ErrNotFound) {
		return types.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return types.Room{}, fmt.Errorf("get room %q: %w", externalId, err)
	}

	return toRoom(room), nil
}

func (r *Resolver) ResolveOrCreateDirect(userA, userB int) (types.Room, error) {
	pairKey := PairKey(userA, userB)

	room, err := r.db.GetDirectRoom(pairKey)
	if err == nil {
		return toRoom(room), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return types.Room{}, fmt.Errorf("get direct room: %w", err)
	}

	externalId, err := shortid.Generate()
	if err != nil {
		return types.Room{}, fmt.Errorf("generate room id: %w", err)
	}

	room, err = r.db.CreateRoom(database.CreateRoomParams{
		ExternalId: externalId,
		CreatorId:  userA,
		ReceiverId: userB,
		Kind:       string(types.RoomKindDirect),
		Status:     string(types.RoomStatusAccepted),
		PairKey:    pairKey,
	})
	if errors.Is(err, database.ErrDuplicateRoom) {
		// lost the race, another caller created the room first
		r.log.Printf("direct room for pair %s already exists, re-fetching", pairKey)
		room, err = r.db.GetDirectRoom(pairKey)
	}
	if err != nil {
		return types.Room{}, fmt.Errorf("create direct room: %w", err)
	}

	return toRoom(room), nil
}

func (r *Resolver) ResolveOrCreateGroup(groupId int) (types.Room, error) {
	room, err := r.db.GetGroupRoom(groupId)
	if err == nil {
		return toRoom(room), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return types.Room{}, fmt.Errorf("get group room: %w", err)
	}

	externalId, err := shortid.Generate()
	if err != nil {
		return types.Room{}, fmt.Errorf("generate room id: %w", err)
	}

	room, err = r.db.CreateRoom(database.CreateRoomParams{
		ExternalId: externalId,
		CreatorId:  groupId,
		ReceiverId: groupId,
		Kind:       string(types.RoomKindGroup),
		Status:     string(types.RoomStatusAccepted),
	})
	if errors.Is(err, database.ErrDuplicateRoom) {
		r.log.Printf("group room for group %d already exists, re-fetching", groupId)
		room, err = r.db.GetGroupRoom(groupId)
	}
	if err != nil {
		return types.Room{}, fmt.Errorf("create group room: %w", err)
	}

	return toRoom(room), nil
}

func toRoom(room database.Room) types.Room {
	r := types.Room{
		Id:         room.Id,
		ExternalId: room.ExternalId,
		CreatorId:  room.CreatorId,
		ReceiverId: room.ReceiverId,
		Kind:       types.RoomKind(room.Kind),
		Status:     types.RoomStatus(room.Status),
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}

	if room.DeletedAt.Valid {
		deletedAt := room.DeletedAt.Time
		r.DeletedAt = &deletedAt
	}

	return r
}
