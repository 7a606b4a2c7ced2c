package messages

import (
	"fmt"
	"log"

	"github.com/roamhq/roamchat/internal/database"
	"github.com/roamhq/roamchat/internal/types"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Store persists messages and serves paged history. Messages are
// immutable once appended.
type Store struct {
	log *log.Logger
	db  database.Repository
}

func NewStore(logger *log.Logger, db database.Repository) *Store {
	return &Store{log: logger, db: db}
}

// Append persists a message in the given room. Touching the parent
// room's updated_at and joining the sender summary are non-critical
// side effects: failures there are logged and swallowed.
func (s *Store) Append(room types.Room, senderId int, content string) (types.Message, error) {
	dbMsg, err := s.db.CreateMessage(database.CreateMessageParams{
		RoomId:   room.Id,
		SenderId: senderId,
		Content:  content,
	})
	if err != nil {
		return types.Message{}, fmt.Errorf("create message: %w", err)
	}

	if err := s.db.TouchRoom(room.Id, dbMsg.CreatedAt); err != nil {
		s.log.Printf("touch room %q: %v", room.ExternalId, err)
	}

	msg := toMessage(dbMsg, room.ExternalId)
	msg.Sender = s.senderSummary(senderId)

	return msg, nil
}

// Page returns one page of history, newest first.
func (s *Store) Page(room types.Room, page, limit int) (types.MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total, err := s.db.CountMessages(room.Id)
	if err != nil {
		return types.MessagePage{}, fmt.Errorf("count messages: %w", err)
	}

	dbMsgs, err := s.db.GetMessagesPage(room.Id, limit, (page-1)*limit)
	if err != nil {
		return types.MessagePage{}, fmt.Errorf("get messages: %w", err)
	}

	summaries := make(map[int]*types.SenderSummary)
	items := make([]types.Message, 0, len(dbMsgs))
	for _, dbMsg := range dbMsgs {
		msg := toMessage(dbMsg, room.ExternalId)

		summary, ok := summaries[dbMsg.SenderId]
		if !ok {
			summary = s.senderSummary(dbMsg.SenderId)
			summaries[dbMsg.SenderId] = summary
		}
		msg.Sender = summary

		items = append(items, msg)
	}

	return types.MessagePage{
		Data: items,
		Pagination: types.Pagination{
			Total: total,
			Page:  page,
			Limit: limit,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// senderSummary fetches the denormalized sender projection. A failed
// lookup yields nil and never fails the caller.
func (s *Store) senderSummary(accountId int) *types.SenderSummary {
	summary, err := s.db.GetAccountSummary(accountId)
	if err != nil {
		s.log.Printf("sender summary for account %d: %v", accountId, err)
		return nil
	}

	return &types.SenderSummary{
		Id:        summary.Id,
		FirstName: summary.FirstName,
		LastName:  summary.LastName,
		Avatar:    summary.Avatar,
	}
}

func toMessage(msg database.Message, roomExternalId string) types.Message {
	return types.Message{
		Id:        msg.Id,
		RoomId:    roomExternalId,
		SenderId:  msg.SenderId,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
		UpdatedAt: msg.UpdatedAt,
	}
}
