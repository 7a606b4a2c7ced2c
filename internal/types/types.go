package types

import (
	"time"
)

type RoomKind string

const (
	RoomKindDirect RoomKind = "direct"
	RoomKindGroup  RoomKind = "group"
)

type RoomStatus string

const (
	RoomStatusPending  RoomStatus = "pending"
	RoomStatusAccepted RoomStatus = "accepted"
	RoomStatusDeleted  RoomStatus = "deleted"
)

// Room is one conversation channel. The external id is the canonical
// identifier clients see and the key real-time channels are registered
// under; the numeric id stays internal to the store.
type Room struct {
	Id         int        `json:"-"`
	ExternalId string     `json:"id"`
	CreatorId  int        `json:"creator_id"`
	ReceiverId int        `json:"receiver_id"`
	Kind       RoomKind   `json:"kind"`
	Status     RoomStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Avatar       string    `json:"avatar,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// SenderSummary is a best-effort projection of sender profile fields
// joined onto a message at read time. A missing summary never
// invalidates the message it is attached to.
type SenderSummary struct {
	Id        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Avatar    string `json:"avatar,omitempty"`
}

type Message struct {
	Id        int            `json:"id"`
	RoomId    string         `json:"room_id"`
	SenderId  int            `json:"sender_id"`
	Content   string         `json:"content"`
	Sender    *SenderSummary `json:"sender,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

type MessagePage struct {
	Data       []Message  `json:"data"`
	Pagination Pagination `json:"pagination"`
}
