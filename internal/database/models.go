package database

import (
	"database/sql"
	"time"
)

type Room struct {
	Id         int
	ExternalId string
	CreatorId  int
	ReceiverId int
	Kind       string
	Status     string
	PairKey    sql.NullString
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  sql.NullTime
}

type Message struct {
	Id        int
	RoomId    int
	SenderId  int
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Account struct {
	Id           int
	EmailAddress string
	Username     string
	FirstName    string
	LastName     string
	Avatar       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type AccountSummary struct {
	Id        int
	FirstName string
	LastName  string
	Avatar    string
}

type CreateAccountParams struct {
	EmailAddress string
	Username     string
	FirstName    string
	LastName     string
	Avatar       string
	PasswordHash string
}

type CreateRoomParams struct {
	ExternalId string
	CreatorId  int
	ReceiverId int
	Kind       string
	Status     string
	// PairKey is the normalized "{min}:{max}" user pair for direct rooms,
	// empty for group rooms.
	PairKey string
}

type CreateMessageParams struct {
	RoomId   int
	SenderId int
	Content  string
}
