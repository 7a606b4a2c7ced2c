package database

import "time"

type Repository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	GetAccountSummary(accountId int) (AccountSummary, error)
	IsGroupMember(accountId, groupId int) (bool, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByExternalId(externalId string) (Room, error)
	GetDirectRoom(pairKey string) (Room, error)
	GetGroupRoom(groupId int) (Room, error)
	TouchRoom(roomId int, at time.Time) error
	CreateMessage(params CreateMessageParams) (Message, error)
	GetMessagesPage(roomId, limit, offset int) ([]Message, error)
	CountMessages(roomId int) (int, error)
}
