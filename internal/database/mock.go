package database

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockRepository) GetAccountSummary(accountId int) (AccountSummary, error) {
	args := m.Called(accountId)
	return args.Get(0).(AccountSummary), args.Error(1)
}
func (m *MockRepository) IsGroupMember(accountId, groupId int) (bool, error) {
	args := m.Called(accountId, groupId)
	return args.Bool(0), args.Error(1)
}
func (m *MockRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) GetRoomByExternalId(externalId string) (Room, error) {
	args := m.Called(externalId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) GetDirectRoom(pairKey string) (Room, error) {
	args := m.Called(pairKey)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) GetGroupRoom(groupId int) (Room, error) {
	args := m.Called(groupId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockRepository) TouchRoom(roomId int, at time.Time) error {
	args := m.Called(roomId, at)
	return args.Error(0)
}
func (m *MockRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	args := m.Called(params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) GetMessagesPage(roomId, limit, offset int) ([]Message, error) {
	args := m.Called(roomId, limit, offset)
	return args.Get(0).([]Message), args.Error(1)
}
func (m *MockRepository) CountMessages(roomId int) (int, error) {
	args := m.Called(roomId)
	return args.Int(0), args.Error(1)
}
