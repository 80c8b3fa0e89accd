package database

import (
	"github.com/stretchr/testify/mock"
)

type MockAskRoomRepository struct {
	mock.Mock
}

func (m *MockAskRoomRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockAskRoomRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockAskRoomRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockAskRoomRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockAskRoomRepository) UpsertGoogleAccount(params UpsertGoogleAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockAskRoomRepository) CreateRoom(params CreateRoomParams) (Room, error) {
	args := m.Called(params)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockAskRoomRepository) GetRoomByCode(code string) (Room, error) {
	args := m.Called(code)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockAskRoomRepository) EndRoom(roomId int) (Room, error) {
	args := m.Called(roomId)
	return args.Get(0).(Room), args.Error(1)
}
func (m *MockAskRoomRepository) CreateQuestion(params CreateQuestionParams) (Question, error) {
	args := m.Called(params)
	return args.Get(0).(Question), args.Error(1)
}
func (m *MockAskRoomRepository) DeleteQuestion(questionId string) error {
	args := m.Called(questionId)
	return args.Error(0)
}
func (m *MockAskRoomRepository) MarkQuestionAnswered(questionId string) error {
	args := m.Called(questionId)
	return args.Error(0)
}
func (m *MockAskRoomRepository) ToggleQuestionHighlight(questionId string) (bool, error) {
	args := m.Called(questionId)
	return args.Bool(0), args.Error(1)
}
func (m *MockAskRoomRepository) GetQuestions(roomId int) (map[string]Question, error) {
	args := m.Called(roomId)
	if questions, ok := args.Get(0).(map[string]Question); ok {
		return questions, args.Error(1)
	}
	return nil, args.Error(1)
}
