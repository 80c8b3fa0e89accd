package database

type AskRoomRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)
	UpsertGoogleAccount(params UpsertGoogleAccountParams) (Account, error)
	CreateRoom(params CreateRoomParams) (Room, error)
	GetRoomByCode(code string) (Room, error)
	EndRoom(roomId int) (Room, error)
	CreateQuestion(params CreateQuestionParams) (Question, error)
	DeleteQuestion(questionId string) error
	MarkQuestionAnswered(questionId string) error
	ToggleQuestionHighlight(questionId string) (bool, error)
	GetQuestions(roomId int) (map[string]Question, error)
}
