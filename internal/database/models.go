package database

import (
	"database/sql"
	"time"
)

type Account struct {
	Id           int
	Name         string
	EmailAddress string
	PasswordHash string
	AvatarUrl    string
	GoogleId     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Room struct {
	Id        int
	Code      string
	Title     string
	OwnerId   int
	EndedAt   sql.NullTime
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Question struct {
	Id            string
	RoomId        int
	Content       string
	AuthorName    string
	AuthorAvatar  string
	IsAnswered    bool
	IsHighlighted bool
	CreatedAt     time.Time
}

type CreateAccountParams struct {
	Name         string
	EmailAddress string
	PasswordHash string
	AvatarUrl    string
}

type UpsertGoogleAccountParams struct {
	GoogleId     string
	Name         string
	EmailAddress string
	AvatarUrl    string
}

type CreateRoomParams struct {
	Title   string `json:"title"`
	OwnerId int    `json:"-"`
	Code    string `json:"code"`
}

type CreateQuestionParams struct {
	Id           string
	RoomId       int
	Content      string
	AuthorName   string
	AuthorAvatar string
}
