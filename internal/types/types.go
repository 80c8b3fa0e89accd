package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Name         string    `json:"name"`
	EmailAddress string    `json:"email_address,omitempty"`
	AvatarUrl    string    `json:"avatar_url"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Room struct {
	Id        int        `json:"id"`
	Code      string     `json:"code"`
	Title     string     `json:"title"`
	OwnerId   int        `json:"owner_id,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// Author is the question author as captured at creation time. It is a
// denormalized copy and is never re-synced with the account afterwards.
type Author struct {
	Name      string `json:"name"`
	AvatarUrl string `json:"avatar_url"`
}

type Question struct {
	Id            string    `json:"id"`
	Content       string    `json:"content"`
	Author        Author    `json:"author"`
	IsAnswered    bool      `json:"is_answered"`
	IsHighlighted bool      `json:"is_highlighted"`
	CreatedAt     time.Time `json:"created_at"`
}

// RoomSnapshot is the full derived view of a room sent to subscribers on
// join and after every mutation.
type RoomSnapshot struct {
	Id        int        `json:"id"`
	Code      string     `json:"code"`
	Title     string     `json:"title"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Questions []Question `json:"questions"`
}
