package server

import (
	"net/http"
	"time"

	"github.com/askroom/go-askroom/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is a message received from a websocket client. Exactly one
// of the operation fields is set.
type ClientMessage struct {
	BaseMessage
	Join      *Join      `json:"join,omitempty"`
	Leave     *Leave     `json:"leave,omitempty"`
	Ask       *Ask       `json:"ask,omitempty"`
	Remove    *Remove    `json:"remove,omitempty"`
	Answer    *Answer    `json:"answer,omitempty"`
	Highlight *Highlight `json:"highlight,omitempty"`
	client    *Client
}

type Join struct {
	RoomCode string `json:"room_code"`
}

type Leave struct {
	RoomCode string `json:"room_code"`
}

type Ask struct {
	RoomCode string `json:"room_code"`
	Content  string `json:"content"`
}

type Remove struct {
	RoomCode   string `json:"room_code"`
	QuestionId string `json:"question_id"`
}

type Answer struct {
	RoomCode   string `json:"room_code"`
	QuestionId string `json:"question_id"`
}

type Highlight struct {
	RoomCode   string `json:"room_code"`
	QuestionId string `json:"question_id"`
}

type ServerMessage struct {
	BaseMessage
	Response     *Response           `json:"response,omitempty"`
	Snapshot     *types.RoomSnapshot `json:"snapshot,omitempty"`
	Notification *Notification       `json:"notification,omitempty"`
	SkipClient   *Client             `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Notification struct {
	RoomEnded *RoomEnded `json:"room_ended,omitempty"`
}

type RoomEnded struct {
	RoomCode string     `json:"room_code"`
	EndedAt  *time.Time `json:"ended_at,omitempty"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func errResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrRoomNotFound(id int) *ServerMessage {
	return errResponse(id, http.StatusNotFound, "room not found")
}

func ErrQuestionNotFound(id int) *ServerMessage {
	return errResponse(id, http.StatusNotFound, "question not found")
}

func ErrRoomEnded(id int) *ServerMessage {
	return errResponse(id, http.StatusGone, "room already ended")
}

func ErrSignInRequired(id int) *ServerMessage {
	return errResponse(id, http.StatusUnauthorized, "sign in required")
}

func ErrNotRoomOwner(id int) *ServerMessage {
	return errResponse(id, http.StatusForbidden, "not the room owner")
}

func ErrTooManyRequests(id int) *ServerMessage {
	return errResponse(id, http.StatusTooManyRequests, "too many questions, slow down")
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := errResponse(0, http.StatusBadRequest, "invalid message format")
	if id > 0 {
		msg.Id = id
	}
	return msg
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
