package server

import (
	"database/sql"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/askroom/go-askroom/internal/database"
	"github.com/askroom/go-askroom/internal/types"
	"github.com/google/uuid"
)

// idleRoomTimeout is how long a room with no connected clients stays loaded.
const idleRoomTimeout = 30 * time.Second

type exitReq struct {
	ended bool
	done  chan struct{}
}

type Room struct {
	id            int
	code          string
	ownerId       int
	rs            *RoomServer
	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	clients       map[*Client]struct{}
	clientLock    sync.RWMutex
	log           *log.Logger
	// ended mirrors the stored ended_at; only touched by the room goroutine.
	ended bool
	// killTimer unloads the room once it has been idle for idleRoomTimeout
	killTimer *time.Timer
	exit      chan exitReq
}

func (r *Room) start() {
	r.log.Printf("starting room %q", r.code)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.clientMsgChan:
			switch {
			case msg.Ask != nil:
				r.handleAsk(msg)
			case msg.Remove != nil:
				r.handleRemove(msg)
			case msg.Answer != nil:
				r.handleAnswer(msg)
			case msg.Highlight != nil:
				r.handleHighlight(msg)
			}
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

// loadSnapshot re-derives the full room view from the store. Every change is
// answered with a complete recompute, never a delta.
func (r *Room) loadSnapshot() (types.RoomSnapshot, error) {
	dbRoom, err := r.rs.db.GetRoomByCode(r.code)
	if err != nil {
		return types.RoomSnapshot{}, err
	}

	questions, err := r.rs.db.GetQuestions(r.id)
	if err != nil {
		return types.RoomSnapshot{}, err
	}

	snap := BuildSnapshot(dbRoom, questions)
	r.ended = dbRoom.EndedAt.Valid

	return snap, nil
}

func (r *Room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client

	snap, err := r.loadSnapshot()
	if err != nil {
		r.log.Println("loadSnapshot:", err)
		c.queueMessage(ErrInternalError(join.Id))
		if len(r.clients) == 0 {
			r.killTimer.Reset(idleRoomTimeout)
		}
		return
	}

	r.addClient(c)

	// the join ack is the current snapshot
	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{
			Id:        join.Id,
			Timestamp: Now(),
		},
		Snapshot: &snap,
	})
}

func (r *Room) handleLeave(leaveMsg *ClientMessage) {
	client := leaveMsg.client
	r.removeClient(client)

	if leaveMsg.Id != 0 {
		client.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}
}

func (r *Room) handleAsk(msg *ClientMessage) {
	c := msg.client

	// author data comes from the session, so an anonymous viewer is
	// rejected before any store call
	if c.user == nil {
		c.queueMessage(ErrSignInRequired(msg.Id))
		return
	}

	if strings.TrimSpace(msg.Ask.Content) == "" {
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	if r.ended {
		c.queueMessage(ErrRoomEnded(msg.Id))
		return
	}

	if !c.askLimiter.Allow() {
		c.queueMessage(ErrTooManyRequests(msg.Id))
		return
	}

	_, err := r.rs.db.CreateQuestion(database.CreateQuestionParams{
		Id:           uuid.NewString(),
		RoomId:       r.id,
		Content:      msg.Ask.Content,
		AuthorName:   c.user.Name,
		AuthorAvatar: c.user.AvatarUrl,
	})
	if err != nil {
		r.log.Println("CreateQuestion:", err)
		c.queueMessage(ErrInternalError(msg.Id))
		return
	}

	r.rs.stats.Incr("QuestionsAsked")
	c.queueMessage(NoErrAccepted(msg.Id))
	r.broadcastSnapshot()
}

func (r *Room) handleRemove(msg *ClientMessage) {
	if !r.requireOwner(msg) {
		return
	}

	// deleting an unknown id is a no-op
	if err := r.rs.db.DeleteQuestion(msg.Remove.QuestionId); err != nil {
		r.log.Println("DeleteQuestion:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))
	r.broadcastSnapshot()
}

func (r *Room) handleAnswer(msg *ClientMessage) {
	if !r.requireOwner(msg) {
		return
	}

	if err := r.rs.db.MarkQuestionAnswered(msg.Answer.QuestionId); err != nil {
		r.log.Println("MarkQuestionAnswered:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))
	r.broadcastSnapshot()
}

func (r *Room) handleHighlight(msg *ClientMessage) {
	if !r.requireOwner(msg) {
		return
	}

	highlighted, err := r.rs.db.ToggleQuestionHighlight(msg.Highlight.QuestionId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			msg.client.queueMessage(ErrQuestionNotFound(msg.Id))
		} else {
			r.log.Println("ToggleQuestionHighlight:", err)
			msg.client.queueMessage(ErrInternalError(msg.Id))
		}
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, map[string]any{"is_highlighted": highlighted}))
	r.broadcastSnapshot()
}

// requireOwner enforces the admin capability check: delete, answer and
// highlight are only available to the room's owner.
func (r *Room) requireOwner(msg *ClientMessage) bool {
	c := msg.client
	if c.user == nil {
		c.queueMessage(ErrSignInRequired(msg.Id))
		return false
	}
	if c.user.Id != r.ownerId {
		c.queueMessage(ErrNotRoomOwner(msg.Id))
		return false
	}
	return true
}

func (r *Room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.code)
	select {
	case r.rs.unloadRoomChan <- unloadRoomRequest{roomCode: r.code}:
	default:
		// hub is busy, try again later
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.code)
	if e.ended {
		// push the final snapshot so clients observe ended_at, then tell
		// them the room is over
		r.broadcastSnapshot()

		now := Now()
		r.broadcast(&ServerMessage{
			BaseMessage: BaseMessage{
				Timestamp: now,
			},
			Notification: &Notification{
				RoomEnded: &RoomEnded{RoomCode: r.code, EndedAt: &now},
			},
		})
	}

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.code)
	}
	r.clientLock.Unlock()

	r.rs.stats.Decr("ActiveRooms")

	if e.done != nil {
		close(e.done)
	}
}

func (r *Room) broadcastSnapshot() {
	snap, err := r.loadSnapshot()
	if err != nil {
		r.log.Println("loadSnapshot:", err)
		return
	}

	r.broadcast(&ServerMessage{Snapshot: &snap})
}

func (r *Room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	c.addRoom(r)
}

func (r *Room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	c.delRoom(r.code)

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.code)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *Room) broadcast(msg *ServerMessage) {
	msg.Timestamp = Now()

	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}
