package server

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/askroom/go-askroom/internal/database"
	"github.com/askroom/go-askroom/internal/stats"
	"github.com/askroom/go-askroom/internal/testutil"
	"github.com/askroom/go-askroom/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestRoom(t *testing.T, rs *RoomServer, dbRoom database.Room) *Room {
	t.Helper()
	r := &Room{
		id:            dbRoom.Id,
		code:          dbRoom.Code,
		ownerId:       dbRoom.OwnerId,
		rs:            rs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		clients:       make(map[*Client]struct{}),
		log:           testutil.TestLogger(t),
		ended:         dbRoom.EndedAt.Valid,
		exit:          make(chan exitReq),
		killTimer:     time.NewTimer(idleRoomTimeout),
	}
	r.killTimer.Stop()
	return r
}

func Test_handleAsk_signedOut(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd", OwnerId: 7})

	c := newTestClient(t, nil)
	room.handleAsk(&ClientMessage{
		BaseMessage: BaseMessage{Id: 3},
		Ask:         &Ask{RoomCode: "ab12cd", Content: "What is X?"},
		client:      c,
	})

	msg := receiveMessage(t, c)
	require.NotNil(t, msg.Response)
	assert.Equal(t, http.StatusUnauthorized, msg.Response.ResponseCode)

	// the precondition must fail before any store call is made
	mockRepo.AssertNotCalled(t, "CreateQuestion", mock.Anything)
	mockRepo.AssertNotCalled(t, "GetRoomByCode", mock.Anything)
	mockRepo.AssertNotCalled(t, "GetQuestions", mock.Anything)
}

func Test_handleAsk_emptyContent(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd"})

	c := newTestClient(t, &types.User{Id: 1, Name: "Ana", AvatarUrl: "http://x/a.png"})
	room.handleAsk(&ClientMessage{
		Ask:    &Ask{RoomCode: "ab12cd", Content: "   "},
		client: c,
	})

	msg := receiveMessage(t, c)
	require.NotNil(t, msg.Response)
	assert.Equal(t, http.StatusBadRequest, msg.Response.ResponseCode)
	mockRepo.AssertNotCalled(t, "CreateQuestion", mock.Anything)
}

func Test_handleAsk_endedRoom(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, database.Room{
		Id:      1,
		Code:    "ab12cd",
		EndedAt: sql.NullTime{Time: time.Now(), Valid: true},
	})

	c := newTestClient(t, &types.User{Id: 1, Name: "Ana", AvatarUrl: "http://x/a.png"})
	room.handleAsk(&ClientMessage{
		Ask:    &Ask{RoomCode: "ab12cd", Content: "late question"},
		client: c,
	})

	msg := receiveMessage(t, c)
	require.NotNil(t, msg.Response)
	assert.Equal(t, http.StatusGone, msg.Response.ResponseCode)
	mockRepo.AssertNotCalled(t, "CreateQuestion", mock.Anything)
}

func Test_handleAsk_rateLimited(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd"})

	c := newTestClient(t, &types.User{Id: 1, Name: "Ana", AvatarUrl: "http://x/a.png"})
	c.askLimiter = rate.NewLimiter(0, 0) // exhausted limiter

	room.handleAsk(&ClientMessage{
		Ask:    &Ask{RoomCode: "ab12cd", Content: "spam"},
		client: c,
	})

	msg := receiveMessage(t, c)
	require.NotNil(t, msg.Response)
	assert.Equal(t, http.StatusTooManyRequests, msg.Response.ResponseCode)
	mockRepo.AssertNotCalled(t, "CreateQuestion", mock.Anything)
}

func Test_handleAsk_success(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	dbRoom := database.Room{Id: 1, Code: "ab12cd", Title: "Go AMA", OwnerId: 7}
	created := database.Question{
		Id:           "q1",
		RoomId:       1,
		Content:      "What is X?",
		AuthorName:   "Ana",
		AuthorAvatar: "http://x/a.png",
	}

	mockRepo.On("CreateQuestion", mock.MatchedBy(func(p database.CreateQuestionParams) bool {
		return p.RoomId == 1 &&
			p.Content == "What is X?" &&
			p.AuthorName == "Ana" &&
			p.AuthorAvatar == "http://x/a.png" &&
			p.Id != ""
	})).Return(created, nil).Once()
	mockRepo.On("GetRoomByCode", "ab12cd").Return(dbRoom, nil).Once()
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{"q1": created}, nil).Once()

	mockStats := &stats.MockStatsUpdater{}
	rs := newTestRoomServer(t, mockRepo, mockStats)
	room := newTestRoom(t, rs, dbRoom)

	asker := newTestClient(t, &types.User{Id: 1, Name: "Ana", AvatarUrl: "http://x/a.png"})
	viewer := newTestClient(t, nil)
	room.addClient(asker)
	room.addClient(viewer)

	room.handleAsk(&ClientMessage{
		BaseMessage: BaseMessage{Id: 9},
		Ask:         &Ask{RoomCode: "ab12cd", Content: "What is X?"},
		client:      asker,
	})

	ack := receiveMessage(t, asker)
	require.NotNil(t, ack.Response)
	assert.Equal(t, http.StatusAccepted, ack.Response.ResponseCode)

	// both subscribers get the recomputed snapshot
	for _, c := range []*Client{asker, viewer} {
		snap := receiveMessage(t, c)
		require.NotNil(t, snap.Snapshot)
		require.Len(t, snap.Snapshot.Questions, 1)
		q := snap.Snapshot.Questions[0]
		assert.Equal(t, "What is X?", q.Content)
		assert.Equal(t, "Ana", q.Author.Name)
		assert.Equal(t, "http://x/a.png", q.Author.AvatarUrl)
		assert.False(t, q.IsAnswered)
		assert.False(t, q.IsHighlighted)
	}

	assert.Equal(t, 1, mockStats.Count("QuestionsAsked"))
}

func Test_adminOps_requireOwner(t *testing.T) {
	tcases := []struct {
		name string
		msg  func(c *Client) *ClientMessage
	}{
		{
			name: "remove",
			msg: func(c *Client) *ClientMessage {
				return &ClientMessage{Remove: &Remove{RoomCode: "ab12cd", QuestionId: "q1"}, client: c}
			},
		},
		{
			name: "answer",
			msg: func(c *Client) *ClientMessage {
				return &ClientMessage{Answer: &Answer{RoomCode: "ab12cd", QuestionId: "q1"}, client: c}
			},
		},
		{
			name: "highlight",
			msg: func(c *Client) *ClientMessage {
				return &ClientMessage{Highlight: &Highlight{RoomCode: "ab12cd", QuestionId: "q1"}, client: c}
			},
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name+" as non-owner", func(t *testing.T) {
			mockRepo := &database.MockAskRoomRepository{}
			defer mockRepo.AssertExpectations(t)

			rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
			room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd", OwnerId: 7})

			c := newTestClient(t, &types.User{Id: 2, Name: "Bea", AvatarUrl: "http://x/b.png"})
			msg := tc.msg(c)

			switch {
			case msg.Remove != nil:
				room.handleRemove(msg)
			case msg.Answer != nil:
				room.handleAnswer(msg)
			case msg.Highlight != nil:
				room.handleHighlight(msg)
			}

			resp := receiveMessage(t, c)
			require.NotNil(t, resp.Response)
			assert.Equal(t, http.StatusForbidden, resp.Response.ResponseCode)
		})

		t.Run(tc.name+" signed out", func(t *testing.T) {
			rs := newTestRoomServer(t, &database.MockAskRoomRepository{}, &stats.MockStatsUpdater{})
			room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd", OwnerId: 7})

			c := newTestClient(t, nil)
			msg := tc.msg(c)

			switch {
			case msg.Remove != nil:
				room.handleRemove(msg)
			case msg.Answer != nil:
				room.handleAnswer(msg)
			case msg.Highlight != nil:
				room.handleHighlight(msg)
			}

			resp := receiveMessage(t, c)
			require.NotNil(t, resp.Response)
			assert.Equal(t, http.StatusUnauthorized, resp.Response.ResponseCode)
		})
	}
}

func Test_handleRemove_unknownId(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	dbRoom := database.Room{Id: 1, Code: "ab12cd", OwnerId: 7}

	// deleting an id that does not exist completes without error
	mockRepo.On("DeleteQuestion", "no-such-id").Return(nil).Once()
	mockRepo.On("GetRoomByCode", "ab12cd").Return(dbRoom, nil).Once()
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{}, nil).Once()

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, dbRoom)

	owner := newTestClient(t, &types.User{Id: 7, Name: "Own", AvatarUrl: "http://x/o.png"})
	room.addClient(owner)

	room.handleRemove(&ClientMessage{
		BaseMessage: BaseMessage{Id: 4},
		Remove:      &Remove{RoomCode: "ab12cd", QuestionId: "no-such-id"},
		client:      owner,
	})

	resp := receiveMessage(t, owner)
	require.NotNil(t, resp.Response)
	assert.Equal(t, http.StatusOK, resp.Response.ResponseCode)

	snap := receiveMessage(t, owner)
	require.NotNil(t, snap.Snapshot)
	assert.Empty(t, snap.Snapshot.Questions)
}

func Test_handleHighlight_doubleToggleRestores(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	dbRoom := database.Room{Id: 1, Code: "ab12cd", OwnerId: 7}

	// the toggle is atomic in the store, so two toggles always restore the
	// starting value
	mockRepo.On("ToggleQuestionHighlight", "q1").Return(true, nil).Once()
	mockRepo.On("ToggleQuestionHighlight", "q1").Return(false, nil).Once()
	mockRepo.On("GetRoomByCode", "ab12cd").Return(dbRoom, nil).Twice()
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{}, nil).Twice()

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, dbRoom)

	owner := newTestClient(t, &types.User{Id: 7, Name: "Own", AvatarUrl: "http://x/o.png"})
	room.addClient(owner)

	toggle := func() bool {
		room.handleHighlight(&ClientMessage{
			Highlight: &Highlight{RoomCode: "ab12cd", QuestionId: "q1"},
			client:    owner,
		})
		resp := receiveMessage(t, owner)
		require.NotNil(t, resp.Response)
		require.Equal(t, http.StatusOK, resp.Response.ResponseCode)
		receiveMessage(t, owner) // snapshot broadcast
		data := resp.Response.Data.(map[string]any)
		return data["is_highlighted"].(bool)
	}

	assert.True(t, toggle(), "first toggle highlights")
	assert.False(t, toggle(), "second toggle restores the original value")
}

func Test_handleHighlight_unknownId(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	mockRepo.On("ToggleQuestionHighlight", "ghost").Return(false, sql.ErrNoRows).Once()

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd", OwnerId: 7})

	owner := newTestClient(t, &types.User{Id: 7, Name: "Own", AvatarUrl: "http://x/o.png"})
	room.handleHighlight(&ClientMessage{
		Highlight: &Highlight{RoomCode: "ab12cd", QuestionId: "ghost"},
		client:    owner,
	})

	resp := receiveMessage(t, owner)
	require.NotNil(t, resp.Response)
	assert.Equal(t, http.StatusNotFound, resp.Response.ResponseCode)
}

// Test_roomLifecycle walks one room through its whole life: join an empty
// room, ask a question, mark it answered, delete it.
func Test_roomLifecycle(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	dbRoom := database.Room{Id: 1, Code: "ab12cd", Title: "Go AMA", OwnerId: 1}
	question := database.Question{
		Id:           "q1",
		RoomId:       1,
		Content:      "What is X?",
		AuthorName:   "Ana",
		AuthorAvatar: "http://x/a.png",
	}
	answered := question
	answered.IsAnswered = true

	mockRepo.On("GetRoomByCode", "ab12cd").Return(dbRoom, nil)

	// join: empty room
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{}, nil).Once()
	// ask
	mockRepo.On("CreateQuestion", mock.Anything).Return(question, nil).Once()
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{"q1": question}, nil).Once()
	// answer
	mockRepo.On("MarkQuestionAnswered", "q1").Return(nil).Once()
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{"q1": answered}, nil).Once()
	// remove
	mockRepo.On("DeleteQuestion", "q1").Return(nil).Once()
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{}, nil).Once()

	rs := newTestRoomServer(t, mockRepo, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, dbRoom)

	ana := newTestClient(t, &types.User{Id: 1, Name: "Ana", AvatarUrl: "http://x/a.png"})

	room.handleJoin(&ClientMessage{BaseMessage: BaseMessage{Id: 1}, Join: &Join{RoomCode: "ab12cd"}, client: ana})
	snap := receiveMessage(t, ana)
	require.NotNil(t, snap.Snapshot)
	assert.Empty(t, snap.Snapshot.Questions)

	room.handleAsk(&ClientMessage{BaseMessage: BaseMessage{Id: 2}, Ask: &Ask{RoomCode: "ab12cd", Content: "What is X?"}, client: ana})
	receiveMessage(t, ana) // accepted ack
	snap = receiveMessage(t, ana)
	require.NotNil(t, snap.Snapshot)
	require.Len(t, snap.Snapshot.Questions, 1)
	assert.Equal(t, "What is X?", snap.Snapshot.Questions[0].Content)
	assert.Equal(t, "Ana", snap.Snapshot.Questions[0].Author.Name)
	assert.False(t, snap.Snapshot.Questions[0].IsAnswered)
	assert.False(t, snap.Snapshot.Questions[0].IsHighlighted)

	room.handleAnswer(&ClientMessage{BaseMessage: BaseMessage{Id: 3}, Answer: &Answer{RoomCode: "ab12cd", QuestionId: "q1"}, client: ana})
	receiveMessage(t, ana) // ok ack
	snap = receiveMessage(t, ana)
	require.NotNil(t, snap.Snapshot)
	require.Len(t, snap.Snapshot.Questions, 1)
	assert.True(t, snap.Snapshot.Questions[0].IsAnswered)

	room.handleRemove(&ClientMessage{BaseMessage: BaseMessage{Id: 4}, Remove: &Remove{RoomCode: "ab12cd", QuestionId: "q1"}, client: ana})
	receiveMessage(t, ana) // ok ack
	snap = receiveMessage(t, ana)
	require.NotNil(t, snap.Snapshot)
	assert.Empty(t, snap.Snapshot.Questions)
}

func Test_handleRoomExit_ended(t *testing.T) {
	mockRepo := &database.MockAskRoomRepository{}
	defer mockRepo.AssertExpectations(t)

	endedRoom := database.Room{
		Id:      1,
		Code:    "ab12cd",
		Title:   "Go AMA",
		OwnerId: 7,
		EndedAt: sql.NullTime{Time: time.Now().UTC(), Valid: true},
	}
	mockRepo.On("GetRoomByCode", "ab12cd").Return(endedRoom, nil).Once()
	mockRepo.On("GetQuestions", 1).Return(map[string]database.Question{}, nil).Once()

	mockStats := &stats.MockStatsUpdater{}
	rs := newTestRoomServer(t, mockRepo, mockStats)
	room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd", OwnerId: 7})

	c := newTestClient(t, nil)
	room.addClient(c)

	done := make(chan struct{})
	room.handleRoomExit(exitReq{ended: true, done: done})

	snap := receiveMessage(t, c)
	require.NotNil(t, snap.Snapshot)
	require.NotNil(t, snap.Snapshot.EndedAt, "expected the final snapshot to carry ended_at")

	note := receiveMessage(t, c)
	require.NotNil(t, note.Notification)
	require.NotNil(t, note.Notification.RoomEnded)
	assert.Equal(t, "ab12cd", note.Notification.RoomEnded.RoomCode)

	assert.NotContains(t, c.rooms, "ab12cd", "expected the room to be removed from the client")
	assert.Equal(t, -1, mockStats.Count("ActiveRooms"))

	select {
	case <-done:
	default:
		t.Error("expected done channel to be closed")
	}
}

func Test_addClient_removeClient(t *testing.T) {
	rs := newTestRoomServer(t, &database.MockAskRoomRepository{}, &stats.MockStatsUpdater{})
	room := newTestRoom(t, rs, database.Room{Id: 1, Code: "ab12cd"})

	c := newTestClient(t, nil)
	room.addClient(c)
	assert.Contains(t, room.clients, c)
	assert.Contains(t, c.rooms, "ab12cd")

	room.removeClient(c)
	assert.NotContains(t, room.clients, c)
	assert.NotContains(t, c.rooms, "ab12cd")

	// removing a client that is not in the room is a no-op
	room.removeClient(c)
	assert.Empty(t, room.clients)
}
