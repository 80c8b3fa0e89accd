package server

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"sync"

	"github.com/askroom/go-askroom/internal/database"
	"github.com/askroom/go-askroom/internal/stats"
)

type unloadRoomRequest struct {
	roomCode string
	ended    bool
}

// RoomServer is the hub: it owns the set of live rooms, loads a room on the
// first join, and routes joins, ends and unloads to the room goroutines.
type RoomServer struct {
	log            *log.Logger
	db             database.AskRoomRepository
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	joinChan       chan *ClientMessage
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	unloadRoomChan chan unloadRoomRequest
	rooms          map[string]*Room
	stop           chan struct{}
	done           chan struct{}
}

func NewRoomServer(logger *log.Logger, db database.AskRoomRepository, sp stats.StatsProvider) (*RoomServer, error) {
	sp.RegisterMetric("ActiveRooms")
	sp.RegisterMetric("ConnectedClients")
	sp.RegisterMetric("QuestionsAsked")

	return &RoomServer{
		log:            logger,
		db:             db,
		stats:          sp,
		joinChan:       make(chan *ClientMessage, 256),
		clients:        make(map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadRoomChan: make(chan unloadRoomRequest, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
		rooms:          make(map[string]*Room),
	}, nil
}

func (rs *RoomServer) Run() {
	for {
		select {
		case joinMsg := <-rs.joinChan:
			rs.handleJoin(joinMsg)
		case client := <-rs.RegisterChan:
			rs.addClient(client)
			rs.stats.Incr("ConnectedClients")
		case client := <-rs.deRegisterChan:
			rs.removeClient(client)
			rs.stats.Decr("ConnectedClients")
		case req := <-rs.unloadRoomChan:
			rs.handleUnloadRoom(req)
		case <-rs.stop:
			rs.log.Println("shutting down rooms")
			for _, r := range rs.rooms {
				done := make(chan struct{})
				r.exit <- exitReq{done: done}
				<-done
			}

			close(rs.done)
			return
		}
	}
}

func (rs *RoomServer) handleJoin(joinMsg *ClientMessage) {
	code := joinMsg.Join.RoomCode
	if room, ok := rs.rooms[code]; ok {
		select {
		case room.joinChan <- joinMsg:
		default:
			rs.log.Printf("join channel full on room %q", room.code)
			joinMsg.client.queueMessage(ErrServiceUnavailable(joinMsg.Id))
		}
		return
	}

	dbRoom, err := rs.db.GetRoomByCode(code)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			rs.log.Println("GetRoomByCode:", err)
		}
		joinMsg.client.queueMessage(ErrRoomNotFound(joinMsg.Id))
		return
	}

	room := &Room{
		id:            dbRoom.Id,
		code:          dbRoom.Code,
		ownerId:       dbRoom.OwnerId,
		rs:            rs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		clients:       make(map[*Client]struct{}),
		log:           rs.log,
		ended:         dbRoom.EndedAt.Valid,
		exit:          make(chan exitReq),
	}

	rs.rooms[room.code] = room
	rs.stats.Incr("ActiveRooms")
	room.joinChan <- joinMsg

	go room.start()
}

func (rs *RoomServer) handleUnloadRoom(req unloadRoomRequest) {
	r, ok := rs.rooms[req.roomCode]
	if !ok {
		return
	}

	delete(rs.rooms, req.roomCode)

	done := make(chan struct{})
	r.exit <- exitReq{ended: req.ended, done: done}
	<-done
}

// EndRoom unloads a room after its ended_at has been set, pushing a final
// snapshot and an ended notification to all subscribers. Ending a room that
// is not currently loaded is a no-op.
func (rs *RoomServer) EndRoom(ctx context.Context, code string) error {
	select {
	case rs.unloadRoomChan <- unloadRoomRequest{roomCode: code, ended: true}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (rs *RoomServer) RegisterClient(c *Client) {
	rs.RegisterChan <- c
}

func (rs *RoomServer) addClient(c *Client) {
	rs.clientsLock.Lock()
	defer rs.clientsLock.Unlock()
	rs.clients[c] = struct{}{}
}

func (rs *RoomServer) removeClient(c *Client) {
	rs.clientsLock.Lock()
	defer rs.clientsLock.Unlock()
	delete(rs.clients, c)
}

func (rs *RoomServer) Shutdown() {
	rs.clientsLock.Lock()
	for c := range rs.clients {
		close(c.stop)
	}
	rs.clientsLock.Unlock()

	close(rs.stop)

	<-rs.done
}
