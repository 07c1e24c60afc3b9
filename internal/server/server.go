package server

import (
	"log"
	"sync"

	"github.com/bookmatch/go-bookmatch/internal/database"
	"github.com/bookmatch/go-bookmatch/internal/stats"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

// Relayer persists and fans out a chat message. Implemented by
// matching.MessageRelay.
type Relayer interface {
	Relay(roomId, senderId int, content string) (types.Message, error)
}

type pushReq struct {
	userId int
	msg    *ServerMessage
	reply  chan bool
}

type broadcastReq struct {
	roomExternalId string
	msg            *ServerMessage
}

// ChatServer is the hub: a single goroutine owns the session and room
// group maps, so all membership changes and fan-outs go through its
// channels. It implements the Pusher and Broadcaster interfaces the
// matching services are wired with.
type ChatServer struct {
	log            *log.Logger
	db             database.BookMatchRepository
	stats          stats.StatsProvider
	relay          Relayer
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	userSessions   map[int]map[*Client]struct{}
	rooms          map[string]map[*Client]struct{}
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	joinChan       chan *ClientMessage
	leaveChan      chan *ClientMessage
	pushChan       chan pushReq
	broadcastChan  chan broadcastReq
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, db database.BookMatchRepository, statsProvider stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		db:             db,
		stats:          statsProvider,
		clients:        make(map[*Client]struct{}),
		userSessions:   make(map[int]map[*Client]struct{}),
		rooms:          make(map[string]map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		joinChan:       make(chan *ClientMessage, 256),
		leaveChan:      make(chan *ClientMessage, 256),
		pushChan:       make(chan pushReq, 256),
		broadcastChan:  make(chan broadcastReq, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	if statsProvider != nil {
		statsProvider.RegisterMetric("ActiveSessions")
		statsProvider.RegisterMetric("ActiveRooms")
		statsProvider.RegisterMetric("MessagesBroadcast")
		statsProvider.RegisterMetric("NotificationsPushed")
	}

	return cs, nil
}

// SetRelay wires the message relay. Called once at boot, before Run;
// the relay itself depends on the hub for broadcasting.
func (cs *ChatServer) SetRelay(relay Relayer) {
	cs.relay = relay
}

func (cs *ChatServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding session %s for user %q", client.id, client.user.Username)
			cs.addClient(client)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing session %s for user %q", client.id, client.user.Username)
			cs.removeClient(client)
		case msg := <-cs.joinChan:
			cs.handleJoin(msg)
		case msg := <-cs.leaveChan:
			cs.handleLeave(msg)
		case req := <-cs.pushChan:
			req.reply <- cs.pushToSessions(req.userId, req.msg)
		case req := <-cs.broadcastChan:
			cs.broadcastToGroup(req.roomExternalId, req.msg)
		case <-cs.stop:
			cs.log.Println("shutting down chat server")
			close(cs.done)
			return
		}
	}
}

// PushToUser delivers a notification to every live session of a user.
// It reports whether at least one session accepted the payload, so
// callers can tell a live delivery from a store-only one.
func (cs *ChatServer) PushToUser(userId int, n types.Notification) bool {
	req := pushReq{
		userId: userId,
		msg:    NewNotificationEvent(n),
		reply:  make(chan bool, 1),
	}

	select {
	case cs.pushChan <- req:
	case <-cs.done:
		return false
	}

	select {
	case delivered := <-req.reply:
		return delivered
	case <-cs.done:
		return false
	}
}

// BroadcastToRoom fans a chat message out to every session joined to
// the room. Fire and forget; sessions with a full send buffer miss it.
func (cs *ChatServer) BroadcastToRoom(roomExternalId string, msg types.Message) {
	select {
	case cs.broadcastChan <- broadcastReq{roomExternalId: roomExternalId, msg: NewMessageEvent(roomExternalId, msg)}:
	case <-cs.done:
	}
}

func (cs *ChatServer) handleJoin(msg *ClientMessage) {
	client := msg.client

	room, err := cs.db.GetRoomByExternalId(msg.RoomId)
	if err != nil {
		client.queueMessage(ErrorEvent("room not found"))
		return
	}

	if !cs.db.IsParticipant(room.Id, client.user.Id) {
		client.queueMessage(ErrorEvent("not a participant of this room"))
		return
	}

	group, ok := cs.rooms[room.ExternalId]
	if !ok {
		group = make(map[*Client]struct{})
		cs.rooms[room.ExternalId] = group
		cs.incr("ActiveRooms")
	}
	group[client] = struct{}{}
	client.addRoom(room.ExternalId, room.Id)

	cs.log.Printf("session %s joined room %q", client.id, room.ExternalId)
}

func (cs *ChatServer) handleLeave(msg *ClientMessage) {
	cs.removeFromRoom(msg.client, msg.RoomId)
	msg.client.delRoom(msg.RoomId)
}

func (cs *ChatServer) pushToSessions(userId int, msg *ServerMessage) bool {
	delivered := false
	for c := range cs.userSessions[userId] {
		if c.queueMessage(msg) {
			delivered = true
		}
	}

	if delivered {
		cs.incr("NotificationsPushed")
	}
	return delivered
}

func (cs *ChatServer) broadcastToGroup(roomExternalId string, msg *ServerMessage) {
	group, ok := cs.rooms[roomExternalId]
	if !ok {
		return
	}

	for c := range group {
		c.queueMessage(msg)
	}
	cs.incr("MessagesBroadcast")
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c] = struct{}{}
	cs.clientsLock.Unlock()

	sessions, ok := cs.userSessions[c.user.Id]
	if !ok {
		sessions = make(map[*Client]struct{})
		cs.userSessions[c.user.Id] = sessions
	}
	sessions[c] = struct{}{}
	cs.incr("ActiveSessions")
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	if _, ok := cs.clients[c]; !ok {
		cs.clientsLock.Unlock()
		return
	}
	delete(cs.clients, c)
	cs.clientsLock.Unlock()

	if sessions, ok := cs.userSessions[c.user.Id]; ok {
		delete(sessions, c)
		if len(sessions) == 0 {
			delete(cs.userSessions, c.user.Id)
		}
	}

	c.roomsLock.RLock()
	joined := make([]string, 0, len(c.rooms))
	for externalId := range c.rooms {
		joined = append(joined, externalId)
	}
	c.roomsLock.RUnlock()

	for _, externalId := range joined {
		cs.removeFromRoom(c, externalId)
	}

	cs.decr("ActiveSessions")
}

func (cs *ChatServer) removeFromRoom(c *Client, roomExternalId string) {
	group, ok := cs.rooms[roomExternalId]
	if !ok {
		return
	}

	delete(group, c)
	if len(group) == 0 {
		delete(cs.rooms, roomExternalId)
		cs.decr("ActiveRooms")
	}
}

func (cs *ChatServer) incr(name string) {
	if cs.stats != nil {
		cs.stats.Incr(name)
	}
}

func (cs *ChatServer) decr(name string) {
	if cs.stats != nil {
		cs.stats.Decr(name)
	}
}

func (cs *ChatServer) Shutdown() {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)
	<-cs.done
}
