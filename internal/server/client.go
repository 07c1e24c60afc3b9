package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bookmatch/go-bookmatch/internal/matching"
	"github.com/bookmatch/go-bookmatch/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one websocket session of a user. A user may hold several
// sessions at once; each gets its own Client.
type Client struct {
	id         string
	conn       *websocket.Conn
	chatServer *ChatServer
	log        *log.Logger
	user       types.User
	send       chan *ServerMessage
	// rooms maps joined room external ids to their database ids
	rooms     map[string]int
	roomsLock sync.RWMutex
	stop      chan struct{}
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		id:         uuid.NewString(),
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *ServerMessage, 256),
		rooms:      make(map[string]int),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(time.Duration(pingInterval))
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting for session %s", c.id)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Println("failed to serialize message:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read exiting for session %s", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrorEvent("invalid message format"))
			continue
		}

		msg.client = c

		switch msg.Type {
		case EventJoinRoom:
			c.joinRoom(&msg)
		case EventLeaveRoom:
			c.leaveRoom(&msg)
		case EventSendMessage:
			c.sendToRoom(&msg)
		default:
			c.queueMessage(ErrorEvent("unknown event type"))
		}
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("send channel full for session %s, dropping message", c.id)
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) joinRoom(msg *ClientMessage) {
	if msg.RoomId == "" {
		c.queueMessage(ErrorEvent("room_id is required"))
		return
	}

	select {
	case c.chatServer.joinChan <- msg:
	default:
		c.log.Println("joinChan full")
		c.queueMessage(ErrorEvent("service unavailable"))
	}
}

func (c *Client) leaveRoom(msg *ClientMessage) {
	if _, ok := c.getRoom(msg.RoomId); !ok {
		c.queueMessage(ErrorEvent("room not joined"))
		return
	}

	select {
	case c.chatServer.leaveChan <- msg:
	default:
		c.log.Println("leaveChan full")
		c.queueMessage(ErrorEvent("service unavailable"))
	}
}

// sendToRoom relays a chat message from the read goroutine. The relay
// persists the message and hands the broadcast back to the hub, so the
// hub loop never blocks on the database.
func (c *Client) sendToRoom(msg *ClientMessage) {
	roomId, ok := c.getRoom(msg.RoomId)
	if !ok {
		c.queueMessage(ErrorEvent("room not joined"))
		return
	}

	if msg.Message == "" {
		c.queueMessage(ErrorEvent("message is empty"))
		return
	}

	if _, err := c.chatServer.relay.Relay(roomId, c.user.Id, msg.Message); err != nil {
		if errors.Is(err, matching.ErrNotParticipant) {
			c.queueMessage(ErrorEvent("not a participant of this room"))
			return
		}
		c.log.Printf("relay message for session %s: %v", c.id, err)
		c.queueMessage(ErrorEvent("failed to send message"))
	}
}

func (c *Client) cleanup() {
	select {
	case c.chatServer.deRegisterChan <- c:
	case <-c.chatServer.done:
	}
	c.stopClient()
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Client) addRoom(externalId string, roomId int) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	c.rooms[externalId] = roomId
}

func (c *Client) delRoom(externalId string) {
	c.roomsLock.Lock()
	defer c.roomsLock.Unlock()
	delete(c.rooms, externalId)
}

func (c *Client) getRoom(externalId string) (int, bool) {
	c.roomsLock.RLock()
	defer c.roomsLock.RUnlock()
	id, ok := c.rooms[externalId]
	return id, ok
}
