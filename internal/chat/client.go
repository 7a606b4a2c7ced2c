package chat

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roamhq/roamchat/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one live connection. Its subscriptions are process-local:
// a restart drops them all and clients must rejoin explicitly.
type Client struct {
	conn         *websocket.Conn
	chatServer   *ChatServer
	log          *log.Logger
	user         types.User
	send         chan *ServerMessage
	channels     map[string]*Channel
	channelsLock sync.RWMutex
	stop         chan struct{}
	stopOnce     sync.Once
}

func NewClient(user types.User, conn *websocket.Conn, cs *ChatServer, l *log.Logger) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		log:        l,
		user:       user,
		send:       make(chan *ServerMessage, 256),
		channels:   make(map[string]*Channel),
		stop:       make(chan struct{}),
	}
}

// authenticated reports whether the connection carries a verified
// identity. No event is processed without one.
func (c *Client) authenticated() bool {
	return c.user.Id != 0
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Println("write exiting")
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
		c.log.Println("read exiting")
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
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c
		msg.AccountId = c.user.Id
		msg.Timestamp = Now()

		c.dispatch(&msg)
	}
}

func (c *Client) dispatch(msg *ClientMessage) {
	if !c.authenticated() {
		c.queueMessage(ErrAuthRequired(msg.Id))
		return
	}

	switch {
	case msg.Join != nil:
		c.joinChannel(msg)
	case msg.Leave != nil:
		c.leaveChannel(msg)
	case msg.Publish != nil:
		c.routeToChannel(msg, msg.Publish.RoomId)
	case msg.Read != nil:
		c.routeToChannel(msg, msg.Read.RoomId)
	case msg.Typing != nil:
		c.routeTyping(msg)
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Println("failed to send message to client, channel is full")
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

func (c *Client) stopClient() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

func (c *Client) cleanup() {
	c.chatServer.deRegisterChan <- c
	c.leaveAllChannels()
	c.stopClient()
}

func (c *Client) leaveAllChannels() {
	c.channelsLock.RLock()
	defer c.channelsLock.RUnlock()

	for _, ch := range c.channels {
		ch.leaveChan <- &ClientMessage{
			Leave:     &Leave{RoomId: ch.room.ExternalId},
			AccountId: c.user.Id,
			client:    c,
		}
	}
}

func (c *Client) joinChannel(msg *ClientMessage) {
	select {
	case c.chatServer.joinChan <- msg:
	default:
		c.log.Printf("joinChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (c *Client) leaveChannel(msg *ClientMessage) {
	ch := c.getChannel(msg.Leave.RoomId)
	if ch == nil {
		c.queueMessage(ErrRoomNotFound(msg.Id))
		return
	}

	select {
	case ch.leaveChan <- msg:
	default:
		c.log.Printf("leaveChan full for room %q", ch.room.ExternalId)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

// routeToChannel forwards an event into an already-joined channel, or
// hands it to the chat server for resolution and authorization when
// the reference does not match a subscription.
func (c *Client) routeToChannel(msg *ClientMessage, roomRef string) {
	if ch := c.getChannel(roomRef); ch != nil {
		select {
		case ch.clientMsgChan <- msg:
		default:
			c.log.Printf("clientMsgChan full for room %q", ch.room.ExternalId)
			c.queueMessage(ErrServiceUnavailable(msg.Id))
		}
		return
	}

	select {
	case c.chatServer.eventChan <- msg:
	default:
		c.log.Printf("eventChan full")
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

// routeTyping drops typing indicators for rooms the connection has not
// joined; they are ephemeral and carry no acknowledgment.
func (c *Client) routeTyping(msg *ClientMessage) {
	ch := c.getChannel(msg.Typing.RoomId)
	if ch == nil {
		c.log.Printf("typing for unjoined room %q dropped", msg.Typing.RoomId)
		return
	}

	select {
	case ch.clientMsgChan <- msg:
	default:
		c.log.Printf("clientMsgChan full for room %q", ch.room.ExternalId)
	}
}

func (c *Client) delChannel(id string) {
	c.channelsLock.Lock()
	defer c.channelsLock.Unlock()

	delete(c.channels, id)
}

func (c *Client) addChannel(ch *Channel) {
	c.channelsLock.Lock()
	defer c.channelsLock.Unlock()

	c.channels[ch.room.ExternalId] = ch
}

func (c *Client) getChannel(id string) *Channel {
	c.channelsLock.RLock()
	defer c.channelsLock.RUnlock()

	if ch, ok := c.channels[id]; ok {
		return ch
	}

	return nil
}
