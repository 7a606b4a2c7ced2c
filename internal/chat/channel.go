package chat

import (
	"log"
	"sync"
	"time"

	"github.com/roamhq/roamchat/internal/types"
)

const idleChannelTimeout = time.Minute

// Channel is the fan-out group of all connections subscribed to one
// canonical room id. Events for a channel are handled by a single
// goroutine, so broadcast order matches append order for messages
// arriving on one connection.
type Channel struct {
	room          types.Room
	cs            *ChatServer
	log           *log.Logger
	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	notifyChan    chan *ServerMessage
	clients       map[*Client]struct{}
	clientLock    sync.RWMutex
	// killTimer unloads the channel once it has no subscribers left
	killTimer *time.Timer
	exit      chan struct{}
	done      chan struct{}
}

func newChannel(room types.Room, cs *ChatServer) *Channel {
	return &Channel{
		room:          room,
		cs:            cs,
		log:           cs.log,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		notifyChan:    make(chan *ServerMessage, 256),
		clients:       make(map[*Client]struct{}),
		exit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (ch *Channel) start() {
	ch.log.Printf("starting channel %q", ch.room.ExternalId)
	ch.killTimer = time.NewTimer(idleChannelTimeout)
	ch.killTimer.Stop()

	for {
		select {
		case join := <-ch.joinChan:
			ch.handleJoin(join)
		case leaveMsg := <-ch.leaveChan:
			ch.handleLeave(leaveMsg)
		case msg := <-ch.clientMsgChan:
			switch {
			case msg.Publish != nil:
				ch.handlePublish(msg)
			case msg.Read != nil:
				ch.handleRead(msg)
			case msg.Typing != nil:
				ch.handleTyping(msg)
			}
		case msg := <-ch.notifyChan:
			ch.broadcast(msg)
		case <-ch.killTimer.C:
			ch.handleTimeout()
		case <-ch.exit:
			ch.handleExit()
			return
		}
	}
}

func (ch *Channel) handleJoin(join *ClientMessage) {
	ch.killTimer.Stop()

	c := join.client
	ch.addClient(c)

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{
			Id:        join.Id,
			Timestamp: Now(),
		},
		Notification: &Notification{
			Joined: &RoomEvent{
				RoomId:    ch.room.ExternalId,
				AccountId: c.user.Id,
			},
		},
	})
}

func (ch *Channel) handleLeave(leaveMsg *ClientMessage) {
	c := leaveMsg.client
	ch.removeClient(c)

	c.queueMessage(&ServerMessage{
		BaseMessage: BaseMessage{
			Id:        leaveMsg.Id,
			Timestamp: Now(),
		},
		Notification: &Notification{
			Left: &RoomEvent{
				RoomId:    ch.room.ExternalId,
				AccountId: c.user.Id,
			},
		},
	})
}

// handlePublish persists the message and fans it out to every
// subscriber with full echo. A store failure is reported to the sender
// only and never reaches the channel.
func (ch *Channel) handlePublish(msg *ClientMessage) {
	saved, err := ch.cs.store.Append(ch.room, msg.AccountId, msg.Publish.Content)
	if err != nil {
		ch.log.Println("error saving message:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrAccepted(msg.Id))

	ch.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: saved.CreatedAt,
		},
		Message: &saved,
	})
}

func (ch *Channel) handleRead(msg *ClientMessage) {
	if _, err := ch.cs.tracker.MarkRead(msg.AccountId, ch.room); err != nil {
		ch.log.Println("mark read:", err)
		msg.client.queueMessage(ErrInternalError(msg.Id))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	// the caller is excluded from the read notification
	ch.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			Read: &ReadEvent{
				RoomId:    ch.room.ExternalId,
				AccountId: msg.AccountId,
			},
		},
		SkipClient: msg.client,
	})
}

func (ch *Channel) handleTyping(msg *ClientMessage) {
	ch.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			Typing: &TypingEvent{
				RoomId:    ch.room.ExternalId,
				AccountId: msg.AccountId,
				Active:    msg.Typing.Active,
			},
		},
		SkipClient: msg.client,
	})
}

func (ch *Channel) handleTimeout() {
	ch.log.Printf("channel %q timed out", ch.room.ExternalId)
	ch.cs.unloadChan <- ch.room.ExternalId
}

func (ch *Channel) handleExit() {
	ch.log.Printf("channel %q is exiting", ch.room.ExternalId)

	ch.clientLock.Lock()
	for c := range ch.clients {
		c.delChannel(ch.room.ExternalId)
	}
	ch.clientLock.Unlock()

	close(ch.done)
}

func (ch *Channel) addClient(c *Client) {
	ch.clientLock.Lock()
	defer ch.clientLock.Unlock()

	ch.clients[c] = struct{}{}
	c.addChannel(ch)
}

func (ch *Channel) removeClient(c *Client) {
	ch.clientLock.Lock()
	defer ch.clientLock.Unlock()

	if _, ok := ch.clients[c]; !ok {
		ch.log.Printf("client %q not found in channel %q", c.user.Username, ch.room.ExternalId)
		return
	}

	delete(ch.clients, c)
	c.delChannel(ch.room.ExternalId)

	if len(ch.clients) == 0 {
		ch.log.Printf("no clients in %q, starting kill timer", ch.room.ExternalId)
		ch.killTimer.Reset(idleChannelTimeout)
	}
}

func (ch *Channel) broadcast(msg *ServerMessage) {
	ch.clientLock.RLock()
	defer ch.clientLock.RUnlock()

	for client := range ch.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}

	ch.cs.stats.Incr(metricMessagesBroadcast)
}
