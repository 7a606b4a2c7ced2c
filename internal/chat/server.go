package chat

import (
	"context"
	"log"
	"sync"

	"github.com/roamhq/roamchat/internal/messages"
	"github.com/roamhq/roamchat/internal/rooms"
	"github.com/roamhq/roamchat/internal/stats"
	"github.com/roamhq/roamchat/internal/types"
)

const (
	metricConnections       = "NumConnections"
	metricActiveChannels    = "NumActiveChannels"
	metricMessagesBroadcast = "NumMessagesBroadcast"
)

type externalBroadcast struct {
	roomId string
	msg    *ServerMessage
}

// ChatServer owns the process-local channel table, keyed by canonical
// room id. Subscriptions are never persisted; a restart drops them and
// clients rejoin explicitly.
type ChatServer struct {
	log            *log.Logger
	resolver       *rooms.Resolver
	guard          *rooms.Guard
	store          *messages.Store
	tracker        messages.ReadTracker
	stats          stats.StatsProvider
	clients        map[*Client]struct{}
	clientsLock    sync.Mutex
	channels       map[string]*Channel
	joinChan       chan *ClientMessage
	eventChan      chan *ClientMessage
	broadcastChan  chan *externalBroadcast
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	unloadChan     chan string
	stop           chan struct{}
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, resolver *rooms.Resolver, guard *rooms.Guard,
	store *messages.Store, tracker messages.ReadTracker, su stats.StatsProvider) (*ChatServer, error) {

	su.RegisterMetric(metricConnections)
	su.RegisterMetric(metricActiveChannels)
	su.RegisterMetric(metricMessagesBroadcast)

	return &ChatServer{
		log:            logger,
		resolver:       resolver,
		guard:          guard,
		store:          store,
		tracker:        tracker,
		stats:          su,
		clients:        make(map[*Client]struct{}),
		channels:       make(map[string]*Channel),
		joinChan:       make(chan *ClientMessage, 256),
		eventChan:      make(chan *ClientMessage, 256),
		broadcastChan:  make(chan *externalBroadcast, 256),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		unloadChan:     make(chan string),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case joinMsg := <-cs.joinChan:
			cs.handleJoin(joinMsg)
		case msg := <-cs.eventChan:
			cs.handleUnjoinedEvent(msg)
		case b := <-cs.broadcastChan:
			if ch, ok := cs.channels[b.roomId]; ok {
				select {
				case ch.notifyChan <- b.msg:
				default:
					cs.log.Printf("notifyChan full on channel %q", b.roomId)
				}
			}
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection from %q", client.user.Username)
			cs.addClient(client)
			cs.stats.Incr(metricConnections)
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection from %q", client.user.Username)
			cs.removeClient(client)
			cs.stats.Decr(metricConnections)
		case id := <-cs.unloadChan:
			cs.unloadChannel(id)
		case <-cs.stop:
			cs.log.Println("shutting down channels")
			for _, ch := range cs.channels {
				close(ch.exit)
				<-ch.done
			}

			close(cs.done)
			return
		}
	}
}

// handleJoin resolves the reference, authorizes the requester and
// subscribes the connection under the room's canonical id, so that two
// members joining through different reference spellings share one
// channel. Errors go to the caller only.
func (cs *ChatServer) handleJoin(msg *ClientMessage) {
	c := msg.client
	if !c.authenticated() {
		c.queueMessage(ErrAuthRequired(msg.Id))
		return
	}

	room, err := cs.authorizeRef(c.user.Id, msg.Join.RoomId)
	if err != nil {
		cs.log.Printf("join %q: %v", msg.Join.RoomId, err)
		c.queueMessage(errResponse(msg.Id, err))
		return
	}

	ch := cs.loadChannel(room)
	select {
	case ch.joinChan <- msg:
	default:
		cs.log.Printf("join channel full on room %q", room.ExternalId)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

// handleUnjoinedEvent serves publish and read events that arrived with
// a reference the connection is not subscribed under: resolve,
// authorize, then dispatch into the canonical channel.
func (cs *ChatServer) handleUnjoinedEvent(msg *ClientMessage) {
	c := msg.client
	if !c.authenticated() {
		c.queueMessage(ErrAuthRequired(msg.Id))
		return
	}

	var ref string
	switch {
	case msg.Publish != nil:
		ref = msg.Publish.RoomId
	case msg.Read != nil:
		ref = msg.Read.RoomId
	default:
		c.queueMessage(ErrInvalidMessage(msg.Id))
		return
	}

	room, err := cs.authorizeRef(c.user.Id, ref)
	if err != nil {
		cs.log.Printf("event for %q: %v", ref, err)
		c.queueMessage(errResponse(msg.Id, err))
		return
	}

	ch := cs.loadChannel(room)
	select {
	case ch.clientMsgChan <- msg:
	default:
		cs.log.Printf("clientMsgChan full for room %q", room.ExternalId)
		c.queueMessage(ErrServiceUnavailable(msg.Id))
	}
}

func (cs *ChatServer) authorizeRef(accountId int, refStr string) (types.Room, error) {
	ref, err := rooms.ParseRef(refStr)
	if err != nil {
		return types.Room{}, err
	}

	room, err := cs.resolver.Resolve(ref)
	if err != nil {
		return types.Room{}, err
	}

	if err := cs.guard.CanAccess(accountId, room); err != nil {
		return types.Room{}, err
	}

	return room, nil
}

// BroadcastMessage fans a message persisted outside the gateway (the
// REST send path) out to the room's live subscribers, if any.
func (cs *ChatServer) BroadcastMessage(roomExternalId string, msg types.Message) {
	sm := &ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: msg.CreatedAt,
		},
		Message: &msg,
	}

	select {
	case cs.broadcastChan <- &externalBroadcast{roomId: roomExternalId, msg: sm}:
	default:
		cs.log.Printf("broadcastChan full, dropping fan-out for room %q", roomExternalId)
	}
}

func (cs *ChatServer) RegisterClient(c *Client) {
	cs.RegisterChan <- c
}

func (cs *ChatServer) loadChannel(room types.Room) *Channel {
	if ch, ok := cs.channels[room.ExternalId]; ok {
		return ch
	}

	ch := newChannel(room, cs)
	cs.channels[room.ExternalId] = ch
	go ch.start()
	cs.stats.Incr(metricActiveChannels)

	return ch
}

func (cs *ChatServer) unloadChannel(id string) {
	ch, ok := cs.channels[id]
	if !ok {
		return
	}

	cs.log.Printf("removing channel %q", id)
	delete(cs.channels, id)
	close(ch.exit)
	<-ch.done
	cs.stats.Decr(metricActiveChannels)
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	cs.clients[c] = struct{}{}
}

func (cs *ChatServer) removeClient(c *Client) {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()
	delete(cs.clients, c)
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
	}
	cs.clientsLock.Unlock()

	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
