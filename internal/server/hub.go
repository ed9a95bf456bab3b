package server

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"fizzy/internal/events"
	"fizzy/pkg/logger"
)

// Hub maintains the active live-feed connections per user and relays
// notification payloads arriving over Redis pub/sub to them. A user may
// hold several connections (tabs, devices); each gets every payload.
type Hub struct {
	clients    map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *feedMessage
	subscriber *events.Subscriber
	log        *logger.Logger
	mu         sync.RWMutex
	stopChan   chan struct{}
	cancelSub  context.CancelFunc
	wg         sync.WaitGroup
}

type feedMessage struct {
	UserID  uuid.UUID
	Payload []byte
}

const maxConnectionsPerUser = 10

func NewHub(subscriber *events.Subscriber, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *feedMessage, 256),
		subscriber: subscriber,
		log:        log,
		stopChan:   make(chan struct{}),
	}
}

// Run starts the Hub
func (h *Hub) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancelSub = cancel

	h.wg.Add(1)
	go h.subscribeToFeeds(ctx)

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case msg := <-h.broadcast:
			h.handleBroadcast(msg)

		case <-h.stopChan:
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] == nil {
		h.clients[client.userID] = make(map[string]*Client)
	}

	if len(h.clients[client.userID]) >= maxConnectionsPerUser {
		h.log.Warnf("max live feed connections for user %s, evicting oldest", client.userID)
		for id, c := range h.clients[client.userID] {
			h.removeClient(c)
			delete(h.clients[client.userID], id)
			break
		}
	}

	h.clients[client.userID][client.clientID] = client
	h.log.Infof("live feed client connected user=%s client=%s", client.userID, client.clientID)

	go client.writePump()
	go client.readPump()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if userClients, ok := h.clients[client.userID]; ok {
		if _, ok := userClients[client.clientID]; ok {
			delete(userClients, client.clientID)
			h.removeClient(client)
			if len(userClients) == 0 {
				delete(h.clients, client.userID)
			}
			h.log.Infof("live feed client disconnected user=%s client=%s", client.userID, client.clientID)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	close(client.send)
	client.conn.Close()
}

func (h *Hub) handleBroadcast(msg *feedMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if userClients, ok := h.clients[msg.UserID]; ok {
		for _, client := range userClients {
			select {
			case client.send <- msg.Payload:
			default:
				h.log.Warnf("live feed send buffer full user=%s client=%s", client.userID, client.clientID)
			}
		}
	}
}

// subscribeToFeeds bridges the Redis user-feed channels into the hub.
// The pattern subscription carries every user's channel; only payloads
// for connected users are fanned out.
func (h *Hub) subscribeToFeeds(ctx context.Context) {
	defer h.wg.Done()

	err := h.subscriber.SubscribeUserFeeds(ctx, func(channel string, payload []byte) {
		userID, ok := userIDFromChannel(channel)
		if !ok {
			return
		}
		select {
		case h.broadcast <- &feedMessage{UserID: userID, Payload: payload}:
		default:
			h.log.Warnf("live feed broadcast buffer full, dropping payload for %s", userID)
		}
	})
	if err != nil && ctx.Err() == nil {
		h.log.Errorf("live feed subscription ended: %v", err)
	}
}

func userIDFromChannel(channel string) (uuid.UUID, bool) {
	idx := strings.LastIndexByte(channel, ':')
	if idx < 0 {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(channel[idx+1:])
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Stop gracefully shuts down the Hub
func (h *Hub) Stop() {
	if h.cancelSub != nil {
		h.cancelSub()
	}
	close(h.stopChan)
	h.wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, userClients := range h.clients {
		for _, client := range userClients {
			h.removeClient(client)
		}
	}
	h.clients = make(map[uuid.UUID]map[string]*Client)
}
