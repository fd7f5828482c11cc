package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub tracks which subscribers joined which rooms. A single goroutine owns
// the registry; every mutation and broadcast is a message to it.
//
// Sends run on that goroutine, so a stalled subscriber holds up every other
// join, leave and broadcast until its write deadline (the client's write
// timeout) expires and it is evicted.
type Hub struct {
	rooms       map[string]map[Subscriber]struct{}
	memberships map[Subscriber]map[string]struct{}

	join      chan subscription
	leave     chan subscription
	drop      chan Subscriber
	broadcast chan message
	count     chan countQuery
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// message couples payload with the target room. delivered receives the
// number of subscribers written to once the hub loop is done with it.
type message struct {
	room      string
	payload   []byte
	delivered chan int
}

// subscription defines join/leave requests.
type subscription struct {
	room   string
	client Subscriber
}

type countQuery struct {
	room  string
	reply chan int
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	h := &Hub{
		rooms:       make(map[string]map[Subscriber]struct{}),
		memberships: make(map[Subscriber]map[string]struct{}),
		join:        make(chan subscription),
		leave:       make(chan subscription),
		drop:        make(chan Subscriber),
		broadcast:   make(chan message),
		count:       make(chan countQuery),
		quit:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	defer close(h.stopped)
	for {
		select {
		case sub := <-h.join:
			h.add(sub.room, sub.client)
		case sub := <-h.leave:
			h.remove(sub.room, sub.client)
		case c := <-h.drop:
			for room := range h.memberships[c] {
				h.remove(room, c)
			}
		case msg := <-h.broadcast:
			msg.delivered <- h.deliver(msg.room, msg.payload)
		case q := <-h.count:
			q.reply <- len(h.rooms[q.room])
		case <-h.quit:
			for c := range h.memberships {
				c.Close()
			}
			h.rooms = map[string]map[Subscriber]struct{}{}
			h.memberships = map[Subscriber]map[string]struct{}{}
			return
		}
	}
}

func (h *Hub) add(room string, c Subscriber) {
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[Subscriber]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if _, ok := h.memberships[c]; !ok {
		h.memberships[c] = make(map[string]struct{})
	}
	h.memberships[c][room] = struct{}{}
}

func (h *Hub) remove(room string, c Subscriber) {
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.memberships[c]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.memberships, c)
		}
	}
}

func (h *Hub) deliver(room string, payload []byte) int {
	clients, ok := h.rooms[room]
	if !ok {
		return 0
	}
	sent := 0
	var failed []Subscriber
	for c := range clients {
		if err := c.Send(payload); err != nil {
			failed = append(failed, c)
			continue
		}
		sent++
	}
	for _, c := range failed {
		c.Close()
		for r := range h.memberships[c] {
			h.remove(r, c)
		}
	}
	return sent
}

// Join adds a client to a room.
func (h *Hub) Join(room string, client Subscriber) {
	select {
	case h.join <- subscription{room: room, client: client}:
	case <-h.stopped:
	}
}

// Leave removes a client from a single room.
func (h *Hub) Leave(room string, client Subscriber) {
	select {
	case h.leave <- subscription{room: room, client: client}:
	case <-h.stopped:
	}
}

// Drop removes a client from every room it joined.
func (h *Hub) Drop(client Subscriber) {
	select {
	case h.drop <- client:
	case <-h.stopped:
	}
}

// Broadcast sends payload to every client in room and returns once each
// send has been attempted. It reports how many clients accepted the write.
func (h *Hub) Broadcast(room string, payload []byte) int {
	msg := message{room: room, payload: payload, delivered: make(chan int, 1)}
	select {
	case h.broadcast <- msg:
	case <-h.stopped:
		return 0
	}
	return <-msg.delivered
}

// Count reports the number of clients in room.
func (h *Hub) Count(room string) int {
	q := countQuery{room: room, reply: make(chan int, 1)}
	select {
	case h.count <- q:
	case <-h.stopped:
		return 0
	}
	return <-q.reply
}

// Close disconnects every client and stops the hub loop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
	<-h.stopped
}
