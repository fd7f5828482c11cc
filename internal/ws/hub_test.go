package ws

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splax/modulehub/internal/domain"
)

type recordingSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	fail     bool
	closed   bool
}

func (r *recordingSubscriber) Send(p []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broken pipe")
	}
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *recordingSubscriber) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

func (r *recordingSubscriber) received() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func TestBroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	a, b := &recordingSubscriber{}, &recordingSubscriber{}
	hub.Join(CompanyRoom("acme"), a)
	hub.Join(CompanyRoom("globex"), b)

	assert.Equal(t, 1, hub.Broadcast(CompanyRoom("acme"), []byte("hello")))
	assert.Equal(t, 1, a.received(), "broadcast must complete before returning")
	assert.Equal(t, 0, b.received())
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	assert.Equal(t, 0, hub.Broadcast(UserRoom("nobody"), []byte("x")))
}

func TestFailingSubscriberIsEvicted(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	bad := &recordingSubscriber{fail: true}
	hub.Join(UserRoom("u1"), bad)
	hub.Join(CompanyRoom("acme"), bad)

	assert.Equal(t, 0, hub.Broadcast(UserRoom("u1"), []byte("x")))
	assert.True(t, bad.closed)
	assert.Equal(t, 0, hub.Count(UserRoom("u1")))
	assert.Equal(t, 0, hub.Count(CompanyRoom("acme")))
}

func TestDropLeavesAllRooms(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	c := &recordingSubscriber{}
	hub.Join(UserRoom("u1"), c)
	hub.Join(CompanyRoom("acme"), c)
	hub.Leave(UserRoom("u1"), c)
	assert.Equal(t, 0, hub.Count(UserRoom("u1")))
	assert.Equal(t, 1, hub.Count(CompanyRoom("acme")))

	hub.Drop(c)
	assert.Equal(t, 0, hub.Count(CompanyRoom("acme")))
}

func TestClosedHubDoesNotBlock(t *testing.T) {
	hub := NewHub()
	c := &recordingSubscriber{}
	hub.Join(UserRoom("u1"), c)
	hub.Close()

	assert.True(t, c.closed)
	assert.Equal(t, 0, hub.Broadcast(UserRoom("u1"), []byte("x")))
	hub.Join(UserRoom("u1"), c)
	hub.Close()
}

func TestServeJoinsRoomsAndPushesNotifications(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, NewClient(conn, logger, time.Second), logger)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoinUser, "data": "bob"}))
	require.Eventually(t, func() bool { return hub.Count(UserRoom("bob")) == 1 }, 2*time.Second, 10*time.Millisecond)

	notifier := NewNotifier(hub)
	sent, err := notifier.SendToRecipient("bob", domain.RealtimeNotification{
		Type:           domain.NotificationVersionUpdate,
		Title:          "Update: ui-kit",
		Message:        "ui-kit updated to v1.1.0.",
		RelatedPackage: "p1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, EventNotification, frame.Event)

	var event domain.RealtimeNotification
	require.NoError(t, json.Unmarshal(frame.Data, &event))
	assert.Equal(t, "Update: ui-kit", event.Title)
	assert.Equal(t, "p1", event.RelatedPackage)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Count(UserRoom("bob")) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeLeavesRoomOnRequest(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, NewClient(conn, logger, time.Second), logger)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoinCompany, "data": "acme"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventJoinUser, "data": "bob"}))
	require.Eventually(t, func() bool {
		return hub.Count(CompanyRoom("acme")) == 1 && hub.Count(UserRoom("bob")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventLeaveCompany, "data": "acme"}))
	require.Eventually(t, func() bool { return hub.Count(CompanyRoom("acme")) == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Count(UserRoom("bob")), "leaving one room keeps the others")

	require.NoError(t, conn.WriteJSON(map[string]any{"event": EventLeaveUser, "data": "bob"}))
	require.Eventually(t, func() bool { return hub.Count(UserRoom("bob")) == 0 }, 2*time.Second, 10*time.Millisecond)
}

type stalledSubscriber struct {
	recordingSubscriber
	sending chan struct{}
	release chan struct{}
}

func (s *stalledSubscriber) Send(p []byte) error {
	close(s.sending)
	<-s.release
	return s.recordingSubscriber.Send(p)
}

func TestStalledSubscriberHoldsUpJoins(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	stalled := &stalledSubscriber{sending: make(chan struct{}), release: make(chan struct{})}
	hub.Join(UserRoom("stalled"), stalled)

	broadcastDone := make(chan int, 1)
	go func() { broadcastDone <- hub.Broadcast(UserRoom("stalled"), []byte("x")) }()
	<-stalled.sending

	joined := make(chan struct{})
	go func() {
		hub.Join(CompanyRoom("acme"), &recordingSubscriber{})
		close(joined)
	}()

	select {
	case <-joined:
		t.Fatal("join completed while a send was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(stalled.release)
	assert.Equal(t, 1, <-broadcastDone)
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("join never completed after the send returned")
	}
	assert.Equal(t, 1, hub.Count(CompanyRoom("acme")))
}
