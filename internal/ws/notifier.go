package ws

import (
	"github.com/splax/modulehub/internal/domain"
)

// Notifier pushes notification events into hub rooms.
type Notifier struct {
	hub *Hub
}

// NewNotifier binds a Notifier to hub.
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// BroadcastToGroup emits event to every session that joined the company room.
func (n *Notifier) BroadcastToGroup(companyID string, event domain.RealtimeNotification) (int, error) {
	return n.emit(CompanyRoom(companyID), event)
}

// SendToRecipient emits event to the user's personal room.
func (n *Notifier) SendToRecipient(userID string, event domain.RealtimeNotification) (int, error) {
	return n.emit(UserRoom(userID), event)
}

func (n *Notifier) emit(room string, event domain.RealtimeNotification) (int, error) {
	payload, err := Encode(EventNotification, event)
	if err != nil {
		return 0, err
	}
	return n.hub.Broadcast(room, payload), nil
}
