package ws

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/gorilla/websocket"
)

// Serve runs the read loop for client until the peer disconnects, joining
// rooms on request. The client is removed from every room on return.
//
// Joins are not checked against the caller's identity.
func Serve(h *Hub, c *Client, logger *slog.Logger) {
	defer func() {
		h.Drop(c)
		c.Close()
	}()
	for {
		frame, err := c.ReadFrame()
		if err != nil {
			var frameErr *FrameError
			if errors.As(err, &frameErr) {
				logger.Debug("ignoring malformed socket frame", "error", err)
				continue
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("socket read ended", "error", err)
			}
			return
		}
		var room func(string) string
		switch frame.Event {
		case EventJoinCompany, EventLeaveCompany:
			room = CompanyRoom
		case EventJoinUser, EventLeaveUser:
			room = UserRoom
		default:
			logger.Debug("ignoring unknown socket event", "event", frame.Event)
			continue
		}
		id, err := frame.StringData()
		if err != nil || strings.TrimSpace(id) == "" {
			logger.Debug("ignoring room event without id", "event", frame.Event)
			continue
		}
		switch frame.Event {
		case EventLeaveCompany, EventLeaveUser:
			h.Leave(room(id), c)
			logger.Debug("socket left room", "room", room(id))
		default:
			h.Join(room(id), c)
			logger.Debug("socket joined room", "room", room(id))
		}
	}
}
