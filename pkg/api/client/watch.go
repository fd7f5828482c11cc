package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/splax/modulehub/internal/domain"
	"github.com/splax/modulehub/internal/ws"
)

// Watch joins the company and personal rooms of profile and calls fn for each
// pushed notification until ctx is cancelled or the socket closes.
func (c *Client) Watch(ctx context.Context, profile domain.UserProfile, fn func(domain.RealtimeNotification)) error {
	endpoint := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial socket: %w", err)
	}
	defer conn.Close()

	companyID := profile.CompanyID
	if profile.Company != nil {
		companyID = profile.Company.ID
	}
	if companyID != "" {
		if err := conn.WriteJSON(joinFrame(ws.EventJoinCompany, companyID)); err != nil {
			return fmt.Errorf("join company room: %w", err)
		}
	}
	if err := conn.WriteJSON(joinFrame(ws.EventJoinUser, profile.ID)); err != nil {
		return fmt.Errorf("join user room: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var frame ws.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read socket: %w", err)
		}
		if frame.Event != ws.EventNotification {
			continue
		}
		var event domain.RealtimeNotification
		if err := json.Unmarshal(frame.Data, &event); err != nil {
			continue
		}
		fn(event)
	}
}

func joinFrame(event, id string) map[string]string {
	return map[string]string{"event": event, "data": id}
}
