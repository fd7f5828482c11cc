package ws

import (
	"encoding/json"
	"fmt"
)

// Events exchanged on the socket.
const (
	EventJoinCompany  = "join_company"
	EventJoinUser     = "join_user"
	EventLeaveCompany = "leave_company"
	EventLeaveUser    = "leave_user"
	EventNotification = "notification"
)

// Frame is the envelope of every socket message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// FrameError reports a message that is not a valid frame.
type FrameError struct {
	Err error
}

func (e *FrameError) Error() string { return "ws: malformed frame: " + e.Err.Error() }

func (e *FrameError) Unwrap() error { return e.Err }

// Encode marshals data into a frame for event.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("ws: encode %s: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// StringData decodes the frame payload as a string identifier.
func (f Frame) StringData() (string, error) {
	var id string
	if err := json.Unmarshal(f.Data, &id); err != nil {
		return "", err
	}
	return id, nil
}

// CompanyRoom names the room shared by a company's sessions.
func CompanyRoom(companyID string) string { return "company:" + companyID }

// UserRoom names a user's personal room.
func UserRoom(userID string) string { return "user:" + userID }
