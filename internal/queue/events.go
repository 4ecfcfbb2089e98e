package queue

import (
	"context"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

// Event types published by the API.
const (
	TypeClockIn       = "attendance.clock_in"
	TypeClockOut      = "attendance.clock_out"
	TypeBannerChanged = "banner.changed"
)

// AttendanceEvent is the body of clock-in and clock-out messages.
type AttendanceEvent struct {
	RecordID int64  `json:"record_id"`
	UserID   string `json:"user_id"`
}

// BannerEvent is the body of banner.changed messages.
type BannerEvent struct {
	BannerID int64  `json:"banner_id"`
	Action   string `json:"action"`
}

// Encode builds a message of the given type around body.
func Encode(typ string, body any) (Message, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: typ, Body: raw}, nil
}

// Decode unmarshals the message body into dst.
func (m Message) Decode(dst any) error {
	return json.Unmarshal(m.Body, dst)
}

// Emit publishes an event without failing the caller: events are a side
// channel, so errors are logged and dropped. A nil publisher is a no-op.
func Emit(ctx context.Context, p Publisher, typ string, body any) {
	if p == nil {
		return
	}
	msg, err := Encode(typ, body)
	if err != nil {
		log.WithError(err).WithField("type", typ).Warn("queue: encode event failed")
		return
	}
	if err := p.Publish(ctx, msg); err != nil {
		log.WithError(err).WithField("type", typ).Warn("queue publish failed")
	}
}
