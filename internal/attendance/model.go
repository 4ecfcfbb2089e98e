package attendance

import "time"

// DefaultHistoryLimit applies when the caller gives no usable limit.
const DefaultHistoryLimit = 50

// Record is one clock-in/clock-out session. ClockOutTime is nil while the
// session is open.
type Record struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"user_id"`
	ClockInTime  time.Time  `json:"clock_in_time"`
	ClockOutTime *time.Time `json:"clock_out_time"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Open reports whether the session has not been closed yet.
func (r Record) Open() bool { return r.ClockOutTime == nil }

// ClockRequest is the body of the clock-in and clock-out endpoints.
type ClockRequest struct {
	UserID string `json:"user_id"`
}
