package banner

import "time"

// DateLayout is the textual form of start_date and end_date in requests.
// Values are interpreted as UTC.
const DateLayout = "2006-01-02 15:04:05"

// DefaultListLimit applies when the caller gives no usable limit.
const DefaultListLimit = 50

// Default banner text, returned when nothing stored is eligible.
const (
	DefaultTitle   = "Welcome"
	DefaultContent = "This is the default banner announcement."
)

// Banner is a promotional message shown during [StartDate, EndDate) while
// IsActive is set.
type Banner struct {
	ID        int64     `json:"id"`
	Title     *string   `json:"title"`
	Content   string    `json:"content"`
	ImageURL  *string   `json:"image_url"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateRequest is the body of POST /banners.
type CreateRequest struct {
	Title     *string `json:"title"`
	Content   string  `json:"content"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

// UpdateRequest is the body of PUT /banners/:id. Nil fields are left as
// they are.
type UpdateRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	IsActive  *bool   `json:"is_active"`
}

// ImageUpload is the payload of the standalone upload endpoint.
type ImageUpload struct {
	ImageURL string `json:"image_url"`
}

func defaultBanner(now time.Time) Banner {
	title := DefaultTitle
	return Banner{
		Title:     &title,
		Content:   DefaultContent,
		StartDate: now,
		EndDate:   now,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
