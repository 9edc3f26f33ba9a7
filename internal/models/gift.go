package models

import "time"

// Gift represents an uploaded memory, optionally scheduled for delivery.
// Exactly one of FileName/CustomMessage is meaningful for display.
//
// The snake_case JSON names are the canonical wire contract; the legacy
// CamelCase variants some old clients emitted are handled on the client side
// only.
type Gift struct {
	ID               int        `json:"id"`
	UserID           int        `json:"-"`
	FileName         string     `json:"file_name"`
	CustomMessage    string     `json:"custom_message"`
	UploadTime       time.Time  `json:"upload_time"`
	Pending          bool       `json:"pending"`
	Receivers        string     `json:"-"` // comma-separated recipient emails
	FileData         []byte     `json:"-"`
	ScheduledRelease *time.Time `json:"scheduled_release,omitempty"`
}

// CalendarEvent is the read-only calendar projection of a scheduled gift.
type CalendarEvent struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"releaseDate"` // RFC3339 UTC; empty when unscheduled
	Message     string `json:"message"`
	IsPending   bool   `json:"isPending"`
	Receivers   string `json:"receivers"`
}

// InactivityCheck is a scheduled two-phase check. The user is warned at
// NotifyAt and their pending gifts are released at ReleaseAt unless the
// check is cancelled in between.
type InactivityCheck struct {
	UserID    int
	NotifyAt  time.Time
	ReleaseAt time.Time
	Notified  bool
}

// EventTitle is the calendar title for a gift: the file name when present,
// otherwise a generic label.
func (g *Gift) EventTitle() string {
	if g.FileName != "" {
		return g.FileName
	}
	return "Gift"
}
