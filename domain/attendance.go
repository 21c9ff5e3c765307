package domain

import "time"

// AttendanceRecord is the single ledger row for one agent on one calendar
// day. Day is the check-in day in the service timezone and is unique per
// agent. AgentName is denormalized and overwritten on every touch. The
// punch-out location and image are kept separate from the check-in ones.
type AttendanceRecord struct {
	ID           string     `db:"id" json:"id"`
	AgentID      string     `db:"agent_id" json:"agent_id"`
	AgentName    string     `db:"agent_name" json:"agent_name"`
	Day          string     `db:"day" json:"day"`
	CheckInTime  time.Time  `db:"check_in_time" json:"check_in_time"`
	CheckOutTime *time.Time `db:"check_out_time" json:"check_out_time,omitempty"`
	Status       string     `db:"status" json:"status"`
	WorkType     *string    `db:"work_type" json:"work_type,omitempty"`
	Reason       *string    `db:"reason" json:"reason,omitempty"`

	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`
	Address   *string  `db:"address" json:"address,omitempty"`
	ImageURL  *string  `db:"image_url" json:"image_url,omitempty"`

	PunchOutLatitude  *float64 `db:"punch_out_latitude" json:"punch_out_latitude,omitempty"`
	PunchOutLongitude *float64 `db:"punch_out_longitude" json:"punch_out_longitude,omitempty"`
	PunchOutAddress   *string  `db:"punch_out_address" json:"punch_out_address,omitempty"`
	PunchOutImageURL  *string  `db:"punch_out_image_url" json:"punch_out_image_url,omitempty"`
}
