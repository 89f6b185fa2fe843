package models

// Message is a persisted unit of work for one channel type.
// Timestamps are epoch seconds.
type Message struct {
	ID                 uint               `gorm:"primaryKey" json:"id"`
	CreatedAt          int64              `gorm:"column:created_at;not null;index;autoCreateTime:false" json:"created_at"`
	Processing         bool               `gorm:"not null;default:false" json:"processing"`
	Type               ChannelType        `gorm:"size:16;not null;index" json:"type"`
	Destinations       Destinations       `gorm:"type:text;not null" json:"destinations"`
	Body               *string            `gorm:"type:text" json:"body,omitempty"`
	Subject            *string            `gorm:"type:text" json:"subject,omitempty"`
	Attachments        Attachments        `gorm:"type:text" json:"attachments,omitempty"`
	Attempts           int                `gorm:"not null;default:0" json:"attempts"`
	LastAttemptAt      *int64             `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
	LastError          *string            `gorm:"type:text" json:"last_error,omitempty"`
	FailedDestinations FailedDestinations `gorm:"type:text" json:"failed_destinations,omitempty"`
}

// TableName overrides the table name
func (Message) TableName() string {
	return "messages_queue"
}

// AttemptColumns are the only columns written after the first insert
var AttemptColumns = []string{
	"processing",
	"destinations",
	"attempts",
	"last_attempt_at",
	"last_error",
	"failed_destinations",
}
