package repository

import (
	"gorm.io/gorm"
)

// RecencyWindow is the number of seconds, counted back from Eligibility.Now,
// within which a previous attempt keeps a message eligible.
const RecencyWindow int64 = 600

// Eligibility is the gate applied to a delivery pass that is not forced
type Eligibility struct {
	MaxAttempts int
	Now         int64
}

// Filter selects queued messages.
// A non-zero ID restricts the selection to that message and disables the gate.
type Filter struct {
	ID          uint
	AddedAfter  int64
	Eligibility *Eligibility
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.ID > 0 {
		db = db.Where("id = ?", f.ID)
	}
	if f.AddedAfter > 0 {
		db = db.Where("created_at >= ?", f.AddedAfter)
	}
	if f.ID == 0 && f.Eligibility != nil {
		// Messages last attempted more than RecencyWindow ago are excluded.
		db = db.Where(
			"processing = ? AND attempts < ? AND (last_attempt_at IS NULL OR last_attempt_at > ?)",
			false, f.Eligibility.MaxAttempts, f.Eligibility.Now-RecencyWindow,
		)
	}
	return db
}
