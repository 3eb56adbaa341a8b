package model

import "time"

// ==================== Digest bookkeeping ====================

type DigestKind string

const (
	DigestKindSubscriber DigestKind = "subscriber"
	DigestKindAdmin      DigestKind = "admin"
)

type DigestStatus string

const (
	DigestStatusSent    DigestStatus = "sent"
	DigestStatusSkipped DigestStatus = "skipped" // nothing to report
	DigestStatusFailed  DigestStatus = "failed"
)

// DigestRun records one attempted digest email, so the scheduler can
// tell what was last covered and admins can see delivery failures.
type DigestRun struct {
	BaseModel

	Kind    DigestKind   `gorm:"size:20;index;not null" json:"kind"`
	Status  DigestStatus `gorm:"size:20;index;not null" json:"status"`
	Error   string       `gorm:"size:500" json:"error,omitempty"`
	ItemCnt int          `gorm:"default:0" json:"item_cnt"`

	// Subscriber digests point at the saved search they served.
	SavedSearchID int64  `gorm:"index;default:0" json:"saved_search_id"`
	Recipient     string `gorm:"size:255" json:"recipient"`

	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (DigestRun) TableName() string {
	return "digest_runs"
}
