package model

import "time"

// ImpersonationSession is a time-boxed capability for an admin to act
// as another user. The token is an opaque UUID held server-side so a
// session can be revoked before it expires.
type ImpersonationSession struct {
	BaseModel

	Token string `gorm:"size:36;uniqueIndex;not null" json:"-"`

	AdminID   int64 `gorm:"index;not null" json:"admin_id"`
	SubjectID int64 `gorm:"index;not null" json:"subject_id"`
	Admin     *User `gorm:"foreignKey:AdminID" json:"-"`
	Subject   *User `gorm:"foreignKey:SubjectID" json:"-"`

	Reason string `gorm:"size:255" json:"reason"`

	ExpiresAt time.Time  `gorm:"index;not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

func (ImpersonationSession) TableName() string {
	return "impersonation_sessions"
}

// Usable reports whether the session can still be exchanged for an
// access token at the given instant.
func (s *ImpersonationSession) Usable(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
