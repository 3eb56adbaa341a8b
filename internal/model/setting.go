package model

// AdminSetting is a name→value row for knobs admins can change at
// runtime: featured caps, listing expiration window, digest hour, etc.
// Values are stored as strings; typed access lives in SettingsService.
type AdminSetting struct {
	BaseModel
	AuditMixin

	Name  string `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Value string `gorm:"size:500;not null" json:"value"`
}

func (AdminSetting) TableName() string {
	return "admin_settings"
}

// Well-known setting names.
const (
	SettingFeaturedPerUserCap  = "featured_per_user_cap"
	SettingFeaturedGlobalCap   = "featured_global_cap"
	SettingListingExpiryDays   = "listing_expiry_days"
	SettingListingImageCap     = "listing_image_cap"
	SettingEventRetentionDays  = "event_retention_days"
	SettingImpersonationTTLMin = "impersonation_ttl_minutes"
	SettingDigestSendHour      = "digest_send_hour"
	SettingAgentListingCap     = "agent_listing_cap"
	SettingUserListingCap      = "user_listing_cap"
)
