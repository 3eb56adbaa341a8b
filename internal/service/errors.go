package service

import "errors"

// Sentinel errors the controllers map to HTTP codes.
var (
	// Auth
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")

	// Listings
	ErrBrokerFee        = errors.New("listings with a broker fee are not accepted")
	ErrInvalidPrice     = errors.New("price must be greater than zero")
	ErrInvalidKind      = errors.New("kind must be rent or sale")
	ErrListingCap       = errors.New("listing cap reached for this account")
	ErrNotOwner         = errors.New("not the listing owner")
	ErrNotModeratable   = errors.New("listing is not awaiting moderation")
	ErrListingNotActive = errors.New("listing is not active")
	ErrImageCap         = errors.New("image cap reached for this listing")

	// Featured admission
	ErrFeaturedUserCap   = errors.New("featured cap reached for this account")
	ErrFeaturedGlobalCap = errors.New("global featured cap reached")

	// Impersonation
	ErrSessionNotFound   = errors.New("impersonation session not found")
	ErrSessionExpired    = errors.New("impersonation session expired")
	ErrSessionRevoked    = errors.New("impersonation session revoked")
	ErrSubjectIsAdmin    = errors.New("cannot impersonate an admin")
	ErrSubjectNotFound   = errors.New("impersonation subject not found")

	// Settings
	ErrUnknownSetting = errors.New("unknown setting")
	ErrInvalidSetting = errors.New("invalid setting value")
)
