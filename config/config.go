// agora/config/config.go
package config

const (
	AppVersion = "0.4.1"

	// Form & Content Limits
	MaxUsernameLen = 30
	MinPasswordLen = 6
	MaxTitleLen    = 200
	MaxContentLen  = 20000
	MaxCommentLen  = 5000
	MaxBioLen      = 500
	MaxTagCount    = 10

	// Pagination Defaults
	DefaultPageSize  = 20
	SearchPageSize   = 10
	MaxPageSize      = 100
	RecentItemsLimit = 5

	// Session Defaults
	DefaultTokenTTL = "720h" // 30 days
)
