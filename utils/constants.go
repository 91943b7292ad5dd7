package utils

import (
	"time"
)

// Graph API polling defaults
const (
	// PollInterval is the delay between two status checks of a pending video or container
	PollInterval = 5 * time.Second

	// MaxPolls bounds every polling loop (60 x 5s = 5 minutes)
	MaxPolls = 60
)

// Media constants
const (
	DefaultFacebookVideoSeconds = 30
	DefaultReelSeconds          = 15
	MaxStorySeconds             = 15

	MinVideoSeconds = 3
	MaxVideoSeconds = 90
)

// Content constants
const (
	MaxHashtags   = 30
	MaxPostLength = 2200

	MinCarouselItems = 2
	MaxCarouselItems = 10
)

// Token constants
const (
	// TokenCacheTTL is how long decrypted-on-read token rows stay in cache
	TokenCacheTTL = time.Hour

	// EncryptionKeySalt and EncryptionKeyIterations derive a Fernet key from a short secret
	EncryptionKeySalt       = "stable_salt_v1"
	EncryptionKeyIterations = 100000
)
