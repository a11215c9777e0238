package model

import (
	"strings"
	"time"
)

// NotificationPlatform is the messenger a subscription delivers to.
type NotificationPlatform string

// Notification platform constants. They match the CHECK constraint of
// subscriptions.platform.
const (
	// NotificationPlatformTelegram targets are chat IDs.
	NotificationPlatformTelegram NotificationPlatform = "telegram"
	// NotificationPlatformDiscord targets are webhook URLs.
	NotificationPlatformDiscord NotificationPlatform = "discord"
)

// String returns the stored representation of the platform.
func (p NotificationPlatform) String() string {
	return string(p)
}

// IsValid returns true if this is a known platform.
func (p NotificationPlatform) IsValid() bool {
	return p == NotificationPlatformTelegram || p == NotificationPlatformDiscord
}

// ParseNotificationPlatform parses a platform name case-insensitively. It
// returns false for unknown names.
func ParseNotificationPlatform(s string) (NotificationPlatform, bool) {
	p := NotificationPlatform(strings.ToLower(strings.TrimSpace(s)))
	return p, p.IsValid()
}

// Subscription asks for offers matching Query to be sent to Target.
type Subscription struct {
	ID       int64                `json:"id"`
	Platform NotificationPlatform `json:"platform"`

	// Target is a Telegram chat ID or a Discord webhook URL.
	Target string `json:"target"`

	// Query is a whitespace separated list of terms. An offer matches when
	// every term occurs in its title, location or description.
	Query string `json:"query"`

	// MaxPrice excludes offers above it. Nil means no limit.
	MaxPrice *int64 `json:"max_price,omitempty"`

	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Accepts reports whether offer satisfies the subscription's query and price
// limit. Offers without a price pass the price limit.
func (s *Subscription) Accepts(offer *Offer) bool {
	if !s.Active {
		return false
	}
	if s.MaxPrice != nil && offer.Price != nil && *offer.Price > *s.MaxPrice {
		return false
	}

	haystack := strings.ToLower(offer.Title + " " + offer.Location + " " + offer.Description)
	for _, term := range strings.Fields(strings.ToLower(s.Query)) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
