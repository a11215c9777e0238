package model

import "time"

// Match records that an offer satisfies a subscription.
type Match struct {
	OfferID        int64     `json:"offer_id"`
	SubscriptionID int64     `json:"subscription_id"`
	Score          float64   `json:"score"`
	MatchedAt      time.Time `json:"matched_at"`
}

// Notification records that an offer was sent to a subscription. There is at
// most one per offer and subscription.
type Notification struct {
	ID             int64     `json:"id"`
	OfferID        int64     `json:"offer_id"`
	SubscriptionID int64     `json:"subscription_id"`
	SentAt         time.Time `json:"sent_at"`
}
