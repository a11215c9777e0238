// Package model defines the rows offerwatch stores once its schema is
// current.
//
// This package contains the following main types:
//   - Offer: A scraped listing, optionally enriched with details
//   - Subscription: A saved search delivered to one notification platform
//   - Match: An offer that satisfied a subscription
//   - Notification: A delivery record for one offer
//
// The types are independent of the database package so that tests and
// report code can build them without a connection.
package model
