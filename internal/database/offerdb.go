package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/offerwatch/internal/migration"
	"github.com/nao1215/offerwatch/internal/model"
	"github.com/nao1215/offerwatch/internal/timefmt"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("not found")

// OfferDB is the offerwatch store on a fully migrated schema.
type OfferDB struct {
	db         *sql.DB
	dbPath     string
	now        func() time.Time
	migrations *migration.Result
}

// Close closes the database connection.
func (o *OfferDB) Close() error {
	return o.db.Close()
}

// Path returns the database file path.
func (o *OfferDB) Path() string {
	return o.dbPath
}

// Migrations returns what Open applied.
func (o *OfferDB) Migrations() *migration.Result {
	return o.migrations
}

const offerColumns = `id, url, source, title, price, currency, location, description,
	posted_at, scraped_at, offer_type, area_m2, rooms, enriched_at`

// UpsertOffer inserts an offer or, if its URL is already stored, updates it.
// ScrapedAt is set to the current time. It returns the offer ID.
func (o *OfferDB) UpsertOffer(ctx context.Context, offer *model.Offer) (int64, error) {
	offer.Normalize()
	if offer.URL == "" {
		return 0, errors.New("offer has no url")
	}
	offer.ScrapedAt = o.now().UTC().Truncate(time.Millisecond)

	query := `
	INSERT INTO offers (url, source, title, price, currency, location, description, posted_at, scraped_at, offer_type)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(url) DO UPDATE SET
		source = excluded.source,
		title = excluded.title,
		price = excluded.price,
		currency = excluded.currency,
		location = excluded.location,
		description = excluded.description,
		posted_at = COALESCE(excluded.posted_at, offers.posted_at),
		scraped_at = excluded.scraped_at,
		offer_type = excluded.offer_type
	RETURNING id
	`

	var id int64
	err := o.db.QueryRowContext(ctx, query,
		offer.URL,
		offer.Source,
		offer.Title,
		nullInt64(offer.Price),
		offer.Currency,
		nullString(offer.Location),
		nullString(offer.Description),
		nullTime(offer.PostedAt),
		timefmt.Format(offer.ScrapedAt),
		offer.Type.String(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert offer %s: %w", offer.URL, err)
	}

	offer.ID = id
	return id, nil
}

// GetOffer retrieves an offer by URL. It returns nil if there is none.
func (o *OfferDB) GetOffer(ctx context.Context, url string) (*model.Offer, error) {
	row := o.db.QueryRowContext(ctx, `SELECT `+offerColumns+` FROM offers WHERE url = ?`, url)
	offer, err := scanOffer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return offer, nil
}

// ListOffersSince returns offers scraped at or after since, newest first.
func (o *OfferDB) ListOffersSince(ctx context.Context, since time.Time) ([]model.Offer, error) {
	rows, err := o.db.QueryContext(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE scraped_at >= ? ORDER BY scraped_at DESC, id DESC`,
		timefmt.Format(since))
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

// SetEnrichment stores the analyzed area and room count of an offer.
func (o *OfferDB) SetEnrichment(ctx context.Context, offerID int64, areaM2 *float64, rooms *int) error {
	var roomsArg any
	if rooms != nil {
		roomsArg = *rooms
	}
	var areaArg any
	if areaM2 != nil {
		areaArg = *areaM2
	}

	res, err := o.db.ExecContext(ctx,
		`UPDATE offers SET area_m2 = ?, rooms = ?, enriched_at = ? WHERE id = ?`,
		areaArg, roomsArg, timefmt.Format(o.now()), offerID)
	if err != nil {
		return fmt.Errorf("failed to enrich offer %d: %w", offerID, err)
	}
	return expectOneRow(res, "offer", offerID)
}

// DeleteOffersScrapedBefore deletes offers last seen before cutoff. Their
// matches and notifications are removed by the cascading foreign keys.
func (o *OfferDB) DeleteOffersScrapedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := o.db.ExecContext(ctx, `DELETE FROM offers WHERE scraped_at < ?`, timefmt.Format(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old offers: %w", err)
	}
	return res.RowsAffected()
}

// AddSubscription stores a new active subscription and returns its ID.
func (o *OfferDB) AddSubscription(ctx context.Context, sub *model.Subscription) (int64, error) {
	if !sub.Platform.IsValid() {
		return 0, fmt.Errorf("unknown notification platform %q", sub.Platform)
	}
	sub.Active = true
	sub.CreatedAt = o.now().UTC().Truncate(time.Millisecond)

	var id int64
	err := o.db.QueryRowContext(ctx, `
	INSERT INTO subscriptions (platform, target, query, max_price, active, created_at)
	VALUES (?, ?, ?, ?, 1, ?)
	RETURNING id
	`,
		sub.Platform.String(),
		sub.Target,
		sub.Query,
		nullInt64(sub.MaxPrice),
		timefmt.Format(sub.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to add subscription: %w", err)
	}

	sub.ID = id
	return id, nil
}

// ListActiveSubscriptions returns active subscriptions in creation order.
func (o *OfferDB) ListActiveSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := o.db.QueryContext(ctx, `
	SELECT id, platform, target, query, max_price, active, created_at
	FROM subscriptions
	WHERE active = 1
	ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var (
			sub       model.Subscription
			platform  string
			maxPrice  sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&sub.ID, &platform, &sub.Target, &sub.Query, &maxPrice, &sub.Active, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		sub.Platform = model.NotificationPlatform(platform)
		sub.MaxPrice = int64Ptr(maxPrice)
		sub.CreatedAt = parseTimestamp(createdAt)
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// DeactivateSubscription stops notifications for a subscription.
func (o *OfferDB) DeactivateSubscription(ctx context.Context, id int64) error {
	res, err := o.db.ExecContext(ctx, `UPDATE subscriptions SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate subscription %d: %w", id, err)
	}
	return expectOneRow(res, "subscription", id)
}

// RecordMatch stores that an offer matches a subscription. Recording the same
// pair again updates the score.
func (o *OfferDB) RecordMatch(ctx context.Context, match model.Match) error {
	_, err := o.db.ExecContext(ctx, `
	INSERT INTO offer_matches (offer_id, subscription_id, score, matched_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(offer_id, subscription_id) DO UPDATE SET score = excluded.score
	`, match.OfferID, match.SubscriptionID, match.Score, timefmt.Format(o.now()))
	if err != nil {
		return fmt.Errorf("failed to record match of offer %d: %w", match.OfferID, err)
	}
	return nil
}

// PendingNotifications returns matched offers not yet sent to the
// subscription, best match first.
func (o *OfferDB) PendingNotifications(ctx context.Context, subscriptionID int64) ([]model.Offer, error) {
	rows, err := o.db.QueryContext(ctx, `
	SELECT o.id, o.url, o.source, o.title, o.price, o.currency, o.location, o.description,
		o.posted_at, o.scraped_at, o.offer_type, o.area_m2, o.rooms, o.enriched_at
	FROM offer_matches m
	JOIN offers o ON o.id = m.offer_id
	LEFT JOIN notifications n ON n.offer_id = m.offer_id AND n.subscription_id = m.subscription_id
	WHERE m.subscription_id = ? AND n.id IS NULL
	ORDER BY m.score DESC, o.id
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending notifications: %w", err)
	}
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offer: %w", err)
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

// MarkNotified records that an offer was sent to a subscription. It reports
// false if it had already been recorded.
func (o *OfferDB) MarkNotified(ctx context.Context, offerID, subscriptionID int64) (bool, error) {
	res, err := o.db.ExecContext(ctx, `
	INSERT INTO notifications (offer_id, subscription_id, sent_at)
	VALUES (?, ?, ?)
	ON CONFLICT(offer_id, subscription_id) DO NOTHING
	`, offerID, subscriptionID, timefmt.Format(o.now()))
	if err != nil {
		return false, fmt.Errorf("failed to mark offer %d as notified: %w", offerID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Notifications returns the notifications sent to a subscription, oldest
// first.
func (o *OfferDB) Notifications(ctx context.Context, subscriptionID int64) ([]model.Notification, error) {
	rows, err := o.db.QueryContext(ctx, `
	SELECT id, offer_id, subscription_id, sent_at FROM notifications
	WHERE subscription_id = ?
	ORDER BY sent_at, id
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var (
			n      model.Notification
			sentAt string
		)
		if err := rows.Scan(&n.ID, &n.OfferID, &n.SubscriptionID, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.SentAt = parseTimestamp(sentAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// Counts returns the number of rows of each domain table.
func (o *OfferDB) Counts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, table := range []string{"offers", "subscriptions", "offer_matches", "notifications"} {
		var n int64
		if err := o.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOffer(row rowScanner) (*model.Offer, error) {
	var (
		offer       model.Offer
		price       sql.NullInt64
		location    sql.NullString
		description sql.NullString
		postedAt    sql.NullString
		scrapedAt   string
		offerType   string
		areaM2      sql.NullFloat64
		rooms       sql.NullInt64
		enrichedAt  sql.NullString
	)
	err := row.Scan(
		&offer.ID,
		&offer.URL,
		&offer.Source,
		&offer.Title,
		&price,
		&offer.Currency,
		&location,
		&description,
		&postedAt,
		&scrapedAt,
		&offerType,
		&areaM2,
		&rooms,
		&enrichedAt,
	)
	if err != nil {
		return nil, err
	}

	offer.Price = int64Ptr(price)
	offer.Location = location.String
	offer.Description = description.String
	offer.PostedAt = timePtr(postedAt)
	offer.ScrapedAt = parseTimestamp(scrapedAt)
	offer.Type = model.ParseOfferType(offerType)
	if areaM2.Valid {
		offer.AreaM2 = &areaM2.Float64
	}
	if rooms.Valid {
		n := int(rooms.Int64)
		offer.Rooms = &n
	}
	offer.EnrichedAt = timePtr(enrichedAt)
	return &offer, nil
}

func expectOneRow(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// parseTimestamp parses a stored timestamp. Every stored value is canonical
// after migration; anything else yields the zero time.
func parseTimestamp(s string) time.Time {
	t, err := timefmt.Parse(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func timePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := parseTimestamp(s.String)
	return &t
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: timefmt.Format(*t), Valid: true}
}
