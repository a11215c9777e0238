package model

import (
	"strings"
	"time"
)

// OfferType is the category of an offer.
type OfferType string

// Offer type constants. They match the CHECK constraint of offers.offer_type.
const (
	// OfferTypeRealEstate is an apartment, house or plot.
	OfferTypeRealEstate OfferType = "real_estate"
	// OfferTypeVehicle is a car, motorbike or similar.
	OfferTypeVehicle OfferType = "vehicle"
	// OfferTypeOther is everything else.
	OfferTypeOther OfferType = "other"
)

// String returns the stored representation of the offer type.
func (t OfferType) String() string {
	return string(t)
}

// IsValid returns true if this is a known offer type.
func (t OfferType) IsValid() bool {
	switch t {
	case OfferTypeRealEstate, OfferTypeVehicle, OfferTypeOther:
		return true
	default:
		return false
	}
}

// ParseOfferType parses a stored offer type. Unknown values map to
// OfferTypeOther.
func ParseOfferType(s string) OfferType {
	t := OfferType(strings.ToLower(strings.TrimSpace(s)))
	if t.IsValid() {
		return t
	}
	return OfferTypeOther
}

// sourceTypes maps portals to the type of offers they list.
var sourceTypes = map[string]OfferType{
	"olx":                  OfferTypeRealEstate,
	"otodom":               OfferTypeRealEstate,
	"morizon":              OfferTypeRealEstate,
	"gratka":               OfferTypeRealEstate,
	"domiporta":            OfferTypeRealEstate,
	"nieruchomosci-online": OfferTypeRealEstate,
	"otomoto":              OfferTypeVehicle,
	"autoplac":             OfferTypeVehicle,
}

// OfferTypeForSource returns the type of offers scraped from source.
func OfferTypeForSource(source string) OfferType {
	if t, ok := sourceTypes[strings.ToLower(strings.TrimSpace(source))]; ok {
		return t
	}
	return OfferTypeOther
}

// DefaultCurrency is used when a scraper reports no currency.
const DefaultCurrency = "PLN"

// Offer is one classified ad.
type Offer struct {
	// ID is assigned by the database.
	ID int64 `json:"id"`

	// URL identifies the offer; scraping the same URL again updates it.
	URL string `json:"url"`

	// Source is the portal the offer was scraped from, e.g. "otodom".
	Source string `json:"source"`

	Title string `json:"title"`

	// Price is the asking price in whole units of Currency. Nil when the ad
	// has no price.
	Price *int64 `json:"price,omitempty"`

	Currency    string `json:"currency"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`

	// PostedAt is when the ad was published, if the portal shows it.
	PostedAt *time.Time `json:"posted_at,omitempty"`

	// ScrapedAt is when the offer was last seen.
	ScrapedAt time.Time `json:"scraped_at"`

	Type OfferType `json:"offer_type"`

	// Enrichment fields, filled after the offer page was analyzed.
	AreaM2     *float64   `json:"area_m2,omitempty"`
	Rooms      *int       `json:"rooms,omitempty"`
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
}

// Normalize fills defaults derived from other fields.
func (o *Offer) Normalize() {
	o.URL = strings.TrimSpace(o.URL)
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}
	if !o.Type.IsValid() {
		o.Type = OfferTypeForSource(o.Source)
	}
}

// PricePerSquareMeter returns the price divided by the area. It reports false
// when either is unknown.
func (o *Offer) PricePerSquareMeter() (float64, bool) {
	if o.Price == nil || o.AreaM2 == nil || *o.AreaM2 <= 0 {
		return 0, false
	}
	return float64(*o.Price) / *o.AreaM2, true
}

// IsEnriched returns true if enrichment data was stored for the offer.
func (o *Offer) IsEnriched() bool {
	return o.EnrichedAt != nil
}
