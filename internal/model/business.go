package model

import "time"

// Business is the canonical record for a place resolved through the lookup
// adapter. It is refreshed on every new lookup and referenced by many audits.
type Business struct {
	ID            string    `json:"id"`
	PlaceID       string    `json:"place_id"`
	Name          string    `json:"name"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Category      string    `json:"category"`
	Phone         string    `json:"phone,omitempty"`
	Website       string    `json:"website,omitempty"`
	Rating        float64   `json:"rating"`
	TotalReviews  int       `json:"total_reviews"`
	PhotosCount   int       `json:"photos_count"`
	Claimed       bool      `json:"claimed"`
	Latitude      *float64  `json:"latitude,omitempty"`
	Longitude     *float64  `json:"longitude,omitempty"`
	Description   string    `json:"description,omitempty"`
	Hours         []string  `json:"hours,omitempty"`
	GoogleMapsURL string    `json:"google_maps_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasWebsite reports whether the profile lists a website.
func (b Business) HasWebsite() bool {
	return b.Website != ""
}

// HasLocation reports whether coordinates are known, which selects the
// nearby-search competitor discovery path over the text fallback.
func (b Business) HasLocation() bool {
	return b.Latitude != nil && b.Longitude != nil
}
