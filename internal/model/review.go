package model

import "time"

// Review is a bounded sample entry fetched for a business.
type Review struct {
	ID          string     `json:"id"`
	BusinessID  string     `json:"business_id"`
	Author      string     `json:"author"`
	Rating      int        `json:"rating"`
	Text        string     `json:"text"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
