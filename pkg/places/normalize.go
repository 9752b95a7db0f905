package places

import (
	"time"

	"github.com/presenca/discovery-audit/internal/model"
)

// Wire types for the Places API (New). Only fields named in the field masks
// are populated.

type place struct {
	ID                     string              `json:"id"`
	DisplayName            localizedText       `json:"displayName"`
	FormattedAddress       string              `json:"formattedAddress"`
	AddressComponents      []addressComponent  `json:"addressComponents"`
	Rating                 float64             `json:"rating"`
	UserRatingCount        int                 `json:"userRatingCount"`
	PrimaryTypeDisplayName localizedText       `json:"primaryTypeDisplayName"`
	NationalPhoneNumber    string              `json:"nationalPhoneNumber"`
	WebsiteURI             string              `json:"websiteUri"`
	Location               *latLng             `json:"location"`
	Photos                 []photo             `json:"photos"`
	GoogleMapsURI          string              `json:"googleMapsUri"`
	RegularOpeningHours    *openingHours       `json:"regularOpeningHours"`
	EditorialSummary       localizedText       `json:"editorialSummary"`
	BusinessStatus         string              `json:"businessStatus"`
	Reviews                []placeReview       `json:"reviews"`
}

type localizedText struct {
	Text string `json:"text"`
}

type addressComponent struct {
	ShortText string   `json:"shortText"`
	LongText  string   `json:"longText"`
	Types     []string `json:"types"`
}

type photo struct {
	Name string `json:"name"`
}

type openingHours struct {
	WeekdayDescriptions []string `json:"weekdayDescriptions"`
}

type placeReview struct {
	Rating            int           `json:"rating"`
	Text              localizedText `json:"text"`
	PublishTime       time.Time     `json:"publishTime"`
	AuthorAttribution struct {
		DisplayName string `json:"displayName"`
	} `json:"authorAttribution"`
}

func (p place) toBusiness() model.Business {
	b := model.Business{
		PlaceID:       p.ID,
		Name:          p.DisplayName.Text,
		Address:       p.FormattedAddress,
		Category:      p.PrimaryTypeDisplayName.Text,
		Phone:         p.NationalPhoneNumber,
		Website:       p.WebsiteURI,
		Rating:        p.Rating,
		TotalReviews:  p.UserRatingCount,
		PhotosCount:   len(p.Photos),
		Claimed:       p.BusinessStatus == "OPERATIONAL",
		Description:   p.EditorialSummary.Text,
		GoogleMapsURL: p.GoogleMapsURI,
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		b.Latitude = &lat
		b.Longitude = &lng
	}
	if p.RegularOpeningHours != nil {
		b.Hours = p.RegularOpeningHours.WeekdayDescriptions
	}
	for _, comp := range p.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality", "administrative_area_level_2":
				if b.City == "" {
					b.City = comp.LongText
				}
			case "administrative_area_level_1":
				b.State = comp.ShortText
			}
		}
	}
	return b
}

func (r placeReview) toReview() model.Review {
	rev := model.Review{
		Author: r.AuthorAttribution.DisplayName,
		Rating: r.Rating,
		Text:   r.Text.Text,
	}
	if !r.PublishTime.IsZero() {
		t := r.PublishTime
		rev.PublishedAt = &t
	}
	return rev
}
