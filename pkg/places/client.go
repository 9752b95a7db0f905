package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// Field masks per endpoint. The Places API (New) bills by field, so each
// call requests only what the audit consumes.
const (
	searchFieldMask = "places.id,places.displayName,places.formattedAddress,places.rating," +
		"places.userRatingCount,places.primaryTypeDisplayName,places.googleMapsUri"
	detailsFieldMask = "id,displayName,formattedAddress,addressComponents,rating,userRatingCount," +
		"primaryTypeDisplayName,nationalPhoneNumber,websiteUri,location,photos,googleMapsUri," +
		"regularOpeningHours,editorialSummary,businessStatus"
	reviewsFieldMask = "id,reviews"
	nearbyFieldMask  = "places.id,places.displayName,places.formattedAddress,places.rating," +
		"places.userRatingCount,places.primaryTypeDisplayName,places.websiteUri," +
		"places.photos,places.googleMapsUri"
)

// Client performs Google Places API (New) operations.
type Client interface {
	// SearchBusiness finds the best match for a business name in a city.
	// Returns model.NotFoundError when the query yields no places.
	SearchBusiness(ctx context.Context, name, city string) (*model.Business, error)

	// GetDetails fetches the full profile for a place.
	GetDetails(ctx context.Context, placeID string) (*model.Business, error)

	// GetReviews fetches up to max recent reviews for a place. The API caps
	// the payload at five reviews per place.
	GetReviews(ctx context.Context, placeID string, max int) ([]model.Review, error)

	// FindNearby returns businesses of the same category around a point,
	// ranked by popularity, excluding the audited place itself.
	FindNearby(ctx context.Context, q NearbyQuery) ([]model.Business, error)
}

// NearbyQuery describes a competitor search around the audited business.
type NearbyQuery struct {
	Latitude       float64
	Longitude      float64
	Category       string
	RadiusMeters   float64
	Limit          int
	ExcludePlaceID string
}

// QuotaError signals the API key ran out of quota. It is terminal for the
// whole audit, not retried.
type QuotaError struct {
	Body string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("places: quota exhausted: %s", e.Body)
}

// IsQuotaError reports whether err is a Places quota exhaustion.
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return eris.As(err, &qe)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLocale sets the language and region codes sent with every request.
func WithLocale(language, region string) Option {
	return func(c *httpClient) {
		c.languageCode = language
		c.regionCode = region
	}
}

// WithRateLimit caps outbound requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

type httpClient struct {
	apiKey       string
	baseURL      string
	languageCode string
	regionCode   string
	http         *http.Client
	limiter      *rate.Limiter
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:       apiKey,
		baseURL:      defaultBaseURL,
		languageCode: "pt-BR",
		regionCode:   "BR",
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type textSearchRequest struct {
	TextQuery    string `json:"textQuery"`
	LanguageCode string `json:"languageCode,omitempty"`
	RegionCode   string `json:"regionCode,omitempty"`
	PageSize     int    `json:"pageSize,omitempty"`
}

type searchNearbyRequest struct {
	IncludedTypes       []string            `json:"includedTypes,omitempty"`
	MaxResultCount      int                 `json:"maxResultCount"`
	RankPreference      string              `json:"rankPreference"`
	LanguageCode        string              `json:"languageCode,omitempty"`
	RegionCode          string              `json:"regionCode,omitempty"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type placesResponse struct {
	Places []place `json:"places"`
}

func (c *httpClient) SearchBusiness(ctx context.Context, name, city string) (*model.Business, error) {
	reqBody := textSearchRequest{
		TextQuery:    name + ", " + city,
		LanguageCode: c.languageCode,
		RegionCode:   c.regionCode,
		PageSize:     1,
	}
	var result placesResponse
	if err := c.post(ctx, "/places:searchText", searchFieldMask, reqBody, &result); err != nil {
		return nil, err
	}
	if len(result.Places) == 0 {
		return nil, &model.NotFoundError{Name: name, Location: city}
	}
	b := result.Places[0].toBusiness()
	return &b, nil
}

func (c *httpClient) GetDetails(ctx context.Context, placeID string) (*model.Business, error) {
	var p place
	if err := c.get(ctx, "/places/"+placeID, detailsFieldMask, &p); err != nil {
		return nil, err
	}
	b := p.toBusiness()
	return &b, nil
}

func (c *httpClient) GetReviews(ctx context.Context, placeID string, max int) ([]model.Review, error) {
	var p place
	if err := c.get(ctx, "/places/"+placeID, reviewsFieldMask, &p); err != nil {
		return nil, err
	}
	reviews := make([]model.Review, 0, len(p.Reviews))
	for _, r := range p.Reviews {
		if max > 0 && len(reviews) >= max {
			break
		}
		reviews = append(reviews, r.toReview())
	}
	return reviews, nil
}

func (c *httpClient) FindNearby(ctx context.Context, q NearbyQuery) ([]model.Business, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 5
	}
	reqBody := searchNearbyRequest{
		IncludedTypes:  CategoryTypes(q.Category),
		MaxResultCount: limit + 1, // the audited place may come back in its own radius
		RankPreference: "POPULARITY",
		LanguageCode:   c.languageCode,
		RegionCode:     c.regionCode,
		LocationRestriction: locationRestriction{
			Circle: circle{
				Center: latLng{Latitude: q.Latitude, Longitude: q.Longitude},
				Radius: q.RadiusMeters,
			},
		},
	}
	var result placesResponse
	if err := c.post(ctx, "/places:searchNearby", nearbyFieldMask, reqBody, &result); err != nil {
		return nil, err
	}

	businesses := make([]model.Business, 0, limit)
	for _, p := range result.Places {
		if p.ID == q.ExcludePlaceID {
			continue
		}
		businesses = append(businesses, p.toBusiness())
		if len(businesses) >= limit {
			break
		}
	}
	return businesses, nil
}

func (c *httpClient) post(ctx context.Context, path, fieldMask string, reqBody, out any) error {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return eris.Wrap(err, "places: marshal request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, fieldMask, out)
}

func (c *httpClient) get(ctx context.Context, path, fieldMask string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "places: create request")
	}
	q := req.URL.Query()
	q.Set("languageCode", c.languageCode)
	req.URL.RawQuery = q.Encode()
	return c.do(req, fieldMask, out)
}

func (c *httpClient) do(req *http.Request, fieldMask string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return eris.Wrap(err, "places: rate limit wait")
		}
	}

	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "places: send request"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "places: read response")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &QuotaError{Body: string(respBody)}
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return resilience.NewTransientError(
			eris.Errorf("places: status %d: %s", resp.StatusCode, string(respBody)),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}
