package places

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presenca/discovery-audit/internal/model"
	"github.com/presenca/discovery-audit/internal/resilience"
)

func newTestClient(handler http.Handler) (Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(1000),
	)
	return c, srv
}

func TestSearchBusinessFound(t *testing.T) {
	var gotMask, gotKey string
	var gotBody textSearchRequest

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/places:searchText", r.URL.Path)
		gotMask = r.Header.Get("X-Goog-FieldMask")
		gotKey = r.Header.Get("X-Goog-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(placesResponse{Places: []place{{
			ID:               "place-1",
			DisplayName:      localizedText{Text: "Padaria do Zé"},
			FormattedAddress: "Rua das Flores, 10",
			Rating:           4.2,
			UserRatingCount:  23,
		}}})
	}))
	defer srv.Close()

	b, err := c.SearchBusiness(context.Background(), "Padaria do Zé", "São Paulo")
	require.NoError(t, err)
	assert.Equal(t, "place-1", b.PlaceID)
	assert.Equal(t, "Padaria do Zé", b.Name)
	assert.Equal(t, 23, b.TotalReviews)

	assert.Equal(t, "test-key", gotKey)
	assert.Contains(t, gotMask, "places.id")
	assert.Equal(t, "Padaria do Zé, São Paulo", gotBody.TextQuery)
	assert.Equal(t, "pt-BR", gotBody.LanguageCode)
	assert.Equal(t, 1, gotBody.PageSize)
}

func TestSearchBusinessNotFound(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(placesResponse{})
	}))
	defer srv.Close()

	_, err := c.SearchBusiness(context.Background(), "Padaria Fantasma", "Lugar Nenhum")
	assert.True(t, model.IsNotFound(err))
	assert.Contains(t, err.Error(), "Padaria Fantasma")
}

func TestQuotaExhaustedIsTerminal(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "RESOURCE_EXHAUSTED", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := c.SearchBusiness(context.Background(), "Padaria", "São Paulo")
	assert.True(t, IsQuotaError(err))
	assert.False(t, resilience.IsTransient(err))
}

func TestServerErrorIsTransient(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream hiccup", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := c.GetDetails(context.Background(), "place-1")
	assert.True(t, resilience.IsTransient(err))
}

func TestGetDetailsParsesProfile(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/places/place-1", r.URL.Path)
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "addressComponents")

		_ = json.NewEncoder(w).Encode(place{
			ID:                     "place-1",
			DisplayName:            localizedText{Text: "Padaria do Zé"},
			PrimaryTypeDisplayName: localizedText{Text: "Padaria"},
			WebsiteURI:             "https://padaria.example",
			Rating:                 4.2,
			UserRatingCount:        23,
			Location:               &latLng{Latitude: -23.55, Longitude: -46.63},
			Photos:                 []photo{{Name: "p/1"}, {Name: "p/2"}},
			BusinessStatus:         "OPERATIONAL",
			RegularOpeningHours:    &openingHours{WeekdayDescriptions: []string{"segunda: 06:00 - 19:00"}},
			EditorialSummary:       localizedText{Text: "Padaria tradicional"},
			AddressComponents: []addressComponent{
				{LongText: "São Paulo", Types: []string{"locality"}},
				{ShortText: "SP", LongText: "São Paulo", Types: []string{"administrative_area_level_1"}},
			},
		})
	}))
	defer srv.Close()

	b, err := c.GetDetails(context.Background(), "place-1")
	require.NoError(t, err)
	assert.Equal(t, "Padaria", b.Category)
	assert.Equal(t, 2, b.PhotosCount)
	assert.True(t, b.Claimed)
	assert.Equal(t, "São Paulo", b.City)
	assert.Equal(t, "SP", b.State)
	require.NotNil(t, b.Latitude)
	assert.InDelta(t, -23.55, *b.Latitude, 1e-9)
	assert.Len(t, b.Hours, 1)
}

func TestGetReviewsCapsAtMax(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id,reviews", r.Header.Get("X-Goog-FieldMask"))
		_ = json.NewEncoder(w).Encode(place{
			ID: "place-1",
			Reviews: []placeReview{
				{Rating: 5, Text: localizedText{Text: "ótimo"}},
				{Rating: 4, Text: localizedText{Text: "bom"}},
				{Rating: 3, Text: localizedText{Text: "ok"}},
			},
		})
	}))
	defer srv.Close()

	reviews, err := c.GetReviews(context.Background(), "place-1", 2)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.Equal(t, "ótimo", reviews[0].Text)
}

func TestFindNearbyExcludesAuditedPlace(t *testing.T) {
	var gotBody searchNearbyRequest

	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/places:searchNearby", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(placesResponse{Places: []place{
			{ID: "place-1", DisplayName: localizedText{Text: "Padaria do Zé"}},
			{ID: "c1", DisplayName: localizedText{Text: "Padaria Central"}},
			{ID: "c2", DisplayName: localizedText{Text: "Pão Quente"}},
			{ID: "c3", DisplayName: localizedText{Text: "Doce Trigo"}},
		}})
	}))
	defer srv.Close()

	got, err := c.FindNearby(context.Background(), NearbyQuery{
		Latitude:       -23.55,
		Longitude:      -46.63,
		Category:       "Padaria",
		RadiusMeters:   5000,
		Limit:          2,
		ExcludePlaceID: "place-1",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Padaria Central", got[0].Name)
	assert.Equal(t, "Pão Quente", got[1].Name)

	// One extra slot covers the audited place showing up in its own radius.
	assert.Equal(t, 3, gotBody.MaxResultCount)
	assert.Equal(t, "POPULARITY", gotBody.RankPreference)
	assert.Equal(t, []string{"bakery"}, gotBody.IncludedTypes)
	assert.InDelta(t, 5000, gotBody.LocationRestriction.Circle.Radius, 1e-9)
}
