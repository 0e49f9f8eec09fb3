package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
)

// Geocoder queries a remote address search service.
type Geocoder struct {
	Base  string
	Limit int
	HTTP  *http.Client
}

func NewGeocoder(base string, timeout time.Duration) *Geocoder {
	return &Geocoder{
		Base:  strings.TrimRight(base, "/"),
		Limit: 8,
		HTTP:  &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Results []struct {
		ID          string              `json:"id"`
		Label       string              `json:"label"`
		Coordinates *models.Coordinates `json:"coordinates"`
		Category    string              `json:"category"`
	} `json:"results"`
}

func (g *Geocoder) Lookup(ctx context.Context, query string) ([]models.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if g.Limit > 0 {
		q.Set("limit", strconv.Itoa(g.Limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.Base+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, domain.InternalError{Msg: "build geocode request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	var out geocodeResponse
	if err := do(g.HTTP, req, "geocode", &out); err != nil {
		return nil, err
	}

	results := make([]models.SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		if r.Coordinates == nil || strings.TrimSpace(r.Label) == "" {
			continue
		}
		cat := models.SearchCategory(r.Category)
		switch cat {
		case models.CategoryAirport, models.CategoryTrainStation, models.CategoryPopular:
		default:
			cat = models.CategoryAddress
		}
		results = append(results, models.SearchResult{
			ID:          r.ID,
			Label:       r.Label,
			Coordinates: r.Coordinates,
			Category:    cat,
		})
	}
	return results, nil
}
