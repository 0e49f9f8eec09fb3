package search

import (
	"context"
	"strings"

	"transferbook/internal/domain/models"
)

// Chain answers from the local gazetteer first and appends remote address
// matches under their own header. A remote failure is only returned when
// there is nothing local to show.
type Chain struct {
	Local  Geocoder
	Remote Geocoder
}

func (c Chain) Lookup(ctx context.Context, query string) ([]models.SearchResult, error) {
	var local []models.SearchResult
	if c.Local != nil {
		var err error
		local, err = c.Local.Lookup(ctx, query)
		if err != nil {
			return nil, err
		}
	}
	if c.Remote == nil {
		return local, nil
	}

	remote, err := c.Remote.Lookup(ctx, query)
	if err != nil {
		if len(local) > 0 {
			return local, nil
		}
		return nil, err
	}

	seen := make(map[string]bool, len(local))
	for _, r := range local {
		if r.Category != models.CategoryHeader {
			seen[strings.ToLower(r.Label)] = true
		}
	}
	var extra []models.SearchResult
	for _, r := range remote {
		if r.Category == models.CategoryHeader || seen[strings.ToLower(r.Label)] {
			continue
		}
		seen[strings.ToLower(r.Label)] = true
		extra = append(extra, r)
	}
	if len(extra) == 0 {
		return local, nil
	}
	if len(local) > 0 {
		local = append(local, header(models.CategoryAddress))
	}
	return append(local, extra...), nil
}
