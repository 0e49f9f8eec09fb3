package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"transferbook/internal/domain/models"

	"github.com/agnivade/levenshtein"
)

// Place is a well-known pickup or dropoff point.
type Place struct {
	ID       string
	Name     string
	Category models.SearchCategory
	Lat      float64
	Lng      float64
}

var categoryOrder = []models.SearchCategory{
	models.CategoryRecent,
	models.CategoryAirport,
	models.CategoryTrainStation,
	models.CategoryPopular,
}

var categoryLabels = map[models.SearchCategory]string{
	models.CategoryRecent:       "Recent",
	models.CategoryAirport:      "Airports",
	models.CategoryTrainStation: "Train stations",
	models.CategoryPopular:      "Popular places",
	models.CategoryAddress:      "Addresses",
}

// DefaultPlaces seeds the gazetteer with London transfer hubs.
func DefaultPlaces() []Place {
	return []Place{
		{ID: "lhr", Name: "Heathrow Airport", Category: models.CategoryAirport, Lat: 51.47002, Lng: -0.45429},
		{ID: "lgw", Name: "Gatwick Airport", Category: models.CategoryAirport, Lat: 51.15372, Lng: -0.18215},
		{ID: "stn", Name: "Stansted Airport", Category: models.CategoryAirport, Lat: 51.88603, Lng: 0.23894},
		{ID: "ltn", Name: "Luton Airport", Category: models.CategoryAirport, Lat: 51.87470, Lng: -0.36833},
		{ID: "lcy", Name: "London City Airport", Category: models.CategoryAirport, Lat: 51.50481, Lng: 0.04953},
		{ID: "kgx", Name: "King's Cross Station", Category: models.CategoryTrainStation, Lat: 51.53082, Lng: -0.12325},
		{ID: "stp", Name: "St Pancras International", Category: models.CategoryTrainStation, Lat: 51.53186, Lng: -0.12636},
		{ID: "pad", Name: "Paddington Station", Category: models.CategoryTrainStation, Lat: 51.51540, Lng: -0.17554},
		{ID: "eus", Name: "Euston Station", Category: models.CategoryTrainStation, Lat: 51.52818, Lng: -0.13398},
		{ID: "vic", Name: "Victoria Station", Category: models.CategoryTrainStation, Lat: 51.49521, Lng: -0.14392},
		{ID: "wat", Name: "Waterloo Station", Category: models.CategoryTrainStation, Lat: 51.50311, Lng: -0.11324},
		{ID: "lst", Name: "Liverpool Street Station", Category: models.CategoryTrainStation, Lat: 51.51786, Lng: -0.08195},
		{ID: "bpl", Name: "Buckingham Palace", Category: models.CategoryPopular, Lat: 51.50136, Lng: -0.14189},
		{ID: "tol", Name: "Tower of London", Category: models.CategoryPopular, Lat: 51.50812, Lng: -0.07595},
		{ID: "wem", Name: "Wembley Stadium", Category: models.CategoryPopular, Lat: 51.55601, Lng: -0.27960},
		{ID: "o2a", Name: "The O2 Arena", Category: models.CategoryPopular, Lat: 51.50300, Lng: 0.00320},
	}
}

const maxRecents = 5

// Gazetteer is an in-memory geocoder over known places and recent picks.
// Names are matched by substring first, then by edit distance against the
// query-length prefix of each word so small typos still match.
type Gazetteer struct {
	mu      sync.RWMutex
	places  []Place
	recents []models.Location
}

func NewGazetteer(places []Place) *Gazetteer {
	return &Gazetteer{places: append([]Place{}, places...)}
}

// Remember records a confirmed location as a recent pick.
func (g *Gazetteer) Remember(loc models.Location) {
	if strings.TrimSpace(loc.Address) == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	next := []models.Location{loc}
	for _, r := range g.recents {
		if !strings.EqualFold(r.Address, loc.Address) {
			next = append(next, r)
		}
	}
	if len(next) > maxRecents {
		next = next[:maxRecents]
	}
	g.recents = next
}

type scored struct {
	result models.SearchResult
	score  int
}

// score returns -1 when name does not match query.
func score(query, name string) int {
	q := strings.ToLower(query)
	n := strings.ToLower(name)
	if strings.HasPrefix(n, q) {
		return 0
	}
	if strings.Contains(n, q) {
		return 1
	}
	budget := len([]rune(q)) / 4
	best := -1
	for _, word := range strings.Fields(n) {
		w := []rune(word)
		qr := []rune(q)
		if len(w) > len(qr) {
			w = w[:len(qr)]
		}
		d := levenshtein.ComputeDistance(q, string(w))
		if d <= budget && (best < 0 || d+2 < best) {
			best = d + 2
		}
	}
	return best
}

func (g *Gazetteer) Lookup(ctx context.Context, query string) ([]models.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	g.mu.RLock()
	groups := map[models.SearchCategory][]scored{}
	for _, r := range g.recents {
		if s := score(query, r.Address); s >= 0 {
			groups[models.CategoryRecent] = append(groups[models.CategoryRecent], scored{
				result: models.SearchResult{
					ID:          "recent-" + r.ID,
					Label:       r.Address,
					Coordinates: &models.Coordinates{Lat: r.Latitude, Lng: r.Longitude},
					Category:    models.CategoryRecent,
				},
				score: s,
			})
		}
	}
	for _, p := range g.places {
		if s := score(query, p.Name); s >= 0 {
			groups[p.Category] = append(groups[p.Category], scored{
				result: models.SearchResult{
					ID:          p.ID,
					Label:       p.Name,
					Coordinates: &models.Coordinates{Lat: p.Lat, Lng: p.Lng},
					Category:    p.Category,
				},
				score: s,
			})
		}
	}
	g.mu.RUnlock()

	var out []models.SearchResult
	for _, cat := range categoryOrder {
		items := groups[cat]
		if len(items) == 0 {
			continue
		}
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].score != items[j].score {
				return items[i].score < items[j].score
			}
			if cat == models.CategoryRecent {
				return false
			}
			return items[i].result.Label < items[j].result.Label
		})
		out = append(out, header(cat))
		for _, it := range items {
			out = append(out, it.result)
		}
	}
	return out, nil
}

func header(cat models.SearchCategory) models.SearchResult {
	return models.SearchResult{
		ID:       "header-" + string(cat),
		Label:    categoryLabels[cat],
		Category: models.CategoryHeader,
	}
}
