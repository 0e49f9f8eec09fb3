package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"transferbook/internal/domain"
	"transferbook/internal/domain/models"
	"transferbook/internal/search"
	"transferbook/internal/utils"
	"transferbook/internal/wizard"

	"github.com/spf13/cobra"
)

type quoteOptions struct {
	pickup     string
	dropoff    string
	stops      []string
	date       string
	clock      string
	passengers int
	checked    int
	hand       int
}

func quoteCmd() *cobra.Command {
	var o quoteOptions
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a trip once and print the vehicle options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			gaz := search.NewGazetteer(search.DefaultPlaces())
			geo, closeGeo := geocoder(ctx, env, gaz)
			defer closeGeo()
			fares, _ := collaborators(env, offline)
			return runQuote(ctx, cmd.OutOrStdout(), geo, fares, limits(env), o)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.pickup, "pickup", "", `pickup address or "lat,lng"`)
	f.StringVar(&o.dropoff, "dropoff", "", `dropoff address or "lat,lng"`)
	f.StringArrayVar(&o.stops, "stop", nil, "intermediate stop (repeatable)")
	f.StringVar(&o.date, "date", utils.FormatDate(time.Now()), "pickup date YYYY-MM-DD")
	f.StringVar(&o.clock, "time", "12:00", "pickup time HH:MM")
	f.IntVar(&o.passengers, "passengers", 1, "number of passengers")
	f.IntVar(&o.checked, "checked", 0, "checked bags")
	f.IntVar(&o.hand, "hand", 0, "hand bags")
	_ = cmd.MarkFlagRequired("pickup")
	_ = cmd.MarkFlagRequired("dropoff")
	return cmd
}

// resolve accepts "lat,lng" literally, otherwise the best selectable
// suggestion for the text.
func resolve(ctx context.Context, geo search.Geocoder, text string) (models.Location, error) {
	text = strings.TrimSpace(text)
	if lat, lng, ok := parseLatLng(text); ok {
		return models.Location{Latitude: lat, Longitude: lng, Address: text}, nil
	}
	results, err := geo.Lookup(ctx, text)
	if err != nil {
		return models.Location{}, err
	}
	for _, r := range results {
		if r.Selectable() {
			return r.Location(), nil
		}
	}
	return models.Location{}, domain.NotFoundError{Resource: fmt.Sprintf("address %q", text)}
}

func parseLatLng(s string) (float64, float64, bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, false
	}
	return lat, lng, true
}

// runQuote drives a throwaway wizard to the vehicle step so the quote goes
// through the same guards and clamps as an interactive booking.
func runQuote(ctx context.Context, out io.Writer, geo search.Geocoder, fares wizard.FareEstimator, lim wizard.Limits, o quoteOptions) error {
	w := wizard.New(fares, nil, wizard.Options{Limits: lim, Logger: log})

	pickup, err := resolve(ctx, geo, o.pickup)
	if err != nil {
		return err
	}
	dropoff, err := resolve(ctx, geo, o.dropoff)
	if err != nil {
		return err
	}
	w.SetPickupLocation(&pickup)
	w.SetDropoffLocation(&dropoff)
	for _, s := range o.stops {
		loc, err := resolve(ctx, geo, s)
		if err != nil {
			return err
		}
		w.AddStop(loc)
	}
	w.SetSchedule(o.date, o.clock)
	w.SetCounts(wizard.Counts{Passengers: &o.passengers, CheckedLuggage: &o.checked, HandLuggage: &o.hand})

	for range 2 {
		if _, err := w.Next(ctx); err != nil {
			return err
		}
	}
	snap := w.Snapshot()
	if msg := snap.Requests.FetchError; msg != nil {
		return fmt.Errorf("fare estimate: %s", *msg)
	}
	q := snap.Requests.FareQuote
	if q == nil {
		return fmt.Errorf("fare estimate: no quote returned")
	}

	trip := snap.Trip
	fmt.Fprintf(out, "%s -> %s", trip.Pickup.Address, trip.Dropoff.Address)
	if n := len(trip.Stops); n > 0 {
		fmt.Fprintf(out, " via %d stop(s)", n)
	}
	fmt.Fprintf(out, "\n%s %s, %d passenger(s), %d checked / %d hand\n",
		utils.HumanDate(trip.Date), trip.Time, trip.Passengers, trip.CheckedLuggage, trip.HandLuggage)
	fmt.Fprintf(out, "%.1f mi, about %.0f min\n\n", q.Journey.DistanceMiles, q.Journey.DurationMinutes)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tVEHICLE\tSEATS\tBAGS\tPRICE")
	for _, v := range q.VehicleOptions {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", v.ID, v.Name, v.Capacity.Passengers, v.Capacity.Luggage,
			utils.FormatPrice(v.Price.Amount, v.Price.Currency))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, n := range q.Notifications {
		fmt.Fprintf(out, "note: %s\n", n)
	}
	return nil
}
