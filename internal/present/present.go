// Package present renders completed lookups for the console. Formatting
// only; every decision about what won was made upstream.
package present

import (
	"fmt"
	"strings"

	"github.com/domeara/becool/internal/forecast"
	"github.com/domeara/becool/internal/service"
)

// Format renders the lookup outcome: the origin's forecast next to the
// coolest zip's, or a single block when the origin itself is the coolest.
func Format(res service.Result) string {
	var b strings.Builder

	winner := res.Selection.Winner
	if res.Excluded > 0 {
		fmt.Fprintf(&b, "%d of %d zip codes returned no forecast data.\n\n", res.Excluded, res.Candidates)
	}

	origin, haveOrigin := findRecord(res.Selection.Ranked, res.Origin)

	if haveOrigin && origin.Zip == winner.Zip {
		writeRecord(&b, origin)
		fmt.Fprintf(&b, "Your zip code is expected to be the coolest in the surrounding %g-mile radius.\n", res.RadiusMiles)
		return b.String()
	}

	if haveOrigin {
		writeRecord(&b, origin)
		b.WriteString("\n")
	}
	writeRecord(&b, winner)
	fmt.Fprintf(&b, "Coolest zip code in the radius: %s at %.1f%s expected max.\n", winner.Zip, winner.MaxTemp, unitSuffix(winner.Unit))

	return b.String()
}

// FormatRanked renders every record ascending by expected max temperature.
func FormatRanked(res service.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Ranked by expected max temperature (%g mile radius of %s):\n", res.RadiusMiles, res.Origin)
	for i, r := range res.Selection.Ranked {
		marker := "  "
		if r.Zip == res.Origin {
			marker = "* "
		}
		name := r.Zip
		if r.City != "" {
			name = fmt.Sprintf("%s (%s)", r.Zip, r.City)
		}
		fmt.Fprintf(&b, "%s%2d. %-28s max %.1f%s\n", marker, i+1, name, r.MaxTemp, unitSuffix(r.Unit))
	}
	if res.Excluded > 0 {
		fmt.Fprintf(&b, "Excluded %d zip code(s) without usable forecast data.\n", res.Excluded)
	}

	return b.String()
}

func writeRecord(b *strings.Builder, r forecast.WeatherRecord) {
	name := r.Zip
	if r.City != "" {
		name = fmt.Sprintf("%s (%s)", r.City, r.Zip)
	}
	suffix := unitSuffix(r.Unit)
	fmt.Fprintf(b, "The current temperature in %s is %.1f%s.\n", name, r.CurrentTemp, suffix)
	fmt.Fprintf(b, "The max temperature in %s today is expected to be %.1f%s.\n", name, r.MaxTemp, suffix)
}

func findRecord(records []forecast.WeatherRecord, zip string) (forecast.WeatherRecord, bool) {
	for _, r := range records {
		if r.Zip == zip {
			return r, true
		}
	}
	return forecast.WeatherRecord{}, false
}

func unitSuffix(unit string) string {
	if unit == "celsius" {
		return "°C"
	}
	return "°F"
}
