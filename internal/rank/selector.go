package rank

import (
	"errors"
	"sort"

	"github.com/domeara/becool/internal/forecast"
)

// ErrNoData is returned when no candidate produced a usable forecast.
var ErrNoData = errors.New("no usable forecast data")

// SelectionResult carries the coolest record plus every record ranked
// ascending by temperature. Built once per lookup and discarded after
// presentation.
type SelectionResult struct {
	Winner forecast.WeatherRecord   `json:"winner"`
	Ranked []forecast.WeatherRecord `json:"ranked"`
}

// Select finds the record with the minimum daily maximum temperature.
// Tie-break: on equal temperatures the lowest zip code string wins, which
// for 5-digit zips is numeric order. The rule is fixed so repeated runs
// over the same input pick the same winner.
func Select(records []forecast.WeatherRecord) (SelectionResult, error) {
	if len(records) == 0 {
		return SelectionResult{}, ErrNoData
	}

	ranked := make([]forecast.WeatherRecord, len(records))
	copy(ranked, records)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MaxTemp != ranked[j].MaxTemp {
			return ranked[i].MaxTemp < ranked[j].MaxTemp
		}
		return ranked[i].Zip < ranked[j].Zip
	})

	return SelectionResult{Winner: ranked[0], Ranked: ranked}, nil
}
