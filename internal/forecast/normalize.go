package forecast

import "math"

// Normalize extracts the target-day maximum temperature from a raw payload.
// Returns false when the payload carries no usable value: missing daily
// block, null temperature, or a non-finite number. Callers must drop such
// locations from comparison rather than treat them as coolest.
func Normalize(zip, city, unit string, p Payload) (WeatherRecord, bool) {
	if len(p.Daily.Temperature2MMax) == 0 {
		return WeatherRecord{}, false
	}
	maxTemp := p.Daily.Temperature2MMax[0]
	if maxTemp == nil || math.IsNaN(*maxTemp) || math.IsInf(*maxTemp, 0) {
		return WeatherRecord{}, false
	}

	date := ""
	if len(p.Daily.Time) > 0 {
		date = p.Daily.Time[0]
	}
	current := 0.0
	if p.Current.Temperature2M != nil && !math.IsNaN(*p.Current.Temperature2M) {
		current = *p.Current.Temperature2M
	}

	return WeatherRecord{
		Zip:         zip,
		City:        city,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		CurrentTemp: current,
		MaxTemp:     *maxTemp,
		Date:        date,
		Unit:        unit,
	}, true
}
