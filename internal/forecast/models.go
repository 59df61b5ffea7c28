package forecast

// Payload is one location's slice of the Open-Meteo forecast response.
// Daily values use pointers because the API reports missing data as null.
type Payload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   Current `json:"current"`
	Daily     Daily   `json:"daily"`
}

type Current struct {
	Time          string   `json:"time"`
	Temperature2M *float64 `json:"temperature_2m"`
}

type Daily struct {
	Time             []string   `json:"time"`
	Temperature2MMax []*float64 `json:"temperature_2m_max"`
}

// WeatherRecord is the normalized per-zip forecast consumed by selection.
type WeatherRecord struct {
	Zip         string  `json:"zip"`
	City        string  `json:"city,omitempty"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	CurrentTemp float64 `json:"currentTemp"`
	MaxTemp     float64 `json:"maxTemp"`
	Date        string  `json:"date"`
	Unit        string  `json:"unit"`
}
