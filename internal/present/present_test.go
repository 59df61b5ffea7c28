package present

import (
	"strings"
	"testing"

	"github.com/domeara/becool/internal/forecast"
	"github.com/domeara/becool/internal/rank"
	"github.com/domeara/becool/internal/service"
)

func rec(zip, city string, current, maxTemp float64) forecast.WeatherRecord {
	return forecast.WeatherRecord{
		Zip: zip, City: city,
		CurrentTemp: current, MaxTemp: maxTemp,
		Date: "2026-08-30", Unit: "fahrenheit",
	}
}

func testResult(origin string, ranked ...forecast.WeatherRecord) service.Result {
	return service.Result{
		Origin:      origin,
		RadiusMiles: 10,
		Candidates:  len(ranked),
		Selection:   rank.SelectionResult{Winner: ranked[0], Ranked: ranked},
	}
}

func TestFormat_OriginDiffersFromWinner(t *testing.T) {
	res := testResult("10001",
		rec("10002", "New York", 66.1, 68),
		rec("10003", "New York", 67.0, 70),
		rec("10001", "New York", 71.3, 75),
	)

	got := Format(res)

	for _, want := range []string{
		"The current temperature in New York (10001) is 71.3°F.",
		"The max temperature in New York (10001) today is expected to be 75.0°F.",
		"The max temperature in New York (10002) today is expected to be 68.0°F.",
		"Coolest zip code in the radius: 10002 at 68.0°F expected max.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q\n---\n%s", want, got)
		}
	}
}

func TestFormat_OriginIsCoolest(t *testing.T) {
	res := testResult("94044",
		rec("94044", "Pacifica", 58.2, 61.5),
		rec("94101", "San Francisco", 60.0, 64),
	)

	got := Format(res)

	if !strings.Contains(got, "Your zip code is expected to be the coolest in the surrounding 10-mile radius.") {
		t.Errorf("missing coolest-origin line\n---\n%s", got)
	}
	if strings.Contains(got, "Coolest zip code in the radius:") {
		t.Errorf("comparison block rendered when origin won\n---\n%s", got)
	}
}

func TestFormat_OriginExcluded(t *testing.T) {
	res := testResult("10004",
		rec("10002", "New York", 66.1, 68),
	)
	res.Candidates = 2
	res.Excluded = 1

	got := Format(res)

	if !strings.Contains(got, "1 of 2 zip codes returned no forecast data.") {
		t.Errorf("missing excluded note\n---\n%s", got)
	}
	if !strings.Contains(got, "Coolest zip code in the radius: 10002") {
		t.Errorf("winner not rendered when origin lacks data\n---\n%s", got)
	}
}

func TestFormatRanked(t *testing.T) {
	res := testResult("10001",
		rec("10002", "New York", 66.1, 68),
		rec("10003", "New York", 67.0, 70),
		rec("10001", "New York", 71.3, 75),
	)
	res.Excluded = 1
	res.Candidates = 4

	got := Format(res) + FormatRanked(res)

	lines := strings.Split(FormatRanked(res), "\n")
	if !strings.Contains(lines[1], "10002") {
		t.Errorf("first ranked line should be 10002, got %q", lines[1])
	}
	if !strings.Contains(got, "Excluded 1 zip code(s)") {
		t.Errorf("missing exclusion summary\n---\n%s", got)
	}
	if !strings.Contains(FormatRanked(res), "* ") {
		t.Errorf("origin marker missing\n---\n%s", FormatRanked(res))
	}
}
