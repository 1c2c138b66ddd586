package parser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cybercats/meteo-assistant/internal/weather"
)

type fakeInvoker struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func fixedClock(date string) func() time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

func newTestParser(response string) (*Parser, *fakeInvoker) {
	inv := &fakeInvoker{response: response}
	p := New(inv, 0)
	p.Now = fixedClock("2024-03-01")
	return p, inv
}

func TestParseHappyPath(t *testing.T) {
	p, inv := newTestParser(`{
		"city": "Roma",
		"metrics": ["temperature"],
		"date_range": null,
		"time_of_day": null,
		"valid": true,
		"missing_parameters": []
	}`)

	q, err := p.Parse(context.Background(), "Che tempo fa a Roma?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Valid {
		t.Fatalf("expected valid query, got %+v", q)
	}
	if q.CityName() != "Roma" {
		t.Fatalf("expected city Roma, got %q", q.CityName())
	}
	if len(q.Metrics) != 1 || q.Metrics[0] != weather.MetricTemperature {
		t.Fatalf("expected default temperature metric, got %v", q.Metrics)
	}
	if q.DateRange != nil {
		t.Fatalf("expected nil date range, got %+v", q.DateRange)
	}
	if len(q.MissingParameters) != 0 {
		t.Fatalf("expected no missing parameters, got %v", q.MissingParameters)
	}

	if len(inv.prompts) != 1 {
		t.Fatalf("expected one model call, got %d", len(inv.prompts))
	}
	if !strings.Contains(inv.prompts[0], "2024-03-01") {
		t.Fatal("prompt should embed the current date")
	}
	if !strings.Contains(inv.prompts[0], "2024-03-02") {
		t.Fatal("prompt should embed tomorrow's date")
	}
}

func TestParseMarkdownFencedOutput(t *testing.T) {
	p, _ := newTestParser("```json\n{\"city\": \"Milano\", \"metrics\": [\"humidity\"]}\n```")

	q, err := p.Parse(context.Background(), "Umidità a Milano")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.CityName() != "Milano" {
		t.Fatalf("expected Milano, got %q", q.CityName())
	}
	if len(q.Metrics) != 1 || q.Metrics[0] != weather.MetricHumidity {
		t.Fatalf("expected humidity, got %v", q.Metrics)
	}
}

func TestParseModelErrorIsParseFailure(t *testing.T) {
	inv := &fakeInvoker{err: errors.New("connection refused")}
	p := New(inv, 0)

	_, err := p.Parse(context.Background(), "Che tempo fa a Roma?")
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
}

func TestParseNonJSONOutputIsParseFailure(t *testing.T) {
	p, _ := newTestParser("Mi dispiace, non posso aiutarti con questo.")

	_, err := p.Parse(context.Background(), "Che tempo fa a Roma?")
	if !errors.Is(err, ErrParseFailure) {
		t.Fatalf("expected ErrParseFailure, got %v", err)
	}
}

func TestMetricsCoercion(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     []string
	}{
		{
			name:     "mapping contributes its keys",
			response: `{"city": "Roma", "metrics": {"humidity": true}}`,
			want:     []string{weather.MetricHumidity},
		},
		{
			name:     "bare string is wrapped",
			response: `{"city": "Roma", "metrics": "pressure"}`,
			want:     []string{weather.MetricPressure},
		},
		{
			name:     "unknown tokens dropped",
			response: `{"city": "Roma", "metrics": ["wind_speed", "uv_index"]}`,
			want:     []string{weather.MetricWindSpeed},
		},
		{
			name:     "all unknown defaults to temperature",
			response: `{"city": "Roma", "metrics": ["uv_index", "pollen"]}`,
			want:     []string{weather.MetricTemperature},
		},
		{
			name:     "absent defaults to temperature",
			response: `{"city": "Roma"}`,
			want:     []string{weather.MetricTemperature},
		},
		{
			name:     "malformed defaults to temperature",
			response: `{"city": "Roma", "metrics": 42}`,
			want:     []string{weather.MetricTemperature},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestParser(tc.response)
			q, err := p.Parse(context.Background(), "Meteo a Roma")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(q.Metrics) == 0 {
				t.Fatal("metrics must never be empty")
			}
			if len(q.Metrics) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, q.Metrics)
			}
			for i := range tc.want {
				if q.Metrics[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, q.Metrics)
				}
			}
		})
	}
}

func TestDateRangeCoercion(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     *weather.DateRange
	}{
		{
			name:     "well-formed object kept",
			response: `{"city": "Roma", "date_range": {"from_date": "2024-03-01", "to": "2024-03-03"}}`,
			want:     &weather.DateRange{FromDate: "2024-03-01", ToDate: "2024-03-03"},
		},
		{
			name:     "bare string discarded",
			response: `{"city": "Roma", "date_range": "today"}`,
			want:     nil,
		},
		{
			name:     "non-ISO dates discarded",
			response: `{"city": "Roma", "date_range": {"from_date": "01/03/2024", "to": "03/03/2024"}}`,
			want:     nil,
		},
		{
			name:     "reversed bounds discarded",
			response: `{"city": "Roma", "date_range": {"from_date": "2024-03-05", "to": "2024-03-01"}}`,
			want:     nil,
		},
		{
			name:     "missing field discarded",
			response: `{"city": "Roma", "date_range": {"from_date": "2024-03-01"}}`,
			want:     nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, _ := newTestParser(tc.response)
			// No temporal keyword in the utterance, so the fallback stays out.
			q, err := p.Parse(context.Background(), "Meteo a Roma")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.want == nil {
				if q.DateRange != nil {
					t.Fatalf("expected nil date range, got %+v", q.DateRange)
				}
				return
			}
			if q.DateRange == nil || *q.DateRange != *tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, q.DateRange)
			}
		})
	}
}

func TestTimeOfDayClosedEnum(t *testing.T) {
	p, _ := newTestParser(`{"city": "Roma", "time_of_day": "Morning"}`)
	q, err := p.Parse(context.Background(), "Meteo a Roma")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TimeOfDay != nil {
		t.Fatalf("case-mismatched time_of_day must be dropped, got %q", *q.TimeOfDay)
	}

	p, _ = newTestParser(`{"city": "Roma", "time_of_day": "evening"}`)
	q, err = p.Parse(context.Background(), "Meteo a Roma")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.TimeOfDay == nil || *q.TimeOfDay != weather.TimeEvening {
		t.Fatal("exact enum value must be kept")
	}
}

func TestOutOfContext(t *testing.T) {
	p, _ := newTestParser(`{
		"city": null,
		"metrics": ["temperature"],
		"valid": false,
		"missing_parameters": ["out_of_context"]
	}`)

	q, err := p.Parse(context.Background(), "Dammi una ricetta per la pasta")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Valid {
		t.Fatal("out-of-context query must be invalid")
	}
	if !q.OutOfContext() {
		t.Fatalf("expected out_of_context sentinel, got %v", q.MissingParameters)
	}
}

func TestOutOfContextWinsOverCityToken(t *testing.T) {
	// The utterance contains a city-like token, but the model judged the
	// request off-topic; the regex fallback must not resurrect it.
	p, _ := newTestParser(`{
		"city": null,
		"valid": false,
		"missing_parameters": ["out_of_context"]
	}`)

	q, err := p.Parse(context.Background(), "Raccontami la storia di Roma")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Valid {
		t.Fatal("expected invalid query")
	}
	if !q.OutOfContext() {
		t.Fatalf("expected out_of_context, got %v", q.MissingParameters)
	}
	if q.City != nil {
		t.Fatalf("fallback must not run for out-of-context requests, got city %q", *q.City)
	}
}

func TestMissingCity(t *testing.T) {
	p, _ := newTestParser(`{"city": null, "metrics": ["temperature"]}`)

	q, err := p.Parse(context.Background(), "Che tempo fa?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Valid {
		t.Fatal("query with no city must be invalid")
	}
	if len(q.MissingParameters) != 1 || q.MissingParameters[0] != weather.MissingCity {
		t.Fatalf("expected missing_parameters == [city], got %v", q.MissingParameters)
	}
}

func TestCityFallbackFromUtterance(t *testing.T) {
	// Model failed to extract a city; the deterministic fallback recovers it.
	p, _ := newTestParser(`{"city": null, "metrics": ["temperature"]}`)

	q, err := p.Parse(context.Background(), "Che tempo fa a Roma?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.Valid {
		t.Fatalf("expected valid query after fallback, got %+v", q)
	}
	if q.CityName() != "Roma" {
		t.Fatalf("expected Roma from fallback, got %q", q.CityName())
	}
}

func TestCityDroppedWhenTooLong(t *testing.T) {
	p, _ := newTestParser(`{"city": "una lunga frase senza senso", "metrics": ["temperature"]}`)

	q, err := p.Parse(context.Background(), "Che tempo fa?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.City != nil {
		t.Fatalf("implausibly long city must be dropped, got %q", *q.City)
	}
}

func TestRelativeDateFallbackToday(t *testing.T) {
	// "oggi" evaluated on 2024-03-01 yields a single-day range and the two
	// bounds are equal.
	p, _ := newTestParser(`{"city": "Roma", "date_range": null}`)

	q, err := p.Parse(context.Background(), "Che tempo fa oggi a Roma?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.DateRange == nil {
		t.Fatal("expected date range resolved from 'oggi'")
	}
	if q.DateRange.FromDate != "2024-03-01" || q.DateRange.ToDate != "2024-03-01" {
		t.Fatalf("expected 2024-03-01 on both bounds, got %+v", q.DateRange)
	}
}

func TestRelativeDateFallbackKeywords(t *testing.T) {
	cases := []struct {
		utterance string
		from, to  string
	}{
		{"Meteo a Roma domani", "2024-03-02", "2024-03-02"},
		{"Meteo a Roma dopodomani", "2024-03-03", "2024-03-03"},
		{"Meteo a Roma questa settimana", "2024-03-01", "2024-03-08"},
	}

	for _, tc := range cases {
		p, _ := newTestParser(`{"city": "Roma"}`)
		q, err := p.Parse(context.Background(), tc.utterance)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.utterance, err)
		}
		if q.DateRange == nil {
			t.Fatalf("%s: expected resolved date range", tc.utterance)
		}
		if q.DateRange.FromDate != tc.from || q.DateRange.ToDate != tc.to {
			t.Fatalf("%s: expected %s..%s, got %+v", tc.utterance, tc.from, tc.to, q.DateRange)
		}
	}
}

func TestTorinoEveningScenario(t *testing.T) {
	p, _ := newTestParser(`{
		"city": "Torino",
		"metrics": ["humidity", "wind_speed"],
		"date_range": {"from_date": "2024-03-01", "to": "2024-03-01"},
		"time_of_day": "evening",
		"valid": true,
		"missing_parameters": []
	}`)

	q, err := p.Parse(context.Background(), "Umidità e vento a Torino stasera")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !q.WantsMetric(weather.MetricHumidity) || !q.WantsMetric(weather.MetricWindSpeed) {
		t.Fatalf("expected humidity and wind_speed, got %v", q.Metrics)
	}
	if len(q.Metrics) != 2 {
		t.Fatalf("expected exactly two metrics, got %v", q.Metrics)
	}
	if q.TimeOfDay == nil || *q.TimeOfDay != weather.TimeEvening {
		t.Fatal("expected evening time of day")
	}
	if q.DateRange == nil || q.DateRange.FromDate != "2024-03-01" || q.DateRange.ToDate != "2024-03-01" {
		t.Fatalf("expected current-date bounds, got %+v", q.DateRange)
	}
}

func TestTimeOfDayKeywordFallback(t *testing.T) {
	cases := []struct {
		utterance string
		want      string
	}{
		{"Meteo a Roma stamattina", weather.TimeMorning},
		{"Meteo a Roma nel pomeriggio", weather.TimeAfternoon},
		{"Meteo a Roma stasera", weather.TimeEvening},
		{"Meteo a Roma stanotte", weather.TimeNight},
	}

	for _, tc := range cases {
		p, _ := newTestParser(`{"city": "Roma"}`)
		q, err := p.Parse(context.Background(), tc.utterance)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.utterance, err)
		}
		if q.TimeOfDay == nil || *q.TimeOfDay != tc.want {
			t.Fatalf("%s: expected %s, got %v", tc.utterance, tc.want, q.TimeOfDay)
		}
	}
}

func TestUtteranceCapped(t *testing.T) {
	inv := &fakeInvoker{response: `{"city": "Roma"}`}
	p := New(inv, 50)
	p.Now = fixedClock("2024-03-01")

	long := strings.Repeat("meteo ", 100) + "a Belluno"
	if _, err := p.Parse(context.Background(), long); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(inv.prompts[0], "Belluno") {
		t.Fatal("oversized utterance should have been truncated before prompting")
	}
}
