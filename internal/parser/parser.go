package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cybercats/meteo-assistant/internal/llm"
	"github.com/cybercats/meteo-assistant/internal/weather"
)

// ErrParseFailure marks an utterance the pipeline could not understand at all:
// the model call failed or its output was not JSON. Recoverable schema
// mismatches are repaired in post-processing instead.
var ErrParseFailure = errors.New("could not understand the request")

const (
	isoDate = "2006-01-02"

	// defaultMaxUtteranceLen caps the text embedded in the prompt so an
	// oversized payload cannot crowd out the extraction instructions.
	defaultMaxUtteranceLen = 2000
)

// Parser turns a free-text utterance into a WeatherQuery using one model call
// followed by deterministic validation and repair. The model output is treated
// as untrusted input: every field is coerced, and validity is recomputed from
// the final city and the out_of_context sentinel.
type Parser struct {
	llm             llm.Invoker
	maxUtteranceLen int

	// Now is the clock used to resolve relative dates; tests override it.
	Now func() time.Time
}

// New creates a Parser over the given model.
func New(invoker llm.Invoker, maxUtteranceLen int) *Parser {
	if maxUtteranceLen <= 0 {
		maxUtteranceLen = defaultMaxUtteranceLen
	}
	return &Parser{
		llm:             invoker,
		maxUtteranceLen: maxUtteranceLen,
		Now:             time.Now,
	}
}

// Parse extracts a structured weather query from the utterance. The returned
// query always has a non-empty Metrics set and a Valid flag consistent with
// its City and MissingParameters. It fails with ErrParseFailure only when the
// model call errors or the output cannot be decoded as JSON.
func (p *Parser) Parse(ctx context.Context, utterance string) (*weather.WeatherQuery, error) {
	utterance = capRunes(utterance, p.maxUtteranceLen)

	now := p.Now()
	today := now.Format(isoDate)
	tomorrow := now.AddDate(0, 0, 1).Format(isoDate)

	raw, err := p.llm.Invoke(ctx, buildPrompt(utterance, today, tomorrow))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	fields, err := extractJSON(raw)
	if err != nil {
		log.Printf("parser: model output is not JSON: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	query := &weather.WeatherQuery{
		City:      coerceCity(fields["city"]),
		Metrics:   coerceMetrics(fields["metrics"]),
		DateRange: coerceDateRange(fields["date_range"]),
		TimeOfDay: coerceTimeOfDay(fields["time_of_day"]),
	}

	outOfContext := hasOutOfContext(fields["missing_parameters"])

	lower := strings.ToLower(utterance)

	if query.City == nil && !outOfContext {
		query.City = fallbackCity(utterance)
	}
	if query.DateRange == nil {
		query.DateRange = fallbackDateRange(lower, now)
	}
	if query.TimeOfDay == nil {
		query.TimeOfDay = fallbackTimeOfDay(lower)
	}

	// Validity is recomputed here; the model's own "valid" flag is never
	// trusted as final.
	query.MissingParameters = []string{}
	if outOfContext {
		query.MissingParameters = append(query.MissingParameters, weather.MissingOutOfContext)
	}
	if query.City == nil {
		query.MissingParameters = append(query.MissingParameters, weather.MissingCity)
	}
	query.Valid = query.City != nil && !outOfContext

	return query, nil
}

// extractJSON pulls the first JSON object out of the model output, tolerating
// markdown fences and stray prose around it.
func extractJSON(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in model output")
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// coerceCity accepts only a non-empty string of at most three words; anything
// else is treated as absent and left to the regex fallback.
func coerceCity(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || len(strings.Fields(s)) > 3 {
		return nil
	}
	return &s
}

// coerceMetrics normalizes whatever the model emitted into a non-empty list of
// known metric identifiers. Mappings contribute their keys, a bare string is
// wrapped, unknown tokens are dropped, and an empty result defaults to
// temperature.
func coerceMetrics(v any) []string {
	var candidates []string

	switch m := v.(type) {
	case []any:
		for _, item := range m {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	case map[string]any:
		for k := range m {
			candidates = append(candidates, k)
		}
	case string:
		candidates = []string{m}
	}

	seen := make(map[string]bool)
	var metrics []string
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if weather.KnownMetrics[c] && !seen[c] {
			seen[c] = true
			metrics = append(metrics, c)
		}
	}

	if len(metrics) == 0 {
		metrics = []string{weather.MetricTemperature}
	}
	return metrics
}

// coerceDateRange accepts only a two-field object whose bounds parse as ISO
// dates and are correctly ordered. Any other shape is discarded, not repaired.
func coerceDateRange(v any) *weather.DateRange {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	from, ok := obj["from_date"].(string)
	if !ok {
		return nil
	}
	to, ok := obj["to"].(string)
	if !ok {
		return nil
	}

	fromDate, err := time.Parse(isoDate, from)
	if err != nil {
		return nil
	}
	toDate, err := time.Parse(isoDate, to)
	if err != nil {
		return nil
	}
	if toDate.Before(fromDate) {
		return nil
	}

	return &weather.DateRange{FromDate: from, ToDate: to}
}

// coerceTimeOfDay validates against the closed enum; case mismatches count as
// absent.
func coerceTimeOfDay(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	switch s {
	case weather.TimeMorning, weather.TimeAfternoon, weather.TimeEvening, weather.TimeNight:
		return &s
	}
	return nil
}

// hasOutOfContext reports whether the model flagged the utterance as not a
// weather request. That sentinel is the only model-reported missing parameter
// that survives post-processing.
func hasOutOfContext(v any) bool {
	list, ok := v.([]any)
	if !ok {
		return false
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s == weather.MissingOutOfContext {
			return true
		}
	}
	return false
}

// fallbackDateRange resolves relative temporal keywords to concrete dates when
// the model left the range empty. Longer keywords are checked first so that
// "dopodomani" is not shadowed by "domani".
func fallbackDateRange(lower string, now time.Time) *weather.DateRange {
	singleDay := func(offset int) *weather.DateRange {
		d := now.AddDate(0, 0, offset).Format(isoDate)
		return &weather.DateRange{FromDate: d, ToDate: d}
	}

	switch {
	case strings.Contains(lower, "dopodomani"):
		return singleDay(2)
	case strings.Contains(lower, "domani"):
		return singleDay(1)
	case strings.Contains(lower, "questa settimana"):
		return &weather.DateRange{
			FromDate: now.Format(isoDate),
			ToDate:   now.AddDate(0, 0, 7).Format(isoDate),
		}
	case strings.Contains(lower, "oggi"), strings.Contains(lower, "stamattina"),
		strings.Contains(lower, "stasera"), strings.Contains(lower, "stanotte"):
		return singleDay(0)
	}
	return nil
}

// fallbackTimeOfDay maps Italian day-period words onto the enum.
func fallbackTimeOfDay(lower string) *string {
	pick := func(t string) *string { return &t }

	switch {
	case strings.Contains(lower, "stamattina"), strings.Contains(lower, "mattina"),
		strings.Contains(lower, "mattino"):
		return pick(weather.TimeMorning)
	case strings.Contains(lower, "pomeriggio"):
		return pick(weather.TimeAfternoon)
	case strings.Contains(lower, "stasera"), strings.Contains(lower, "sera"):
		return pick(weather.TimeEvening)
	case strings.Contains(lower, "stanotte"), strings.Contains(lower, "notte"):
		return pick(weather.TimeNight)
	}
	return nil
}

func capRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
