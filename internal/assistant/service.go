package assistant

import (
	"context"
	"log"

	"github.com/cybercats/meteo-assistant/internal/composer"
	"github.com/cybercats/meteo-assistant/internal/parser"
	"github.com/cybercats/meteo-assistant/internal/weather"
)

// Reason classifies why a request could not be answered.
type Reason string

const (
	ReasonUnintelligible Reason = "unintelligible"
	ReasonMissingCity    Reason = "missing_city"
	ReasonOutOfContext   Reason = "out_of_context"
	ReasonNoData         Reason = "no_data"
)

// AnswerResult is the outcome of one end-to-end request: either a composed
// answer or a failure reason. Nothing in the pipeline is fatal to the host.
type AnswerResult struct {
	OK     bool   `json:"ok"`
	Text   string `json:"text,omitempty"`
	Reason Reason `json:"reason,omitempty"`
}

// CityLogger records a successfully answered city, e.g. into a user's saved
// history. Implementations are best-effort collaborators; errors are logged
// and never surfaced.
type CityLogger interface {
	LogAnsweredCity(city string) error
}

// Service runs the linear pipeline: parse, validate, fetch, compose. One
// Service handles any number of concurrent requests; it holds no mutable
// state of its own.
type Service struct {
	parser   *parser.Parser
	client   *weather.Client
	composer *composer.Composer
	history  CityLogger
}

// NewService wires the pipeline stages. history may be nil.
func NewService(p *parser.Parser, c *weather.Client, cmp *composer.Composer, history CityLogger) *Service {
	return &Service{
		parser:   p,
		client:   c,
		composer: cmp,
		history:  history,
	}
}

// Answer processes one utterance start to finish. An invalid query never
// reaches the weather providers.
func (s *Service) Answer(ctx context.Context, utterance string) AnswerResult {
	query, err := s.parser.Parse(ctx, utterance)
	if err != nil {
		log.Printf("assistant: parse failed: %v", err)
		return AnswerResult{OK: false, Reason: ReasonUnintelligible}
	}

	if !query.Valid {
		if query.OutOfContext() {
			return AnswerResult{OK: false, Reason: ReasonOutOfContext}
		}
		log.Printf("assistant: request rejected, missing: %v", query.MissingParameters)
		return AnswerResult{OK: false, Reason: ReasonMissingCity}
	}

	data, err := s.client.FetchAll(ctx, query.CityName())
	if err != nil || !data.HasAnyData() {
		return AnswerResult{OK: false, Reason: ReasonNoData}
	}

	text := s.composer.Compose(ctx, utterance, query, data)

	if s.history != nil {
		if err := s.history.LogAnsweredCity(query.CityName()); err != nil {
			log.Printf("assistant: could not record city %q: %v", query.CityName(), err)
		}
	}

	return AnswerResult{OK: true, Text: text}
}
