package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/ports"
	"github.com/ersonp/pjud-tracker/internal/infrastructure/logger"
)

// Generator selectors name the response generators the dispatcher routes to.
const (
	SelectorCompromise         = "compromise"
	SelectorExceptionsResponse = "exceptions_response"
	SelectorDemandCorrection   = "demand_text_correction"
	SelectorResponse           = "response"
	SelectorRequest            = "request"
	SelectorOther              = "other"
)

// SuggestionRoute configures one suggestion type.
type SuggestionRoute struct {
	Type     entities.SuggestionType
	Name     string
	Selector string
	// Weight is the base usefulness of this type, in [0,1].
	Weight float64
}

// SuggestionRoutes maps each suggestion type to its generator.
var SuggestionRoutes = map[entities.SuggestionType]SuggestionRoute{
	entities.SuggestionCompromise: {
		Type: entities.SuggestionCompromise, Name: "Propuesta de avenimiento",
		Selector: SelectorCompromise, Weight: 0.9,
	},
	entities.SuggestionExceptionsResponse: {
		Type: entities.SuggestionExceptionsResponse, Name: "Respuesta a excepciones",
		Selector: SelectorExceptionsResponse, Weight: 1.0,
	},
	entities.SuggestionDemandTextCorrection: {
		Type: entities.SuggestionDemandTextCorrection, Name: "Corrección de demanda",
		Selector: SelectorDemandCorrection, Weight: 0.8,
	},
	entities.SuggestionResponse: {
		Type: entities.SuggestionResponse, Name: "Respuesta",
		Selector: SelectorResponse, Weight: 0.7,
	},
	entities.SuggestionRequest: {
		Type: entities.SuggestionRequest, Name: "Escrito de solicitud",
		Selector: SelectorRequest, Weight: 0.6,
	},
	entities.SuggestionOther: {
		Type: entities.SuggestionOther, Name: "Otro escrito",
		Selector: SelectorOther, Weight: 0.3,
	},
}

// suggestionRule makes a suggestion type applicable to an event. A nil
// eligible always applies.
type suggestionRule struct {
	suggestion entities.SuggestionType
	eligible   func(entities.Payload) bool
}

// eventSuggestions lists, per milestone, the suggestion types to generate.
var eventSuggestions = map[entities.EventType][]suggestionRule{
	entities.EventDispatchResolution: {
		{suggestion: entities.SuggestionDemandTextCorrection, eligible: hasObservations},
		{suggestion: entities.SuggestionRequest},
	},
	entities.EventNotification: {
		{suggestion: entities.SuggestionRequest},
	},
	entities.EventExceptions: {
		{suggestion: entities.SuggestionExceptionsResponse},
		{suggestion: entities.SuggestionCompromise, eligible: CompromiseEligible},
	},
	entities.EventTranslationEvacuation: {
		{suggestion: entities.SuggestionRequest},
	},
	entities.EventTrialStart: {
		{suggestion: entities.SuggestionRequest},
		{suggestion: entities.SuggestionCompromise, eligible: CompromiseEligible},
	},
	entities.EventSentence: {
		{suggestion: entities.SuggestionResponse},
	},
}

// CompromiseEligible reports whether the extracted facts allow proposing a
// settlement: an explicit flag, or an outstanding debt amount.
func CompromiseEligible(p entities.Payload) bool {
	if p.Bool("compromise_eligible") {
		return true
	}
	amount, ok := p.Number("debt_amount")
	return ok && amount > 0
}

func hasObservations(p entities.Payload) bool {
	switch v := p["observations"].(type) {
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	}
	return false
}

// ApplicableSuggestions returns the suggestion types to generate for an
// event type and payload, in table order.
func ApplicableSuggestions(eventType entities.EventType, payload entities.Payload) []entities.SuggestionType {
	var out []entities.SuggestionType
	for _, rule := range eventSuggestions[eventType] {
		if rule.eligible == nil || rule.eligible(payload) {
			out = append(out, rule.suggestion)
		}
	}
	return out
}

// SuggestionDispatcher generates, scores and persists suggestions for new
// events. Each suggestion type fails independently.
type SuggestionDispatcher struct {
	generators map[string]ports.ResponseGenerator
	scorer     Scorer
	timeout    time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// NewSuggestionDispatcher creates a dispatcher. generators is keyed by
// selector; a nil scorer selects WeightedScorer.
func NewSuggestionDispatcher(generators map[string]ports.ResponseGenerator, scorer Scorer, timeout time.Duration, log *logger.Logger) *SuggestionDispatcher {
	if scorer == nil {
		scorer = WeightedScorer{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &SuggestionDispatcher{
		generators: generators,
		scorer:     scorer,
		timeout:    timeout,
		log:        log,
		now:        time.Now,
	}
}

// Dispatch generates every applicable suggestion for event and persists it
// on q. It returns the persisted suggestions together with the joined
// errors of the types that failed.
func (d *SuggestionDispatcher) Dispatch(ctx context.Context, q ports.Queries, c *entities.Case, event *entities.CaseEvent, payload entities.Payload) ([]*entities.CaseEventSuggestion, error) {
	var (
		out  []*entities.CaseEventSuggestion
		errs []error
	)
	for _, suggestionType := range ApplicableSuggestions(event.Type, payload) {
		s, err := d.dispatchOne(ctx, q, c, event, payload, suggestionType)
		if err != nil {
			d.log.Warn("suggestion failed",
				"case_id", event.CaseID,
				"event_id", event.ID,
				"suggestion_type", suggestionType,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", suggestionType, err))
			continue
		}
		out = append(out, s)
	}
	return out, errors.Join(errs...)
}

func (d *SuggestionDispatcher) dispatchOne(ctx context.Context, q ports.Queries, c *entities.Case, event *entities.CaseEvent, payload entities.Payload, suggestionType entities.SuggestionType) (*entities.CaseEventSuggestion, error) {
	route, ok := SuggestionRoutes[suggestionType]
	if !ok {
		return nil, fmt.Errorf("no route for suggestion type %s", suggestionType)
	}
	generator, ok := d.generators[route.Selector]
	if !ok || generator == nil {
		return nil, fmt.Errorf("no generator registered for selector %q", route.Selector)
	}

	genCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	generated, err := generator.GenerateSuggestion(genCtx, ports.SuggestionRequest{
		Case:    *c,
		Event:   *event,
		Type:    suggestionType,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("generating suggestion: %w", err)
	}
	if generated == nil {
		return nil, errors.New("generator returned no suggestion")
	}

	score, err := d.scorer.Score(genCtx, event, payload, route, generated)
	if err != nil {
		return nil, fmt.Errorf("scoring suggestion: %w", err)
	}

	name := generated.Name
	if name == "" {
		name = route.Name
	}
	s := &entities.CaseEventSuggestion{
		ID:        uuid.New().String(),
		EventID:   event.ID,
		Name:      name,
		Type:      suggestionType,
		Content:   generated.Content,
		Score:     score,
		CreatedAt: d.now().UTC(),
	}
	if err := q.InsertSuggestion(ctx, s); err != nil {
		return nil, fmt.Errorf("saving suggestion: %w", err)
	}
	return s, nil
}
