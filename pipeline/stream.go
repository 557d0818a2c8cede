package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lexius/lexius/schema"
)

// Stream event statuses, emitted in state order.
const (
	StatusRetrieving = "retrieving"
	StatusRetrieved  = "retrieved"
	StatusGenerating = "generating"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// Event is one incremental update from StreamQuery.
type Event struct {
	QueryID    string                   `json:"queryId"`
	Status     string                   `json:"status"`
	Message    string                   `json:"message,omitempty"`
	Sources    []schema.RetrievalResult `json:"sources,omitempty"`
	Answer     string                   `json:"answer,omitempty"`
	Confidence float64                  `json:"confidence,omitempty"`
	TokensUsed int                      `json:"tokensUsed,omitempty"`
}

// StreamQuery runs the same state machine as Query but emits an event per
// transition. Context cancellation stops the stream before the next
// transition; no events follow. The returned channel closes when the stream
// ends.
func (s *Service) StreamQuery(ctx context.Context, question string, k int, filter map[string]string) (<-chan Event, error) {
	if strings.TrimSpace(question) == "" {
		return nil, schema.NewValidationError("question", "must not be empty")
	}
	if k <= 0 {
		k = defaultK
	}
	queryID := uuid.NewString()
	events := make(chan Event, 1)
	go func() {
		defer close(events)
		started := time.Now()
		if !emit(ctx, events, Event{QueryID: queryID, Status: StatusRetrieving, Message: "Searching legal documents..."}) {
			return
		}
		results, err := s.retrieve(ctx, question, k, filter)
		if err != nil {
			if errors.Is(err, schema.ErrDimensionMismatch) {
				emit(ctx, events, Event{QueryID: queryID, Status: StatusError, Message: "query embedding incompatible with index"})
				return
			}
			emit(ctx, events, Event{QueryID: queryID, Status: StatusError, Message: err.Error()})
			return
		}
		if !emit(ctx, events, Event{QueryID: queryID, Status: StatusRetrieved, Sources: results}) {
			return
		}
		if len(results) == 0 {
			emit(ctx, events, Event{QueryID: queryID, Status: StatusComplete, Answer: noDocumentsAnswer})
			return
		}
		if !emit(ctx, events, Event{QueryID: queryID, Status: StatusGenerating, Message: "Generating response..."}) {
			return
		}
		answer, tokens := s.generate(ctx, question, results)
		emit(ctx, events, Event{
			QueryID:    queryID,
			Status:     StatusComplete,
			Answer:     answer,
			Confidence: s.confidence(results),
			TokensUsed: tokens,
		})
		s.logf("stream query %s completed in %.2fs", queryID, time.Since(started).Seconds())
	}()
	return events, nil
}

// emit delivers an event unless the context is already cancelled. It reports
// whether the stream may continue.
func emit(ctx context.Context, events chan<- Event, evt Event) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}
	select {
	case events <- evt:
		return true
	case <-ctx.Done():
		return false
	}
}
