// Package stream turns an interview pipeline run into an ordered sequence of
// typed events for incremental delivery. The emitter owns event ordering,
// chunking and pacing; the transport encoding (SSE framing) lives with the
// HTTP server.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/pipeline"
	"github.com/mockmate/mockmate/internal/utils"
)

// Type names an event in the stream protocol.
type Type string

const (
	TypeStart          Type = "start"
	TypeRouting        Type = "routing"
	TypeProcessing     Type = "processing"
	TypeContent        Type = "content"
	TypeAnswerComplete Type = "answer_complete"
	TypeFollowUps      Type = "follow_ups"
	TypeComplete       Type = "complete"
	TypeError          Type = "error"
)

const (
	// chunkSize is the content chunk length in runes.
	chunkSize = 50
	// eventDelay paces consecutive protocol events.
	eventDelay = 100 * time.Millisecond
	// chunkDelay paces consecutive content chunks.
	chunkDelay = 50 * time.Millisecond
)

// Event is one element of the stream. Data keys depend on Type.
type Event struct {
	Type      Type           `json:"event_type"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Sink delivers a single event to the client. A non-nil error means the
// client is gone and the stream must stop without further events.
type Sink func(Event) error

// errTerminated marks a stream that already ended with a terminal error
// event. It aborts the pipeline without being reported as a transport
// failure.
var errTerminated = errors.New("stream terminated by error event")

// Emitter streams interview pipeline runs. Every stream carries exactly one
// terminal event: complete on success, error when answer generation fails.
type Emitter struct {
	interview *pipeline.Interview
	logger    *zap.Logger

	eventDelay time.Duration
	chunkDelay time.Duration
	now        func() time.Time
}

// NewEmitter creates an emitter over the shared interview pipeline.
func NewEmitter(interview *pipeline.Interview, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{
		interview:  interview,
		logger:     logger,
		eventDelay: eventDelay,
		chunkDelay: chunkDelay,
		now:        time.Now,
	}
}

// Stream runs the interview pipeline over state and delivers the event
// sequence through send. It returns a non-nil error only on transport
// failure or context cancellation; a pipeline failure is delivered to the
// client as a terminal error event and reported here as success.
func (e *Emitter) Stream(ctx context.Context, state *pipeline.InterviewState, send Sink) error {
	if err := e.emit(ctx, send, TypeStart, map[string]any{
		"message":  "Processing question...",
		"question": state.Question,
	}, e.eventDelay); err != nil {
		return err
	}

	err := e.interview.RunObserved(ctx, state, func(name string, st *pipeline.InterviewState) error {
		switch name {
		case "route":
			return e.emitRouting(ctx, send, st)
		case "generate_answer":
			return e.emitAnswer(ctx, send, st)
		case "generate_follow_ups":
			return e.emitFollowUps(ctx, send, st)
		default:
			return nil
		}
	})
	if errors.Is(err, errTerminated) {
		return nil
	}
	if err != nil {
		return err
	}

	return e.emit(ctx, send, TypeComplete, map[string]any{
		"message":         "Processing complete",
		"specialist_used": state.Decision.Specialist,
		"success":         true,
	}, 0)
}

func (e *Emitter) emitRouting(ctx context.Context, send Sink, state *pipeline.InterviewState) error {
	data := map[string]any{
		"selected_specialist": state.Decision.Specialist,
		"reasoning":           state.Decision.Reasoning,
		"confidence":          state.Decision.Confidence,
	}
	if state.Decision.Fallback {
		data["fallback"] = true
	}
	if err := e.emit(ctx, send, TypeRouting, data, e.eventDelay); err != nil {
		return err
	}

	return e.emit(ctx, send, TypeProcessing, map[string]any{
		"message":    fmt.Sprintf("Generating answer with %s specialist...", state.Decision.Specialist),
		"specialist": state.Decision.Specialist,
	}, e.eventDelay)
}

func (e *Emitter) emitAnswer(ctx context.Context, send Sink, state *pipeline.InterviewState) error {
	if state.Err != nil {
		if err := e.emit(ctx, send, TypeError, map[string]any{
			"error":   state.Err.Error(),
			"message": "Failed to generate answer",
		}, 0); err != nil {
			return err
		}
		return errTerminated
	}

	chunks := splitChunks(state.Result.Answer, chunkSize)
	for i, chunk := range chunks {
		if err := e.emit(ctx, send, TypeContent, map[string]any{
			"chunk":    chunk,
			"is_final": i == len(chunks)-1,
		}, e.chunkDelay); err != nil {
			return err
		}
	}

	return e.emit(ctx, send, TypeAnswerComplete, map[string]any{
		"full_answer": state.Result.Answer,
		"confidence":  state.Result.Confidence,
		"metadata":    state.Result.Metadata,
	}, e.eventDelay)
}

func (e *Emitter) emitFollowUps(ctx context.Context, send Sink, state *pipeline.InterviewState) error {
	data := map[string]any{
		"questions": state.FollowUps.Questions,
	}
	if state.FollowUps.Generic {
		data["generic"] = true
	}
	return e.emit(ctx, send, TypeFollowUps, data, e.eventDelay)
}

// emit sends one event and then paces before the next. A cancelled context
// surfaces through WaitFor, so a disconnected client stops the stream at the
// next pacing point.
func (e *Emitter) emit(ctx context.Context, send Sink, typ Type, data map[string]any, delay time.Duration) error {
	event := Event{
		Type:      typ,
		Timestamp: e.now().UTC(),
		Data:      data,
	}
	if err := send(event); err != nil {
		e.logger.Debug("stream send failed", zap.String("event_type", string(typ)), zap.Error(err))
		return err
	}

	return utils.WaitFor(ctx, delay)
}

// splitChunks cuts s into rune-sized chunks. Rune boundaries keep multibyte
// characters intact across chunk edges.
func splitChunks(s string, size int) []string {
	if s == "" {
		return nil
	}

	runes := []rune(s)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
