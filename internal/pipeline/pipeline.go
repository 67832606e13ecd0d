// Package pipeline runs fixed, linear sequences of stages over an owned,
// mutable state value. Every pipeline here is strictly linear, so the
// executor is a plain ordered list of stage functions — no graph machinery.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Stage is one transformation step in a linear pipeline. Run mutates the
// state in place; the state is exclusively owned by a single in-flight
// request, so stages never synchronize.
type Stage[S any] struct {
	Name string
	Run  func(ctx context.Context, state *S)
}

// Execute runs the stages sequentially and in order. Stages always all run;
// a stage that wants to skip itself checks the state and returns early.
func Execute[S any](ctx context.Context, logger *zap.Logger, stages []Stage[S], state *S) {
	_ = ExecuteObserved(ctx, logger, stages, state, nil)
}

// ExecuteObserved runs the stages like Execute, invoking after once a stage
// completes. A non-nil error from the observer stops the pipeline and is
// returned; this is how streaming delivery aborts mid-pipeline when the
// client goes away or a stage failure has been surfaced.
func ExecuteObserved[S any](ctx context.Context, logger *zap.Logger, stages []Stage[S], state *S, after func(name string, state *S) error) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, stage := range stages {
		start := time.Now()
		stage.Run(ctx, state)
		logger.Debug("pipeline stage completed",
			zap.String("stage", stage.Name),
			zap.Duration("elapsed", time.Since(start)),
		)

		if after != nil {
			if err := after(stage.Name, state); err != nil {
				return err
			}
		}
	}

	return nil
}
