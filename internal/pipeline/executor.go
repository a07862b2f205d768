package pipeline

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/saucelist/saucelist/internal/domain"
)

// Executor runs a route's configured stages strictly sequentially, stopping
// at the first reply. Stage errors are converted into replies here so that a
// dependency failure can never escape a chain unhandled.
type Executor struct {
	stages []Stage
	chain  Chain
	logger *slog.Logger
}

// NewExecutor builds an executor for an ordered stage list. The chain is
// derived from the stage names and never changes afterwards.
func NewExecutor(logger *slog.Logger, stages ...Stage) *Executor {
	chain := make(Chain, len(stages))
	for i, s := range stages {
		chain[i] = s.Name()
	}
	return &Executor{stages: stages, chain: chain, logger: logger}
}

// Chain returns the executor's configured chain.
func (e *Executor) Chain() Chain {
	return e.chain
}

// Run walks the chain and returns the terminal status and body. Exactly one
// stage replies per request: the first to emit Reply, or the stage whose
// error is converted here. A chain that falls off the end without a reply is
// a wiring bug and is surfaced as a dependency failure rather than a hang.
func (e *Executor) Run(ctx context.Context, ex *Exchange) (int, any) {
	for _, stage := range e.stages {
		outcome, err := stage.Run(ctx, ex)
		if err != nil {
			apiErr := domain.AsAPIError(err, "Something went wrong. Please try again.")
			e.logger.Warn("stage failed",
				slog.String("stage", stage.Name()),
				slog.String("type", string(apiErr.Type)),
				slog.String("error", apiErr.Message),
			)
			return apiErr.HTTPStatusCode(), Fail(apiErr.Message)
		}
		if outcome.IsReply() {
			return outcome.Status(), outcome.Body()
		}
	}

	e.logger.Error("chain ended without a terminal reply")
	return http.StatusBadRequest, Fail("Something went wrong. Please try again.")
}
