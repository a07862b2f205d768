// Package pipeline is the request-processing composition core: a uniform
// stage contract, a typed per-request context and response accumulator, and
// the terminal detection that lets one assembly stage serve both as an
// endpoint and as a link in a longer chain.
package pipeline

import (
	"context"
	"net/http"
)

// Stage is one unit of the pipeline. A stage either replies (terminating the
// chain) or forwards the enriched exchange to the next configured stage.
// Returning an error is equivalent to replying with that error's status; the
// executor performs the conversion so no error escapes a chain.
type Stage interface {
	// Name returns the unique identifier for this stage.
	Name() string

	// Run executes the stage against the exchange.
	Run(ctx context.Context, ex *Exchange) (Outcome, error)
}

// Chain is the ordered stage-name sequence configured for a route. It is
// immutable once a request begins.
type Chain []string

// Terminal reports whether the named stage is positionally last in the
// chain. The terminal stage merges its findings into the accumulator and
// replies; earlier stages forward.
func (c Chain) Terminal(name string) bool {
	return len(c) > 0 && c[len(c)-1] == name
}

// Outcome is the result of one stage: either a terminal reply or a forward
// to the next stage.
type Outcome struct {
	reply  bool
	status int
	body   any
}

// Reply terminates the chain immediately with the given status and body,
// regardless of the stage's position.
func Reply(status int, body any) Outcome {
	return Outcome{reply: true, status: status, body: body}
}

// Forward passes control to the next configured stage.
func Forward() Outcome {
	return Outcome{}
}

// IsReply reports whether the outcome terminates the chain.
func (o Outcome) IsReply() bool { return o.reply }

// Status returns the HTTP status of a reply outcome.
func (o Outcome) Status() int { return o.status }

// Body returns the body of a reply outcome.
func (o Outcome) Body() any { return o.body }

// ReplyOrForward implements the assembly-stage duality: when the named stage
// is terminal for the exchange's chain it replies 200 with the accumulated
// locals, otherwise it forwards so later stages see the contribution the
// stage already merged into the accumulator.
func ReplyOrForward(ex *Exchange, name string) Outcome {
	if ex.Chain.Terminal(name) {
		return Reply(http.StatusOK, ex.Acc.Payload())
	}
	return Forward()
}

// Fail builds the failure reply envelope.
func Fail(msg string) map[string]any {
	return map[string]any{"isGood": false, "msg": msg}
}
