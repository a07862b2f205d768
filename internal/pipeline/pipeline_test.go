package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/saucelist/saucelist/internal/domain"
	"github.com/saucelist/saucelist/internal/query"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// assemblyStage mimics a domain assembly stage: it records its contribution
// in the accumulator and uses ReplyOrForward for terminal detection.
type assemblyStage struct {
	name  string
	calls int
}

func (s *assemblyStage) Name() string { return s.name }

func (s *assemblyStage) Run(ctx context.Context, ex *Exchange) (Outcome, error) {
	s.calls++
	ex.Acc.SetCount(s.calls)
	return ReplyOrForward(ex, s.name), nil
}

// errStage always fails with the given error.
type errStage struct {
	name string
	err  error
}

func (s *errStage) Name() string { return s.name }

func (s *errStage) Run(ctx context.Context, ex *Exchange) (Outcome, error) {
	return Outcome{}, s.err
}

func TestChain_Terminal(t *testing.T) {
	chain := Chain{"a", "b", "c"}
	if chain.Terminal("a") || chain.Terminal("b") {
		t.Error("non-last stages must not be terminal")
	}
	if !chain.Terminal("c") {
		t.Error("last stage must be terminal")
	}
	if (Chain{}).Terminal("a") {
		t.Error("empty chain has no terminal stage")
	}
	if !(Chain{"a"}).Terminal("a") {
		t.Error("single-stage chain is terminal for its only stage")
	}
}

func TestReplyOrForward_MidChainForwards(t *testing.T) {
	ex := NewExchange(&RequestContext{}, Chain{"a", "b", "c"})
	if out := ReplyOrForward(ex, "b"); out.IsReply() {
		t.Error("mid-chain stage must forward")
	}
	if out := ReplyOrForward(ex, "c"); !out.IsReply() {
		t.Error("terminal stage must reply")
	}
}

func TestExecutor_SingleStageReplies(t *testing.T) {
	a := &assemblyStage{name: "a"}
	e := NewExecutor(testLogger(), a)

	status, body := e.Run(context.Background(), NewExchange(&RequestContext{}, e.Chain()))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	payload := body.(map[string]any)
	if payload["isGood"] != true {
		t.Errorf("payload missing isGood: %v", payload)
	}
	if a.calls != 1 {
		t.Errorf("stage ran %d times, want 1", a.calls)
	}
}

func TestExecutor_StopsAtFirstReply(t *testing.T) {
	a := &assemblyStage{name: "a"}
	b := &assemblyStage{name: "b"}
	c := &assemblyStage{name: "c"}
	e := NewExecutor(testLogger(), a, b, c)

	status, _ := e.Run(context.Background(), NewExchange(&RequestContext{}, e.Chain()))
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	if a.calls != 1 || b.calls != 1 || c.calls != 1 {
		t.Errorf("calls = %d/%d/%d, want 1/1/1", a.calls, b.calls, c.calls)
	}
}

func TestExecutor_ErrorBecomesReply(t *testing.T) {
	failing := &errStage{name: "a", err: domain.ErrValidation("bad input")}
	downstream := &assemblyStage{name: "b"}
	e := NewExecutor(testLogger(), failing, downstream)

	status, body := e.Run(context.Background(), NewExchange(&RequestContext{}, e.Chain()))
	if status != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", status)
	}
	payload := body.(map[string]any)
	if payload["isGood"] != false || payload["msg"] != "bad input" {
		t.Errorf("payload = %v", payload)
	}
	if downstream.calls != 0 {
		t.Error("stages after a failure must not run")
	}
}

func TestExecutor_UntypedErrorIsDependencyFailure(t *testing.T) {
	e := NewExecutor(testLogger(), &errStage{name: "a", err: io.ErrUnexpectedEOF})

	status, _ := e.Run(context.Background(), NewExchange(&RequestContext{}, e.Chain()))
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestExecutor_PreconditionStatus(t *testing.T) {
	e := NewExecutor(testLogger(), &errStage{name: "a", err: domain.ErrPrecondition("missing slug")})

	status, _ := e.Run(context.Background(), NewExchange(&RequestContext{}, e.Chain()))
	if status != http.StatusMultipleChoices {
		t.Errorf("status = %d, want 300", status)
	}
}

type forwardOnly struct{ name string }

func (s *forwardOnly) Name() string { return s.name }
func (s *forwardOnly) Run(ctx context.Context, ex *Exchange) (Outcome, error) {
	return Forward(), nil
}

func TestExecutor_FallOffEnd(t *testing.T) {
	e := NewExecutor(testLogger(), &forwardOnly{name: "a"})

	status, body := e.Run(context.Background(), NewExchange(&RequestContext{}, e.Chain()))
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if body.(map[string]any)["isGood"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestAccumulator_LastWriterWins(t *testing.T) {
	acc := NewAccumulator()
	acc.SetCount(1)
	acc.SetCount(7)
	acc.SetQuery(query.Options{Type: "all", Order: "newest", Page: 1, Limit: 12})

	payload := acc.Payload()
	if payload["count"] != 7 {
		t.Errorf("count = %v, want 7", payload["count"])
	}
	if payload["order"] != "newest" {
		t.Errorf("order = %v", payload["order"])
	}
	if payload["isGood"] != true {
		t.Error("payload must carry isGood")
	}
}

func TestAccumulator_PayloadIsACopy(t *testing.T) {
	acc := NewAccumulator()
	acc.SetSlug("hot-sauce")

	first := acc.Payload()
	first["slug"] = "mutated"

	if second := acc.Payload(); second["slug"] != "hot-sauce" {
		t.Errorf("accumulator leaked through payload copy: %v", second["slug"])
	}
}
