package lifecycle

import (
	"context"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/playwright-bdd/internal/errs"
)

type scenarioContextKey struct{}

// WithScenario stores sc in ctx for the step bindings of that scenario.
func WithScenario(ctx context.Context, sc *Scenario) context.Context {
	return context.WithValue(ctx, scenarioContextKey{}, sc)
}

// FromContext returns the scenario stored by WithScenario.
func FromContext(ctx context.Context) (*Scenario, bool) {
	if ctx == nil {
		return nil, false
	}
	sc, ok := ctx.Value(scenarioContextKey{}).(*Scenario)
	return sc, ok && sc != nil
}

// PageFromContext returns the page of the active scenario in ctx.
func PageFromContext(ctx context.Context) (playwright.Page, error) {
	sc, ok := FromContext(ctx)
	if !ok || sc.Page == nil {
		return nil, errs.New(errs.FailedPrecondition, "no scenario page in context")
	}
	if sc.state != StateActive {
		return nil, errs.New(errs.FailedPrecondition, "scenario "+sc.state.String()+", page unavailable")
	}
	return sc.Page, nil
}
