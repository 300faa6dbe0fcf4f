// Package hooks connects godog's scenario and step hooks to the lifecycle
// controller and the run log.
package hooks

import (
	"context"
	"errors"

	"github.com/cucumber/godog"

	"github.com/kuitang/playwright-bdd/internal/lifecycle"
	"github.com/kuitang/playwright-bdd/internal/logutil"
	"github.com/kuitang/playwright-bdd/internal/obs"
)

const maxStepTextLog = 200

// ScenarioHooks is the part of *godog.ScenarioContext that registers
// scenario hooks.
type ScenarioHooks interface {
	Before(h godog.BeforeScenarioHook)
	After(h godog.AfterScenarioHook)
}

// StepHooks is the part of *godog.ScenarioContext that exposes step hooks.
type StepHooks interface {
	StepContext() godog.StepContext
}

// Controller is what the hooks need from *lifecycle.Controller.
type Controller interface {
	Setup(ctx context.Context, title string) (*lifecycle.Scenario, error)
	Teardown(ctx context.Context, sc *lifecycle.Scenario, scenarioErr error) (lifecycle.Report, error)
}

// Register runs Setup before each scenario and Teardown after it. strict
// must match the suite's strict option so artifacts are tagged with the
// outcome godog reports.
func Register(sc ScenarioHooks, ctrl Controller, strict bool) {
	sc.Before(func(ctx context.Context, s *godog.Scenario) (context.Context, error) {
		return before(ctx, ctrl, s)
	})
	sc.After(func(ctx context.Context, s *godog.Scenario, err error) (context.Context, error) {
		return after(ctx, ctrl, s, err, strict)
	})
}

func before(ctx context.Context, ctrl Controller, s *godog.Scenario) (context.Context, error) {
	ctx = obs.WithScenario(ctx, s.Uri, s.Name)
	run, err := ctrl.Setup(ctx, s.Name)
	if err != nil {
		obs.From(ctx).Error("scenario setup failed", "pkg", "hooks", "error", err)
		return ctx, err
	}
	return lifecycle.WithScenario(ctx, run), nil
}

// after never returns a teardown error; the scenario's own result stands.
func after(ctx context.Context, ctrl Controller, s *godog.Scenario, scenarioErr error, strict bool) (context.Context, error) {
	logger := obs.From(ctx).With("pkg", "hooks")
	run, ok := lifecycle.FromContext(ctx)
	if !ok {
		logger.Warn("no active scenario, teardown skipped", "scenario", s.Name)
		return ctx, nil
	}

	report, err := ctrl.Teardown(ctx, run, outcomeError(scenarioErr, strict))
	if err != nil {
		logger.Error("teardown finished with errors", "error", err)
	}
	logger.Info("scenario artifacts",
		"outcome", string(report.Outcome),
		"trace", report.TracePath,
		"screenshot", report.ScreenshotPath,
		"video", report.VideoPath,
		"published", len(report.Published),
	)
	return ctx, nil
}

// outcomeError maps godog's scenario error to the error that decides the
// artifact outcome. Skipped scenarios count as passed; undefined and pending
// steps only fail a strict run.
func outcomeError(err error, strict bool) error {
	switch {
	case errors.Is(err, godog.ErrSkip):
		return nil
	case !strict && (errors.Is(err, godog.ErrUndefined) || errors.Is(err, godog.ErrPending)):
		return nil
	}
	return err
}

// RegisterStepLogging logs each step with sensitive arguments redacted.
func RegisterStepLogging(sc StepHooks) {
	steps := sc.StepContext()
	steps.Before(beforeStep)
	steps.After(afterStep)
}

func stepText(st *godog.Step) string {
	return logutil.TruncateForLog(logutil.RedactStepText(st.Text), maxStepTextLog)
}

func beforeStep(ctx context.Context, st *godog.Step) (context.Context, error) {
	ctx = obs.WithCorrelation(ctx, obs.Correlation{Step: stepText(st)})
	obs.From(ctx).Debug("step started", "pkg", "hooks")
	return ctx, nil
}

func afterStep(ctx context.Context, st *godog.Step, status godog.StepResultStatus, err error) (context.Context, error) {
	logger := obs.From(ctx).With("pkg", "hooks", "status", status.String())
	if err != nil {
		logger.Warn("step failed", "error", err)
	} else {
		logger.Debug("step finished")
	}
	return ctx, nil
}
