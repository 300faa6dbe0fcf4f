package steps

import (
	"context"
	"fmt"
	"slices"

	"github.com/kuitang/playwright-bdd/internal/obs"
)

func enterSearchQuery(ctx context.Context, query string) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	return ctx, p.EnterSearchQuery(query)
}

func clickSearch(ctx context.Context) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	return ctx, p.ClickSearchButton()
}

func shouldSeeAtLeastResults(ctx context.Context, want int) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	got, err := p.ResultsCount()
	if err != nil {
		return ctx, err
	}
	if got < want {
		return ctx, fmt.Errorf("expected at least %d search results, got %d", want, got)
	}
	return ctx, nil
}

func eachResultHasStructure(ctx context.Context) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	return ctx, p.VerifyResultsStructure()
}

func shouldSeeNoResults(ctx context.Context) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	none, err := p.NoResultsDisplayed()
	if err != nil {
		return ctx, err
	}
	if !none {
		return ctx, fmt.Errorf("expected no search results to be displayed")
	}
	return ctx, nil
}

// waitForResults also remembers the first set of results so a later step
// can tell a second query produced new ones.
func waitForResults(ctx context.Context) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	if err := p.WaitForResultsToLoad(); err != nil {
		return ctx, err
	}
	ctx, st := stateFrom(ctx)
	if st.firstResults == nil {
		texts, err := p.ResultTexts()
		if err != nil {
			return ctx, err
		}
		st.firstResults = texts
	}
	return ctx, nil
}

func relocateSearchInput(ctx context.Context) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	if _, err := p.RelocateSearchInput(); err != nil {
		return ctx, err
	}
	obs.From(ctx).Debug("search input re-located", "pkg", "steps", "had_stale_handle", p.StaleInputHandle() != nil)
	return ctx, nil
}

func shouldBeAbleToSearch(ctx context.Context) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	input, err := p.RelocateSearchInput()
	if err != nil {
		return ctx, err
	}
	enabled, err := input.IsEnabled()
	if err != nil {
		return ctx, fmt.Errorf("check search input: %w", err)
	}
	if !enabled {
		return ctx, fmt.Errorf("search input is disabled")
	}
	return ctx, nil
}

// shouldSeeFreshResults asserts the second query rendered results. Seeing the
// same cards as the first query is logged, not failed: a site may rank both
// queries identically.
func shouldSeeFreshResults(ctx context.Context) (context.Context, error) {
	ctx, p, err := searchPage(ctx)
	if err != nil {
		return ctx, err
	}
	n, err := p.ResultsCount()
	if err != nil {
		return ctx, err
	}
	if n == 0 {
		return ctx, fmt.Errorf("expected results for the second query, got none")
	}

	_, st := stateFrom(ctx)
	if st.firstResults == nil {
		return ctx, nil
	}
	texts, err := p.ResultTexts()
	if err != nil {
		return ctx, err
	}
	if slices.Equal(texts, st.firstResults) {
		obs.From(ctx).Warn("second query returned the same results as the first", "pkg", "steps", "results", n)
	}
	return ctx, nil
}
