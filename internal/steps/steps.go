// Package steps binds Gherkin step text to page-object actions. Every step
// takes the scenario's context first and finds its page there.
package steps

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/playwright-bdd/internal/lifecycle"
	"github.com/kuitang/playwright-bdd/internal/obs"
	"github.com/kuitang/playwright-bdd/internal/pages"
	"github.com/kuitang/playwright-bdd/internal/urlutil"
)

// StepRegistrar is the part of *godog.ScenarioContext used to bind steps.
type StepRegistrar interface {
	Step(expr, stepFunc interface{})
}

// Steps holds what the bindings need beyond the scenario page.
type Steps struct {
	loginURL string
}

func New(loginURL string) *Steps {
	return &Steps{loginURL: loginURL}
}

// Register binds every step of the login and search suites.
func (s *Steps) Register(sc StepRegistrar) {
	// navigation
	sc.Step(`^I navigate to the login page "([^"]*)"$`, s.navigateTo)
	sc.Step(`^I navigate to the page "([^"]*)"$`, s.navigateTo)
	sc.Step(`^I navigate to the webpage "([^"]*)"$`, s.navigateTo)

	// login
	sc.Step(`^I enter username "([^"]*)"$`, enterUsername)
	sc.Step(`^I enter password "([^"]*)"$`, enterPassword)
	sc.Step(`^I click the login button$`, clickLogin)
	sc.Step(`^I should see the error message "([^"]*)"$`, shouldSeeErrorMessage)
	sc.Step(`^I click the password visibility toggle$`, clickPasswordToggle)
	sc.Step(`^the password field should be visible as text$`, passwordVisibleAsText)
	sc.Step(`^I should see the dashboard for "([^"]*)"$`, shouldSeeDashboardFor)
	sc.Step(`^I click the logout button$`, clickLogout)
	sc.Step(`^I should be redirected to the login page$`, shouldBeOnLoginPage)
	sc.Step(`^the cookies should be cleared$`, cookiesShouldBeCleared)

	// search
	sc.Step(`^I enter search query "([^"]*)"$`, enterSearchQuery)
	sc.Step(`^I click the search button$`, clickSearch)
	sc.Step(`^I should see at least (\d+) search results$`, shouldSeeAtLeastResults)
	sc.Step(`^each result should have a clickable title, URL, and snippet$`, eachResultHasStructure)
	sc.Step(`^I should see no results displayed$`, shouldSeeNoResults)
	sc.Step(`^I wait for search results to load$`, waitForResults)
	sc.Step(`^I re-locate the search input$`, relocateSearchInput)
	sc.Step(`^I should be able to perform the search$`, shouldBeAbleToSearch)
	sc.Step(`^I should see fresh results for the second query$`, shouldSeeFreshResults)
}

// navigateTo opens url, or the configured login page when url is empty.
// Relative urls resolve against the login page origin.
func (s *Steps) navigateTo(ctx context.Context, url string) error {
	page, err := lifecycle.PageFromContext(ctx)
	if err != nil {
		return err
	}
	target := urlutil.ResolveTarget(url, s.loginURL)
	obs.From(ctx).Debug("navigate", "pkg", "steps", "url", target)

	if _, err := page.Goto(target); err != nil {
		return fmt.Errorf("navigate to %s: %w", target, err)
	}
	err = page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
	if err != nil {
		return fmt.Errorf("wait for network idle on %s: %w", target, err)
	}

	title, err := page.Title()
	if err != nil {
		return fmt.Errorf("read title of %s: %w", target, err)
	}
	content, err := page.Content()
	if err != nil {
		return fmt.Errorf("read content of %s: %w", target, err)
	}
	if title == "" {
		return fmt.Errorf("page title is empty for URL: %s", target)
	}
	if content == "" {
		return fmt.Errorf("page content is empty for URL: %s", target)
	}
	return nil
}

type stateKey struct{}

// scenarioState carries what one step leaves for a later step of the same
// scenario. godog threads the returned context from step to step.
type scenarioState struct {
	search       *pages.SearchPage
	firstResults []string
}

func stateFrom(ctx context.Context) (context.Context, *scenarioState) {
	if st, ok := ctx.Value(stateKey{}).(*scenarioState); ok {
		return ctx, st
	}
	st := &scenarioState{}
	return context.WithValue(ctx, stateKey{}, st), st
}

func loginPage(ctx context.Context) (*pages.LoginPage, error) {
	page, err := lifecycle.PageFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return pages.NewLoginPage(page), nil
}

// searchPage returns the scenario's search page object, creating it on
// first use so its captured input handle survives between steps.
func searchPage(ctx context.Context) (context.Context, *pages.SearchPage, error) {
	page, err := lifecycle.PageFromContext(ctx)
	if err != nil {
		return ctx, nil, err
	}
	ctx, st := stateFrom(ctx)
	if st.search == nil {
		st.search = pages.NewSearchPage(page)
	}
	return ctx, st.search, nil
}
