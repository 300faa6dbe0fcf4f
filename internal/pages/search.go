package pages

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

const (
	resultCardSelector  = ".MuiCard-root"
	resultItemSelector  = "div.MuiPaper-root"
	resultTitleSelector = "a"
	resultURLSelector   = "p.text-green-700"
	resultSnipSelector  = "p.text-slate-700"
)

// SearchPage is the search box and its result cards.
type SearchPage struct {
	page playwright.Page

	// staleInput is the input element as it was before the last query was
	// typed. Only the stale-element scenario looks at it.
	staleInput playwright.ElementHandle
}

func NewSearchPage(page playwright.Page) *SearchPage {
	return &SearchPage{page: page}
}

func (p *SearchPage) searchInput() playwright.Locator {
	return p.page.GetByTestId("search-input")
}

func (p *SearchPage) searchButton() playwright.Locator {
	return p.page.GetByTestId("search-button")
}

func (p *SearchPage) results() playwright.Locator {
	return p.page.Locator(resultCardSelector)
}

// EnterSearchQuery fills the search input, first keeping a handle to the
// element so a later re-render can be detected. The handle kept by the
// previous call is disposed.
func (p *SearchPage) EnterSearchQuery(query string) error {
	input := p.searchInput()
	handle, err := input.ElementHandle()
	if err != nil {
		return fmt.Errorf("locate search input: %w", err)
	}
	if p.staleInput != nil {
		// a detached element may already be gone on the browser side
		_ = p.staleInput.Dispose()
	}
	p.staleInput = handle
	if err := input.Fill(query); err != nil {
		return fmt.Errorf("fill search query: %w", err)
	}
	return nil
}

func (p *SearchPage) ClickSearchButton() error {
	if err := p.searchButton().Click(); err != nil {
		return fmt.Errorf("click search: %w", err)
	}
	return nil
}

// ResultsCount waits for the first result card and counts all of them.
func (p *SearchPage) ResultsCount() (int, error) {
	if err := p.WaitForResultsToLoad(); err != nil {
		return 0, err
	}
	n, err := p.results().Count()
	if err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return n, nil
}

// VerifyResultsStructure checks every result has a title link, a URL line
// and a snippet. The error names the first result that does not.
func (p *SearchPage) VerifyResultsStructure() error {
	items := p.results().Locator(resultItemSelector)
	n, err := items.Count()
	if err != nil {
		return fmt.Errorf("count result items: %w", err)
	}
	for i := 0; i < n; i++ {
		item := items.Nth(i)
		for _, part := range []struct{ name, selector string }{
			{"title", resultTitleSelector},
			{"url", resultURLSelector},
			{"snippet", resultSnipSelector},
		} {
			count, err := item.Locator(part.selector).Count()
			if err != nil {
				return fmt.Errorf("result %d: look up %s: %w", i, part.name, err)
			}
			if count == 0 {
				return fmt.Errorf("result %d has no %s (%s)", i, part.name, part.selector)
			}
		}
	}
	return nil
}

// NoResultsDisplayed reports whether the page shows zero result cards.
func (p *SearchPage) NoResultsDisplayed() (bool, error) {
	n, err := p.results().Count()
	if err != nil {
		return false, fmt.Errorf("count results: %w", err)
	}
	return n == 0, nil
}

func (p *SearchPage) WaitForResultsToLoad() error {
	if err := p.results().First().WaitFor(); err != nil {
		return fmt.Errorf("wait for results: %w", err)
	}
	return nil
}

// ResultTexts returns the visible text of every result card.
func (p *SearchPage) ResultTexts() ([]string, error) {
	texts, err := p.results().AllInnerTexts()
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return texts, nil
}

// RelocateSearchInput returns a fresh locator for the search input and
// waits for it to be visible.
func (p *SearchPage) RelocateSearchInput() (playwright.Locator, error) {
	input := p.searchInput()
	if err := input.WaitFor(playwright.LocatorWaitForOptions{State: playwright.WaitForSelectorStateVisible}); err != nil {
		return nil, fmt.Errorf("re-locate search input: %w", err)
	}
	return input, nil
}

// StaleInputHandle returns the handle captured by the last EnterSearchQuery.
func (p *SearchPage) StaleInputHandle() playwright.ElementHandle {
	return p.staleInput
}
