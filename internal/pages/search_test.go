package pages

import (
	"errors"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// locator lets fakes embed playwright.Locator without the embedded field
// name shadowing the interface's Locator method.
type locator = playwright.Locator

type fakeHandle struct {
	playwright.ElementHandle
	disposed int
}

func (h *fakeHandle) Dispose() error {
	h.disposed++
	return nil
}

type fakeInput struct {
	locator
	handles []*fakeHandle
	filled  []string
}

func (l *fakeInput) ElementHandle(...playwright.LocatorElementHandleOptions) (playwright.ElementHandle, error) {
	h := &fakeHandle{}
	l.handles = append(l.handles, h)
	return h, nil
}

func (l *fakeInput) Fill(value string, _ ...playwright.LocatorFillOptions) error {
	l.filled = append(l.filled, value)
	return nil
}

type fakeSearchPage struct {
	playwright.Page
	input *fakeInput
}

func (p *fakeSearchPage) GetByTestId(testID interface{}) playwright.Locator {
	if testID == "search-input" {
		return p.input
	}
	return nil
}

func TestEnterSearchQuery_DisposesPreviousHandle(t *testing.T) {
	t.Parallel()
	input := &fakeInput{}
	p := NewSearchPage(&fakeSearchPage{input: input})

	require.NoError(t, p.EnterSearchQuery("golang"))
	require.NoError(t, p.EnterSearchQuery("rust"))
	require.NoError(t, p.EnterSearchQuery("zig"))

	require.Len(t, input.handles, 3)
	assert.Equal(t, 1, input.handles[0].disposed)
	assert.Equal(t, 1, input.handles[1].disposed)
	assert.Zero(t, input.handles[2].disposed, "latest handle stays live")
	assert.Same(t, input.handles[2], p.StaleInputHandle())
	assert.Equal(t, []string{"golang", "rust", "zig"}, input.filled)
}

type failingInput struct {
	locator
}

func (failingInput) ElementHandle(...playwright.LocatorElementHandleOptions) (playwright.ElementHandle, error) {
	return nil, errors.New("element detached")
}

type failingSearchPage struct {
	playwright.Page
}

func (failingSearchPage) GetByTestId(interface{}) playwright.Locator { return failingInput{} }

func TestEnterSearchQuery_LocateFailureKeepsNoHandle(t *testing.T) {
	t.Parallel()
	p := NewSearchPage(failingSearchPage{})

	err := p.EnterSearchQuery("golang")
	require.ErrorContains(t, err, "locate search input")
	assert.Nil(t, p.StaleInputHandle())
}
