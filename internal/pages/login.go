// Package pages wraps the screens the suites drive. Locators are built on
// every call so a re-rendered page never leaves a page object holding a
// detached element.
package pages

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// LoginPage is the sign-in form plus the dashboard it leads to.
type LoginPage struct {
	page playwright.Page
}

func NewLoginPage(page playwright.Page) *LoginPage {
	return &LoginPage{page: page}
}

func (p *LoginPage) usernameInput() playwright.Locator {
	return p.page.GetByRole(*playwright.AriaRoleTextbox, playwright.PageGetByRoleOptions{Name: "Username"})
}

func (p *LoginPage) passwordInput() playwright.Locator {
	return p.page.GetByRole(*playwright.AriaRoleTextbox, playwright.PageGetByRoleOptions{Name: "Password"})
}

func (p *LoginPage) loginButton() playwright.Locator {
	return p.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: "Login"})
}

func (p *LoginPage) logoutButton() playwright.Locator {
	return p.page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: "Logout"})
}

func (p *LoginPage) passwordToggle() playwright.Locator {
	return p.page.Locator("button[aria-label='Toggle password visibility']")
}

func (p *LoginPage) welcomeHeading() playwright.Locator {
	return p.page.GetByRole(*playwright.AriaRoleHeading, playwright.PageGetByRoleOptions{Level: playwright.Int(5)})
}

func (p *LoginPage) loggedInAlert() playwright.Locator {
	return p.page.Locator(".MuiAlert-message")
}

func (p *LoginPage) EnterUsername(username string) error {
	if err := p.usernameInput().Fill(username); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	return nil
}

func (p *LoginPage) EnterPassword(password string) error {
	if err := p.passwordInput().Fill(password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	return nil
}

func (p *LoginPage) ClickLoginButton() error {
	if err := p.loginButton().Click(); err != nil {
		return fmt.Errorf("click login: %w", err)
	}
	return nil
}

func (p *LoginPage) ClickLogoutButton() error {
	if err := p.logoutButton().Click(); err != nil {
		return fmt.Errorf("click logout: %w", err)
	}
	return nil
}

func (p *LoginPage) ClickPasswordVisibilityToggle() error {
	if err := p.passwordToggle().Click(); err != nil {
		return fmt.Errorf("click password visibility toggle: %w", err)
	}
	return nil
}

// WaitForErrorMessage waits until text containing message is visible.
func (p *LoginPage) WaitForErrorMessage(message string) error {
	err := p.page.GetByText(message).First().WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	})
	if err != nil {
		return fmt.Errorf("error message %q not shown: %w", message, err)
	}
	return nil
}

// AssertPasswordFieldVisibleAsText checks the password input was switched
// to type=text by the visibility toggle.
func (p *LoginPage) AssertPasswordFieldVisibleAsText() error {
	err := playwright.NewPlaywrightAssertions().Locator(p.passwordInput()).ToHaveAttribute("type", "text")
	if err != nil {
		return fmt.Errorf("password field not shown as text: %w", err)
	}
	return nil
}

// AssertDashboardForUser checks the welcome heading names the user and the
// banner reads "You are logged in as {USER}", both case-insensitively.
func (p *LoginPage) AssertDashboardForUser(username string) error {
	if err := p.welcomeHeading().First().WaitFor(); err != nil {
		return fmt.Errorf("welcome heading not shown: %w", err)
	}
	headings, err := p.welcomeHeading().AllInnerTexts()
	if err != nil {
		return fmt.Errorf("read welcome heading: %w", err)
	}
	if !anyContainsFold(headings, username) {
		return fmt.Errorf("welcome message does not contain the username %q; actual messages: %s",
			username, strings.Join(headings, ", "))
	}

	want := "You are logged in as " + strings.ToUpper(username)
	alerts, err := p.loggedInAlert().AllInnerTexts()
	if err != nil {
		return fmt.Errorf("read logged-in banner: %w", err)
	}
	if !anyContainsFold(alerts, want) {
		return fmt.Errorf("banner message does not contain %q; actual messages: %s",
			want, strings.Join(alerts, ", "))
	}
	return nil
}

// AssertOnLoginPage waits for the network to settle and the username field
// to be visible.
func (p *LoginPage) AssertOnLoginPage() error {
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateNetworkidle,
	})
	if err != nil {
		return fmt.Errorf("wait for network idle: %w", err)
	}
	if err := playwright.NewPlaywrightAssertions().Locator(p.usernameInput()).ToBeVisible(); err != nil {
		return fmt.Errorf("username field not visible, not on the login page: %w", err)
	}
	return nil
}

// Cookies returns the context's cookies, optionally limited to urls.
func (p *LoginPage) Cookies(urls ...string) ([]playwright.Cookie, error) {
	cookies, err := p.page.Context().Cookies(urls...)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	return cookies, nil
}

// SessionCookies returns the cookies that look like they carry a login.
func (p *LoginPage) SessionCookies(urls ...string) ([]playwright.Cookie, error) {
	cookies, err := p.Cookies(urls...)
	if err != nil {
		return nil, err
	}
	var out []playwright.Cookie
	for _, c := range cookies {
		if IsSessionCookie(c.Name) {
			out = append(out, c)
		}
	}
	return out, nil
}

// IsSessionCookie matches cookie names containing session, auth, token or
// user, ignoring case.
func IsSessionCookie(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"session", "auth", "token", "user"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func anyContainsFold(values []string, want string) bool {
	want = strings.ToLower(want)
	for _, v := range values {
		if strings.Contains(strings.ToLower(v), want) {
			return true
		}
	}
	return false
}
