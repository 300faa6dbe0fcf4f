package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/kuitang/playwright-bdd/internal/obs"
)

func enterUsername(ctx context.Context, username string) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.EnterUsername(username)
}

func enterPassword(ctx context.Context, password string) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.EnterPassword(password)
}

func clickLogin(ctx context.Context) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.ClickLoginButton()
}

func shouldSeeErrorMessage(ctx context.Context, message string) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.WaitForErrorMessage(message)
}

func clickPasswordToggle(ctx context.Context) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.ClickPasswordVisibilityToggle()
}

func passwordVisibleAsText(ctx context.Context) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.AssertPasswordFieldVisibleAsText()
}

func shouldSeeDashboardFor(ctx context.Context, username string) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.AssertDashboardForUser(username)
}

func clickLogout(ctx context.Context) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.ClickLogoutButton()
}

func shouldBeOnLoginPage(ctx context.Context) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	return p.AssertOnLoginPage()
}

func cookiesShouldBeCleared(ctx context.Context) error {
	p, err := loginPage(ctx)
	if err != nil {
		return err
	}
	remaining, err := p.SessionCookies()
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return nil
	}

	names := make([]string, 0, len(remaining))
	for _, c := range remaining {
		names = append(names, c.Name)
	}
	found := strings.Join(names, ", ")
	// names only: cookie values are session credentials
	obs.From(ctx).Warn("session cookies still present", "pkg", "steps", "cookies", found)
	return fmt.Errorf("expected session cookies to be cleared after logout, but found: %s", found)
}
