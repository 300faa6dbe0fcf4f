package bdd

import (
	"fmt"
	"html"
	"net/http"
	"strings"
)

const (
	siteUser     = "tomsmith"
	sitePassword = "SuperSecretPassword!"
	sessionName  = "session_token"
	noMatchQuery = "zzqxv-no-such-term"
	resultsShown = 5
)

// newSite serves a small login and search app with the markup the page
// objects look for.
func newSite() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /login", serveLogin)
	mux.HandleFunc("POST /login", handleLogin)
	mux.HandleFunc("GET /dashboard", serveDashboard)
	mux.HandleFunc("POST /logout", handleLogout)
	mux.HandleFunc("GET /search", serveSearch)
	return mux
}

func writePage(w http.ResponseWriter, title, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!doctype html>
<html><head><meta charset="utf-8"><title>%s</title></head>
<body>%s</body></html>`, html.EscapeString(title), body)
}

func serveLogin(w http.ResponseWriter, r *http.Request) {
	var alert string
	if r.URL.Query().Get("error") != "" {
		alert = `<div role="alert" class="MuiAlert-root"><div class="MuiAlert-message">Invalid credentials</div></div>`
	}
	writePage(w, "Login", alert+`
<form method="post" action="/login">
  <input aria-label="Username" name="username" type="text">
  <input aria-label="Password" name="password" type="password" id="password">
  <button type="button" aria-label="Toggle password visibility"
    onclick="const p = document.getElementById('password'); p.type = p.type === 'password' ? 'text' : 'password';">show</button>
  <button type="submit">Login</button>
</form>`)
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("username") != siteUser || r.PostForm.Get("password") != sitePassword {
		http.Redirect(w, r, "/login?error=1", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionName, Value: "s-" + siteUser, Path: "/", HttpOnly: true})
	http.SetCookie(w, &http.Cookie{Name: "theme", Value: "light", Path: "/"})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func serveDashboard(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionName)
	if err != nil || c.Value == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	user := html.EscapeString(strings.TrimPrefix(c.Value, "s-"))
	writePage(w, "Dashboard", fmt.Sprintf(`
<h5>Welcome, %s</h5>
<div role="alert" class="MuiAlert-root"><div class="MuiAlert-message">You are logged in as %s</div></div>
<form method="post" action="/logout"><button type="submit">Logout</button></form>`, user, strings.ToUpper(user)))
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: sessionName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func serveSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	var b strings.Builder
	b.WriteString(`
<form method="get" action="/search">
  <input data-testid="search-input" name="q" type="search" value="` + html.EscapeString(q) + `">
  <button data-testid="search-button" type="submit">Search</button>
</form>`)
	if q != "" && q != noMatchQuery {
		for i := 1; i <= resultsShown; i++ {
			esc := html.EscapeString(q)
			fmt.Fprintf(&b, `
<div class="MuiCard-root"><div class="MuiPaper-root">
  <a href="https://example.org/%[1]s/%[2]d">%[1]s result %[2]d</a>
  <p class="text-green-700">https://example.org/%[1]s/%[2]d</p>
  <p class="text-slate-700">Snippet %[2]d about %[1]s.</p>
</div></div>`, esc, i)
		}
	}
	writePage(w, "Search", b.String())
}
