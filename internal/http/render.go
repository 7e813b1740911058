package http

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"findata/internal/core"
	applog "findata/internal/log"
)

const flashCookieName = "findata_flash"

// Flash is a one-shot notice rendered on the next page load.
type Flash struct {
	Message  string
	Category string
}

// pageData carries the fields every template shares. Handlers embed
// it in their page-specific view models.
type pageData struct {
	Title     string
	UserEmail string
	Demo      bool
	Flash     *Flash
}

func (s *Server) basePage(r *http.Request, title string) pageData {
	return pageData{
		Title:     title,
		UserEmail: currentUser(r).Email,
		Demo:      currentSession(r).Demo,
	}
}

func (s *Server) setFlash(w http.ResponseWriter, message, category string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(category + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads and clears the flash cookie.
func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	return &Flash{Message: message, Category: category}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to render template", "template", name, "error", err)
	}
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string { return m.Format() },
		"pct":   func(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) },
		// Chart images arrive as base64 data URIs, which the
		// contextual autoescaper would otherwise strip.
		"dataURI": func(s string) template.URL { return template.URL(s) },
	}
}
