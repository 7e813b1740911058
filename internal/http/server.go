// Package http wires the web controller: routing, session
// authentication, form handling and page rendering.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"findata/internal/analysis"
	"findata/internal/auth"
	applog "findata/internal/log"
	"findata/internal/storage"
	appweb "findata/web"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "findata_session"

type Server struct {
	http.Server

	store     *storage.SQLiteRepository
	auth      *auth.Service
	engine    *analysis.Engine
	templates *template.Template
	logger    *applog.Logger

	demoEnabled   bool
	secureCookies bool
	sessionTTL    time.Duration

	loginLimiter *rateLimiter
	chartCache   *lruCache[chartSet]

	shutdownOnce sync.Once
}

// Options collects the constructor knobs so tests can tweak them.
type Options struct {
	Addr          string
	DemoEnabled   bool
	SecureCookies bool
	SessionTTL    time.Duration
}

// NewServer configures routes and templates, returning a
// ready-to-run HTTP server.
func NewServer(opts Options, store *storage.SQLiteRepository, authSvc *auth.Service, engine *analysis.Engine, logger *applog.Logger) *Server {
	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		// Pages cannot render without templates; fail loudly at startup.
		panic("parse templates: " + err.Error())
	}

	r := chi.NewRouter()
	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: r,
		},
		store:         store,
		auth:          authSvc,
		engine:        engine,
		templates:     t,
		logger:        logger.WithComponent(applog.ComponentHTTP),
		demoEnabled:   opts.DemoEnabled,
		secureCookies: opts.SecureCookies,
		sessionTTL:    opts.SessionTTL,
		loginLimiter:  newRateLimiter(10, time.Minute),
		chartCache:    newLRUCache[chartSet](64, 5*time.Minute),
	}

	r.Use(applog.RequestLogger(logger))
	r.Use(securityHeaders)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.Handle("/static/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static assets", "error", err)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Get("/register", s.handleRegisterForm)
	r.With(s.rateLimit).Post("/register", s.handleRegister)
	r.Get("/login", s.handleLoginForm)
	r.With(s.rateLimit).Post("/login", s.handleLogin)
	r.Get("/demo", s.handleDemo)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/logout", s.handleLogout)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/expenses", s.handleExpenses)
		r.Post("/expenses", s.handleCreateExpense)
		r.Get("/incomes", s.handleIncomes)
		r.Post("/incomes", s.handleCreateIncome)
		r.Get("/transactions", s.handleTransactions)
		r.Get("/analytics", s.handleAnalytics)
		r.Get("/export/csv", s.handleExportCSV)
		r.Get("/export/excel", s.handleExportExcel)
		r.Post("/delete/{id}", s.handleDelete)
	})

	return s
}

// Shutdown stops the rate-limiter housekeeping and then the HTTP
// server itself.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.loginLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
