package http

import (
	"errors"
	"net/http"

	"findata/internal/auth"
	"findata/internal/core"
	applog "findata/internal/log"
	"findata/internal/storage"
)

// handleIndex sends authenticated visitors to the dashboard. For
// everyone else it opens a demo session when demo mode is on, and
// falls back to the login page otherwise.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if _, _, err := s.auth.Resolve(r.Context(), c.Value); err == nil {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		s.clearSessionCookie(w)
	}
	if !s.demoEnabled {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	token, err := s.auth.StartDemoSession(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to start demo session", "error", err)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleDemo(w http.ResponseWriter, r *http.Request) {
	if !s.demoEnabled {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	token, err := s.auth.StartDemoSession(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to start demo session", "error", err)
		s.setFlash(w, "No se pudo iniciar la demo, inténtalo de nuevo", "error")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

type authPage struct {
	pageData
	Email       string
	Error       string
	DemoEnabled bool
}

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", authPage{
		pageData:    pageData{Title: "Crear cuenta", Flash: s.popFlash(w, r)},
		DemoEnabled: s.demoEnabled,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	if password != r.PostFormValue("password2") {
		s.render(w, r, "register.html", authPage{
			pageData:    pageData{Title: "Crear cuenta"},
			Email:       email,
			Error:       "Las contraseñas no coinciden",
			DemoEnabled: s.demoEnabled,
		})
		return
	}

	user, err := s.auth.Register(r.Context(), email, password)
	if err != nil {
		s.render(w, r, "register.html", authPage{
			pageData:    pageData{Title: "Crear cuenta"},
			Email:       email,
			Error:       registerError(err),
			DemoEnabled: s.demoEnabled,
		})
		return
	}
	token, err := s.auth.StartSession(r.Context(), user.ID, false)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to start session after registration", "error", err)
		s.setFlash(w, "Cuenta creada, inicia sesión para continuar", "success")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func registerError(err error) string {
	switch {
	case errors.Is(err, storage.ErrEmailTaken):
		return "Ya existe una cuenta con ese correo"
	case errors.Is(err, core.ErrInvalidEmail):
		return "Introduce un correo válido"
	case errors.Is(err, core.ErrPasswordTooWeak):
		return "La contraseña debe tener al menos 6 caracteres"
	default:
		return "No se pudo crear la cuenta, inténtalo de nuevo"
	}
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", authPage{
		pageData:    pageData{Title: "Iniciar sesión", Flash: s.popFlash(w, r)},
		DemoEnabled: s.demoEnabled,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	password := r.PostFormValue("password")

	user, err := s.auth.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			applog.FromContext(r.Context()).ErrorContext(r.Context(),
				"Login failed", "error", err)
		}
		s.render(w, r, "login.html", authPage{
			pageData:    pageData{Title: "Iniciar sesión"},
			Email:       email,
			Error:       "Correo o contraseña incorrectos",
			DemoEnabled: s.demoEnabled,
		})
		return
	}
	token, err := s.auth.StartSession(r.Context(), user.ID, false)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(),
			"Failed to start session", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if err := s.auth.EndSession(r.Context(), c.Value); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(),
				"Failed to end session", "error", err)
		}
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
