package http

import (
	"errors"
	"net/http"

	"dorm/internal/auth"
	applog "dorm/internal/log"
)

type loginPageData struct {
	Error    string
	Username string
}

// requireAuth lets authenticated requests through. Browsers are sent to the
// login page; htmx and API clients get 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.sessions.FromRequest(r)
		if err != nil {
			if !errors.Is(err, auth.ErrNoSession) {
				applog.FromContext(r.Context()).DebugContext(r.Context(), "Rejected session",
					applog.FieldError, err,
					applog.FieldComponent, applog.ComponentAuth)
			}
			switch {
			case isHTMX(r):
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusUnauthorized)
			case wantsHTML(r):
				http.Redirect(w, r, "/login", http.StatusSeeOther)
			default:
				http.Error(w, "unauthorized", http.StatusUnauthorized)
			}
			return
		}
		ctx := r.Context()
		logger := applog.FromContext(ctx).With(applog.FieldUsername, claims.Subject)
		ctx = applog.WithLogger(ctx, logger)
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) authenticated(r *http.Request) bool {
	_, err := s.sessions.FromRequest(r)
	return err == nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.authenticated(r) {
		http.Redirect(w, r, "/students", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.authenticated(r) {
		http.Redirect(w, r, "/students", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login.html", loginPageData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	p, errResp := parseBody(r)
	if errResp != nil {
		errResp.Write(w)
		return
	}
	username := p.Get("username")
	password := p.Get("password")

	logger := applog.FromContext(r.Context())
	if err := s.auth.Check(username, password); err != nil {
		logger.WarnContext(r.Context(), "Login failed",
			applog.FieldUsername, username,
			applog.FieldOperation, applog.OpLogin,
			"error_type", applog.ErrorTypeAuth)
		s.render(w, r, http.StatusUnauthorized, "login.html", loginPageData{
			Error:    msgInvalidCredentials,
			Username: username,
		})
		return
	}

	token, exp, err := s.sessions.Issue(username)
	if err != nil {
		logger.ErrorContext(r.Context(), "Session issue failed", applog.FieldError, err)
		InternalServerError("تعذر بدء الجلسة.").Write(w)
		return
	}
	http.SetCookie(w, s.sessions.Cookie(token, exp, s.opts.SecureCookies))
	logger.InfoContext(r.Context(), "Login succeeded",
		applog.FieldUsername, username,
		applog.FieldOperation, applog.OpLogin)
	redirect(w, r, "/students")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, auth.ClearCookie(s.opts.SecureCookies))
	redirect(w, r, "/login")
}
