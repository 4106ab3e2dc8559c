package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"dorm/internal/auth"
	"dorm/internal/backend"
	"dorm/internal/core"
	applog "dorm/internal/log"
	"dorm/internal/middleware/ratelimit"
	"dorm/internal/middleware/security"
	"dorm/internal/middleware/trace"
	"dorm/internal/services"
	appweb "dorm/web"
)

// Dependencies are the collaborators the server needs.
type Dependencies struct {
	Roster   *services.RosterService
	Reports  *services.ReportService
	Auth     *auth.Authenticator
	Sessions *auth.Sessions
	Checks   []backend.ReadinessCheck
	Logger   *applog.Logger
}

// Options tune server behavior.
type Options struct {
	SecureCookies bool
	RateLimit     int
	Now           func() time.Time
}

// Server serves the dashboard pages, HTMX partials, exports and probes.
type Server struct {
	http.Server
	templates *template.Template

	roster   *services.RosterService
	reports  *services.ReportService
	auth     *auth.Authenticator
	sessions *auth.Sessions
	checks   []backend.ReadinessCheck
	logger   *applog.Logger
	opts     Options

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware

	startedAt    time.Time
	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"amount": core.FormatAmount,
	"date": func(d core.Date) string {
		if d.IsZero() {
			return ""
		}
		return d.Format("02/01/2006")
	},
	"monthLabel": core.MonthLabel,
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Dependencies, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		roster:           deps.Roster,
		reports:          deps.Reports,
		auth:             deps.Auth,
		sessions:         deps.Sessions,
		checks:           deps.Checks,
		logger:           logger.WithComponent(applog.ComponentHTTP),
		opts:             opts,
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimit}),
		securityDetector: security.NewDetector(logger),
		startedAt:        time.Now(),
	}
	s.traceMiddleware = trace.NewMiddleware(logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	} else {
		s.templates = t
	}

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	protected := map[string]http.HandlerFunc{
		"GET /students":             s.handleStudentsPage,
		"GET /ui/students":          s.handleStudentsPartial,
		"POST /students/add":        s.handleAddStudent,
		"POST /students/update":     s.handleUpdateStudent,
		"POST /students/delete":     s.handleDeleteStudent,
		"POST /students/restore":    s.handleRestoreStudent,
		"POST /payments/add":        s.handleAddPayment,
		"POST /payments/confirm":    s.handleConfirmPayment,
		"POST /payments/delete":     s.handleDeletePayment,
		"GET /students/receipt":     s.handleReceipt,
		"GET /students/export.csv":  s.handleRosterCSV,
		"GET /students/export.xlsx": s.handleRosterXLSX,
		"GET /reports":              s.handleReportsPage,
		"GET /reports/export.csv":   s.handleReportCSV,
	}
	for pattern, h := range protected {
		mux.Handle(pattern, security.NoStore(s.requireAuth(h)))
	}

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited, http.MethodPost)(handler)
	handler = s.securityDetector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		applog.FieldPath, r.URL.Path)
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerErrorNotification(msgRateLimited).
		BodyHTML(`<div class="error">` + msgRateLimited + `</div>`).
		Write(w)
}

// render executes the named template, answering 500 when templates are
// unavailable or execution fails before anything was written.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			"error_type", applog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldError, err,
			"template", name)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
