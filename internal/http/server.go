package http

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"gamezone/internal/auditdiff"
	"gamezone/internal/cache"
	"gamezone/internal/core"
	"gamezone/internal/dashboard"
	gzlog "gamezone/internal/log"
	"gamezone/internal/middleware/ratelimit"
	"gamezone/internal/middleware/security"
	"gamezone/internal/middleware/trace"
	"gamezone/internal/session"
	appweb "gamezone/web"
)

// AdminLister supplies the names offered on the login page.
type AdminLister interface {
	ListAdmins(ctx context.Context) ([]core.Admin, error)
}

// Options configures the server. Zero values fall back to sensible defaults.
type Options struct {
	Addr         string
	Location     *time.Location
	DayLayout    string
	CookieSecure bool
	SessionTTL   time.Duration
	RateLimit    ratelimit.Config
	Logger       *gzlog.Logger
	// Checks are probed by /readyz, keyed by dependency name.
	Checks map[string]func(context.Context) error
}

// Deps are the collaborators behind the handlers. Admins and Diffs may be nil.
type Deps struct {
	Sessions  *session.Store
	Dashboard *dashboard.Service
	Mutations *dashboard.Mutations
	Admins    AdminLister
	// Diffs holds rendered audit diffs keyed by audit entry id.
	Diffs cache.Cache[auditdiff.Result]
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Store
	dashboard *dashboard.Service
	mutations *dashboard.Mutations
	admins    AdminLister
	diffs     cache.Cache[auditdiff.Result]
	validate  *validator.Validate
	logger    *gzlog.Logger
	opts      Options
	now       func() time.Time

	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	traceMiddleware  *trace.Middleware

	appMetrics   *appMetrics
	shutdownOnce sync.Once
}

type appMetrics struct {
	uptime            time.Time
	logins            atomic.Int64
	failedLogins      atomic.Int64
	dashboardLoads    atomic.Int64
	dashboardFailures atomic.Int64
	mutations         atomic.Int64
	failedMutations   atomic.Int64
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options, deps Deps) *Server {
	if opts.Logger == nil {
		opts.Logger = gzlog.New(gzlog.DefaultConfig())
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	logger := opts.Logger.WithComponent(gzlog.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		sessions:         deps.Sessions,
		dashboard:        deps.Dashboard,
		mutations:        deps.Mutations,
		admins:           deps.Admins,
		diffs:            deps.Diffs,
		validate:         core.NewValidator(),
		logger:           logger,
		opts:             opts,
		now:              time.Now,
		securityDetector: detector,
		rateLimiter:      ratelimit.NewLimiter(opts.RateLimit),
		traceMiddleware:  trace.NewMiddleware(detector.ExtractClientIP, opts.Logger),
		appMetrics:       &appMetrics{uptime: time.Now()},
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs(opts.Location)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", "error", err)
		t = nil
	}
	s.templates = t

	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware.Middleware)
	r.Use(s.securityDetector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.onRateLimited))

		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			})
			r.Get("/dashboard", s.handleDashboardPage)

			r.Route("/ui", func(r chi.Router) {
				r.Get("/dashboard", s.handleDashboardBody)
				r.Get("/audit", s.handleAuditTable)
				r.Get("/audit/{id}", s.handleAuditDetail)
				r.Get("/sales/new", s.handleNewSaleForm)
				r.Get("/sales/total", s.handleSaleTotal)
				r.Get("/sales/{id}/edit", s.handleEditSaleForm)
				r.Get("/expenses/new", s.handleNewExpenseForm)
				r.Get("/expenses/{id}/edit", s.handleEditExpenseForm)
			})

			r.Post("/sales", s.handleCreateSale)
			r.Patch("/sales/{id}", s.handleUpdateSale)
			r.Delete("/sales/{id}", s.handleDeleteSale)
			r.Post("/expenses", s.handleCreateExpense)
			r.Patch("/expenses/{id}", s.handleUpdateExpense)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)
		})
	})

	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		gzlog.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		gzlog.FieldMethod, r.Method,
		gzlog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").
		TriggerErrorNotification("Too many requests, please slow down").
		Write(w)
}

// logFailure records a failed backend call with the request id and the
// signed-in admin.
func (s *Server) logFailure(r *http.Request, msg string, err error, component, op string, fields gzlog.LogFields) {
	ctx := r.Context()
	if fields == nil {
		fields = gzlog.NewFields()
	}
	fields = fields.
		WithRequestID(trace.GetRequestID(ctx)).
		WithAdmin(currentSession(ctx).Name)
	gzlog.NewStructuredLogger(s.logger).LogError(ctx, msg, err, component, op, fields)
}

// render buffers the named template so that an execution error still
// produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			gzlog.FieldPath, r.URL.Path,
			gzlog.FieldComponent, gzlog.ComponentTemplate,
			"error_type", gzlog.ErrorTypeConfiguration)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		InternalServerError("Error rendering page").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Shutdown gracefully shuts down the server and its background loops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
