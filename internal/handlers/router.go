// Package handlers wires the page builder's HTML pages and JSON endpoints onto a chi router.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/onclick-pay/onclick-web/internal/dashboard"
	"github.com/onclick-pay/onclick-web/internal/drafts"
	"github.com/onclick-pay/onclick-web/internal/events"
	"github.com/onclick-pay/onclick-web/internal/intents"
	"github.com/onclick-pay/onclick-web/internal/payments"
	"github.com/onclick-pay/onclick-web/internal/pinning"
	"github.com/onclick-pay/onclick-web/internal/platform/httpx"
	"github.com/onclick-pay/onclick-web/internal/platform/observability"
	"github.com/onclick-pay/onclick-web/internal/platform/requestctx"
	"github.com/onclick-pay/onclick-web/internal/platform/session"
	"github.com/onclick-pay/onclick-web/internal/registry"
	"github.com/onclick-pay/onclick-web/internal/render"
	"github.com/onclick-pay/onclick-web/internal/wizard"
)

const (
	defaultTimeout    = 60 * time.Second
	errorNotFoundCode = "route_not_found"
)

// Deps are the collaborators the handlers need. Store, Renderer and Cookies are required.
type Deps struct {
	Store       *drafts.Store
	Renderer    *render.Renderer
	Cookies     session.Store
	Checker     *registry.Checker
	Debouncers  *registry.Sessions
	Payments    *payments.Simulator
	Intents     *intents.Service
	Pinner      pinning.Pinner
	Publisher   events.Publisher
	Metrics     *observability.Metrics
	Dashboards  *dashboard.Data
	BaseURL     string
	Gateway     string
	UploadLimit int64
	Logger      *zap.Logger
	Now         func() time.Time
}

// App holds the resolved dependencies shared by every handler.
type App struct {
	Deps
}

// NewApp fills optional dependencies with working defaults.
func NewApp(deps Deps) (*App, error) {
	if deps.Store == nil {
		return nil, errors.New("handlers: draft store is required")
	}
	if deps.Renderer == nil {
		return nil, errors.New("handlers: renderer is required")
	}
	if deps.Cookies == nil {
		return nil, errors.New("handlers: session store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}
	if deps.Checker == nil {
		deps.Checker = registry.NewChecker(deps.Store, registry.WithLogger(deps.Logger), registry.WithMetrics(deps.Metrics))
	}
	if deps.Debouncers == nil {
		sessions, err := registry.NewSessions(deps.Checker, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("handlers: debouncers: %w", err)
		}
		deps.Debouncers = sessions
	}
	if deps.Pinner == nil {
		deps.Pinner = pinning.NewMemory()
	}
	if deps.Payments == nil {
		deps.Payments = payments.NewSimulator(
			payments.WithPinner(deps.Pinner),
			payments.WithPublisher(deps.Publisher),
			payments.WithMetrics(deps.Metrics),
			payments.WithLogger(deps.Logger),
		)
	}
	if deps.Intents == nil {
		links, err := intents.NewService(deps.Store.Backend(), deps.Store, intents.WithLogger(deps.Logger), intents.WithClock(deps.Now))
		if err != nil {
			return nil, fmt.Errorf("handlers: payment links: %w", err)
		}
		deps.Intents = links
	}
	if deps.Dashboards == nil {
		data, err := dashboard.Load()
		if err != nil {
			return nil, err
		}
		deps.Dashboards = data
	}
	if deps.Gateway == "" {
		deps.Gateway = pinning.DefaultGateway
	}
	if deps.UploadLimit <= 0 {
		deps.UploadLimit = pinning.DefaultMaxBytes
	}
	return &App{Deps: deps}, nil
}

type routerConfig struct {
	middlewares []func(http.Handler) http.Handler
	health      *HealthHandlers
}

// Option customises the router configuration before construction.
type Option func(*routerConfig)

// WithMiddlewares appends additional global middleware to the router.
func WithMiddlewares(mw ...func(http.Handler) http.Handler) Option {
	return func(cfg *routerConfig) {
		cfg.middlewares = append(cfg.middlewares, mw...)
	}
}

// WithHealthHandlers overrides the handlers used for /healthz and /readyz endpoints.
func WithHealthHandlers(h *HealthHandlers) Option {
	return func(cfg *routerConfig) {
		cfg.health = h
	}
}

// NewRouter constructs the chi router with shared middleware and every route.
func NewRouter(app *App, opts ...Option) chi.Router {
	cfg := routerConfig{
		middlewares: []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Timeout(defaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.health == nil {
		cfg.health = NewHealthHandlers()
	}

	r := chi.NewRouter()
	for _, mw := range cfg.middlewares {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(app.notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path), http.StatusMethodNotAllowed))
	})

	r.Get("/healthz", cfg.health.Healthz)
	r.Get("/readyz", cfg.health.Readyz)

	r.Group(func(r chi.Router) {
		r.Use(HTMX)
		r.Use(session.Middleware(app.Cookies))

		r.Get("/", app.Home)
		r.Get("/role-selection", app.RoleSelection)
		r.Get("/handle-selection", app.HandleSelection)
		r.Post("/handle-selection", app.SubmitHandleSelection)

		r.Get("/create-page", app.CreatePage)
		r.Post("/create-page/update", app.wizardAction(actionUpdate))
		r.Post("/create-page/next", app.wizardAction(actionNext))
		r.Post("/create-page/back", app.wizardAction(actionBack))
		r.Post("/create-page/publish", app.wizardAction(actionPublish))

		r.Get("/public-page", app.PreviewPage)
		r.Get("/creator-dashboard", app.CreatorDashboard)
		r.Get("/business-dashboard", app.BusinessDashboard)
		r.Get("/crowdfunder-dashboard", app.CrowdfunderDashboard)

		r.Route("/api", func(api chi.Router) {
			api.Post("/handles/check", app.CheckHandle)
			api.Get("/handles/state", app.HandleState)
			api.Get("/drafts/current", app.CurrentDraft)
			api.Patch("/drafts/current", app.PatchDraft)
			api.Get("/pages/{handle}", app.PageRecord)
			api.Post("/pages/{handle}/metadata", app.PinMetadata)
			api.Get("/pages/{handle}/share", app.ShareLinks)
			api.Get("/pages/{handle}/intents", app.ListIntents)
			api.Post("/pages/{handle}/intents", app.CreateIntent)
			api.Get("/intents/{id}", app.GetIntent)
			api.Delete("/intents/{id}", app.CancelIntent)
			api.Post("/intents/{id}/pay", app.PayIntent)
			api.Post("/assets", app.UploadAsset)
			api.Post("/pay", app.Pay)
			api.Get("/payments/options", app.PaymentOptions)
		})

		r.Get("/{handle}", app.PublicPage)
		r.Get("/{handle}/qr.png", app.QRCode)
	})

	return r
}

// HTMX marks requests issued by htmx so pages render only their content block.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		is := r.Header.Get("HX-Request") == "true"
		ctx := requestctx.WithHTMX(r.Context(), is)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) notFound(w http.ResponseWriter, r *http.Request) {
	if isAPI(r) {
		httpx.WriteError(r.Context(), w, httpx.NewError(errorNotFoundCode, fmt.Sprintf("no route for %s", r.URL.Path), http.StatusNotFound))
		return
	}
	a.errorPage(w, r, http.StatusNotFound, "This page does not exist.")
}

func (a *App) errorPage(w http.ResponseWriter, r *http.Request, status int, message string) {
	a.Renderer.Page(w, r, status, "error", render.ErrorView{
		Base:    a.base(r, http.StatusText(status)),
		Status:  status,
		Message: message,
	})
}

func (a *App) base(r *http.Request, title string) render.Base {
	return render.Base{Title: title, RequestID: middleware.GetReqID(r.Context())}
}

func (a *App) wizardOptions(r *http.Request) []wizard.Option {
	return []wizard.Option{
		wizard.WithRegistry(a.Checker),
		wizard.WithPublisher(a.Publisher),
		wizard.WithMetrics(a.Metrics),
		wizard.WithLogger(requestctx.Logger(r.Context())),
		wizard.WithClock(a.Now),
	}
}

func currentSession(r *http.Request) (*session.Session, bool) {
	return session.FromContext(r.Context())
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}
