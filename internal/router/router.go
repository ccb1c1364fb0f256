package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"cms-admin-gateway/internal/config"
	"cms-admin-gateway/internal/handler"
	"cms-admin-gateway/internal/middleware"
	"cms-admin-gateway/internal/model"
	"cms-admin-gateway/internal/session"
)

type Handlers struct {
	Auth    *handler.AuthHandler
	Media   *handler.MediaHandler
	Preview *handler.PreviewHandler
	Health  *handler.HealthHandler
}

// contentEntity describes one CMS collection proxied to the upstream. Reads
// and writes are gated separately through the role permission table.
type contentEntity struct {
	route     string
	readPerm  model.Permission
	writePerm model.Permission
}

var contentEntities = []contentEntity{
	{route: "news", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "opinions", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "documents", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "hero-slides", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "event-flyers", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "categories", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "tags", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "pages", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "organization", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "contact-messages", readPerm: model.PermViewContent, writePerm: model.PermManageContent},
	{route: "media", readPerm: model.PermViewContent, writePerm: model.PermManageMedia},
	{route: "users", readPerm: model.PermManageUsers, writePerm: model.PermManageUsers},
	{route: "activity-logs", readPerm: model.PermViewAuditLog, writePerm: model.PermViewAuditLog},
}

func New(
	cfg *config.Config,
	manager *session.Manager,
	sessionMW *middleware.SessionMiddleware,
	handlers Handlers,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)
	guard := middleware.Guard{LandingPath: cfg.DefaultLandingPath}

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)
	r.Use(guard.Handler)

	r.Get("/health", handlers.Health.Check)

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))
		api.Use(sessionMW.Resolve)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", handlers.Auth.Login)
			auth.Post("/logout", handlers.Auth.Logout)
			auth.With(sessionMW.RequireSession).Get("/me", handlers.Auth.Me)
			auth.With(sessionMW.RequireSession).Put("/me", handlers.Auth.UpdateCachedUser)
		})

		for _, entity := range contentEntities {
			res := handler.NewResourceHandler(manager, "/"+entity.route)
			readGate := sessionMW.RequirePermission(entity.readPerm)
			writeGate := sessionMW.RequirePermission(entity.writePerm)

			isMedia := entity.route == "media"
			api.Route("/"+entity.route, func(er chi.Router) {
				er.With(readGate).Get("/", res.List)
				er.With(readGate).Get("/{id}", res.Get)
				er.With(writeGate).Post("/", res.Create)
				er.With(writeGate).Put("/{id}", res.Update)
				er.With(writeGate).Delete("/{id}", res.Delete)
				if isMedia {
					er.With(writeGate).Post("/upload", handlers.Media.Upload)
				}
			})
		}

		settings := handler.NewPassthroughHandler(manager, "/settings")
		api.With(sessionMW.RequirePermission(model.PermManageSettings)).Get("/settings", settings.Get)
		api.With(sessionMW.RequirePermission(model.PermManageSettings)).Put("/settings", settings.Put)

		analytics := handler.NewPassthroughHandler(manager, "/analytics")
		api.With(sessionMW.RequirePermission(model.PermViewAnalytics)).Get("/analytics/*", analytics.Get)

		api.With(sessionMW.RequireSession).Get("/preview", handlers.Preview.Redirect)
	})

	return r
}
