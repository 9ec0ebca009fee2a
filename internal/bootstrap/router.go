package bootstrap

import (
	"database/sql"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/flowcraft-ai/flowcraft-backend/config"
	httpapi "github.com/flowcraft-ai/flowcraft-backend/internal/api/http"
	"github.com/flowcraft-ai/flowcraft-backend/internal/auth"
	authmw "github.com/flowcraft-ai/flowcraft-backend/internal/auth/middleware"
	diagramcache "github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/cache"
	diagramhttp "github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/http"
	diagramrepo "github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/repository"
	diagramsvc "github.com/flowcraft-ai/flowcraft-backend/internal/diagrams/service"
	"github.com/flowcraft-ai/flowcraft-backend/internal/generation"
	"github.com/flowcraft-ai/flowcraft-backend/internal/middleware"
	projecthttp "github.com/flowcraft-ai/flowcraft-backend/internal/projects/http"
	projectrepo "github.com/flowcraft-ai/flowcraft-backend/internal/projects/repository"
	quotahttp "github.com/flowcraft-ai/flowcraft-backend/internal/quota/http"
	quotarepo "github.com/flowcraft-ai/flowcraft-backend/internal/quota/repository"
	quotasvc "github.com/flowcraft-ai/flowcraft-backend/internal/quota/service"
	"github.com/flowcraft-ai/flowcraft-backend/internal/users"
)

type RouterDeps struct {
	Config     *config.Config
	DB         *sql.DB
	Redis      *redis.Client
	AuthClient *fbauth.Client
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.Config.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	healthHandler := httpapi.NewHealthHandler("flowcraft-backend", dep.Config.App.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	userRepo := users.NewRepo(dep.DB)
	projectRepo := projectrepo.NewProjectRepository(dep.DB)
	diagramRepo := diagramrepo.NewDiagramRepository(dep.DB)
	shareRepo := diagramrepo.NewShareTokenRepository(dep.DB)
	subscriptionRepo := quotarepo.NewSubscriptionRepository(dep.DB)

	var shareCache diagramsvc.ShareCache
	if dep.Redis != nil {
		shareCache = diagramcache.NewShareCache(dep.Redis)
	}

	relay := generation.NewRelay(dep.Config.Provider)
	quotaService := quotasvc.NewQuotaService(subscriptionRepo)
	diagramService := diagramsvc.NewDiagramService(
		diagramRepo, shareRepo, shareCache, projectRepo, quotaService, relay,
	)

	diagramHandler := diagramhttp.NewHandler(diagramService)

	// Share resolution bypasses auth; the token is the capability.
	public := r.Group("/api/v1")
	diagramHandler.RegisterPublic(public)

	api := r.Group("/api/v1")
	if dep.AuthClient != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.AuthClient))
	} else {
		api.Use(auth.OptionalUser())
	}
	api.Use(auth.WithUser(userRepo, dep.Config.Quota.FreeTierVersions))

	rateLimiter := middleware.NewGenerationRateLimiter(
		dep.Config.Server.GenerationPerMinute, dep.Config.Server.GenerationBurst,
	)
	diagramHandler.Register(api, rateLimiter.Middleware())

	projectHandler := projecthttp.NewHandler(projectRepo)
	projectsGroup := projectHandler.Register(api)
	diagramHandler.RegisterProjectSubroutes(projectsGroup)

	quotaHandler := quotahttp.NewHandler(quotaService)
	quotaHandler.Register(api)

	return r
}
