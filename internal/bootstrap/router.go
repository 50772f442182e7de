package bootstrap

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/chronocap/chronocap-backend/config"
	httpapi "github.com/chronocap/chronocap-backend/internal/api/http"
	"github.com/chronocap/chronocap-backend/internal/api/http/middleware"
	"github.com/chronocap/chronocap-backend/internal/auth"
	"github.com/chronocap/chronocap-backend/internal/capsules"
	"github.com/chronocap/chronocap-backend/internal/mail"
	"github.com/chronocap/chronocap-backend/internal/storage"
	"github.com/chronocap/chronocap-backend/internal/users"
)

type RouterDeps struct {
	ServiceName string
	Cfg         *config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Storage     storage.Storage
	Logger      *slog.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.RequestID())

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Cfg.App.Version, dep.DB)
	healthHandler.RegisterRoutes(r)

	if dep.Cfg.Storage.Driver == "local" {
		r.Static("/"+dep.Cfg.Storage.LocalDir, "./"+dep.Cfg.Storage.LocalDir)
	}

	var limiter *middleware.RateLimiter
	if dep.Redis != nil {
		limiter = middleware.NewRateLimiter(dep.Redis)
	}

	userRepo := users.NewRepo(dep.DB)
	mailRepo := mail.NewRepo(dep.DB)
	capsuleRepo := capsules.NewRepo(dep.DB)

	mailSvc := mail.NewService(mailRepo, userRepo, dep.Logger, dep.Cfg.Mail, dep.Cfg.Storage.PublicBaseURL)
	authSvc := auth.NewService(userRepo, mailSvc, dep.Logger, dep.Cfg.Auth)
	capsuleSvc := capsules.NewService(capsuleRepo, dep.Logger)

	secret := dep.Cfg.Auth.JWTSecret
	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Limit(20, time.Minute))
	auth.Register(authGroup, authSvc, mailSvc, secret)

	capsules.Register(api.Group("/capsules"), capsuleSvc, dep.Storage, secret)

	publicGroup := api.Group("/public/capsules")
	publicGroup.Use(limiter.Limit(60, time.Minute))
	capsules.RegisterPublic(publicGroup, capsuleSvc)

	mail.RegisterWebhook(api.Group("/mail"), mailRepo, dep.Logger)

	return r
}
