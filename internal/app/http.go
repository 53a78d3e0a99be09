package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/auth"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/auth/handler"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/classifier"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/config"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/enrollment"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/logger"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/metrics"
	"github.com/VengadeshProgrammer/sessionHalt2.0/internal/session"
)

func setupHTTP(ctx context.Context, cfg config.Config, log *logger.Logger) (http.Handler, func() error, error) {
	infra, err := setupInfra(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	m := metrics.New()

	clfOpts := []classifier.Option{classifier.WithTimeout(cfg.ClassifierTimeout)}
	if cfg.ClassifierTokenURL != "" {
		clfOpts = append(clfOpts, classifier.WithClientCredentials(
			cfg.ClassifierTokenURL,
			cfg.ClassifierClientID,
			cfg.ClassifierClientSecret,
		))
	}
	clf := classifier.New(cfg.ClassifierURL, clfOpts...)

	svcOpts := []auth.Option{
		auth.WithMetrics(m),
		auth.WithSessionTTL(cfg.SessionTTL),
	}
	if infra.Sessions != nil {
		svcOpts = append(svcOpts, auth.WithSessionCache(infra.Sessions))
	}
	svc := auth.NewService(infra.Accounts, enrollment.New(infra.Accounts), clf,
		log.With(map[string]any{"component": "auth"}), svcOpts...)

	authHandler := handler.NewHandler(
		svc,
		session.CookieOptionsFor(cfg.Production(), cfg.SessionTTL),
		cfg.MaxBodyBytes,
		log,
	)

	// ----------------------------
	// Router
	// ----------------------------

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), log.GinMiddleware())
	router.HandleMethodNotAllowed = true
	router.NoRoute(handler.NotFound)
	router.NoMethod(handler.MethodNotAllowed)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	authHandler.RegisterRoutes(router)

	api := router.Group("/api")
	authHandler.RegisterRoutes(api)
	authHandler.RegisterProtected(api)

	// ----------------------------
	// CORS
	// ----------------------------

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	}).Handler(router)

	return corsHandler, infra.Close, nil
}
