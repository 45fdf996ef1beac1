package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quiz-tournament/internal/admin"
	"quiz-tournament/internal/cache"
	"quiz-tournament/internal/config"
	"quiz-tournament/internal/dashboard"
	"quiz-tournament/internal/pkg"
	"quiz-tournament/internal/repository"
	"quiz-tournament/internal/service"
	"quiz-tournament/internal/team"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := repository.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	repo := repository.NewRepository(db)

	var dashCache service.DashboardCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Msg("redis unavailable")
		}
		defer rdb.Close()
		dashCache = cache.NewRedisCache(rdb, cfg.CacheTTL)
	}

	files, err := pkg.NewFileStore(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("upload directory unavailable")
	}

	clock := clockwork.NewRealClock()
	teamService := service.NewTeamService(repo, dashCache, clock)
	dashboardService := service.NewDashboardService(repo, dashCache, clock)
	adminService := service.NewAdminService(repo, dashCache, cfg.AdminUser, cfg.AdminPasswordHash)
	if cfg.AdminPasswordHash == "" {
		log.Warn().Msg("ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	teamHandler := team.NewTeamHandler(teamService, cfg.JWTSecret)
	adminHandler := admin.NewAdminHandler(adminService, files, cfg.JWTSecret)
	dashboardHandler := dashboard.NewDashboardHandler(dashboardService)

	if cfg.TelegramToken != "" {
		bot, err := team.NewTelegramBot(cfg.TelegramToken, teamService)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create telegram bot")
		}
		go func() {
			log.Info().Msg("telegram bot is starting")
			if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("telegram bot stopped")
			}
		}()
	}

	if cfg.LogLevel > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), pkg.RequestLogger())
	if len(cfg.CORSOrigins) > 0 {
		corsCfg := cors.DefaultConfig()
		corsCfg.AllowOrigins = cfg.CORSOrigins
		corsCfg.AddAllowHeaders("Authorization")
		router.Use(cors.New(corsCfg))
	} else {
		router.Use(cors.Default())
	}
	router.Static(pkg.URLPrefix, files.Dir())

	public := router.Group("/api/v1")
	{
		public.GET("/tournaments", teamHandler.ListTournaments)
		public.GET("/dashboard/:tournamentID", dashboardHandler.Leaderboard)
		public.GET("/dashboard/block/:blockID", dashboardHandler.BlockBoard)
		public.GET("/dashboard/overall/:tournamentID", dashboardHandler.Overall)

		public.POST("/team/login", teamHandler.LoginTeam)
		public.POST("/admin/login", adminHandler.AdminLogin)
	}

	teamRoutes := router.Group("/api/v1")
	teamRoutes.Use(pkg.TeamAuthMiddleware(cfg.JWTSecret))
	{
		teamRoutes.GET("/tournament/:id", teamHandler.GetTournament)
		teamRoutes.GET("/block/:id", teamHandler.GetBlock)
		teamRoutes.POST("/block/start", teamHandler.StartBlock)
		teamRoutes.GET("/task/:id", teamHandler.GetTask)
		teamRoutes.POST("/task/:id", teamHandler.SubmitAnswer)
	}

	adminRoutes := router.Group("/api/v1/admin")
	adminRoutes.Use(pkg.AdminAuthMiddleware(cfg.JWTSecret))
	{
		adminRoutes.POST("/teams", adminHandler.CreateTeam)
		adminRoutes.GET("/teams", adminHandler.ListTeams)
		adminRoutes.DELETE("/teams", adminHandler.DeleteTeams)
		adminRoutes.POST("/teams/:id/reset", adminHandler.ResetTeam)
		adminRoutes.DELETE("/answers", adminHandler.DeleteAnswers)

		adminRoutes.POST("/tasks/:id/image", adminHandler.UploadTaskImage)
		adminRoutes.POST("/blocks/:id/image", adminHandler.UploadBlockImage)
	}

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
