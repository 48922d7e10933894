package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qurilish/config"
	"qurilish/controllers"
	"qurilish/database"
	"qurilish/middleware"
	"qurilish/services"
	"qurilish/utils"
)

// application связывает сервисы с HTTP слоем
type application struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *database.Database
	metrics  *utils.Metrics
	sms      *services.SmsService
	reminder *services.ReminderSchedulerService
}

func newApplication(cfg *config.Config, logger *zap.Logger, db *database.Database) *application {
	metrics := utils.NewMetrics()
	sms := services.NewSmsService(cfg, logger)
	return &application{
		cfg:     cfg,
		log:     logger,
		db:      db,
		metrics: metrics,
		sms:     sms,
		reminder: services.NewReminderSchedulerService(
			db.DB, sms, metrics, logger, cfg.Reminder.Interval, cfg.Reminder.DaysAhead,
		),
	}
}

// router собирает сервисы, контроллеры и маршруты
func (a *application) router() *gin.Engine {
	gormDB := a.db.GetDB()
	validate := controllers.NewValidator()

	// Сервисы
	email := services.NewEmailService(a.cfg)
	notifier := services.NewNotificationService(gormDB, a.sms, email, a.metrics, a.log)
	gate := services.NewOccupancyGate(a.log)
	schedule := services.NewScheduleService(gormDB, gate, notifier, a.metrics, a.log)
	contracts := services.NewContractService(gormDB, schedule, gate, notifier, a.metrics, a.log)
	property := services.NewPropertyService(gormDB, a.cfg.Media.Dir, a.cfg.Media.MaxImageWidth, a.log)
	clients := services.NewClientService(gormDB, a.sms, a.log)
	expenses := services.NewExpenseService(gormDB, a.log)
	statistics := services.NewStatisticsService(gormDB, a.log)
	reports := services.NewReportService(schedule, a.log)
	users := services.NewUserService(a.db, a.log)

	// Контроллеры
	authController := controllers.NewAuthController(users, validate, a.cfg, a.log)
	propertyController := controllers.NewPropertyController(property, validate, a.log)
	clientController := controllers.NewClientController(clients, validate, a.log)
	contractController := controllers.NewContractController(contracts, schedule, reports, validate, a.log)
	expenseController := controllers.NewExpenseController(expenses, statistics, validate, a.log)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(a.log),
		middleware.Logger(a.log.Named("http")),
		middleware.CORSMiddleware(),
		middleware.Metrics(a.metrics),
	)

	router.GET("/health", a.health)
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))
	router.Static("/media", a.cfg.Media.Dir)

	api := router.Group("/api")
	api.Use(middleware.RateLimit(utils.NewRateLimiter(a.cfg.RateLimit.PerMinute, a.cfg.RateLimit.Burst)))

	// Публичные маршруты для аутентификации
	authController.RegisterRoutes(api)

	// Защищенные маршруты
	protected := api.Group("")
	protected.Use(middleware.Auth([]byte(a.cfg.JWT.SecretKey)))
	protected.GET("/auth/me", authController.Me)
	propertyController.RegisterRoutes(protected)
	clientController.RegisterRoutes(protected)
	contractController.RegisterRoutes(protected)
	expenseController.RegisterRoutes(protected)

	return router
}

func (a *application) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := a.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := utils.NewLogger(utils.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer logger.Sync()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Инициализируем подключение к базе данных
	db, err := database.Connect(cfg, logger)
	if err != nil {
		logger.Fatal("ошибка подключения к базе данных", zap.Error(err))
	}
	defer db.Close()

	app := newApplication(cfg, logger, db)

	// Запускаем планировщик напоминаний
	if cfg.Reminder.Enabled {
		app.reminder.Start()
		defer app.reminder.Stop()
		logger.Info("планировщик напоминаний запущен",
			zap.Duration("interval", cfg.Reminder.Interval),
			zap.Int("days_ahead", cfg.Reminder.DaysAhead),
		)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Запускаем сервер
	go func() {
		logger.Info("сервер запущен", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ошибка запуска сервера", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("остановка сервера")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка остановки сервера", zap.Error(err))
	}
}
