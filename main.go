package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"mutolaa/internal/api"
	"mutolaa/internal/external"
	"mutolaa/internal/middleware"
	"mutolaa/internal/misc"
	"mutolaa/internal/model"
	"mutolaa/internal/stats"
	"mutolaa/internal/telegram"
)

const version = "1.0.0"

var startTime time.Time

func loadConfig() {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	viper.SetDefault("debug", false)
	viper.SetDefault("listen", ":8000")
	viper.SetDefault("apiRoot", "/api")
	viper.SetDefault("cors.origin", "*")
	viper.SetDefault("admin.key", "")
	viper.SetDefault("timezone", "Asia/Tashkent")
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "mutolaa.db")
	viper.SetDefault("telegram.key", "")
	viper.SetDefault("telegram.endpoint", "")
	viper.SetDefault("telegram.groupId", 0)
	viper.SetDefault("telegram.timeout", 10*time.Second)
	viper.SetDefault("telegram.retries", 3)
	viper.SetDefault("telegram.backoff", time.Second)
	viper.SetDefault("dispatcher.cron", "@every 1m")

	viper.SetConfigName("mutolaa")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}
	viper.AddConfigPath("/etc")

	viper.SetEnvPrefix("MUTOLAA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func newLogger() zerolog.Logger {
	if viper.GetBool("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func main() {
	startTime = time.Now()

	loadConfig()
	configErr := viper.ReadInConfig()
	log := newLogger()
	if configErr != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(configErr, &notFound) {
			log.Fatal().Err(configErr).Msg("cannot read config file")
		}
		log.Info().Msg("no config file found, using defaults and environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, log); err != nil {
		log.Fatal().Err(err).Msg("mutolaa stopped")
	}
	log.Info().Msg("mutolaa stopped")
}

func run(ctx context.Context, log zerolog.Logger) error {
	// set debug mode for gin
	if viper.GetBool("debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	loc := misc.Location()

	db, err := model.Open(viper.GetString("database.driver"), viper.GetString("database.dsn"), loc, viper.GetBool("debug"))
	if err != nil {
		return err
	}
	if err := model.Migrate(db); err != nil {
		return err
	}
	log.Info().Str("driver", viper.GetString("database.driver")).Msg("database migrated")

	service := stats.NewService(db, func() time.Time { return time.Now().In(loc) })

	router := gin.New()
	router.Use(middleware.RecoveryLogger(misc.ComponentLogger(log, "http")))
	router.Use(middleware.RequestLogger(misc.ComponentLogger(log, "http")))
	router.Use(middleware.OptionsMiddleware)
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.StatsMiddleware(service))
	router.GET("/", banner)

	// router group dealing with all API calls from the bot and the dashboard
	apiRouter := router.Group(viper.GetString("apiRoot"))
	apiRouter.Use(middleware.APIMiddleware())
	{
		apiRouter.GET("/uptime", uptime)
		api.Routes(apiRouter, middleware.AdminKeyMiddleware(viper.GetString("admin.key")))
	}

	server := &http.Server{
		Addr:    viper.GetString("listen"),
		Handler: router,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("listen", server.Addr).Msg("http server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Wrap(server.Shutdown(shutdownCtx), "http shutdown")
	})

	if token := viper.GetString("telegram.key"); token != "" {
		if err := startTelegram(gCtx, g, log, token, service, loc); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("telegram.key is empty, bot and dispatcher disabled")
	}

	return g.Wait()
}

// startTelegram runs the bot and the dispatcher in g
func startTelegram(ctx context.Context, g *errgroup.Group, log zerolog.Logger, token string,
	service *stats.Service, loc *time.Location) error {
	endpoint := viper.GetString("telegram.endpoint")
	// outbound calls are bounded by telegram.timeout, long polling must outlive its own timeout
	senderAPI, err := external.NewTelegramAPI(token, endpoint, viper.GetDuration("telegram.timeout"))
	if err != nil {
		return err
	}
	pollAPI, err := external.NewTelegramAPI(token, endpoint, 90*time.Second)
	if err != nil {
		return err
	}
	pollAPI.Debug = viper.GetBool("debug")

	bot := &telegram.Bot{
		API:   pollAPI,
		DB:    service.DB,
		Stats: service,
		Log:   misc.ComponentLogger(log, "bot"),
	}
	g.Go(func() error { return bot.Loop(ctx) })

	dispatchLog := misc.ComponentLogger(log, "dispatcher")
	dispatcher := &external.Dispatcher{
		DB: service.DB,
		Sender: external.NewTelegramSender(senderAPI,
			viper.GetInt("telegram.retries"), viper.GetDuration("telegram.backoff"), dispatchLog),
		Stats:       service,
		GroupChatID: viper.GetInt64("telegram.groupId"),
		Log:         dispatchLog,
	}
	scheduler := external.NewScheduler(dispatchLog, loc)
	if _, err := dispatcher.Schedule(ctx, scheduler, viper.GetString("dispatcher.cron")); err != nil {
		return err
	}
	scheduler.Start()
	g.Go(func() error {
		<-ctx.Done()
		// wait for a running tick to finish
		<-scheduler.Stop().Done()
		return nil
	})
	return nil
}

func banner(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Mutolaa reading tracker API",
		"version": version,
		"status":  "running",
	})
}

func uptime(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"meta": gin.H{"uptime": time.Since(startTime).String()}})
}
