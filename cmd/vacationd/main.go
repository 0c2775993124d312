package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/api"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/audit"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/config"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/db"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/directory"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/events"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/gateway"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/metrics"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/scheduler"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/sheets"
	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/vacation"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("VACATION_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Telegram.BotToken == "" || cfg.Telegram.BotToken == "YOUR_BOT_TOKEN_HERE" {
		logger.Fatal().Msg("set telegram.bot_token in config")
	}

	database, err := db.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	dir := directory.New(database, logger)
	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		dir.UseRedisCache(rdb, cfg.RedisCacheTTL())
	}

	tg, err := gateway.NewTelegramGateway(cfg.Telegram.BotToken, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create telegram gateway error")
	}

	svc := vacation.NewService(database, logger)
	bus := events.NewBus()
	svc.SetEventBus(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	schedCfg := scheduler.DefaultConfig()
	schedCfg.PollInterval = cfg.SchedulerPollInterval()
	schedCfg.Tolerance = cfg.SchedulerTolerance()
	schedCfg.DispatchTimeout = cfg.DispatchTimeout()
	if cfg.Scheduler.MaxRetries > 0 {
		schedCfg.MaxRetries = cfg.Scheduler.MaxRetries
	}
	if cfg.Scheduler.RatePerSecond > 0 {
		schedCfg.RatePerSecond = cfg.Scheduler.RatePerSecond
	}
	if cfg.Scheduler.Burst > 0 {
		schedCfg.Burst = cfg.Scheduler.Burst
	}
	sched := scheduler.New(schedCfg, database, tg, scheduler.SystemClock(), logger)
	go sched.Start(ctx)

	auditCfg := &audit.Config{
		HistoryRetentionDays: cfg.Audit.HistoryRetentionDays,
		ExportOnStart:        cfg.Audit.ExportOnStart,
		PlantName:            cfg.Audit.PlantName,
	}
	auditSvc := audit.NewService(auditCfg, database, audit.NewExcelizeWriter,
		&managerNotifier{gw: tg, managers: cfg.Managers}, database, logger)
	auditSvc.Start()
	defer auditSvc.Stop()

	if cfg.Sheets.Enabled {
		sheetsSvc, err := sheets.NewSheetsService(ctx, cfg.Sheets.CredentialsFile,
			cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, logger)
		if err != nil {
			logger.Error().Err(err).Msg("sheets sync disabled")
		} else {
			bus.SubscribeAll(func(ev events.Event) {
				evCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				emp, err := dir.Employee(evCtx, ev.Request.EmployeeID)
				if err != nil {
					logger.Error().Err(err).Int64("request_id", ev.Request.ID).Msg("sheets row sync failed")
					return
				}
				if err := sheetsSvc.SyncRequest(evCtx, ev.Request, emp); err != nil {
					logger.Error().Err(err).Int64("request_id", ev.Request.ID).Msg("sheets row sync failed")
				}
			})
			go runSheetsSync(ctx, sheetsSvc, database, dir, logger)
		}
	}

	backupSvc := db.NewBackupService(cfg.Database.Path, db.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		IntervalHours: cfg.Backup.IntervalHours,
		Path:          cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, logger)
	go backupSvc.Start(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, database, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	httpServer := api.NewHTTPServer(cfg.HTTP.Port, svc, database, logger)
	if cfg.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error().Err(err).Msg("http api error")
			}
		}()
	}

	logger.Info().Msg("vacation manager started")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	sched.Stop()
	logger.Info().Msg("vacation manager stopped")
}

// managerNotifier fans the audit report out to every configured manager
// chat.
type managerNotifier struct {
	gw       *gateway.TelegramGateway
	managers []int64
}

func (n *managerNotifier) SendDocument(ctx context.Context, filename string, data io.Reader, caption string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	for _, chatID := range n.managers {
		if err := n.gw.SendDocument(ctx, strconv.FormatInt(chatID, 10), filename, b, caption); err != nil {
			return err
		}
	}
	return nil
}

// runSheetsSync rebuilds the spreadsheet every hour from current state.
func runSheetsSync(ctx context.Context, svc *sheets.SheetsService, database *db.DB, dir *directory.Directory, logger zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	sync := func() {
		syncCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		if err := syncSpreadsheet(syncCtx, svc, database, dir); err != nil {
			logger.Error().Err(err).Msg("spreadsheet sync failed")
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
	}
}

func syncSpreadsheet(ctx context.Context, svc *sheets.SheetsService, database *db.DB, dir *directory.Directory) error {
	requests, err := database.ListAllActiveRequests(ctx)
	if err != nil {
		return err
	}

	employees := make(map[int64]*model.Employee, len(requests))
	for i := range requests {
		id := requests[i].EmployeeID
		if _, ok := employees[id]; ok {
			continue
		}
		emp, err := dir.Employee(ctx, id)
		if err != nil {
			continue
		}
		employees[id] = emp
	}
	return svc.SyncAll(ctx, requests, employees)
}

func startHealthServer(ctx context.Context, port int, database *db.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := database.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
