package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoicegen/internal/config"
	"invoicegen/internal/database"
	"invoicegen/internal/export"
	"invoicegen/internal/handler"
	"invoicegen/internal/model"
	"invoicegen/internal/notify"
	"invoicegen/internal/raster"
	"invoicegen/internal/render"
	"invoicegen/internal/repository"
	"invoicegen/internal/service"
	"invoicegen/internal/store"
	"invoicegen/internal/websocket"

	"github.com/bsm/redislock"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// @title           Invoice Generator API
// @version         1.0
// @description     Edit a single invoice, preview it in five templates and export it to PDF.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg, err := config.Load("configs/.env")
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	logger := config.NewLogger(cfg)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, guard, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Storage initialization failed")
	}
	logger.WithField("driver", cfg.StorageDriver).Info("Invoice storage ready")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(logger, cfg.CORSOrigins)
	go wsHub.Run(ctx)

	invoiceStore := store.New(ctx, kv, logger)
	invoiceStore.Subscribe(func(evt store.Event) { wsHub.Publish(string(evt.Kind), evt) })

	notices := notify.NewCenter(cfg.NotifyTTL)
	notices.Subscribe(func(evt notify.Event) { wsHub.Publish(string(evt.Kind), evt.Notification) })

	preview, err := render.NewLivePreview(render.MustRegistry(), invoiceStore, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to render initial preview")
	}
	defer preview.Close()

	rasterizer, err := newRasterizer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load fonts")
	}

	downloads := export.NewDownloader(cfg.ExportDir)
	pipeline := export.NewPipeline(preview.Document(), rasterizer, downloads,
		export.WithGuard(guard),
		export.WithNotifier(notices),
		export.WithLogger(logger),
		export.WithSettleDelay(cfg.SettleDelay),
		export.WithScale(cfg.ExportScale),
	)
	spreadsheets := export.NewSpreadsheetExporter(invoiceStore, downloads, logger)
	printer := export.NewPrinter(preview, logger)

	// Set up dependencies (Store -> Service -> Handler)
	invoiceService := service.NewInvoiceService(invoiceStore)
	exportService := service.NewExportService(pipeline, spreadsheets, preview, printer, notices)

	invoiceHandler := handler.NewInvoiceHandler(invoiceService, logger)
	exportHandler := handler.NewExportHandler(exportService, invoiceService, logger)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "export_state": pipeline.State().String()})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	invoiceHandler.RegisterRoutes(router.Group(""))
	exportHandler.RegisterRoutes(router.Group(""))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("Server listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
	logger.Info("Server stopped")
}

// newRasterizer loads the optional fallback font and warns about currency
// symbols that would still print as missing-glyph boxes
func newRasterizer(cfg *config.Config, logger *logrus.Logger) (*raster.CanvasRasterizer, error) {
	var opts []raster.CanvasOption
	if cfg.FallbackFont != "" {
		data, err := os.ReadFile(cfg.FallbackFont)
		if err != nil {
			return nil, fmt.Errorf("failed to read fallback font: %w", err)
		}
		opts = append(opts, raster.WithFallbackFont(data))
	}
	r, err := raster.NewCanvasRasterizer(opts...)
	if err != nil {
		return nil, err
	}
	for _, c := range model.Currencies {
		if missing := r.MissingGlyphs(c.Symbol); len(missing) > 0 {
			logger.WithFields(logrus.Fields{"currency": c.Code, "symbol": c.Symbol}).
				Warn("Currency symbol has no glyph in the export fonts; set RASTER_FALLBACK_FONT")
		}
	}
	return r, nil
}

// openStorage picks the KV backend and the export guard that fits it
func openStorage(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.KVRepository, export.Guard, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		return repository.NewMemoryKVRepository(), export.NewLocalGuard(), nil
	case config.StorageFile:
		kv, err := repository.NewFileKVRepository(cfg.StorageFile, logger)
		return kv, export.NewLocalGuard(), err
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, err
		}
		guard := export.NewRedisGuard(redislock.New(client), cfg.Redis.Prefix+"export-lock", 0, logger)
		return repository.NewRedisKVRepository(client, cfg.Redis.Prefix), guard, nil
	default:
		db, err := database.NewConnection(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewKVRepository(db), export.NewLocalGuard(), nil
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("Request handled")
	}
}
