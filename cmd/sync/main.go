package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/ecount-sync/internal/application/ingest"
	"github.com/jhoicas/ecount-sync/internal/domain/movement"
	infrabq "github.com/jhoicas/ecount-sync/internal/infrastructure/bigquery"
	"github.com/jhoicas/ecount-sync/internal/infrastructure/ecount"
	"github.com/jhoicas/ecount-sync/internal/infrastructure/excel"
	"github.com/jhoicas/ecount-sync/internal/infrastructure/postgres"
	"github.com/jhoicas/ecount-sync/internal/infrastructure/sheets"
	httpRouter "github.com/jhoicas/ecount-sync/internal/interfaces/http"
	"github.com/jhoicas/ecount-sync/internal/scheduler"
	"github.com/jhoicas/ecount-sync/pkg/config"
	"github.com/jhoicas/ecount-sync/pkg/logger"
	"github.com/jhoicas/ecount-sync/pkg/metrics"
)

func main() {
	serve := flag.Bool("serve", false, "modo servicio: cron + servidor de operación")
	date := flag.String("date", time.Now().Format("20060102"), "fecha de consulta YYYYMMDD (modo one-shot)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		File:  cfg.App.LogFile,
	})
	if err != nil {
		panic("crear logger: " + err.Error())
	}
	defer log.Close()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("sink", cfg.Sink.Kind).
		Msg("iniciando aplicación")

	ctx := context.Background()

	ecountClient := ecount.NewClient(ecount.Config{
		CompanyCode: cfg.Ecount.CompanyCode,
		UserID:      cfg.Ecount.UserID,
		APICertKey:  cfg.Ecount.APICertKey,
		Lang:        cfg.Ecount.Lang,
		BaseURL:     cfg.Ecount.BaseURL,
		Timeout:     cfg.Ecount.Timeout,
	}, log)
	if err := ecountClient.Login(ctx); err != nil {
		log.Fatal().Err(err).Msg("login Ecount")
	}

	var loader ingest.LoadClient
	switch cfg.Sink.Kind {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		loader = postgres.NewLoader(pool, cfg.DB.Table, log)
	default:
		bqLoader, err := infrabq.NewLoader(ctx, cfg.BigQuery, log)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente BigQuery")
		}
		defer bqLoader.Close()
		loader = bqLoader
	}

	var exporters ingest.MultiExporter
	if cfg.Run.ExportSheet {
		sheetExporter, err := sheets.NewExporter(ctx, cfg.Sheets, log)
		if err != nil {
			log.Fatal().Err(err).Msg("cliente Sheets")
		}
		exporters = append(exporters, sheetExporter)
	}
	if cfg.Run.ExcelDir != "" {
		exporters = append(exporters, excel.NewFileExporter(cfg.Run.ExcelDir, excel.NewWriter(cfg.Excel.SheetName, log)))
	}
	var exporter ingest.SheetExporter
	if len(exporters) > 0 {
		exporter = exporters
	}

	warehouses := make([]ingest.Warehouse, 0, len(cfg.Warehouses))
	for _, code := range cfg.SortedWarehouseCodes() {
		warehouses = append(warehouses, ingest.Warehouse{Code: code, Name: cfg.Warehouses[code]})
	}

	met := metrics.NewRegistry()
	runUC := ingest.NewRunUseCase(
		ecountClient, ecountClient, loader, exporter,
		ingest.Params{
			Warehouses: warehouses,
			Engine: movement.Options{
				GroupByWarehouse:   cfg.Run.GroupByWarehouse,
				FirstRow:           firstRowPolicy(cfg.Run.FirstRowPolicy),
				PreserveInputOrder: cfg.Run.PreserveInputOrder,
			},
			WriteMode: ingest.WriteMode(cfg.Run.WriteMode),
			Pause:     cfg.Run.Pause,
		},
		log, met,
	)

	if !*serve {
		report, err := runUC.Run(ctx, *date)
		if err != nil {
			log.Fatal().Err(err).Msg("ejecución fallida")
		}
		log.Info().
			Str("run_id", report.RunID).
			Int("rows", report.RowsLoaded).
			Strs("empty", report.EmptyWarehouses).
			Strs("failed", report.FailedWarehouses).
			Msg("ejecución one-shot terminada")
		return
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Minute * 5, // una ejecución manual puede tardar
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	syncHandler := httpRouter.NewSyncHandler(runUC)
	httpRouter.Router(app, httpRouter.RouterDeps{
		Sync:    syncHandler,
		Metrics: met,
		AppName: cfg.App.Name,
	})

	if cfg.Run.Schedule != "" {
		sched, err := scheduler.New(cfg.Run.Schedule, runUC, log, syncHandler.Record)
		if err != nil {
			log.Fatal().Err(err).Msg("configurar scheduler")
		}
		sched.Start()
		defer sched.Stop()
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func firstRowPolicy(s string) movement.FirstRowPolicy {
	if s == "zero" {
		return movement.ZeroMovement
	}
	return movement.OpeningAsStockIn
}
