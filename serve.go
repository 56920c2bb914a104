package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vainnor/fatigue-report/api"
	"github.com/vainnor/fatigue-report/auth"
	"github.com/vainnor/fatigue-report/collector"
	"github.com/vainnor/fatigue-report/config"
	"github.com/vainnor/fatigue-report/db"
	"github.com/vainnor/fatigue-report/flow"
	"github.com/vainnor/fatigue-report/sheets"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the fatigue report form",
	RunE:  runServe,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for SHARED_PASSWORD_HASH",
	Long:  "Print a bcrypt hash for SHARED_PASSWORD_HASH. The password is read from stdin when not given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var password string
		if len(args) == 1 {
			password = args[0]
		} else {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(line, "\r\n")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the configured document and worksheet in Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(logger)
		if err != nil {
			return err
		}
		if cfg.SheetBackend != config.BackendPostgres {
			return fmt.Errorf("provision only applies to SHEET_BACKEND=%s", config.BackendPostgres)
		}
		if err := db.InitDB(cfg.DB()); err != nil {
			return err
		}
		defer db.CloseDB()

		title := cfg.SheetWorksheet
		if cfg.SheetPerPilot {
			title = ""
		}
		wb := db.NewWorkbook(db.DB)
		if err := wb.Provision(cmd.Context(), cfg.SheetDocument, title, cfg.FlowOptions().Columns()); err != nil {
			return err
		}
		logger.Info("provisioned spreadsheet",
			zap.String("document", cfg.SheetDocument),
			zap.String("worksheet", title))
		return nil
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSink()

	var verifier auth.Verifier
	if cfg.RequireLogin {
		pw, err := auth.NewSharedPassword(cfg.SharedPasswordHash)
		if err != nil {
			return err
		}
		verifier = pw
	}

	controller, err := flow.New(cfg.FlowOptions(), verifier, sink, logger.Named("flow"))
	if err != nil {
		return err
	}

	store := api.NewSessionStore(cfg.SessionTTL)
	handler := api.NewHandler(controller, store, logger.Named("http"))
	router := api.NewRouter(handler, cfg.OperatorKey)

	// Drop idle sessions in the background
	c := collector.NewCollector(handler, controller, logger.Named("collector"))
	go c.Run(ctx, cfg.SweepInterval)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting form server",
			zap.String("addr", cfg.Addr),
			zap.String("persistence", string(cfg.Target)),
			zap.Bool("login", cfg.RequireLogin),
			zap.Bool("review", cfg.EnableReview),
			zap.Bool("pvt", cfg.EnablePVT))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildSink picks the persistence target. The returned func releases
// whatever the sink holds open.
func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (sheets.Sink, func(), error) {
	cols := cfg.FlowOptions().Columns()
	noop := func() {}

	switch cfg.Target {
	case config.TargetDownload:
		return &sheets.DownloadSink{Columns: cols}, noop, nil
	case config.TargetLocal:
		if err := os.MkdirAll(cfg.SaveDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create save dir: %w", err)
		}
		return &sheets.LocalFileSink{Dir: cfg.SaveDir, Columns: cols, Logger: logger.Named("sheets")}, noop, nil
	}

	client, closeClient, err := buildClient(ctx, cfg, cols)
	if err != nil {
		return nil, nil, err
	}
	sink := sheets.NewRemoteSink(client, sheets.RemoteOptions{
		Document:        cfg.SheetDocument,
		Worksheet:       cfg.SheetWorksheet,
		PerPilot:        cfg.SheetPerPilot,
		CheckDuplicates: cfg.DuplicateCheck,
		Columns:         cols,
	}, logger.Named("sheets"))
	return sink, closeClient, nil
}

func buildClient(ctx context.Context, cfg config.Config, cols []string) (sheets.Client, func(), error) {
	switch cfg.SheetBackend {
	case config.BackendPostgres:
		if err := db.InitDB(cfg.DB()); err != nil {
			return nil, nil, err
		}
		return db.NewWorkbook(db.DB), db.CloseDB, nil
	case config.BackendMemory:
		client := sheets.NewMemoryClient(cfg.SheetDocument)
		if !cfg.SheetPerPilot {
			book, _ := client.Document(cfg.SheetDocument)
			ws, err := book.AddWorksheet(ctx, cfg.SheetWorksheet)
			if err != nil {
				return nil, nil, err
			}
			if err := ws.AppendRow(ctx, cols); err != nil {
				return nil, nil, err
			}
		}
		return client, func() {}, nil
	default:
		client, err := sheets.NewGoogleClient(ctx, sheets.GoogleCredentials{
			File: cfg.GoogleCredentialsFile,
			JSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	}
}
