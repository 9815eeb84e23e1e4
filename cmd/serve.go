package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"plp-bookstore/internal/daemon"
	"plp-bookstore/internal/db"
	"plp-bookstore/internal/handlers"
	"plp-bookstore/internal/middleware"
	"plp-bookstore/internal/runner"
	"plp-bookstore/internal/utils"
)

func (app *appEnv) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the steps over HTTP",
		Args:  cobra.NoArgs,
		RunE:  app.serve,
	}
}

func (app *appEnv) serve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := app.cfg
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to serve")
	}

	store, err := db.Connect(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			app.logger.Warn("close store failed", zap.Error(err))
		}
	}()

	utils.InitJwtSecret(cfg.JWTSecret)
	bookColl := store.Collection(cfg.Collection)

	r := runner.New(nil, app.logger)
	if cfg.AuditCollection != "" {
		r.Audit = &utils.Logger{Collection: store.Collection(cfg.AuditCollection)}
	}

	router := mux.NewRouter()
	router.Use(middleware.RequestID, middleware.Logger(app.logger), middleware.JSONMiddleware)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	})

	authHandler := handlers.NewAuthHandler(handlers.Credentials{
		UserID:   cfg.UserId,
		Username: cfg.UserName,
		Password: cfg.UserPassword,
	}, app.logger)
	router.HandleFunc("/login", authHandler.Login).Methods("POST")

	stepHandler := handlers.NewStepHandler(bookColl, r)
	metricsHandler := &handlers.MetricsHandler{BookCol: bookColl}

	protected := router.PathPrefix("/").Subrouter()
	protected.Use(middleware.JWTAuth(app.logger))
	protected.HandleFunc("/steps", stepHandler.ListSteps).Methods("GET")
	protected.HandleFunc("/steps/{name}", stepHandler.RunStep).Methods("POST")
	protected.HandleFunc("/run", stepHandler.RunAll).Methods("POST")
	protected.HandleFunc("/admin/metrics", metricsHandler.GetMetrics).Methods("GET")

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	if cfg.AuditCollection != "" {
		exporter := &daemon.LogExporter{
			Coll:     store.Collection(cfg.AuditCollection),
			Logger:   app.logger,
			Interval: cfg.ExportInterval.Duration,
		}
		g.Go(func() error {
			return exporter.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	app.logger.Info("Server shut down.")
	return nil
}
