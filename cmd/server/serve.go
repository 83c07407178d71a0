package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pixora/pixora/backend-go/internal/asset"
	"github.com/pixora/pixora/backend-go/internal/auth"
	"github.com/pixora/pixora/backend-go/internal/collab"
	"github.com/pixora/pixora/backend-go/internal/config"
	"github.com/pixora/pixora/backend-go/internal/db"
	"github.com/pixora/pixora/backend-go/internal/db/dbgen"
	"github.com/pixora/pixora/backend-go/internal/export"
	mw "github.com/pixora/pixora/backend-go/internal/middleware"
	"github.com/pixora/pixora/backend-go/internal/plan"
	"github.com/pixora/pixora/backend-go/internal/project"
	"github.com/pixora/pixora/backend-go/internal/session"
)

const shutdownTimeout = 15 * time.Second

func runServe(ctx context.Context, migrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if migrate {
		applied, err := db.Migrate(ctx, pool)
		if err != nil {
			return err
		}
		if len(applied) > 0 {
			slog.Info("migrations applied", "ids", applied)
		}
	}

	queries := dbgen.New(pool)

	authService := auth.NewService(queries, cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(authService)

	projectService := project.NewService(queries, project.PoolTx(pool), plan.Limits{
		Projects: cfg.FreeProjectLimit,
		Exports:  cfg.FreeExportLimit,
	})
	projectHandler := project.NewHandler(projectService)

	store, err := newAssetStore(ctx, cfg)
	if err != nil {
		return err
	}
	loader := asset.NewLoader(store)
	assetHandler := asset.NewHandler(store)
	exportHandler := export.NewHandler(projectService, loader, export.NewMetrics())

	sessionMetrics := session.NewMetrics()
	hub := collab.NewHub()

	r := mux.NewRouter()

	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/assets/upload", assetHandler.Upload).Methods("POST", "OPTIONS")
	r.HandleFunc(asset.URLPrefix+"{key}", assetHandler.Serve).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST")
	api.HandleFunc("/me", projectHandler.Me).Methods("GET")
	api.HandleFunc("/projects", projectHandler.List).Methods("GET")
	api.HandleFunc("/projects", projectHandler.Create).Methods("POST")
	api.HandleFunc("/projects/{projectId}", projectHandler.Get).Methods("GET")
	api.HandleFunc("/projects/{projectId}", projectHandler.Update).Methods("PATCH")
	api.HandleFunc("/projects/{projectId}", projectHandler.Delete).Methods("DELETE")
	api.HandleFunc("/projects/{projectId}/export", exportHandler.Export).Methods("POST")

	ws := &wsHandler{
		hub:      hub,
		auth:     authService,
		projects: projectService,
		loader:   loader,
		metrics:  sessionMetrics,
		origins:  originPatterns(cfg.Origins()),
		session: session.Config{
			AutosaveDelay:     cfg.AutosaveDelay,
			FilterSettleDelay: cfg.FilterSettleDelay,
			Margin:            cfg.ViewportMargin,
		},
	}
	r.Handle("/ws/project/{projectId}", ws)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", addr, "assets", cfg.AssetBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-sigCh:
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Sessions are saved before the pool closes.
	hub.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server shutdown", "error", err)
	}
	return nil
}

func newAssetStore(ctx context.Context, cfg *config.Config) (asset.Store, error) {
	switch cfg.AssetBackend {
	case "", "local":
		return asset.NewLocalStore(cfg.AssetDir)
	case "s3":
		return asset.NewS3Store(ctx, asset.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			UsePathStyle:    cfg.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown asset backend %q", cfg.AssetBackend)
	}
}

// originPatterns turns allowed origins into the host patterns the WebSocket
// handshake checks against.
func originPatterns(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			out = append(out, "*")
			continue
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, o)
	}
	return out
}

type wsHandler struct {
	hub      *collab.Hub
	auth     *auth.Service
	projects *project.Service
	loader   *asset.Loader
	metrics  *session.Metrics
	origins  []string
	session  session.Config
}

func (h *wsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	projectID := mux.Vars(r)["projectId"]

	userID, err := h.auth.Authenticate(r)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Access check only. The dispatcher reads the document again on
	// session.open, once a previous editor has been retired and saved.
	_, err = h.projects.Get(r.Context(), projectID, userID)
	switch {
	case errors.Is(err, project.ErrNotFound):
		http.Error(w, "project not found", http.StatusNotFound)
		return
	case errors.Is(err, project.ErrUnauthorized):
		http.Error(w, "not your project", http.StatusForbidden)
		return
	case err != nil:
		slog.Error("load project for websocket", "error", err, "project", projectID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	policy, err := h.projects.Policy(r.Context(), userID)
	if err != nil {
		slog.Error("load policy for websocket", "error", err, "user", userID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := collab.NewClient(h.hub, conn, userID, projectID, clientID)
	sess := session.New(session.Options{
		Gateway:  h.projects.ForUser(userID),
		Loader:   h.loader,
		Policy:   policy,
		Config:   h.session,
		Logger:   slog.Default().With("client", clientID),
		Metrics:  h.metrics,
		OnNotice: client.Notify,
	})
	client.Attach(sess, collab.NewDispatcher(sess, h.projects, projectID, userID))

	if !h.hub.Register(client) {
		sess.Dispose()
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	client.Send(collab.Welcome(clientID, projectID))

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}

func runMigrate(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(out, "database is up to date")
		return nil
	}
	for _, id := range applied {
		fmt.Fprintln(out, "applied", id)
	}
	return nil
}

func runListMigrations(out io.Writer) error {
	migrations, err := db.Migrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		fmt.Fprintln(out, m.ID)
	}
	return nil
}
