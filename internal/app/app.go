package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/collegeportal/web/internal/apiclient"
	"github.com/collegeportal/web/internal/auth"
	"github.com/collegeportal/web/internal/config"
	"github.com/collegeportal/web/internal/handlers"
	"github.com/collegeportal/web/internal/httpserver"
	"github.com/collegeportal/web/internal/logging"
	"github.com/collegeportal/web/internal/middleware"
	"github.com/collegeportal/web/internal/session"
)

// ErrSessionRejected is returned by the check command when the auth service
// does not accept the given session.
var ErrSessionRejected = errors.New("session not accepted by the auth service")

var stdout io.Writer = os.Stdout

// Run bootstraps the collegeportal web front-end.
func Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("expected command: serve or check")
	}

	switch args[0] {
	case "serve":
		return serve(ctx)
	case "check":
		return runCheck(ctx, args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var reporter logging.Reporter
	if client := logging.NewRollbarReporter(cfg.Rollbar.Token, cfg.Env, cfg.Rollbar.CodeVersion); client != nil {
		defer client.Close()
		reporter = client
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, reporter)
	slog.SetDefault(logger)

	deps, err := buildDependencies(logging.WithLogger(ctx, logger), cfg)
	if err != nil {
		return err
	}

	router := mux.NewRouter()
	handlers.RegisterRoutes(router, deps)

	handler := middleware.RequestLogger(logger)(router)

	srv := httpserver.New(cfg.AppPort, handler, httpserver.WithWriteTimeout(cfg.WriteTimeout))

	logger.Info("starting http server",
		"port", cfg.AppPort,
		"auth", cfg.Auth.BaseURL,
		"content", cfg.Content.BaseURL,
		"stagedUploads", cfg.ObjectStore.Enabled(),
	)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- srv.Start()
	}()

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalCh)

	select {
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpserver.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// runCheck performs one authentication check for the given session cookie
// and prints the result as JSON.
func runCheck(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "" {
		return errors.New("usage: check <sessionid> [csrftoken]")
	}
	creds := session.Credentials{SessionID: args[0]}
	if len(args) > 1 {
		creds.CSRFToken = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, nil)
	ctx = logging.WithLogger(ctx, logger)

	gate := &auth.Gate{
		Profiles: apiclient.New(cfg),
		Timeout:  cfg.RequestTimeout,
	}
	result := gate.Check(ctx, creds)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(struct {
		auth.Result
		ProfileURL string `json:"profileUrl"`
	}{result, cfg.Auth.Endpoint(config.EndpointProfile)}); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if !result.Authenticated() {
		return ErrSessionRejected
	}
	return nil
}
