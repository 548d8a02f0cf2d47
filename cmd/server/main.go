// Command server runs the address book web application.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"go.uber.org/zap"

	ab "github.com/panyam/addrbook"
	"github.com/panyam/addrbook/config"
	"github.com/panyam/addrbook/oauth2"
	"github.com/panyam/addrbook/stores"
	mongostore "github.com/panyam/addrbook/stores/mongo"
	"github.com/panyam/addrbook/web"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := run(cfg, sugar); err != nil {
		sugar.Fatalw("server exited", "err", err)
	}
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer func() {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := closeStore(cctx); err != nil {
				logger.Warnw("store close failed", "err", err)
			}
		}()
	}

	session := scs.New()
	session.Lifetime = time.Duration(cfg.Session.TimeoutSeconds) * time.Second

	auth := ab.NewAuth("addrbook", store, session, logger)
	auth.JWTSecretKey = cfg.Session.Secret
	auth.SessionTimeoutInSeconds = cfg.Session.TimeoutSeconds

	local := &ab.LocalAuth{
		ValidateCredentials: ab.NewCredentialsValidator(store),
		CreateUser:          ab.NewCreateUserFunc(store),
		UsernameField:       "loginUsername",
		PasswordField:       "loginPassword",
		EmailField:          "loginEmail",
		HandleUser:          auth.OnLocalUser,
		OnSignupError:       ab.RedirectingErrorHandler("/register"),
		OnLoginError:        ab.RedirectingErrorHandler("/login"),
		Logger:              logger,
	}

	contacts := ab.NewContactService(store, logger)

	renderer, err := web.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	server := web.NewServer(auth, local, contacts, renderer, logger)

	if cfg.Google.Enabled() {
		google := oauth2.NewGoogleOAuth2(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.CallbackURL, auth.OnFederatedUser)
		google.Logger = logger
		server.Google = google.Handler()
	}
	if cfg.Github.Enabled() {
		github := oauth2.NewGithubOAuth2(cfg.Github.ClientID, cfg.Github.ClientSecret, cfg.Github.CallbackURL, auth.OnFederatedUser)
		github.Logger = logger
		server.Github = github.Handler()
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("listening", "addr", httpServer.Addr, "storage", cfg.Storage.Driver)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (ab.UserStore, func(context.Context) error, error) {
	switch cfg.Storage.Driver {
	case "fs":
		return stores.NewFSUserStore(cfg.Storage.Path), nil, nil
	case "mongo":
		db, closer, err := mongostore.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database, logger)
		if err != nil {
			return nil, nil, err
		}
		store, err := mongostore.NewUserStore(db, cfg.Mongo.Collection)
		if err != nil {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			closer(cctx)
			return nil, nil, err
		}
		return store, closer, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
