package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Mez0/TempBox/internal/accounts"
	"github.com/Mez0/TempBox/internal/api"
	"github.com/Mez0/TempBox/internal/config"
	"github.com/Mez0/TempBox/internal/controller"
	"github.com/Mez0/TempBox/internal/db"
	"github.com/Mez0/TempBox/internal/events"
	"github.com/Mez0/TempBox/internal/logging"
	"github.com/Mez0/TempBox/internal/notify"
)

// app holds the wired component graph behind every command.
type app struct {
	cfg       *config.Config
	database  *db.DB
	repo      *db.AccountRepository
	client    *api.Client
	accounts  *accounts.Service
	listener  *api.Listener
	publisher *events.InMemoryPublisher

	controller *controller.Controller
}

// newApp loads configuration and wires the component graph. The
// controller and listener are constructed but not started; one-shot
// commands use the services directly.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	}
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		logCfg.Output = f
	}
	logging.Init(logCfg)

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("prepare data directories: %w", err)
	}

	database, err := db.Open(db.Config{
		Path:          cfg.Database.Path,
		BusyTimeoutMs: cfg.Database.BusyTimeoutMs,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	repo := db.NewAccountRepository(database)
	accountService := accounts.NewService(repo, client)
	listener := api.NewListener(api.ListenerConfig{
		PollInterval:     cfg.Listener.PollInterval,
		ReconnectBackoff: cfg.Listener.ReconnectBackoff,
	}, client)
	publisher := events.NewInMemoryPublisher()
	notifier := notify.NewDesktop(cfg.Notifications.Enabled)

	ctrl := controller.New(controller.Config{
		MaxActiveAccounts: cfg.Accounts.MaxActive,
		EventBuffer:       cfg.Listener.EventBuffer,
		NotifySound:       cfg.Notifications.Sound,
	}, accountService, client, listener, notifier, publisher)

	return &app{
		cfg:        cfg,
		database:   database,
		repo:       repo,
		client:     client,
		accounts:   accountService,
		listener:   listener,
		publisher:  publisher,
		controller: ctrl,
	}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, nil
}

// start brings the live pipeline up: the listener and controller loops
// begin first, then the persisted accounts are loaded so their initial
// snapshots reconcile into the running controller.
func (a *app) start(ctx context.Context) error {
	if err := a.listener.Start(ctx); err != nil {
		return fmt.Errorf("start listener: %w", err)
	}
	if err := a.controller.Start(ctx); err != nil {
		return fmt.Errorf("start controller: %w", err)
	}
	if err := a.accounts.Load(ctx); err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	return nil
}

// stop tears the pipeline down in reverse order.
func (a *app) stop() {
	if err := a.controller.Stop(); err != nil {
		logging.Warn().Err(err).Msg("controller stop")
	}
	if err := a.listener.Stop(); err != nil {
		logging.Warn().Err(err).Msg("listener stop")
	}
	a.publisher.Close()
}

// close releases resources held by one-shot commands.
func (a *app) close() {
	if err := a.database.Close(); err != nil {
		logging.Warn().Err(err).Msg("database close")
	}
}
