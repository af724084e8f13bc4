package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/config"
	"github.com/dokkiitech/okusuri/internal/httpapi"
	"github.com/dokkiitech/okusuri/internal/notify"
	"github.com/dokkiitech/okusuri/internal/scheduler"
	"github.com/dokkiitech/okusuri/internal/store"
	"github.com/dokkiitech/okusuri/internal/telegram"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	loc     *time.Location
	repo    store.Repo
	router  *telegram.Router
	sched   *scheduler.Scheduler
	httpSrv *http.Server
}

// New performs the fail-fast part of startup: bad credentials or a bad
// timezone must surface before the scheduler ever arms.
func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false
	// Bounds every outbound send; a hung call must not stall a tick.
	bot.Client = &http.Client{Timeout: cfg.SendTimeout}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	return &App{cfg: cfg, log: log, bot: bot, loc: loc}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting okusuri",
		zap.String("tz", a.loc.String()),
		zap.String("http", a.cfg.HTTPAddr),
	)

	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	notifier := notify.New(a.bot, repo, a.log,
		a.cfg.ReminderTitle, a.cfg.ReminderBody, a.cfg.AppBaseURL)
	a.router = telegram.NewRouter(a.bot, a.log, repo)
	a.sched = scheduler.New(repo, notifier, a.log, a.loc,
		a.cfg.LowStockThreshold, a.cfg.SendTimeout)
	a.sched.Start()

	api := httpapi.NewServer(repo, a.log)
	a.httpSrv = &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      api.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")
			a.shutdown()
			return nil
		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

func (a *App) shutdown() {
	a.sched.Stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err := a.httpSrv.Shutdown(shCtx)
	cancel()
	if err != nil {
		a.log.Warn("http server shutdown error", zap.Error(err))
	}

	if a.repo != nil {
		_ = a.repo.Close()
	}
}
