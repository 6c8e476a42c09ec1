package main

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chopshop/internal/config"
	"chopshop/internal/infra/history"
	"chopshop/internal/infra/logging"
	"chopshop/internal/infra/metrics"
	"chopshop/internal/infra/session"
	"chopshop/internal/infra/transport"
	"chopshop/internal/usecase"
)

// appContext wires the client stack lazily, so commands only pay for what
// they touch: whoami never opens the history database, stats never loads a
// session file it does not have.
type appContext struct {
	configFlag *string
	devFlag    *bool

	configOnce sync.Once
	cfg        *config.Config
	log        *zerolog.Logger
	configErr  error

	clientOnce sync.Once
	session    *session.FileStore
	client     *transport.Client
	clientErr  error

	historyOnce sync.Once
	history     *history.Store
	historyErr  error

	lifecycleOnce sync.Once
	lifecycle     usecase.JobLifecycle

	metricsOnce sync.Once
}

func newAppContext(configFlag *string, devFlag *bool) *appContext {
	return &appContext{configFlag: configFlag, devFlag: devFlag}
}

func (a *appContext) ensureConfig() (*config.Config, error) {
	a.configOnce.Do(func() {
		path := strings.TrimSpace(*a.configFlag)
		explicit := path != ""
		if !explicit {
			path = config.DefaultPath()
		}
		cfg, err := config.Load(path, explicit, *a.devFlag)
		if err != nil {
			a.configErr = err
			return
		}
		a.cfg = cfg
		a.log = logging.New(cfg.Log, cfg.Runtime.Dev)
	})
	return a.cfg, a.configErr
}

func (a *appContext) ensureClient() (*transport.Client, *session.FileStore, error) {
	cfg, err := a.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	a.clientOnce.Do(func() {
		store, err := session.NewFileStore(cfg.Session.Path, cfg.Session.Token)
		if err != nil {
			a.clientErr = fmt.Errorf("open session store: %w", err)
			return
		}
		client, err := transport.NewClient(cfg.API, store, a.log)
		if err != nil {
			a.clientErr = err
			return
		}
		a.session = store
		a.client = client
	})
	return a.client, a.session, a.clientErr
}

func (a *appContext) ensureAuth() (usecase.AuthUseCase, *session.FileStore, error) {
	client, store, err := a.ensureClient()
	if err != nil {
		return nil, nil, err
	}
	return usecase.NewAuthUseCase(client, store, a.log), store, nil
}

func (a *appContext) ensureHistory() (*history.Store, error) {
	cfg, err := a.ensureConfig()
	if err != nil {
		return nil, err
	}
	a.historyOnce.Do(func() {
		a.history, a.historyErr = history.Open(cfg.History.Path)
	})
	return a.history, a.historyErr
}

func (a *appContext) ensureLifecycle() (usecase.JobLifecycle, error) {
	client, _, err := a.ensureClient()
	if err != nil {
		return nil, err
	}
	hist, err := a.ensureHistory()
	if err != nil {
		return nil, err
	}
	a.lifecycleOnce.Do(func() {
		a.startMetrics()
		a.lifecycle = usecase.NewJobLifecycle(client, hist, a.cfg.Poll, a.log)
	})
	return a.lifecycle, nil
}

func (a *appContext) ensurePlans() (usecase.PlanUseCase, error) {
	client, _, err := a.ensureClient()
	if err != nil {
		return nil, err
	}
	return usecase.NewPlanUseCase(client, a.log), nil
}

func (a *appContext) ensureStats() (usecase.StatsUseCase, error) {
	client, _, err := a.ensureClient()
	if err != nil {
		return nil, err
	}
	hist, err := a.ensureHistory()
	if err != nil {
		return nil, err
	}
	return usecase.NewStatsUseCase(client, hist, a.log), nil
}

// requireSession fails fast with an actionable message instead of letting a
// protected endpoint bounce the request.
func (a *appContext) requireSession() error {
	_, store, err := a.ensureClient()
	if err != nil {
		return err
	}
	tok := store.Token()
	if tok == "" {
		return fmt.Errorf("not logged in; run `chopshop login` first")
	}
	if session.Expired(tok, time.Now()) {
		return fmt.Errorf("session expired; run `chopshop login` again")
	}
	return nil
}

// startMetrics exposes /metrics when an address is configured. Long-running
// watch sessions are the only place it is worth scraping a CLI.
func (a *appContext) startMetrics() {
	a.metricsOnce.Do(func() {
		addr := a.cfg.Metrics.Addr
		if addr == "" {
			return
		}
		metrics.MustRegister()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				a.log.Warn().Err(err).Str("addr", addr).Msg("metrics listener stopped")
			}
		}()
		a.log.Info().Str("addr", addr).Msg("metrics listener started")
	})
}

func (a *appContext) close() {
	if a.lifecycle != nil {
		a.lifecycle.Close()
	}
	if a.history != nil {
		_ = a.history.Close()
	}
}
