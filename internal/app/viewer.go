package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samvad-hq/userlist/internal/config"
	"github.com/samvad-hq/userlist/internal/domain"
	"github.com/samvad-hq/userlist/internal/logger"
	"github.com/samvad-hq/userlist/pkg/httpclient"
	"github.com/samvad-hq/userlist/pkg/publishers"
	"github.com/samvad-hq/userlist/pkg/users"
)

// UserFetcher is the subset of users.Service the viewer depends on.
type UserFetcher interface {
	GetAllUsers(ctx context.Context) ([]domain.User, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
}

// Dispatcher delivers fetched user lists downstream.
type Dispatcher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
	Size() int
	Close() error
}

// Viewer represents the user list runtime. It fetches users, keeps the latest
// result and hands every successful fetch to the configured publishers.
//
// Fetches run on the Run goroutine only, so a slower earlier response can never
// overwrite a newer one, and storing a result never schedules another fetch.
type Viewer struct {
	users    UserFetcher
	fanout   Dispatcher
	mode     string
	userID   int64
	interval time.Duration
	log      logger.Logger

	trigger chan struct{}

	mu      sync.RWMutex
	current []domain.User
	lastErr error
}

// New builds a viewer runtime from config, wiring the API client, the users
// service and the publishers.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Viewer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	log = logger.Ensure(log)
	if ctx == nil {
		ctx = context.Background()
	}

	httpLevel, err := httpclient.ParseLogLevel(cfg.HTTPLogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse http log level: %w", err)
	}
	client := httpclient.NewRestyClient(httpclient.Options{
		BaseURL: cfg.BaseURL(),
		Timeout: cfg.HTTPTimeout,
		Tokens: httpclient.BearerTokens{
			AccessToken:  cfg.APIAccessToken,
			RefreshToken: cfg.APIRefreshToken,
		},
		LogLevel: httpLevel,
		Logger:   log,
	})
	log.InfoObj("api client configured", "api_client", map[string]any{
		"base_url":       cfg.BaseURL(),
		"timeout":        cfg.HTTPTimeout.String(),
		"http_log_level": httpLevel.String(),
	})

	publisherReg := publishers.DefaultConfigRegistry()
	if strings.TrimSpace(cfg.PublishersFile) != "" {
		publisherReg, err = publishers.LoadRegistry(cfg.PublishersFile)
		if err != nil {
			return nil, fmt.Errorf("load publishers registry: %w", err)
		}
	}

	enabledPublishers := publisherReg.Enabled()
	if len(enabledPublishers) == 0 {
		return nil, fmt.Errorf("no publishers configured")
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabledPublishers, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	publisherSummaries := make([]map[string]string, 0, len(enabledPublishers))
	for _, pubCfg := range enabledPublishers {
		publisherSummaries = append(publisherSummaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(publisherSummaries),
		"publishers": publisherSummaries,
	})

	return NewViewer(cfg, users.NewService(client), publishers.NewFanout(pubClients), log), nil
}

// NewViewer assembles a viewer from already constructed collaborators.
func NewViewer(cfg *config.Config, fetcher UserFetcher, fanout Dispatcher, log logger.Logger) *Viewer {
	v := &Viewer{
		users:   fetcher,
		fanout:  fanout,
		mode:    config.FetchModeAll,
		log:     logger.Ensure(log),
		trigger: make(chan struct{}, 1),
	}
	if cfg != nil {
		v.mode = cfg.FetchMode
		v.userID = cfg.UserID
		v.interval = cfg.RefreshInterval
	}
	return v
}

// Run performs the initial fetch. With a refresh interval it keeps fetching on
// every tick and every Trigger until ctx is cancelled; otherwise it returns the
// outcome of the single fetch.
func (v *Viewer) Run(ctx context.Context) error {
	if v == nil || v.users == nil {
		return fmt.Errorf("viewer is not initialized")
	}
	defer v.closeFanout()

	v.log.InfoObj("viewer starting", "viewer_state", map[string]any{
		"fetch_mode":       v.mode,
		"publishers_count": v.fanoutSize(),
		"refresh_interval": v.interval.String(),
	})

	err := v.refresh(ctx)
	if v.interval <= 0 {
		return err
	}
	if err != nil {
		v.log.ErrorObj("initial fetch failed", "error", err.Error())
	}

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			v.log.InfoObj("viewer loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := v.refresh(ctx); err != nil {
				v.log.ErrorObj("scheduled fetch failed", "error", err.Error())
			}
		case <-v.trigger:
			if err := v.refresh(ctx); err != nil {
				v.log.ErrorObj("triggered fetch failed", "error", err.Error())
			}
		}
	}
}

// Trigger requests a fetch from the running loop. Requests made while one is
// already pending collapse into it.
func (v *Viewer) Trigger() {
	select {
	case v.trigger <- struct{}{}:
	default:
	}
}

// Users returns a copy of the latest successfully fetched list.
func (v *Viewer) Users() []domain.User {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.current == nil {
		return nil
	}
	out := make([]domain.User, len(v.current))
	copy(out, v.current)
	return out
}

// LastError returns the error of the most recent fetch, or nil if it succeeded.
func (v *Viewer) LastError() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastErr
}

// refresh fetches once, stores the outcome and publishes successful results.
func (v *Viewer) refresh(ctx context.Context) error {
	start := time.Now()
	source, list, err := v.fetch(ctx)

	v.mu.Lock()
	v.lastErr = err
	if err == nil {
		v.current = list
	}
	v.mu.Unlock()

	if err != nil {
		v.log.DebugObj("users fetch failed", "fetch_meta", map[string]any{
			"source": source,
			"kind":   httpclient.KindOf(err).String(),
			"status": httpclient.StatusCode(err),
		})
		return fmt.Errorf("fetch users: %w", err)
	}
	v.log.InfoObj("users fetched", "fetch_meta", map[string]any{
		"source":     source,
		"count":      len(list),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if v.fanout == nil {
		return nil
	}
	delivered, pubErr := v.fanout.Publish(ctx, publishers.NewEvent(source, list))
	if pubErr != nil {
		v.log.WarnObj("publish incomplete", "publish_meta", map[string]any{
			"delivered": delivered,
			"error":     pubErr.Error(),
		})
		return fmt.Errorf("publish users: %w", pubErr)
	}
	return nil
}

func (v *Viewer) fetch(ctx context.Context) (string, []domain.User, error) {
	if v.mode == config.FetchModeSingle {
		source := fmt.Sprintf("GET /users/%d", v.userID)
		u, err := v.users.GetUserByID(ctx, v.userID)
		if err != nil {
			return source, nil, err
		}
		return source, []domain.User{u}, nil
	}
	list, err := v.users.GetAllUsers(ctx)
	return "GET /users", list, err
}

func (v *Viewer) fanoutSize() int {
	if v.fanout == nil {
		return 0
	}
	return v.fanout.Size()
}

func (v *Viewer) closeFanout() {
	if v.fanout == nil {
		return
	}
	if err := v.fanout.Close(); err != nil && !errors.Is(err, context.Canceled) {
		v.log.ErrorObj("publishers close failed", "error", err.Error())
	}
}
