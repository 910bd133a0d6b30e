package gotrue

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fastygo/acreage/domain"
)

// RefresherConfig controls how often the held session is checked and how
// close to expiry it may get before it is refreshed.
type RefresherConfig struct {
	Interval time.Duration
	Margin   time.Duration
}

// Refresher keeps the client's session fresh on a cron schedule.
type Refresher struct {
	client *Client
	cfg    RefresherConfig
	logger *zap.Logger
	cron   *cron.Cron
}

func NewRefresher(client *Client, cfg RefresherConfig, logger *zap.Logger) *Refresher {
	if cfg.Interval < time.Second {
		cfg.Interval = 30 * time.Second
	}
	// cron runs at whole-second resolution.
	cfg.Interval = cfg.Interval.Round(time.Second)
	if cfg.Margin <= 0 {
		cfg.Margin = 90 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Refresher{
		client: client,
		cfg:    cfg,
		logger: logger.Named("refresher"),
		cron:   cron.New(),
	}

	r.cron.Schedule(cron.Every(cfg.Interval), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if _, err := r.Tick(ctx); err != nil {
			r.logger.Warn("session refresh failed", zap.Error(err))
		}
	}))

	return r
}

// Start launches the cron scheduler.
func (r *Refresher) Start() {
	if r == nil || r.cron == nil {
		return
	}
	r.cron.Start()
	r.logger.Info("session refresher started", zap.Duration("interval", r.cfg.Interval))
}

// Stop waits for a running refresh to finish or ctx to expire.
func (r *Refresher) Stop(ctx context.Context) {
	if r == nil || r.cron == nil {
		return
	}
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	r.logger.Info("session refresher stopped")
}

// Tick refreshes the held session when it expires within the margin. It
// reports whether a refresh was attempted.
func (r *Refresher) Tick(ctx context.Context) (bool, error) {
	session := r.client.Session()
	if session == nil {
		return false, nil
	}
	if !session.ExpiresWithin(r.client.now(), r.cfg.Margin) {
		return false, nil
	}
	r.logger.Debug("refreshing session", zap.Time("expires_at", session.ExpiresAt))
	if err := r.client.Refresh(ctx); err != nil {
		if domain.IsRejection(err) {
			return true, nil
		}
		return true, err
	}
	return true, nil
}
