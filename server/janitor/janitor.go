package janitor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jklein/kleinchat/pkg/cronx"
	"github.com/jklein/kleinchat/pkg/logs"
	"github.com/jklein/kleinchat/server/db"
)

// Config controls the background sweep of abandoned empty chats. Clients
// reclaim the chat they navigate away from, but a closed tab leaves its blank
// behind; the janitor picks those up.
type Config struct {
	Disabled bool   `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
	Spec     string `json:"spec" yaml:"spec" mapstructure:"spec"`
	MaxAge   int    `json:"maxAgeHours" yaml:"max-age-hours" mapstructure:"max-age-hours"`
}

func (c *Config) Prepare() {
	if c.Spec == "" {
		c.Spec = "0 0 * * * *" // hourly
	}
	if c.MaxAge == 0 {
		c.MaxAge = 24
	}
}

// Janitor periodically deletes empty chats older than the configured age.
type Janitor struct {
	cron    *cronx.StoppableCron
	queries *db.Queries
	maxAge  time.Duration
}

func New(queries *db.Queries, cfg Config) (*Janitor, error) {
	cfg.Prepare()
	j := &Janitor{
		cron:    cronx.NewStoppableCron(),
		queries: queries,
		maxAge:  time.Duration(cfg.MaxAge) * time.Hour,
	}
	if cfg.Disabled {
		return j, nil
	}
	if _, err := j.cron.AddFunc(cfg.Spec, j.sweep); err != nil {
		return nil, errors.Wrapf(err, "schedule janitor (%s)", cfg.Spec)
	}
	return j, nil
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop blocks until an in-flight sweep finishes.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-j.maxAge)
	reclaimed, err := j.queries.DeleteEmptyChatsBefore(ctx, cutoff)
	if err != nil {
		logs.Errorf("[janitor] sweep failed: %v", err)
		return
	}
	if reclaimed > 0 {
		logs.Infof("[janitor] reclaimed %d empty chats older than %s", reclaimed, j.maxAge)
	}
}
