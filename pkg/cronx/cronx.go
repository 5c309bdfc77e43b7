package cronx

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
)

// StoppableCron wraps a seconds-granularity cron runner with idempotent
// Start/Stop.
type StoppableCron struct {
	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

func NewStoppableCron() *StoppableCron {
	return &StoppableCron{
		cron: cron.New(cron.WithSeconds()),
	}
}

func (sc *StoppableCron) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	return sc.cron.AddFunc(spec, cmd)
}

func (sc *StoppableCron) Start() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if !sc.running {
		sc.running = true
		sc.cron.Start()
	}
}

// Stop halts scheduling. The returned context is done once in-flight jobs
// finish.
func (sc *StoppableCron) Stop() context.Context {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.running {
		sc.running = false
		return sc.cron.Stop()
	}
	return context.Background()
}
