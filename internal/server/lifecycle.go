// Package server runs the battle server's services: ordered startup,
// reverse-order shutdown with a per-service deadline, and signal handling.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Service is a long-running component. Start blocks until the service stops
// or fails; Stop asks it to return.
type Service interface {
	Start() error
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// StatusFunc is told when a service comes up and when it goes down.
type StatusFunc func(service string, up bool)

type entry struct {
	name string
	svc  Service
}

// Lifecycle starts services in registration order and stops them in reverse.
// It is not safe to Add services once Run has been called.
type Lifecycle struct {
	logger      *zap.Logger
	stopTimeout time.Duration
	entries     []entry
	status      StatusFunc
}

// NewLifecycle creates a Lifecycle. Each service's Stop gets stopTimeout
// before shutdown moves on.
//
// Precondition: logger must be non-nil; stopTimeout > 0.
func NewLifecycle(logger *zap.Logger, stopTimeout time.Duration) *Lifecycle {
	return &Lifecycle{
		logger:      logger,
		stopTimeout: stopTimeout,
		status:      func(string, bool) {},
	}
}

// OnStatus installs fn to observe service up/down transitions.
func (l *Lifecycle) OnStatus(fn StatusFunc) {
	if fn != nil {
		l.status = fn
	}
}

// Add registers a named service.
//
// Precondition: name must be non-empty; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) {
	l.entries = append(l.entries, entry{name: name, svc: svc})
}

type exit struct {
	name string
	err  error
}

// Run starts every service and blocks until SIGINT or SIGTERM, ctx is done,
// or a service fails. A service returning nil on its own is logged and
// marked down but does not stop the others.
//
// Postcondition: every service has been asked to stop. Returns the first
// service error, or nil on signal or cancellation.
func (l *Lifecycle) Run(ctx context.Context) error {
	start := time.Now()
	exits := make(chan exit, len(l.entries))
	for _, e := range l.entries {
		l.logger.Info("starting service", zap.String("service", e.name))
		l.status(e.name, true)
		go func() {
			exits <- exit{name: e.name, err: e.svc.Start()}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(l.entries)),
		zap.Duration("startup", time.Since(start)),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
wait:
	for {
		select {
		case sig := <-sigCh:
			l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			break wait
		case <-ctx.Done():
			l.logger.Info("context cancelled, shutting down")
			break wait
		case ex := <-exits:
			l.status(ex.name, false)
			if ex.err == nil {
				l.logger.Warn("service exited", zap.String("service", ex.name))
				continue
			}
			l.logger.Error("service failed, shutting down",
				zap.String("service", ex.name),
				zap.Error(ex.err),
				zap.Duration("uptime", time.Since(start)),
			)
			runErr = fmt.Errorf("service %s: %w", ex.name, ex.err)
			break wait
		}
	}

	l.shutdown()
	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	return runErr
}

func (l *Lifecycle) shutdown() {
	begin := time.Now()
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		l.status(e.name, false)
		if l.stopOne(e) {
			continue
		}
		l.logger.Warn("service stop timed out",
			zap.String("service", e.name),
			zap.Duration("timeout", l.stopTimeout),
		)
	}
	l.logger.Info("all services stopped", zap.Duration("shutdown_elapsed", time.Since(begin)))
}

// stopOne reports whether e stopped within the deadline.
func (l *Lifecycle) stopOne(e entry) bool {
	t0 := time.Now()
	done := make(chan struct{})
	go func() {
		e.svc.Stop()
		close(done)
	}()
	timer := time.NewTimer(l.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
		l.logger.Info("service stopped",
			zap.String("service", e.name),
			zap.Duration("elapsed", time.Since(t0)),
		)
		return true
	case <-timer.C:
		return false
	}
}
