package app

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Exit codes reported by the server process.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Supervisor runs long-lived goroutines and applies the process failure
// policy: a task error closes the server gracefully then exits 1, while a
// task panic exits 1 at once.
type Supervisor struct {
	logger   *zap.Logger
	shutdown func(context.Context) error
	timeout  time.Duration
	exit     func(int)

	once sync.Once
}

// NewSupervisor builds a Supervisor. A nil exit falls back to os.Exit.
func NewSupervisor(logger *zap.Logger, shutdown func(context.Context) error, timeout time.Duration, exit func(int)) *Supervisor {
	if exit == nil {
		exit = os.Exit
	}
	return &Supervisor{logger: logger, shutdown: shutdown, timeout: timeout, exit: exit}
}

// Go runs fn in its own goroutine under the failure policy.
func (s *Supervisor) Go(name string, fn func() error) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.Crash(name, rec, debug.Stack())
			}
		}()
		if err := fn(); err != nil {
			s.Fail(name, err)
		}
	}()
}

// Fail logs err, drains in-flight work within the shutdown timeout, and exits 1.
func (s *Supervisor) Fail(name string, err error) {
	s.once.Do(func() {
		s.logger.Error("unhandled async failure, shutting down", zap.String("task", name), zap.Error(err))
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if s.shutdown != nil {
			if shutdownErr := s.shutdown(ctx); shutdownErr != nil {
				s.logger.Error("graceful shutdown failed", zap.Error(shutdownErr))
			}
		}
		_ = s.logger.Sync()
		s.exit(ExitFailure)
	})
}

// Crash logs a recovered panic and exits 1 without closing anything.
func (s *Supervisor) Crash(name string, rec any, stack []byte) {
	s.once.Do(func() {
		s.logger.Error("uncaught panic, exiting",
			zap.String("task", name),
			zap.String("panic", fmt.Sprint(rec)),
			zap.ByteString("stack", stack),
		)
		_ = s.logger.Sync()
		s.exit(ExitFailure)
	})
}

// RecoverBootstrap turns a panic raised while the server is being assembled
// into a logged ExitFailure. It must be deferred directly by the function
// whose named result code it sets.
func RecoverBootstrap(logger *zap.Logger, code *int) {
	rec := recover()
	if rec == nil {
		return
	}
	logger.Error("uncaught panic during startup, exiting",
		zap.String("panic", fmt.Sprint(rec)),
		zap.ByteString("stack", debug.Stack()),
	)
	*code = ExitFailure
}

// Stop performs an operator-requested graceful shutdown and reports the exit code.
func (s *Supervisor) Stop() int {
	code := ExitOK
	s.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if s.shutdown != nil {
			if err := s.shutdown(ctx); err != nil {
				s.logger.Error("graceful shutdown failed", zap.Error(err))
				code = ExitFailure
			}
		}
	})
	return code
}
