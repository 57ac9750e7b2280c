package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/weather-sampler-service/internal/console"
	"golang.org/x/sync/errgroup"
)

// Loop is a long-running component that stops when its context ends.
type Loop interface {
	Run(ctx context.Context) error
}

// Coordinator owns the lifetimes of the acquisition and command loops.
type Coordinator struct {
	acquisition Loop
	commands    Loop
	logger      *slog.Logger
}

// NewCoordinator creates a Coordinator for the two loops.
func NewCoordinator(acquisition, commands Loop, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		acquisition: acquisition,
		commands:    commands,
		logger:      logger,
	}
}

// Run starts both loops and waits for both to finish. An operator exit
// cancels acquisition and yields nil. The command loop ending on its own
// (end of input) leaves acquisition running until ctx is cancelled. A real
// error from either loop cancels the other and is returned.
func (c *Coordinator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.acquisition.Run(gctx)
	})

	g.Go(func() error {
		err := c.commands.Run(gctx)
		if errors.Is(err, console.ErrExitRequested) {
			c.logger.Info("stopping acquisition")
			cancel()
			return nil
		}
		return err
	})

	return g.Wait()
}
