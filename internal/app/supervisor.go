package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Task is a long-running loop that returns once its context is cancelled.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Drainer releases a resource during shutdown within the grace period.
type Drainer struct {
	Name  string
	Drain func(ctx context.Context) error
}

// Supervisor runs tasks until the parent context is cancelled or one of them
// fails, then drains resources with a bounded grace period.
type Supervisor struct {
	grace    time.Duration
	tasks    []Task
	drainers []Drainer
}

func NewSupervisor(grace time.Duration) *Supervisor {
	return &Supervisor{grace: grace}
}

func (s *Supervisor) Go(name string, run func(ctx context.Context) error) {
	s.tasks = append(s.tasks, Task{Name: name, Run: run})
}

// OnShutdown registers a drainer. Drainers run in registration order.
func (s *Supervisor) OnShutdown(name string, drain func(ctx context.Context) error) {
	s.drainers = append(s.drainers, Drainer{Name: name, Drain: drain})
}

// Run blocks until every task returned and every drainer ran. It returns the
// first task error, if any.
func (s *Supervisor) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, task := range s.tasks {
		g.Go(func() error {
			if err := task.Run(gctx); err != nil {
				slog.ErrorContext(gctx, "Task failed", "task", task.Name, "error", err)
				return fmt.Errorf("%s: %w", task.Name, err)
			}
			slog.DebugContext(gctx, "Task stopped", "task", task.Name)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.drain(context.WithoutCancel(gctx))
		return nil
	})

	return g.Wait()
}

func (s *Supervisor) drain(parent context.Context) {
	slog.InfoContext(parent, "Shutting down", "grace", s.grace)

	ctx, cancel := context.WithTimeout(parent, s.grace)
	defer cancel()

	for _, d := range s.drainers {
		if err := d.Drain(ctx); err != nil {
			slog.WarnContext(ctx, "Shutdown step failed", "step", d.Name, "error", err)
			continue
		}
		slog.DebugContext(ctx, "Shutdown step done", "step", d.Name)
	}
}
