// Package batch frames many assets concurrently. Each asset is framed
// independently; one failure is recorded and the rest continue.
package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/chazu/iconframe/pkg/framing"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// Asset is one scene script to frame.
type Asset struct {
	Name   string
	Source string
}

// FrameFunc frames a single asset. It must be safe to call concurrently.
type FrameFunc func(ctx context.Context, a Asset) (framing.Result, error)

// Outcome is the result for one asset, in the order the assets were given.
type Outcome struct {
	Asset    string
	Result   framing.Result
	Err      error
	Duration time.Duration
}

// OK reports whether the asset framed successfully.
func (o Outcome) OK() bool { return o.Err == nil }

// Runner fans framing calls out over a bounded pool of goroutines.
type Runner struct {
	// Workers bounds concurrency; 0 or less means runtime.NumCPU().
	Workers int
	// Logger receives one record per asset; nil discards.
	Logger *slog.Logger
}

func (r Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.NumCPU()
}

func (r Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Run frames every asset and returns one Outcome per asset in input order.
// Per-asset errors are recorded in the outcome. When ctx is cancelled,
// assets not yet started get the context error.
func (r Runner) Run(ctx context.Context, assets []Asset, fn FrameFunc) []Outcome {
	log := r.logger()
	outcomes := make([]Outcome, len(assets))

	g := new(errgroup.Group)
	g.SetLimit(r.workers())
	for i, a := range assets {
		i, a := i, a
		g.Go(func() error {
			outcomes[i] = frameOne(ctx, a, fn)
			o := outcomes[i]
			if o.Err != nil {
				log.Warn("framing failed", "asset", a.Name, "err", o.Err)
			} else {
				log.Info("framed", "asset", a.Name,
					"projection", o.Result.Camera.Projection.String(),
					"radius", o.Result.Sphere.Radius,
					"duration", o.Duration)
			}
			// Failures stay in the outcome so the group keeps going.
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func frameOne(ctx context.Context, a Asset, fn FrameFunc) (o Outcome) {
	o.Asset = a.Name
	if err := ctx.Err(); err != nil {
		o.Err = err
		return o
	}
	start := time.Now()
	defer func() {
		o.Duration = time.Since(start)
		if rec := recover(); rec != nil {
			o.Err = &PanicError{Value: rec}
		}
	}()
	o.Result, o.Err = fn(ctx, a)
	return o
}

// PanicError reports a FrameFunc that panicked.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "batch: frame function panicked: " + slog.AnyValue(e.Value).String()
}

// Summary counts outcomes.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Cancelled int
}

// Summarize counts successes and failures. Cancelled assets count as
// failures and are also tallied separately.
func Summarize(outcomes []Outcome) Summary {
	counts := lo.CountValuesBy(outcomes, func(o Outcome) string {
		switch {
		case o.OK():
			return "ok"
		case errors.Is(o.Err, context.Canceled), errors.Is(o.Err, context.DeadlineExceeded):
			return "cancelled"
		default:
			return "failed"
		}
	})
	return Summary{
		Total:     len(outcomes),
		Succeeded: counts["ok"],
		Failed:    counts["failed"] + counts["cancelled"],
		Cancelled: counts["cancelled"],
	}
}

// Failures returns the outcomes that carry an error.
func Failures(outcomes []Outcome) []Outcome {
	return lo.Filter(outcomes, func(o Outcome, _ int) bool { return !o.OK() })
}
