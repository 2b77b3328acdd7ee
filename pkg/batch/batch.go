// Package batch runs a conversion over many input files with bounded
// parallelism and collects one outcome per file.
package batch

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Func converts a single input and returns the output path and the number of
// bytes written.
type Func func(ctx context.Context, input string) (output string, n int, err error)

// Outcome is the result of converting one input.
type Outcome struct {
	Input    string
	Output   string
	Bytes    int
	Duration time.Duration
	Err      error
}

// Report holds the outcomes of a Run in input order.
type Report struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that carry an error.
func (r *Report) Failed() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// Succeeded counts the outcomes without an error.
func (r *Report) Succeeded() int {
	return len(r.Outcomes) - len(r.Failed())
}

// Bytes sums the bytes written by successful conversions.
func (r *Report) Bytes() int {
	total := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			total += o.Bytes
		}
	}
	return total
}

// Err combines the errors of every failed outcome, or returns nil.
func (r *Report) Err() error {
	var err error
	for _, o := range r.Outcomes {
		err = multierr.Append(err, o.Err)
	}
	return err
}

// Run calls fn for every input using at most jobs goroutines, or GOMAXPROCS
// when jobs is not positive. A failing input does not stop the others. Inputs
// not started before ctx is done are marked with ctx.Err().
func Run(ctx context.Context, inputs []string, jobs int, fn Func) *Report {
	report := &Report{Outcomes: make([]Outcome, len(inputs))}
	if len(inputs) == 0 {
		return report
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Goroutines never return an error so that one failure leaves the
	// group context alive for the remaining inputs.
	var g errgroup.Group
	g.SetLimit(min(jobs, len(inputs)))

	for i, input := range inputs {
		report.Outcomes[i].Input = input
		if err := ctx.Err(); err != nil {
			report.Outcomes[i].Err = err
			continue
		}
		g.Go(func() error {
			out := &report.Outcomes[i]
			if err := ctx.Err(); err != nil {
				out.Err = err
				return nil
			}
			start := time.Now()
			out.Output, out.Bytes, out.Err = fn(ctx, input)
			out.Duration = time.Since(start)
			return nil
		})
	}
	_ = g.Wait()
	return report
}
