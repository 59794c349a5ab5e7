package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/reelscore/models"
)

// Dispatcher fetches a page with an ordered list of engines. The engines
// are tried one after another until one succeeds; a page that does not
// exist (404) stops the escalation immediately. Every attempt first waits
// on the Pacer and reports back when its load ended, so the fixed
// per-host delay holds across engines.
type Dispatcher struct {
	engines []Engine
	memory  *DomainMemory
	pacer   *Pacer
}

// NewDispatcher creates a Dispatcher. memory and pacer may be nil.
func NewDispatcher(engines []Engine, memory *DomainMemory, pacer *Pacer) *Dispatcher {
	return &Dispatcher{
		engines: engines,
		memory:  memory,
		pacer:   pacer,
	}
}

// Engines returns the engine names in escalation order.
func (d *Dispatcher) Engines() []string {
	names := make([]string, len(d.engines))
	for i, e := range d.engines {
		names[i] = e.Name()
	}
	return names
}

// Fetch runs the escalation for req and returns the first successful
// result. If all engines fail, it returns the last error.
func (d *Dispatcher) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if len(d.engines) == 0 {
		return nil, fmt.Errorf("dispatcher: no engines configured")
	}
	host := req.Host()

	var lastErr error
	for _, eng := range d.order(host) {
		if err := d.pacer.Wait(ctx, host); err != nil {
			return nil, models.CategorizeError(err, "waiting for page delay")
		}

		slog.Debug("engine starting", "engine", eng.Name(), "url", req.URL)
		result, err := eng.Fetch(ctx, req)
		d.pacer.Done(host)
		if err == nil {
			if d.memory != nil {
				d.memory.Set(host, eng.Name())
			}
			if result.EngineName == "" {
				result.EngineName = eng.Name()
			}
			return result, nil
		}

		slog.Debug("engine failed", "engine", eng.Name(), "url", req.URL, "error", err)
		lastErr = err
		if d.memory != nil && d.memory.Get(host) == eng.Name() {
			d.memory.Delete(host)
		}
		if models.IsNotFound(err) || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// order puts the remembered engine for host first, keeping the rest in
// their configured order.
func (d *Dispatcher) order(host string) []Engine {
	if d.memory == nil {
		return d.engines
	}
	remembered := d.memory.Get(host)
	if remembered == "" {
		return d.engines
	}
	ordered := make([]Engine, 0, len(d.engines))
	for _, e := range d.engines {
		if e.Name() == remembered {
			ordered = append(ordered, e)
		}
	}
	if len(ordered) == 0 {
		return d.engines
	}
	slog.Debug("domain memory hit", "host", host, "engine", remembered)
	for _, e := range d.engines {
		if e.Name() != remembered {
			ordered = append(ordered, e)
		}
	}
	return ordered
}
