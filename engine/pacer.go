package engine

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a fixed delay between the end of one page load and the
// start of the next on the same host. Loads on one host never overlap.
// It is the only throttling in the system: there is no backoff and no
// adaptive behaviour.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	hosts map[string]*hostSlot
	now   func() time.Time
}

// hostSlot tracks one host. released is closed when the running load
// calls Done.
type hostSlot struct {
	busy     bool
	lastEnd  time.Time
	released chan struct{}
}

// NewPacer creates a Pacer. A delay <= 0 disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{
		delay: delay,
		hosts: make(map[string]*hostSlot),
		now:   time.Now,
	}
}

// Delay returns the configured interval.
func (p *Pacer) Delay() time.Duration { return p.delay }

// Wait blocks until no load is running on host and the delay since the
// last one ended has passed, then claims the host. Every successful Wait
// must be followed by Done.
func (p *Pacer) Wait(ctx context.Context, host string) error {
	if p == nil || p.delay <= 0 {
		return ctx.Err()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		p.mu.Lock()
		s := p.slot(host)
		if s.busy {
			released := s.released
			p.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-released:
			}
			continue
		}
		wait := s.lastEnd.Add(p.delay).Sub(p.now())
		if wait <= 0 {
			s.busy = true
			s.released = make(chan struct{})
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Done marks the load claimed by Wait as finished. The next load on host
// starts no earlier than now plus the delay.
func (p *Pacer) Done(host string) {
	if p == nil || p.delay <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.slot(host)
	if !s.busy {
		return
	}
	s.busy = false
	s.lastEnd = p.now()
	close(s.released)
}

func (p *Pacer) slot(host string) *hostSlot {
	s, ok := p.hosts[host]
	if !ok {
		s = &hostSlot{}
		p.hosts[host] = s
	}
	return s
}
