package emu

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FabianRolfMatthiasNoll/Chip8Emulator/internal/cpu"
)

type runState struct {
	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	onRefresh func()
	onSound   func(bool)
}

// OnRefresh registers fn to be called from the timer task after every
// tick. fn must not call Stop. Takes effect on the next Start.
func (m *Machine) OnRefresh(fn func()) {
	m.run.mu.Lock()
	m.run.onRefresh = fn
	m.run.mu.Unlock()
}

// OnSound registers fn to be called from the timer task whenever the
// buzzer switches on or off. Takes effect on the next Start.
func (m *Machine) OnSound(fn func(on bool)) {
	m.run.mu.Lock()
	m.run.onSound = fn
	m.run.mu.Unlock()
}

// Start launches the dispatcher and timer tasks. They run until ctx is
// cancelled, Stop is called or the program faults.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	loaded := len(m.program) > 0
	m.mu.Unlock()
	if !loaded {
		return ErrNoProgram
	}

	m.run.mu.Lock()
	defer m.run.mu.Unlock()
	if m.run.running {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	refresh, sound := m.run.onRefresh, m.run.onSound

	m.run.running = true
	m.run.cancel = cancel
	m.run.done = done
	m.run.err = nil

	g.Go(func() error { return m.dispatch(gctx) })
	g.Go(func() error { return m.tick(gctx, refresh, sound) })

	go func() {
		err := g.Wait()
		cancel()
		if err != nil {
			m.log.Printf("emu: stopped: %v", err)
		}
		m.run.mu.Lock()
		m.run.err = err
		m.run.running = false
		m.run.mu.Unlock()
		close(done)
	}()
	return nil
}

// Stop cancels both tasks and waits for them to exit. It must not be
// called from the refresh callback.
func (m *Machine) Stop() {
	m.run.mu.Lock()
	cancel, done := m.run.cancel, m.run.done
	m.run.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Machine) IsRunning() bool {
	m.run.mu.Lock()
	defer m.run.mu.Unlock()
	return m.run.running
}

// Done is closed when the current run ends. Nil before the first Start.
func (m *Machine) Done() <-chan struct{} {
	m.run.mu.Lock()
	defer m.run.mu.Unlock()
	return m.run.done
}

// Err returns the fault that ended the last run, or nil if it was stopped.
func (m *Machine) Err() error {
	m.run.mu.Lock()
	defer m.run.mu.Unlock()
	return m.run.err
}

func (m *Machine) period() time.Duration {
	return time.Second / time.Duration(m.cfg.TimerHz)
}

// dispatch executes the instruction budget once per period. A program
// waiting on the keypad parks here until a key is pressed, the machine is
// reset or the run is cancelled.
func (m *Machine) dispatch(ctx context.Context) error {
	t := time.NewTicker(m.period())
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}

		m.mu.Lock()
		err := m.runBudgetLocked(m.nextBudget())
		m.mu.Unlock()

		switch {
		case err == nil:
		case errors.Is(err, cpu.ErrAwaitKey):
			m.awaitKey(ctx)
		default:
			return err
		}
	}
}

func (m *Machine) awaitKey(ctx context.Context) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.kick:
			cancel()
		case <-wctx.Done():
		}
	}()
	// cancellation is handled by the caller's select
	_ = m.keypad.WaitPress(wctx)
}

func (m *Machine) tick(ctx context.Context, refresh func(), sound func(bool)) error {
	t := time.NewTicker(m.period())
	defer t.Stop()
	beeping := false
	for {
		select {
		case <-ctx.Done():
			if beeping && sound != nil {
				sound(false)
			}
			return nil
		case <-t.C:
		}
		on := m.timers.Tick()
		if on != beeping {
			beeping = on
			if sound != nil {
				sound(on)
			}
		}
		if refresh != nil {
			refresh()
		}
	}
}
