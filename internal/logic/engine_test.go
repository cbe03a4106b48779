package logic

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func autoRepeatConfig(minClick, interval time.Duration) Config {
	return Config{MinClick: minClick, Mode: AutoRepeat{Interval: interval}}
}

func longPressConfig(minClick, threshold time.Duration) Config {
	return Config{MinClick: minClick, Mode: LongPress{Threshold: threshold}}
}

func mustEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine(%+v): %v", cfg, err)
	}
	return e
}

// holdResult records what was consumed while ticking a closed switch.
type holdResult struct {
	clicks []time.Duration // offsets from press start at which a click was consumed
	longs  []time.Duration
}

// hold ticks the engine closed at every step from start to start+d inclusive,
// consuming events after each tick.
func hold(e *Engine, start time.Time, d, step time.Duration) holdResult {
	var r holdResult
	for off := time.Duration(0); off <= d; off += step {
		e.Tick(start.Add(off), true)
		for e.Clicked() {
			r.clicks = append(r.clicks, off)
		}
		if e.LongPressed() {
			r.longs = append(r.longs, off)
		}
	}
	return r
}

// release ticks the engine open at the given time and a few idle steps after,
// returning the number of clicks and long presses consumed.
func release(e *Engine, at time.Time, step time.Duration) (clicks, longs int) {
	for i := 0; i < 5; i++ {
		e.Tick(at.Add(time.Duration(i)*step), false)
		for e.Clicked() {
			clicks++
		}
		if e.LongPressed() {
			longs++
		}
	}
	return clicks, longs
}

// tap presses for exactly d (the release sample sees elapsed == d).
func tap(e *Engine, start time.Time, d, step time.Duration) (held holdResult, clicks, longs int) {
	held = hold(e, start, d-step, step)
	clicks, longs = release(e, start.Add(d), step)
	return held, clicks, longs
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.MinClick != 100*time.Millisecond {
		t.Errorf("MinClick: got %v, want 100ms", cfg.MinClick)
	}
	lp, ok := cfg.Mode.(LongPress)
	if !ok {
		t.Fatalf("expected LongPress mode, got %T", cfg.Mode)
	}
	if lp.Threshold != 1500*time.Millisecond {
		t.Errorf("Threshold: got %v, want 1500ms", lp.Threshold)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"autorepeat ok", autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond), false},
		{"longpress ok", longPressConfig(100*time.Millisecond, 1500*time.Millisecond), false},
		{"zero min click", longPressConfig(0, 1500*time.Millisecond), false},
		{"negative min click", longPressConfig(-time.Millisecond, 1500*time.Millisecond), true},
		{"no mode", Config{MinClick: 100 * time.Millisecond}, true},
		{"zero interval", autoRepeatConfig(0, 0), true},
		{"negative threshold", longPressConfig(0, -time.Second), true},
		{"min click equals interval", autoRepeatConfig(800*time.Millisecond, 800*time.Millisecond), true},
		{"min click above interval", autoRepeatConfig(time.Second, 800*time.Millisecond), true},
		{"min click equals threshold", longPressConfig(1500*time.Millisecond, 1500*time.Millisecond), true},
		{"min click above threshold", longPressConfig(2*time.Second, 1500*time.Millisecond), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				if _, nerr := NewEngine(tt.cfg); nerr == nil {
					t.Error("NewEngine should reject the config")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestModeString(t *testing.T) {
	if got := (AutoRepeat{Interval: 800 * time.Millisecond}).String(); got != "autorepeat(800ms)" {
		t.Errorf("AutoRepeat.String: got %q", got)
	}
	if got := (LongPress{Threshold: 1500 * time.Millisecond}).String(); got != "longpress(1.5s)" {
		t.Errorf("LongPress.String: got %q", got)
	}
}

func TestShortPressIgnored(t *testing.T) {
	configs := map[string]Config{
		"autorepeat": autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond),
		"longpress":  longPressConfig(100*time.Millisecond, 1500*time.Millisecond),
	}
	for name, cfg := range configs {
		for _, step := range []time.Duration{time.Millisecond, 10 * time.Millisecond, 33 * time.Millisecond} {
			for _, d := range []time.Duration{step, 50 * time.Millisecond, 99 * time.Millisecond} {
				if d < step {
					continue
				}
				e := mustEngine(t, cfg)
				held, clicks, longs := tap(e, t0, d, step)
				if len(held.clicks) != 0 || len(held.longs) != 0 || clicks != 0 || longs != 0 {
					t.Errorf("%s step=%v d=%v: expected nothing, got held=%+v clicks=%d longs=%d",
						name, step, d, held, clicks, longs)
				}
			}
		}
	}
}

func TestClickOnlyAfterRelease(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		d    time.Duration
	}{
		{"autorepeat at floor", autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond), 100 * time.Millisecond},
		{"autorepeat mid", autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond), 300 * time.Millisecond},
		{"autorepeat just under interval", autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond), 799 * time.Millisecond},
		{"longpress at floor", longPressConfig(100*time.Millisecond, 1500*time.Millisecond), 100 * time.Millisecond},
		{"longpress mid", longPressConfig(100*time.Millisecond, 1500*time.Millisecond), 1200 * time.Millisecond},
		{"longpress just under threshold", longPressConfig(100*time.Millisecond, 1500*time.Millisecond), 1499 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEngine(t, tt.cfg)
			held, clicks, longs := tap(e, t0, tt.d, time.Millisecond)
			if len(held.clicks) != 0 {
				t.Errorf("expected no click while held, got %v", held.clicks)
			}
			if len(held.longs) != 0 || longs != 0 {
				t.Errorf("expected no long press, got held=%v release=%d", held.longs, longs)
			}
			if clicks != 1 {
				t.Errorf("expected exactly 1 click after release, got %d", clicks)
			}
		})
	}
}

func TestAutoRepeatCount(t *testing.T) {
	interval := 800 * time.Millisecond
	for _, d := range []time.Duration{
		800 * time.Millisecond,
		1000 * time.Millisecond,
		1599 * time.Millisecond,
		1600 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
	} {
		e := mustEngine(t, autoRepeatConfig(100*time.Millisecond, interval))
		held := hold(e, t0, d, time.Millisecond)

		want := int(d / interval)
		if len(held.clicks) != want {
			t.Errorf("d=%v: expected %d clicks while held, got %d", d, want, len(held.clicks))
			continue
		}
		for i, at := range held.clicks {
			if wantAt := time.Duration(i+1) * interval; at != wantAt {
				t.Errorf("d=%v: click %d available at %v, want %v", d, i, at, wantAt)
			}
		}

		// Releasing after repeats have fired adds nothing.
		clicks, longs := release(e, t0.Add(d+time.Millisecond), time.Millisecond)
		if clicks != 0 || longs != 0 {
			t.Errorf("d=%v: expected nothing on release, got clicks=%d longs=%d", d, clicks, longs)
		}
	}
}

func TestAutoRepeatOneClickPerInterval(t *testing.T) {
	// Coarse polling must not produce a burst when an interval is overshot.
	e := mustEngine(t, autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond))
	e.Tick(t0, true)
	e.Tick(t0.Add(2500*time.Millisecond), true)

	clicks, _ := e.Pending()
	if clicks != 1 {
		t.Errorf("expected 1 pending click, got %d", clicks)
	}
}

func TestLongPressOnce(t *testing.T) {
	for _, d := range []time.Duration{1500 * time.Millisecond, 2000 * time.Millisecond, 10 * time.Second} {
		e := mustEngine(t, longPressConfig(100*time.Millisecond, 1500*time.Millisecond))
		held := hold(e, t0, d, time.Millisecond)

		if len(held.clicks) != 0 {
			t.Errorf("d=%v: expected no clicks while held, got %v", d, held.clicks)
		}
		if len(held.longs) != 1 {
			t.Fatalf("d=%v: expected 1 long press while held, got %v", d, held.longs)
		}
		if held.longs[0] != 1500*time.Millisecond {
			t.Errorf("d=%v: long press at %v, want 1.5s", d, held.longs[0])
		}

		clicks, longs := release(e, t0.Add(d+time.Millisecond), time.Millisecond)
		if clicks != 0 || longs != 0 {
			t.Errorf("d=%v: expected nothing on release, got clicks=%d longs=%d", d, clicks, longs)
		}
	}
}

func TestLongPressCrossedBetweenSamples(t *testing.T) {
	e := mustEngine(t, longPressConfig(100*time.Millisecond, 1500*time.Millisecond))
	held, clicks, longs := tap(e, t0, 1600*time.Millisecond, 400*time.Millisecond)

	if len(held.clicks) != 0 || len(held.longs) != 0 {
		t.Errorf("expected nothing while held, got %+v", held)
	}
	if clicks != 0 {
		t.Errorf("a hold past the threshold must not click, got %d", clicks)
	}
	if longs != 1 {
		t.Errorf("expected long press on release, got %d", longs)
	}
}

func TestAutoRepeatCoarsePollingStillClicksOnRelease(t *testing.T) {
	// Samples at 0, 300, 600 closed and 900 open: no repeat was seen, so the
	// release reports the press.
	e := mustEngine(t, autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond))
	held, clicks, _ := tap(e, t0, 900*time.Millisecond, 300*time.Millisecond)
	if len(held.clicks) != 0 {
		t.Errorf("expected no clicks while held, got %v", held.clicks)
	}
	if clicks != 1 {
		t.Errorf("expected 1 click on release, got %d", clicks)
	}
}

func TestQueriesAreIdempotent(t *testing.T) {
	e := mustEngine(t, longPressConfig(100*time.Millisecond, 1500*time.Millisecond))
	tap(e, t0, 300*time.Millisecond, time.Millisecond)

	for i := 0; i < 10; i++ {
		if e.Clicked() {
			t.Fatalf("call %d: Clicked returned true with nothing pending", i)
		}
		if e.LongPressed() {
			t.Fatalf("call %d: LongPressed returned true with nothing pending", i)
		}
	}
	if clicks, long := e.Pending(); clicks != 0 || long {
		t.Errorf("Pending: got (%d, %v), want (0, false)", clicks, long)
	}
}

func TestClicksQueueUntilConsumed(t *testing.T) {
	e := mustEngine(t, longPressConfig(100*time.Millisecond, 1500*time.Millisecond))
	start := t0
	// Tick three 200ms taps without querying in between.
	for i := 0; i < 3; i++ {
		for off := time.Duration(0); off < 200*time.Millisecond; off += time.Millisecond {
			e.Tick(start.Add(off), true)
		}
		e.Tick(start.Add(200*time.Millisecond), false)
		start = start.Add(time.Second)
	}

	if clicks, _ := e.Pending(); clicks != 3 {
		t.Fatalf("expected 3 pending clicks, got %d", clicks)
	}
	for i := 0; i < 3; i++ {
		if !e.Clicked() {
			t.Fatalf("Clicked %d: expected true", i)
		}
	}
	if e.Clicked() {
		t.Error("expected queue to be drained")
	}
}

func TestConfigureResetsState(t *testing.T) {
	e := mustEngine(t, longPressConfig(100*time.Millisecond, 1500*time.Millisecond))
	hold(e, t0, 2000*time.Millisecond, 100*time.Millisecond)
	e.Tick(t0.Add(2100*time.Millisecond), true)

	if !e.Pressed() {
		t.Fatal("expected pressed before reconfigure")
	}

	if err := e.Configure(autoRepeatConfig(50*time.Millisecond, 500*time.Millisecond)); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if e.Pressed() {
		t.Error("expected no press in progress after Configure")
	}
	if clicks, long := e.Pending(); clicks != 0 || long {
		t.Errorf("Pending after Configure: got (%d, %v)", clicks, long)
	}
	if _, ok := e.Config().Mode.(AutoRepeat); !ok {
		t.Errorf("expected AutoRepeat mode, got %T", e.Config().Mode)
	}
}

func TestConfigureRejectsAndKeepsState(t *testing.T) {
	cfg := longPressConfig(100*time.Millisecond, 1500*time.Millisecond)
	e := mustEngine(t, cfg)
	e.Tick(t0, true)

	err := e.Configure(longPressConfig(2*time.Second, time.Second))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if !e.Pressed() {
		t.Error("rejected Configure must not reset state")
	}
	if e.Config() != cfg {
		t.Errorf("config changed: got %+v", e.Config())
	}
}

func TestClockBackwardsIsClamped(t *testing.T) {
	e := mustEngine(t, longPressConfig(100*time.Millisecond, 1500*time.Millisecond))
	e.Tick(t0, true)
	e.Tick(t0.Add(300*time.Millisecond), true)
	// Release stamped before the previous sample is treated as at 300ms.
	e.Tick(t0.Add(50*time.Millisecond), false)

	if !e.Clicked() {
		t.Error("expected click for a 300ms press")
	}
}

func TestPressedFor(t *testing.T) {
	e := mustEngine(t, Defaults())
	if got := e.PressedFor(t0); got != 0 {
		t.Errorf("open: got %v, want 0", got)
	}
	e.Tick(t0, true)
	if got := e.PressedFor(t0.Add(250 * time.Millisecond)); got != 250*time.Millisecond {
		t.Errorf("closed: got %v, want 250ms", got)
	}
	e.Tick(t0.Add(300*time.Millisecond), false)
	if got := e.PressedFor(t0.Add(400 * time.Millisecond)); got != 0 {
		t.Errorf("after release: got %v, want 0", got)
	}
}

func TestScenarioAutoRepeat(t *testing.T) {
	cfg := autoRepeatConfig(100*time.Millisecond, 800*time.Millisecond)

	// 0 -> 50ms -> open: no click.
	e := mustEngine(t, cfg)
	_, clicks, _ := tap(e, t0, 50*time.Millisecond, time.Millisecond)
	if clicks != 0 {
		t.Errorf("50ms tap: expected 0 clicks, got %d", clicks)
	}

	// 0 -> 300ms -> open: one click.
	e = mustEngine(t, cfg)
	_, clicks, _ = tap(e, t0, 300*time.Millisecond, time.Millisecond)
	if clicks != 1 {
		t.Errorf("300ms tap: expected 1 click, got %d", clicks)
	}

	// 0 -> 2000ms still held: clicks at 800ms and 1600ms.
	e = mustEngine(t, cfg)
	held := hold(e, t0, 2000*time.Millisecond, time.Millisecond)
	want := []time.Duration{800 * time.Millisecond, 1600 * time.Millisecond}
	if len(held.clicks) != len(want) {
		t.Fatalf("2000ms hold: expected clicks at %v, got %v", want, held.clicks)
	}
	for i := range want {
		if held.clicks[i] != want[i] {
			t.Errorf("2000ms hold: click %d at %v, want %v", i, held.clicks[i], want[i])
		}
	}
}

func TestScenarioLongPress(t *testing.T) {
	cfg := longPressConfig(100*time.Millisecond, 1500*time.Millisecond)

	// 0 -> 1200ms -> open: one click, no long press.
	e := mustEngine(t, cfg)
	held, clicks, longs := tap(e, t0, 1200*time.Millisecond, time.Millisecond)
	if clicks != 1 || longs != 0 || len(held.longs) != 0 {
		t.Errorf("1200ms: got clicks=%d longs=%d held=%+v", clicks, longs, held)
	}

	// 0 -> 2000ms -> open: long press at 1500ms, never a click.
	e = mustEngine(t, cfg)
	held, clicks, longs = tap(e, t0, 2000*time.Millisecond, time.Millisecond)
	if len(held.longs) != 1 || held.longs[0] != 1500*time.Millisecond {
		t.Errorf("2000ms: expected long press at 1.5s, got %v", held.longs)
	}
	if clicks != 0 || len(held.clicks) != 0 || longs != 0 {
		t.Errorf("2000ms: expected no clicks or extra long press, got clicks=%d held=%+v longs=%d", clicks, held, longs)
	}
}
