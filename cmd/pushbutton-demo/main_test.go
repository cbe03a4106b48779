package main

import (
	"errors"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/button-sensor/internal/gpio"
)

// stepClock advances by step on every call to Now.
type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// runDemo drives demoLoop over a scripted reader, one tick per sample.
// Each tick reads the switches three times (sw1 click, sw2 click, sw2 long
// press), so the reader gets three copies of every sample.
func runDemo(t *testing.T, reader gpio.Reader, nTicks int) []string {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Millisecond}
	sw1, sw2, err := newButtons(gpio.Switch(reader, 0), gpio.Switch(reader, 1), clock)
	if err != nil {
		t.Fatalf("newButtons: %v", err)
	}

	var out []string
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)
	done := make(chan struct{})
	go func() {
		demoLoop(sw1, sw2, tick, sig, func(s string) { out = append(out, s) })
		close(done)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	sig <- syscall.SIGINT
	<-done
	return out
}

func tripled(n int, fn func(i int) gpio.Sample) []gpio.Sample {
	out := make([]gpio.Sample, 0, 3*n)
	for i := 0; i < n; i++ {
		s := fn(i)
		out = append(out, s, s, s)
	}
	return out
}

func count(lines []string, want string) int {
	n := 0
	for _, l := range lines {
		if l == want {
			n++
		}
	}
	return n
}

func TestDemoSW2ClickAndLongPress(t *testing.T) {
	// Ticks are 3ms apart. sw2: 300ms tap, pause, then a 3s hold.
	reader := gpio.NewFakeReader(tripled(2000, func(i int) gpio.Sample {
		return gpio.Sample{false, i < 100 || (i >= 200 && i < 1200)}
	}))
	out := runDemo(t, reader, 2000)

	if n := count(out, `sw2 says "click!"`); n != 1 {
		t.Errorf("sw2 clicks: got %d, want 1 (%v)", n, out)
	}
	if n := count(out, `sw2 says "long press!"`); n != 1 {
		t.Errorf("sw2 long presses: got %d, want 1 (%v)", n, out)
	}
	if n := count(out, `sw1 says "click!"`); n != 0 {
		t.Errorf("sw1 clicks: got %d, want 0", n)
	}
}

func TestDemoSW1AutoRepeat(t *testing.T) {
	// sw1 held for ~2.1s: two autorepeat clicks at 800ms and 1600ms.
	reader := gpio.NewFakeReader(tripled(1000, func(i int) gpio.Sample {
		return gpio.Sample{i < 700, false}
	}))
	out := runDemo(t, reader, 1000)

	if n := count(out, `sw1 says "click!"`); n != 2 {
		t.Errorf("sw1 clicks: got %d, want 2 (%v)", n, out)
	}
}

func TestDemoReportsReadErrorOnce(t *testing.T) {
	reader := gpio.NewFakeReader(nil)
	reader.ReadError = errors.New("line busy")
	out := runDemo(t, reader, 10)

	errs := 0
	for _, l := range out {
		if strings.Contains(l, "gpio read error") {
			errs++
		}
	}
	if errs != 2 {
		t.Errorf("expected one error line per button, got %d (%v)", errs, out)
	}
	if last := out[len(out)-1]; !strings.HasPrefix(last, "received") {
		t.Errorf("expected exit message last, got %q", last)
	}
}
