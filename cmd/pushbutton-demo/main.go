// Command pushbutton-demo polls two push buttons and logs what they do:
// sw1 autorepeats every 800ms while held, sw2 reports clicks and long presses.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/button-sensor/internal/button"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
)

func main() {
	backend := flag.String("gpio-backend", string(gpio.BackendCdev), "GPIO backend: cdev or rpio")
	chip := flag.String("chip", gpio.DefaultChip, "GPIO character device (cdev backend)")
	pinSW1 := flag.Int("pin-sw1", gpio.DefaultPinSW1, "BCM pin number for sw1")
	pinSW2 := flag.Int("pin-sw2", gpio.DefaultPinSW2, "BCM pin number for sw2")
	poll := flag.Duration("poll", 10*time.Millisecond, "Polling interval")

	flag.Parse()

	if err := run(gpio.Backend(*backend), *chip, *pinSW1, *pinSW2, *poll); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(backend gpio.Backend, chip string, pinSW1, pinSW2 int, poll time.Duration) error {
	reader, err := gpio.Open(backend, chip, []int{pinSW1, pinSW2})
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer reader.Close()

	sw1, sw2, err := newButtons(gpio.Switch(reader, 0), gpio.Switch(reader, 1), nil)
	if err != nil {
		return err
	}

	log.Printf("started: sw1=pin %d %s, sw2=pin %d %s", pinSW1, sw1Config().Mode, pinSW2, logic.Defaults().Mode)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	demoLoop(sw1, sw2, ticker.C, sigCh, func(msg string) { log.Print(msg) })
	return nil
}

func sw1Config() logic.Config {
	return logic.Config{
		MinClick: logic.DefaultMinClick,
		Mode:     logic.AutoRepeat{Interval: logic.DefaultAutoRepeat},
	}
}

// newButtons creates sw1 in autorepeat mode and sw2 with the long-press
// defaults. A nil clock selects the system clock.
func newButtons(s1, s2 button.Switch, clock button.Clock) (sw1, sw2 *button.Button, err error) {
	sw1, err = button.New(s1, clock, sw1Config())
	if err != nil {
		return nil, nil, fmt.Errorf("sw1: %w", err)
	}
	sw2, err = button.New(s2, clock, logic.Defaults())
	if err != nil {
		return nil, nil, fmt.Errorf("sw2: %w", err)
	}
	return sw1, sw2, nil
}

// demoLoop queries both buttons on every tick until a signal arrives.
func demoLoop(sw1, sw2 *button.Button, tick <-chan time.Time, sig <-chan os.Signal, say func(string)) {
	reported := map[*button.Button]bool{}
	for {
		select {
		case s := <-sig:
			say(fmt.Sprintf("received %v, exiting", s))
			return

		case <-tick:
			if sw1.Clicked() {
				say(`sw1 says "click!"`)
			}
			if sw2.Clicked() {
				say(`sw2 says "click!"`)
			}
			if sw2.LongPressed() {
				say(`sw2 says "long press!"`)
			}

			// Report the first read error of each button once.
			for name, b := range map[string]*button.Button{"sw1": sw1, "sw2": sw2} {
				if err := b.Err(); err != nil && !reported[b] {
					reported[b] = true
					say(fmt.Sprintf("%s: gpio read error: %v", name, err))
				}
			}
		}
	}
}
