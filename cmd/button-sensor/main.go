// Command button-sensor polls push buttons on GPIO, classifies clicks,
// autorepeats and long presses, and publishes them to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/button-sensor/internal/config"
	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
	"github.com/sweeney/button-sensor/internal/status"
	"github.com/sweeney/button-sensor/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	poll := flag.Duration("poll", 10*time.Millisecond, "GPIO polling interval")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	backend := flag.String("gpio-backend", string(gpio.BackendCdev), "GPIO backend: cdev or rpio")
	chip := flag.String("chip", gpio.DefaultChip, "GPIO character device (cdev backend)")
	printState := flag.Bool("print-state", false, "Print current button state and exit")

	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfigFile(*configPath)
		if err != nil {
			log.Fatalf("fatal: %v", err)
		}
	}

	// Flags only override the file when given explicitly.
	var o config.FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "poll":
			v := int(poll.Milliseconds())
			o.PollMS = &v
		case "heartbeat":
			v := int(heartbeat.Milliseconds())
			o.HeartbeatMS = &v
		case "broker":
			o.Broker = broker
		case "http":
			o.HTTPAddr = httpAddr
		case "gpio-backend":
			o.Backend = backend
		case "chip":
			o.Chip = chip
		}
	})
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	for _, w := range cfg.Warnings() {
		log.Printf("warning: %s", w)
	}

	if err := run(cfg, *printState); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printState bool) error {
	specs, err := cfg.ButtonSpecs()
	if err != nil {
		return err
	}

	// Initialize GPIO
	gpioReader, err := gpio.Open(gpio.Backend(cfg.GPIO.Backend), cfg.GPIO.Chip, cfg.Pins())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer gpioReader.Close()

	// Print state mode
	if printState {
		closed, err := gpioReader.Read()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Println(formatState(specs, closed))
		return nil
	}

	// Initialize MQTT
	publisher, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		Backend:     cfg.GPIO.Backend,
		PollMs:      cfg.PollInterval().Milliseconds(),
		HeartbeatMs: cfg.HeartbeatInterval().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	// Start HTTP status server and websocket hub
	var hub *web.Hub
	if cfg.HTTP.Addr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub = web.NewHub()
		go hub.Run(ctx)

		srv := web.New(cfg.HTTP.Addr, tracker, hub)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = fmt.Sprintf("%s=%s", s.Name, s.Config.Mode)
	}
	log.Printf("started: poll=%v broker=%s heartbeat=%v buttons=[%s]",
		cfg.PollInterval(), cfg.MQTT.Broker, cfg.HeartbeatInterval(), strings.Join(names, " "))

	ticker := time.NewTicker(cfg.PollInterval())
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(gpioReader, specs, publisher, publisher, tracker, hub, cfg.HeartbeatInterval(), time.Now, ticker.C, sigCh)
}

// runLoop samples the switches on every tick and publishes classified events
// until a signal arrives. Button events are published from a separate
// goroutine; queued events are flushed before SHUTDOWN is sent.
// tracker, hub and mqttStatus may be nil.
func runLoop(gpioReader gpio.Reader, specs []logic.ButtonSpec, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, hub *web.Hub, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	startTime := now()
	detector, err := logic.NewDetector(specs, startTime)
	if err != nil {
		return fmt.Errorf("init detector: %w", err)
	}

	events := startEventPublisher(publisher, publishQueueSize)

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			events.close()
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				tracker.Update(detector.CurrentState())
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()
			closed, err := gpioReader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}

			classified := detector.Process(logic.Input{
				Closed: closed,
				Time:   t,
			})

			for _, event := range classified {
				if event.Held > 0 {
					log.Printf("event: %s %s (held %v)", event.Button, event.Type, event.Held)
				} else {
					log.Printf("event: %s %s", event.Button, event.Type)
				}
				events.enqueue(event)
				if tracker != nil {
					tracker.RecordEvent(event)
				}
				if hub != nil {
					hub.Broadcast(event)
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(detector.CurrentState())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}

			// Check for heartbeat
			if hbData := detector.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.Printf("heartbeat: uptime=%v %s", hbData.Uptime, formatCounts(detector.Buttons(), hbData.Counts))

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					snap := tracker.Snapshot()
					hbEvent.RawPayload = status.FormatStatusEvent(snap, "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.Printf("heartbeat publish error: %v", err)
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// formatState renders one reading as "sw1: open, sw2: closed".
func formatState(specs []logic.ButtonSpec, closed []bool) string {
	parts := make([]string, len(specs))
	for i, s := range specs {
		state := "open"
		if i < len(closed) && closed[i] {
			state = "closed"
		}
		parts[i] = fmt.Sprintf("%s: %s", s.Name, state)
	}
	return strings.Join(parts, ", ")
}

// formatCounts renders per-button counts in button order.
func formatCounts(names []string, counts map[string]logic.EventCounts) string {
	parts := make([]string, len(names))
	for i, n := range names {
		c := counts[n]
		parts[i] = fmt.Sprintf("%s(clicks=%d repeats=%d long=%d)", n, c.Clicks, c.Repeats, c.LongPresses)
	}
	return strings.Join(parts, " ")
}
