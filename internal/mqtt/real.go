package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/button-sensor/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	bufferCapacity = 256
)

// pahoClient is the subset of paho.Client used by RealPublisher.
type pahoClient interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the broker is unreachable are kept in a ring buffer and replayed on
// (re)connect.
type RealPublisher struct {
	client pahoClient
	prefix string

	// mu guards buf and the flags below. send holds it across the connection
	// check and the push so a message cannot land in the buffer after
	// onConnect has drained it.
	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // true once the first connection succeeded
	replaying bool // onConnect is draining buf; new messages queue behind it
}

// NewRealPublisher creates a publisher for the given broker. The broker does
// not have to be reachable yet: the client keeps retrying in the background
// and messages are buffered until it connects.
func NewRealPublisher(broker, clientID, prefix string) (*RealPublisher, error) {
	p := &RealPublisher{
		prefix: prefix,
		buf:    newRingBuffer(bufferCapacity),
	}

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "CONNECTION_LOST"})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(SystemTopic(prefix), will, 1, true).
		SetOnConnectHandler(func(paho.Client) { go p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	client := paho.NewClient(opts)
	p.client = client

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, buffering until connected", broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// Publish sends a button event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	return p.send(bufferedMsg{topic: EventTopic(p.prefix, event.Button), payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return p.send(bufferedMsg{topic: SystemTopic(p.prefix), payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.len()
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if p.replaying || !p.client.IsConnected() {
		p.buf.push(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.publish(msg); err != nil {
		p.mu.Lock()
		p.buf.push(msg)
		p.mu.Unlock()
		return err
	}
	return nil
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// onConnect replays buffered messages and, after a reconnect, announces it.
// Messages sent during the replay are buffered and drained in a later pass,
// so they cannot overtake older ones.
func (p *RealPublisher) onConnect() {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	p.replaying = true
	p.mu.Unlock()

	replayed := 0
	for {
		p.mu.Lock()
		pending, dropped := p.buf.drainAll()
		if len(pending) == 0 {
			p.replaying = false
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()

		if dropped > 0 {
			log.Printf("mqtt: %d messages were dropped while disconnected", dropped)
		}
		for i, msg := range pending {
			if err := p.publish(msg); err != nil {
				log.Printf("mqtt: replay failed: %v", err)
				p.mu.Lock()
				p.buf.requeue(pending[i:])
				p.replaying = false
				p.mu.Unlock()
				return
			}
			replayed++
		}
	}
	if replayed > 0 {
		log.Printf("mqtt: connected, replayed %d buffered messages", replayed)
	}

	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
			log.Printf("mqtt: publish reconnect event: %v", err)
		}
	}
}
