package main

import (
	"log"

	"github.com/sweeney/button-sensor/internal/logic"
	"github.com/sweeney/button-sensor/internal/mqtt"
)

// publishQueueSize bounds how many events may wait for a slow broker.
const publishQueueSize = 64

// eventPublisher hands button events to a goroutine so a slow broker cannot
// stall GPIO polling.
type eventPublisher struct {
	publisher mqtt.Publisher
	queue     chan logic.Event
	done      chan struct{}
}

func startEventPublisher(publisher mqtt.Publisher, size int) *eventPublisher {
	p := &eventPublisher{
		publisher: publisher,
		queue:     make(chan logic.Event, size),
		done:      make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *eventPublisher) run() {
	defer close(p.done)
	for event := range p.queue {
		if err := p.publisher.Publish(event); err != nil {
			log.Printf("publish error: %v", err)
			// Don't crash on publish failure
		}
	}
}

// enqueue never blocks. Events are dropped when the queue is full.
func (p *eventPublisher) enqueue(event logic.Event) {
	select {
	case p.queue <- event:
	default:
		log.Printf("publish queue full, dropping %s %s", event.Button, event.Type)
	}
}

// close publishes whatever is queued and waits for the goroutine to exit.
func (p *eventPublisher) close() {
	close(p.queue)
	<-p.done
}
