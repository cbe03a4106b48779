package mqtt

import "log"

// bufferedMsg is a serialized MQTT message waiting for a broker connection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO of unsent messages. When full, the
// oldest message is dropped. Not safe for concurrent use; RealPublisher
// guards it with its mutex.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // messages lost since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	capacity := len(r.buf)
	if r.count == capacity {
		if r.dropped == 0 {
			log.Printf("mqtt: buffer full (%d messages), dropping oldest", capacity)
		}
		r.dropped++
		// head already points at the oldest entry
		r.buf[r.head] = msg
		r.head = (r.head + 1) % capacity
		return
	}
	r.buf[r.head] = msg
	r.head = (r.head + 1) % capacity
	r.count++
}

// requeue puts msgs back ahead of anything buffered since they were drained,
// keeping the newest messages if the total exceeds capacity.
func (r *ringBuffer) requeue(msgs []bufferedMsg) {
	if len(msgs) == 0 {
		return
	}
	dropped := r.dropped
	newer, _ := r.drainAll()
	all := append(append([]bufferedMsg(nil), msgs...), newer...)
	if over := len(all) - len(r.buf); over > 0 {
		dropped += over
		all = all[over:]
	}
	for _, m := range all {
		r.push(m)
	}
	r.dropped = dropped
}

// drainAll removes and returns every buffered message, oldest first, along
// with how many messages were dropped for lack of space.
func (r *ringBuffer) drainAll() ([]bufferedMsg, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.count == 0 {
		r.head = 0
		return nil, dropped
	}

	capacity := len(r.buf)
	out := make([]bufferedMsg, r.count)
	start := (r.head - r.count + capacity) % capacity
	for i := range out {
		out[i] = r.buf[(start+i)%capacity]
	}

	r.count = 0
	r.head = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
