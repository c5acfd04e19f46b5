package mqtingestor

import (
	"sync"

	mqtmodels "gitlab.com/maplesense1/smarthome.mqtt_server/src/production/MQT.Models"
)

// ChannelBuffer holds the most recent reading per channel. It is the only state
// shared between the ingestion callbacks and the flush loop.
type ChannelBuffer struct {
	mu    sync.Mutex
	slots [len(mqtmodels.Channels)]*mqtmodels.Reading
}

func NewChannelBuffer() *ChannelBuffer {
	return &ChannelBuffer{}
}

// Set overwrites the slot for channel. Last write wins regardless of the
// reading's own timestamp. Unknown channels are ignored and reported false.
func (b *ChannelBuffer) Set(channel mqtmodels.Channel, r mqtmodels.Reading) bool {
	idx := channel.Index()
	if idx < 0 {
		return false
	}
	r.Channel = channel
	stored := cloneReading(r)

	b.mu.Lock()
	b.slots[idx] = &stored
	b.mu.Unlock()
	return true
}

// Drain returns every filled slot in channel order and empties the buffer
func (b *ChannelBuffer) Drain() []mqtmodels.Reading {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]mqtmodels.Reading, 0, len(b.slots))
	for i, r := range b.slots {
		if r == nil {
			continue
		}
		out = append(out, *r)
		b.slots[i] = nil
	}
	return out
}

// Snapshot returns every filled slot in channel order and leaves them in place
func (b *ChannelBuffer) Snapshot() []mqtmodels.Reading {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]mqtmodels.Reading, 0, len(b.slots))
	for _, r := range b.slots {
		if r != nil {
			out = append(out, cloneReading(*r))
		}
	}
	return out
}

// Get returns the current reading for channel, if any
func (b *ChannelBuffer) Get(channel mqtmodels.Channel) (mqtmodels.Reading, bool) {
	idx := channel.Index()
	if idx < 0 {
		return mqtmodels.Reading{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots[idx] == nil {
		return mqtmodels.Reading{}, false
	}
	return cloneReading(*b.slots[idx]), true
}

// Restore puts a drained reading back only if its slot is still empty, so a
// newer reading is never overwritten by a retry.
func (b *ChannelBuffer) Restore(r mqtmodels.Reading) bool {
	idx := r.Channel.Index()
	if idx < 0 {
		return false
	}
	stored := cloneReading(r)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots[idx] != nil {
		return false
	}
	b.slots[idx] = &stored
	return true
}

func cloneReading(r mqtmodels.Reading) mqtmodels.Reading {
	if r.Value != nil {
		r.Value = mqtmodels.Float64(*r.Value)
	}
	return r
}
