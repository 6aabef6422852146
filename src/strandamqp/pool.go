package strandamqp

import (
	"sync"

	"github.com/streadway/amqp"
)

// channelPool reuses AMQP channels across calls. Channels are multiplexed
// over a single connection but are expensive enough to open that publishing
// hot paths should not create one per request.
type channelPool struct {
	broker *amqp.Connection
	size   uint

	mutex    sync.Mutex
	channels []*amqp.Channel
}

func newChannelPool(broker *amqp.Connection, size uint) *channelPool {
	return &channelPool{
		broker: broker,
		size:   size,
	}
}

// Get fetches a channel from the pool, opening a new one if the pool is
// empty.
func (p *channelPool) Get() (*amqp.Channel, error) {
	p.mutex.Lock()

	if n := len(p.channels); n > 0 {
		channel := p.channels[n-1]
		p.channels[n-1] = nil
		p.channels = p.channels[:n-1]
		p.mutex.Unlock()

		return channel, nil
	}

	p.mutex.Unlock()

	return p.broker.Channel()
}

// Put returns a channel to the pool. Channels in an unknown state must be
// closed instead of returned.
func (p *channelPool) Put(channel *amqp.Channel) {
	if channel == nil {
		return
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if uint(len(p.channels)) >= p.size {
		go channel.Close()
		return
	}

	p.channels = append(p.channels, channel)
}
