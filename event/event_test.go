package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewTopic(t *testing.T) {
	p := NewPublisher()

	err := p.NewTopic("custom-topic", time.Second)
	assert.NoError(t, err)

	err = p.NewTopic("custom-topic", time.Second)
	assert.Error(t, err, "should reject a duplicate topic")

	err = p.NewTopic(ConnOpened, time.Second)
	assert.Error(t, err, "built-in topics are pre-created")
}

func TestRegisterSubscriber(t *testing.T) {
	p := NewPublisher()

	err := p.RegisterSubscriber("missing", func(any) {})
	assert.Error(t, err)

	err = p.RegisterSubscriber(ConnClosed, func(any) {})
	assert.NoError(t, err)
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	p := NewPublisher()

	var mu sync.Mutex
	got := []uint64{}
	for i := 0; i < 3; i++ {
		err := p.RegisterSubscriber(ConnOpened, func(param any) {
			ev := param.(*ConnEvent)
			mu.Lock()
			got = append(got, ev.ConnID)
			mu.Unlock()
		})
		assert.NoError(t, err)
	}

	err := p.Publish(ConnOpened, &ConnEvent{ConnID: 42, Remote: "127.0.0.1:51111"})
	assert.NoError(t, err)
	assert.Len(t, got, 3, "every subscriber must see the event")
	for _, id := range got {
		assert.Equal(t, uint64(42), id)
	}
}

func TestPublishUnknownTopic(t *testing.T) {
	p := NewPublisher()
	assert.Error(t, p.Publish("missing", nil))
}
