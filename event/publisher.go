// Package event provides the in-process pub/sub bus used for connection
// lifecycle notifications and configuration reloads.
package event

import (
	"fmt"
	"sync"
	"time"

	"github.com/UlusTech/nmc/log"
)

// Publisher owns a set of named topics. A topic must be created before
// subscribers register or payloads are published to it.
type Publisher struct {
	lock   sync.RWMutex
	topics map[string]*Topic
}

// NewPublisher returns a Publisher with the built-in topics pre-created.
func NewPublisher() *Publisher {
	p := &Publisher{topics: make(map[string]*Topic)}
	for _, name := range []string{ConnOpened, ConnClosed, ReloadConfig} {
		_ = p.NewTopic(name, time.Second)
	}
	return p
}

// NewTopic creates a topic. Creating an existing topic is an error.
func (p *Publisher) NewTopic(topicName string, timeout time.Duration) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	if _, ok := p.topics[topicName]; ok {
		return fmt.Errorf("topic %s already created", topicName)
	}
	p.topics[topicName] = &Topic{
		timeout:     timeout,
		subscribers: []Subscriber{},
	}
	return nil
}

// RegisterSubscriber appends a subscriber to a topic.
func (p *Publisher) RegisterSubscriber(topicName string, fn Subscriber) error {
	p.lock.Lock()
	defer p.lock.Unlock()

	topic, ok := p.topics[topicName]
	if !ok {
		return fmt.Errorf("topic %s not created", topicName)
	}
	topic.subscribers = append(topic.subscribers, fn)
	log.Debug().Str("topic", topicName).Int("subscribers", len(topic.subscribers)).Msg("subscriber registered")
	return nil
}

// Publish delivers a payload to every subscriber of the topic and waits for
// all of them to return. Subscribers run concurrently; they must not block
// on connection processing paths.
func (p *Publisher) Publish(topicName string, payload any) error {
	p.lock.RLock()
	defer p.lock.RUnlock()

	topic, ok := p.topics[topicName]
	if !ok {
		return fmt.Errorf("topic %s not created", topicName)
	}

	var wg sync.WaitGroup
	for _, sub := range topic.subscribers {
		wg.Add(1)
		go func(fn Subscriber) {
			defer wg.Done()
			fn(payload)
		}(sub)
	}
	wg.Wait()
	return nil
}
