package coord

import "github.com/redis/go-redis/v9"

// redisSubscription adapts *redis.PubSub to the Subscription contract,
// relaying payloads as raw bytes so callers stay decoupled from go-redis.
type redisSubscription struct {
	pubsub *redis.PubSub
	ch     chan []byte
	done   chan struct{}
}

func (s *redisSubscription) Messages() <-chan []byte {
	if s.done == nil {
		s.done = make(chan struct{})
		go s.pump()
	}
	return s.ch
}

func (s *redisSubscription) pump() {
	defer close(s.ch)
	for {
		select {
		case msg, ok := <-s.pubsub.Channel():
			if !ok {
				return
			}
			select {
			case s.ch <- []byte(msg.Payload):
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Close() error {
	if s.done != nil {
		close(s.done)
	}
	return s.pubsub.Close()
}

var _ Subscription = (*redisSubscription)(nil)
