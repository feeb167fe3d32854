package ros

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

// messageEvent carries one still-serialized payload plus the
// MessageEvent metadata built at handshake time, from a
// defaultSubscription up to its owning defaultSubscriber.
type messageEvent struct {
	bytes []byte
	event MessageEvent
}

// defaultSubscriber is the per-topic control loop: it tracks the
// current publisher set, opens/cancels one defaultSubscription per
// peer, and dispatches decoded messages to user callbacks via the
// node's job channel.
type defaultSubscriber struct {
	topic       string
	msgType     MessageType
	pubList     []string
	pubListChan chan []string

	msgChan         chan messageEvent
	callbacks       []interface{}
	addCallbackChan chan interface{}

	shutdownChan     chan struct{}
	disconnectedChan chan string

	cancel  map[string]context.CancelFunc
	uri2pub map[string]string

	tcpNoDelay bool
	refCount   int32
}

func newDefaultSubscriber(topic string, msgType MessageType, callback interface{}, opts ...SubscriberOption) *defaultSubscriber {
	sub := &defaultSubscriber{
		topic:            topic,
		msgType:          msgType,
		pubListChan:      make(chan []string, 10),
		msgChan:          make(chan messageEvent, 10),
		addCallbackChan:  make(chan interface{}, 10),
		shutdownChan:     make(chan struct{}),
		disconnectedChan: make(chan string, 10),
		cancel:           make(map[string]context.CancelFunc),
		uri2pub:          make(map[string]string),
	}
	if callback != nil {
		sub.callbacks = []interface{}{callback}
	}
	for _, opt := range opts {
		opt(sub)
	}
	return sub
}

// start runs the subscriber's control loop until shutdownChan fires.
func (sub *defaultSubscriber) start(wg *sync.WaitGroup, master *masterClient, nodeAPIURI string, jobChan chan func(), logger Logger) {
	wg.Add(1)
	defer wg.Done()

	ctx, cancelAll := context.WithCancel(context.Background())
	defer cancelAll()

	log := logger.WithField("topic", sub.topic)
	log.Debug("subscriber control loop started")

	for {
		select {
		case list := <-sub.pubListChan:
			sub.updatePublisherSet(ctx, list, master.callerID, log)

		case pubURI := <-sub.disconnectedChan:
			if pub, ok := sub.uri2pub[pubURI]; ok {
				if cancel, ok := sub.cancel[pub]; ok {
					cancel()
					delete(sub.cancel, pub)
				}
				delete(sub.uri2pub, pubURI)
			}

		case callback := <-sub.addCallbackChan:
			sub.callbacks = append(sub.callbacks, callback)

		case evt := <-sub.msgChan:
			sub.dispatch(evt, jobChan, log)

		case <-sub.shutdownChan:
			for _, cancel := range sub.cancel {
				cancel()
			}
			// Detached: teardown must not cancel the future doing it.
			go func() {
				if err := master.unregisterSubscriber(sub.topic, nodeAPIURI); err != nil {
					log.Warnf("unregisterSubscriber failed: %v", err)
				}
			}()
			close(sub.shutdownChan)
			return
		}
	}
}

// updatePublisherSet computes the set difference against the current
// peer list: cancel connections to publishers no longer advertised,
// and request/open one new connection per newly advertised publisher.
func (sub *defaultSubscriber) updatePublisherSet(ctx context.Context, list []string, nodeID string, log Logger) {
	deadPubs := setDifference(sub.pubList, list)
	newPubs := setDifference(list, sub.pubList)
	sub.pubList = list

	for _, pub := range deadPubs {
		if cancel, ok := sub.cancel[pub]; ok {
			cancel()
			delete(sub.cancel, pub)
		}
	}

	for _, pub := range newPubs {
		uri, err := requestTopicURI(pub, nodeID, sub.topic)
		if err != nil {
			log.Errorf("requestTopic against %s failed: %v", pub, err)
			continue
		}
		subCtx, cancel := context.WithCancel(ctx)
		sub.uri2pub[uri] = pub
		sub.cancel[pub] = cancel
		subscription := newDefaultSubscription(uri, sub.topic, sub.msgType, nodeID, sub.msgChan, sub.disconnectedChan, sub.tcpNoDelay)
		subscription.start(subCtx, log)
	}
}

// requestTopicURI asks a publisher's slave API which (host, port) to
// connect TCPROS to.
func requestTopicURI(pubURI, nodeID, topic string) (string, error) {
	protocols := []interface{}{[]interface{}{"TCPROS"}}
	result, err := callRosAPI(pubURI, "requestTopic", nodeID, topic, protocols)
	if err != nil {
		return "", err
	}
	params, ok := result.([]interface{})
	if !ok || len(params) < 3 {
		return "", ServerErrorf("requestTopic: malformed response %#v", result)
	}
	name, _ := params[0].(string)
	if name != "TCPROS" {
		return "", Unexpectedf("publisher does not support TCPROS, offered %q", name)
	}
	host, _ := params[1].(string)
	port, ok := toInt(params[2])
	if !ok {
		return "", ServerErrorf("requestTopic: bad port %#v", params[2])
	}
	return fmt.Sprintf("%s:%d", host, port), nil
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int32:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	default:
		return 0, false
	}
}

// dispatch deserializes evt and invokes every registered callback,
// matching 0/1/2-argument callback shapes by reflection.
func (sub *defaultSubscriber) dispatch(evt messageEvent, jobChan chan func(), log Logger) {
	callbacks := make([]interface{}, len(sub.callbacks))
	copy(callbacks, sub.callbacks)

	job := func() {
		msg := sub.msgType.NewMessage()
		reader := bytes.NewReader(evt.bytes)
		if err := msg.Deserialize(reader); err != nil {
			log.Errorf("failed to deserialize message, dropping: %v", err)
			return
		}
		args := []reflect.Value{reflect.ValueOf(msg), reflect.ValueOf(evt.event)}
		for _, callback := range callbacks {
			fn := reflect.ValueOf(callback)
			n := fn.Type().NumIn()
			if n <= len(args) {
				fn.Call(args[0:n])
			}
		}
	}

	select {
	case jobChan <- job:
	case <-time.After(3 * time.Second):
		log.Debug("callback job enqueue timed out, dropping message")
	}
}

func (sub *defaultSubscriber) forceShutdown() {
	select {
	case <-sub.shutdownChan:
	default:
		sub.shutdownChan <- struct{}{}
	}
}

func (sub *defaultSubscriber) GetNumPublishers() int {
	return len(sub.pubList)
}

func setDifference(have, want []string) []string {
	wantSet := make(map[string]bool, len(want))
	for _, w := range want {
		wantSet[w] = true
	}
	var removed []string
	for _, h := range have {
		if !wantSet[h] {
			removed = append(removed, h)
		}
	}
	return removed
}

// subHandle is the user-visible Subscriber returned from NewSubscriber;
// the underlying defaultSubscriber is torn down only when the last
// handle's Shutdown is called.
type subHandle struct {
	node *defaultNode
	name string
	sub  *defaultSubscriber
}

func (h *subHandle) GetNumPublishers() int { return h.sub.GetNumPublishers() }

func (h *subHandle) Shutdown() {
	if atomic.AddInt32(&h.sub.refCount, -1) > 0 {
		return
	}
	h.node.subscribersMutex.Lock()
	if current, ok := h.node.subscribers[h.name]; ok && current == h.sub {
		delete(h.node.subscribers, h.name)
	}
	h.node.subscribersMutex.Unlock()
	h.sub.forceShutdown()
}
