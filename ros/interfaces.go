package ros

import "time"

// Node is the per-process façade user code holds: it owns a node name,
// a master URI, an XML-RPC slave server, and the indexes of this
// process's publications, subscriptions and services.
type Node interface {
	// NewPublisher creates a publisher for the given topic and message
	// type, advertising it with the master the first time a topic name
	// is seen. Pass Latched() to replay the last message to every new
	// subscriber.
	NewPublisher(topic string, msgType MessageType, opts ...PublisherOption) Publisher

	// NewPublisherWithCallbacks is NewPublisher plus per-subscriber
	// callbacks. connectCallback is invoked in its own goroutine after each
	// successful subscriber handshake, so it need not return immediately.
	// disconnectCallback is accepted but never invoked: a subscriber
	// dropped from the fan-out set triggers no callback.
	NewPublisherWithCallbacks(topic string, msgType MessageType, connectCallback, disconnectCallback func(SingleSubscriberPublisher), opts ...PublisherOption) Publisher

	// NewSubscriber subscribes to topic. callback may take 0, 1 or 2
	// arguments: the generated message type alone, or the message
	// followed by a MessageEvent.
	NewSubscriber(topic string, msgType MessageType, callback interface{}, opts ...SubscriberOption) Subscriber

	// NewServiceClient builds a client for calling service.
	NewServiceClient(service string, srvType ServiceType, options ...ServiceClientOption) ServiceClient

	// NewServiceServer advertises a service, invoking callback for every
	// incoming request. callback must have the shape
	// func(req *ReqType) (*ResType, bool) matching srvType.
	NewServiceServer(service string, srvType ServiceType, callback interface{}, options ...ServiceServerOption) ServiceServer

	OK() bool
	SpinOnce()
	Spin()
	Shutdown()

	GetParam(name string) (interface{}, error)
	SetParam(name string, value interface{}) error
	HasParam(name string) (bool, error)
	SearchParam(name string) (string, error)
	DeleteParam(name string) error

	Logger() Logger
	SetLogger(logger Logger)

	NonRosArgs() []string
	Name() string
}

// NodeOption customizes a node at construction time.
type NodeOption func(n *defaultNode)

// NodeServiceClientOptions sets the default options applied to every
// service client this node creates, unless overridden per-call.
func NodeServiceClientOptions(opts ...ServiceClientOption) NodeOption {
	return func(n *defaultNode) { n.srvClientOpts = opts }
}

// NodeServiceServerOptions sets the default options applied to every
// service server this node creates, unless overridden per-call.
func NodeServiceServerOptions(opts ...ServiceServerOption) NodeOption {
	return func(n *defaultNode) { n.srvServerOpts = opts }
}

// NewNode constructs a Node: parses args for remappings, resolves the
// node's namespace and private name, binds an XML-RPC slave server, and
// applies any opts before returning.
func NewNode(name string, args []string, opts ...NodeOption) (Node, error) {
	return newDefaultNode(name, args, opts...)
}

// Publisher is the user handle for an advertised topic. Dropping the
// last Publisher handle for a topic tears the Publication down.
type Publisher interface {
	Publish(msg Message)
	GetNumSubscribers() int
	Shutdown()
}

// SingleSubscriberPublisher is passed to the connect callback
// registered via NewPublisherWithCallbacks: it lets the callback
// address the one subscriber that just connected.
type SingleSubscriberPublisher interface {
	Publish(msg Message)
	GetSubscriberName() string
	GetTopic() string
}

// Subscriber is the user handle for a subscribed topic.
type Subscriber interface {
	GetNumPublishers() int
	Shutdown()
}

// MessageEvent is the optional second argument to a subscriber
// callback, carrying the publisher's caller ID, receipt time, and the
// full connection header it presented at handshake.
type MessageEvent struct {
	PublisherName    string
	ReceiptTime      time.Time
	ConnectionHeader map[string]string
}

// ServiceServer is the user handle for an advertised service.
type ServiceServer interface {
	Shutdown()
}

// ServiceClient calls a remote service.
type ServiceClient interface {
	Call(srv Service) error
	Shutdown()
}

// ServiceClientOption customizes a single ServiceClient.
type ServiceClientOption func(*serviceClientConfig)

type serviceClientConfig struct {
	persistent bool
	probe      bool
}

// Persistent keeps the TCP connection to the service provider open
// across calls instead of reconnecting for every Call, matching the
// "persistent" connection-header flag.
func Persistent() ServiceClientOption {
	return func(c *serviceClientConfig) { c.persistent = true }
}

// Probe sends the "probe=1" capability-check header and makes Call stop
// after the header exchange instead of sending a request.
func Probe() ServiceClientOption {
	return func(c *serviceClientConfig) { c.probe = true }
}

// ServiceServerOption customizes a single ServiceServer.
type ServiceServerOption func(*serviceServerConfig)

type serviceServerConfig struct{}

// PublisherOption customizes a single Publisher/Publication.
type PublisherOption func(*defaultPublisher)

// Latched marks a publication as latching: a subscriber connecting
// after the first publish receives the most recent message before any
// subsequent one.
func Latched() PublisherOption {
	return func(p *defaultPublisher) { p.latched = true }
}

// QueueSize overrides the default bounded publish queue capacity.
func QueueSize(n int) PublisherOption {
	return func(p *defaultPublisher) { p.queueSize = n }
}

// TCPNoDelay sets tcp_nodelay=1 in the publisher's connection header and
// disables Nagle's algorithm on every accepted subscriber socket.
func TCPNoDelay() PublisherOption {
	return func(p *defaultPublisher) { p.tcpNoDelay = true }
}

// SubscriberOption customizes a single Subscriber/subscription.
type SubscriberOption func(*defaultSubscriber)

// SubscriberTCPNoDelay sets tcp_nodelay=1 in the subscriber's connection
// header and disables Nagle's algorithm on the socket once connected.
func SubscriberTCPNoDelay() SubscriberOption {
	return func(s *defaultSubscriber) { s.tcpNoDelay = true }
}
