package ros

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ros-go/rosgo/xmlrpc"
)

const (
	errorStatus   int32 = -1
	failureStatus int32 = 0
	successStatus int32 = 1
	remapSep            = ":="

	getBusStatsMethod      = "getBusStats"
	getBusInfoMethod       = "getBusInfo"
	getMasterURIMethod     = "getMasterUri"
	getPidMethod           = "getPid"
	getSubscriptionsMethod = "getSubscriptions"
	getPublicationsMethod  = "getPublications"
	paramUpdateMethod      = "paramUpdate"
	publisherUpdateMethod  = "publisherUpdate"
	requestTopicMethod     = "requestTopic"
	shutdownMethod         = "shutdown"
)

// processArguments splits ROS command-line arguments into remappings
// ("key:=value"), private params ("_key:=value"), specials
// ("__key:=value"), and anything left over for the application itself.
func processArguments(args []string) (mapping NameMap, params NameMap, specials NameMap, rest []string) {
	mapping = make(NameMap)
	params = make(NameMap)
	specials = make(NameMap)
	for _, arg := range args {
		components := strings.SplitN(arg, remapSep, 2)
		if len(components) == 2 {
			key, value := components[0], components[1]
			switch {
			case strings.HasPrefix(key, "__"):
				specials[key] = value
			case strings.HasPrefix(key, "_"):
				params[key[1:]] = value
			default:
				mapping[key] = value
			}
		} else {
			rest = append(rest, arg)
		}
	}
	return
}

// defaultNode implements Node. Exactly one goroutine (the user's own)
// is expected to call into it directly; background work communicates
// back through jobChan, drained by Spin/SpinOnce.
type defaultNode struct {
	name           string
	namespace      string
	qualifiedName  string
	masterURI      string
	xmlrpcURI      string
	xmlrpcListener net.Listener
	xmlrpcHandler  *xmlrpc.Handler

	subscribers      map[string]*defaultSubscriber
	subscribersMutex sync.RWMutex
	publishers       map[string]*defaultPublisher
	publishersMutex  sync.RWMutex
	servers          map[string]*defaultServiceServer
	serversMutex     sync.RWMutex

	jobChan chan func()

	logger Logger

	ok      bool
	okMutex sync.RWMutex

	waitGroup sync.WaitGroup

	homeDir  string
	logDir   string
	hostname string
	listenIP string

	resolver   *nameResolver
	nonRosArgs []string

	master *masterClient

	srvClientOpts []ServiceClientOption
	srvServerOpts []ServiceServerOption
}

func newDefaultNode(name string, args []string, opts ...NodeOption) (*defaultNode, error) {
	node := new(defaultNode)

	namespace, nodeName, err := qualifyNodeName(name)
	if err != nil {
		return nil, err
	}

	mapping, params, specials, rest := processArguments(args)

	node.homeDir = filepath.Join(os.Getenv("HOME"), ".ros")
	if home := os.Getenv("ROS_HOME"); home != "" {
		node.homeDir = home
	}

	node.name = nodeName
	if v, ok := specials["__name"]; ok {
		node.name = v
	}

	node.namespace = namespace
	if ns := os.Getenv("ROS_NAMESPACE"); ns != "" {
		node.namespace = ns
	}
	if v, ok := specials["__ns"]; ok {
		node.namespace = v
	}

	node.logDir = filepath.Join(node.homeDir, "log")
	if dir := os.Getenv("ROS_LOG_DIR"); dir != "" {
		node.logDir = dir
	}
	if v, ok := specials["__log"]; ok {
		node.logDir = v
	}

	hostname, onlyLocalhost := determineHost()
	if v, ok := specials["__hostname"]; ok {
		hostname = v
		onlyLocalhost = v == "localhost"
	} else if v, ok := specials["__ip"]; ok {
		hostname = v
		onlyLocalhost = v == "::1" || strings.HasPrefix(v, "127.")
	}
	node.hostname = hostname
	if onlyLocalhost {
		node.listenIP = "127.0.0.1"
	} else {
		node.listenIP = "0.0.0.0"
	}

	node.masterURI = os.Getenv("ROS_MASTER_URI")
	if v, ok := specials["__master"]; ok {
		node.masterURI = v
	}

	node.resolver = newNameResolver(node.namespace, node.name, mapping)
	node.nonRosArgs = rest

	node.qualifiedName = node.namespace + "/" + node.name
	if node.namespace == "/" {
		node.qualifiedName = node.namespace + node.name
	}
	node.master = newMasterClient(node.masterURI, node.qualifiedName)

	node.subscribers = make(map[string]*defaultSubscriber)
	node.publishers = make(map[string]*defaultPublisher)
	node.servers = make(map[string]*defaultServiceServer)
	node.jobChan = make(chan func(), 100)
	node.ok = true
	node.logger = NewDefaultLogger()

	for _, opt := range opts {
		opt(node)
	}

	for k, v := range params {
		value, err := loadParamFromString(v)
		if err != nil {
			value = v
		}
		if _, err := callRosAPI(node.masterURI, "setParam", node.qualifiedName, k, value); err != nil {
			return nil, err
		}
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("%s:0", node.listenIP))
	if err != nil {
		node.logger.Errorf("NewNode: %v", err)
		return nil, err
	}
	_, port, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		return nil, err
	}
	node.xmlrpcURI = fmt.Sprintf("http://%s:%s", node.hostname, port)
	node.xmlrpcListener = listener

	methods := map[string]xmlrpc.Method{
		getBusStatsMethod:      func(callerID string) (interface{}, error) { return node.getBusStats(callerID) },
		getBusInfoMethod:       func(callerID string) (interface{}, error) { return node.getBusInfo(callerID) },
		getMasterURIMethod:     func(callerID string) (interface{}, error) { return node.getMasterURI(callerID) },
		getPidMethod:           func(callerID string) (interface{}, error) { return node.getPid(callerID) },
		getSubscriptionsMethod: func(callerID string) (interface{}, error) { return node.getSubscriptions(callerID) },
		getPublicationsMethod:  func(callerID string) (interface{}, error) { return node.getPublications(callerID) },
		paramUpdateMethod: func(callerID string, key string, value interface{}) (interface{}, error) {
			return node.paramUpdate(callerID, key, value)
		},
		publisherUpdateMethod: func(callerID string, topic string, publishers []interface{}) (interface{}, error) {
			return node.publisherUpdate(callerID, topic, publishers)
		},
		requestTopicMethod: func(callerID string, topic string, protocols []interface{}) (interface{}, error) {
			return node.requestTopic(callerID, topic, protocols)
		},
		shutdownMethod: func(callerID string, msg string) (interface{}, error) {
			return node.shutdown(callerID, msg)
		},
	}
	node.xmlrpcHandler = xmlrpc.NewHandler(methods)
	go http.Serve(node.xmlrpcListener, node.xmlrpcHandler)
	node.logger.Debugf("Started %s, xmlrpc at %s", node.qualifiedName, node.xmlrpcURI)
	return node, nil
}

func (node *defaultNode) OK() bool {
	node.okMutex.RLock()
	defer node.okMutex.RUnlock()
	return node.ok
}

func (node *defaultNode) getBusStats(callerID string) (interface{}, error) {
	return buildRosAPIResult(errorStatus, "not implemented", 0), nil
}

func (node *defaultNode) getBusInfo(callerID string) (interface{}, error) {
	return buildRosAPIResult(errorStatus, "not implemented", 0), nil
}

func (node *defaultNode) getMasterURI(callerID string) (interface{}, error) {
	return buildRosAPIResult(successStatus, "success", node.masterURI), nil
}

func (node *defaultNode) shutdown(callerID string, msg string) (interface{}, error) {
	node.okMutex.Lock()
	node.ok = false
	node.okMutex.Unlock()
	return buildRosAPIResult(successStatus, "success", 0), nil
}

func (node *defaultNode) getPid(callerID string) (interface{}, error) {
	return buildRosAPIResult(successStatus, "success", os.Getpid()), nil
}

func (node *defaultNode) getSubscriptions(callerID string) (interface{}, error) {
	node.subscribersMutex.RLock()
	defer node.subscribersMutex.RUnlock()
	result := []interface{}{}
	for t, s := range node.subscribers {
		result = append(result, []interface{}{t, s.msgType.Name()})
	}
	return buildRosAPIResult(successStatus, "success", result), nil
}

func (node *defaultNode) getPublications(callerID string) (interface{}, error) {
	node.publishersMutex.RLock()
	defer node.publishersMutex.RUnlock()
	result := []interface{}{}
	for t, p := range node.publishers {
		result = append(result, []interface{}{t, p.msgType.Name()})
	}
	return buildRosAPIResult(successStatus, "success", result), nil
}

func (node *defaultNode) paramUpdate(callerID string, key string, value interface{}) (interface{}, error) {
	return buildRosAPIResult(errorStatus, "not implemented", 0), nil
}

func (node *defaultNode) publisherUpdate(callerID string, topic string, publishers []interface{}) (interface{}, error) {
	node.subscribersMutex.RLock()
	sub, ok := node.subscribers[topic]
	node.subscribersMutex.RUnlock()
	if !ok {
		node.logger.Debugf("publisherUpdate() called for unknown topic %s", topic)
		return buildRosAPIResult(failureStatus, "no such topic", 0), nil
	}
	pubURIs := make([]string, len(publishers))
	for i, uri := range publishers {
		pubURIs[i], _ = uri.(string)
	}
	sub.pubListChan <- pubURIs
	return buildRosAPIResult(successStatus, "success", 0), nil
}

func (node *defaultNode) requestTopic(callerID string, topic string, protocols []interface{}) (interface{}, error) {
	node.publishersMutex.RLock()
	pub, ok := node.publishers[topic]
	node.publishersMutex.RUnlock()
	if !ok {
		node.logger.Debugf("requestTopic() called for unpublished topic %s", topic)
		return buildRosAPIResult(failureStatus, "no such topic", 0), nil
	}

	for _, v := range protocols {
		protocolParams, ok := v.([]interface{})
		if !ok || len(protocolParams) == 0 {
			continue
		}
		protocolName, _ := protocolParams[0].(string)
		if protocolName != "TCPROS" {
			continue
		}
		host, portStr := pub.hostAndPort()
		port, err := strconv.ParseInt(portStr, 10, 32)
		if err != nil {
			return nil, err
		}
		selected := []interface{}{"TCPROS", host, int32(port)}
		return buildRosAPIResult(successStatus, "success", selected), nil
	}
	return buildRosAPIResult(failureStatus, "no supported protocol", 0), nil
}

func (node *defaultNode) NewPublisher(topic string, msgType MessageType, opts ...PublisherOption) Publisher {
	return node.NewPublisherWithCallbacks(topic, msgType, nil, nil, opts...)
}

func (node *defaultNode) NewPublisherWithCallbacks(topic string, msgType MessageType, connectCallback, disconnectCallback func(SingleSubscriberPublisher), opts ...PublisherOption) Publisher {
	node.publishersMutex.Lock()
	defer node.publishersMutex.Unlock()

	name := node.resolver.remap(topic)
	pub, ok := node.publishers[name]
	if !ok {
		newPub, err := newDefaultPublisher(node.logger, node.master, node.xmlrpcURI, node.listenIP, name, msgType, connectCallback, disconnectCallback, opts...)
		if err != nil {
			node.logger.Errorf("failed to start publisher for %s: %v", name, err)
			return nil
		}
		if _, err := node.master.registerPublisher(name, msgType.Name(), node.xmlrpcURI); err != nil {
			node.logger.Errorf("failed to register publisher for %s: %v", name, err)
			return nil
		}
		pub = newPub
		node.publishers[name] = pub
		go pub.start(&node.waitGroup)
	}
	atomic.AddInt32(&pub.refCount, 1)
	return &pubHandle{node: node, name: name, pub: pub}
}

func (node *defaultNode) NewSubscriber(topic string, msgType MessageType, callback interface{}, opts ...SubscriberOption) Subscriber {
	node.subscribersMutex.Lock()
	defer node.subscribersMutex.Unlock()

	name := node.resolver.remap(topic)
	sub, ok := node.subscribers[name]
	if !ok {
		publishers, err := node.master.registerSubscriber(name, msgType.Name(), node.xmlrpcURI)
		if err != nil {
			node.logger.Errorf("failed to register subscriber for %s: %v", name, err)
			return nil
		}

		sub = newDefaultSubscriber(name, msgType, callback, opts...)
		node.subscribers[name] = sub
		go sub.start(&node.waitGroup, node.master, node.xmlrpcURI, node.jobChan, node.logger)
		sub.pubListChan <- publishers
	} else {
		sub.addCallbackChan <- callback
	}
	atomic.AddInt32(&sub.refCount, 1)
	return &subHandle{node: node, name: name, sub: sub}
}

func (node *defaultNode) NewServiceClient(service string, srvType ServiceType, options ...ServiceClientOption) ServiceClient {
	name := node.resolver.remap(service)
	opts := append(append([]ServiceClientOption{}, node.srvClientOpts...), options...)
	return newDefaultServiceClient(node.logger, node.qualifiedName, node.masterURI, name, srvType, opts...)
}

func (node *defaultNode) NewServiceServer(service string, srvType ServiceType, handler interface{}, options ...ServiceServerOption) ServiceServer {
	node.serversMutex.Lock()
	defer node.serversMutex.Unlock()

	name := node.resolver.remap(service)
	if existing, ok := node.servers[name]; ok {
		existing.Shutdown()
	}

	server, err := newDefaultServiceServer(node, name, srvType, handler)
	if err != nil {
		node.logger.Errorf("failed to start service server for %s: %v", name, err)
		return nil
	}
	node.servers[name] = server
	return server
}

func (node *defaultNode) SpinOnce() {
	select {
	case job := <-node.jobChan:
		job()
	case <-time.After(10 * time.Millisecond):
	}
}

func (node *defaultNode) Spin() {
	for node.OK() {
		select {
		case job := <-node.jobChan:
			job()
		case <-time.After(1000 * time.Millisecond):
		}
	}
}

func (node *defaultNode) Shutdown() {
	node.okMutex.Lock()
	node.ok = false
	node.okMutex.Unlock()

	node.subscribersMutex.Lock()
	for _, s := range node.subscribers {
		s.forceShutdown()
	}
	node.subscribersMutex.Unlock()

	node.publishersMutex.Lock()
	for _, p := range node.publishers {
		p.shutdownNow()
	}
	node.publishersMutex.Unlock()

	node.serversMutex.Lock()
	for _, s := range node.servers {
		s.Shutdown()
	}
	node.serversMutex.Unlock()

	node.waitGroup.Wait()
	node.xmlrpcListener.Close()
	node.xmlrpcHandler.WaitForShutdown()
}

func (node *defaultNode) GetParam(key string) (interface{}, error) {
	name := node.resolver.remap(key)
	return callRosAPI(node.masterURI, "getParam", node.qualifiedName, name)
}

func (node *defaultNode) SetParam(key string, value interface{}) error {
	name := node.resolver.remap(key)
	_, err := callRosAPI(node.masterURI, "setParam", node.qualifiedName, name, value)
	return err
}

func (node *defaultNode) HasParam(key string) (bool, error) {
	name := node.resolver.remap(key)
	result, err := callRosAPI(node.masterURI, "hasParam", node.qualifiedName, name)
	if err != nil {
		return false, err
	}
	has, _ := result.(bool)
	return has, nil
}

func (node *defaultNode) SearchParam(key string) (string, error) {
	result, err := callRosAPI(node.masterURI, "searchParam", node.qualifiedName, key)
	if err != nil {
		return "", err
	}
	found, _ := result.(string)
	return found, nil
}

func (node *defaultNode) DeleteParam(key string) error {
	name := node.resolver.remap(key)
	_, err := callRosAPI(node.masterURI, "deleteParam", node.qualifiedName, name)
	return err
}

func (node *defaultNode) Logger() Logger          { return node.logger }
func (node *defaultNode) SetLogger(logger Logger) { node.logger = logger }
func (node *defaultNode) NonRosArgs() []string     { return node.nonRosArgs }
func (node *defaultNode) Name() string             { return node.name }

func loadParamFromString(s string) (interface{}, error) {
	var value interface{}
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}
