package ros

import (
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"
)

// NameMap is the remapping/param table parsed out of command-line
// arguments of the form "key:=value", matching rosgo's processArguments.
type NameMap map[string]string

var validNameComponent = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// isValidGraphName reports whether name satisfies the canonical ROS name
// grammar: an absolute ("/a/b"), private ("~a/b") or relative ("a/b")
// slash-separated path of identifier-like components.
func isValidGraphName(name string) bool {
	if name == "" {
		return false
	}
	body := name
	if strings.HasPrefix(body, "~") || strings.HasPrefix(body, "/") {
		body = body[1:]
	}
	if body == "" {
		// "/" and "~" alone are valid (root namespace / private root).
		return true
	}
	for _, part := range strings.Split(body, "/") {
		if !validNameComponent.MatchString(part) {
			return false
		}
	}
	return true
}

// qualifyNodeName splits a possibly-namespaced node name (e.g.
// "/ns/talker") into its namespace and bare name, defaulting the
// namespace to "/".
func qualifyNodeName(name string) (namespace string, nodeName string, err error) {
	if !isValidGraphName(name) {
		return "", "", InvalidNamef(name)
	}
	if strings.HasPrefix(name, "/") {
		idx := strings.LastIndex(name, "/")
		if idx == 0 {
			return "/", name[1:], nil
		}
		return name[:idx], name[idx+1:], nil
	}
	return "/", name, nil
}

// nameResolver canonicalizes topic/service/param names against a node's
// namespace and private name, applying the ":="-style remapping table
// collected from the command line.
type nameResolver struct {
	namespace string
	nodeName  string
	mapping   NameMap
}

func newNameResolver(namespace string, nodeName string, mapping NameMap) *nameResolver {
	return &nameResolver{namespace: namespace, nodeName: nodeName, mapping: mapping}
}

// resolve turns a possibly-relative or private name into its canonical
// absolute form, without applying remapping.
func (r *nameResolver) resolve(name string) (string, error) {
	if !isValidGraphName(name) {
		return "", InvalidNamef(name)
	}
	switch {
	case strings.HasPrefix(name, "/"):
		return cleanSlashes(name), nil
	case strings.HasPrefix(name, "~"):
		private := r.namespace
		if private == "/" {
			private = ""
		}
		qualified := fmt.Sprintf("%s/%s/%s", private, r.nodeName, name[1:])
		return cleanSlashes(qualified), nil
	default:
		base := r.namespace
		if base == "/" {
			base = ""
		}
		return cleanSlashes(base + "/" + name), nil
	}
}

// remap resolves name to its canonical form and then applies any
// registered command-line remapping; defaultNode.NewPublisher,
// NewSubscriber and NewServiceClient all call this before registering
// with the master.
func (r *nameResolver) remap(name string) string {
	resolved, err := r.resolve(name)
	if err != nil {
		// Caller paths already validate; fall back to the raw name so a
		// bad remap never silently vanishes a topic.
		resolved = name
	}
	if mapped, ok := r.mapping[resolved]; ok {
		return mapped
	}
	if mapped, ok := r.mapping[name]; ok {
		return mapped
	}
	return resolved
}

func cleanSlashes(name string) string {
	for strings.Contains(name, "//") {
		name = strings.ReplaceAll(name, "//", "/")
	}
	if len(name) > 1 && strings.HasSuffix(name, "/") {
		name = strings.TrimSuffix(name, "/")
	}
	return name
}

// determineHost picks the address a node advertises to its master: the
// value of ROS_HOSTNAME or ROS_IP if set, else the machine's hostname,
// else loopback. The second return value reports whether the result is
// restricted to localhost (used to pick the XML-RPC/TCPROS bind address).
func determineHost() (string, bool) {
	if hostname := os.Getenv("ROS_HOSTNAME"); hostname != "" {
		return hostname, hostname == "localhost"
	}
	if ip := os.Getenv("ROS_IP"); ip != "" {
		return ip, ip == "127.0.0.1" || ip == "::1"
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		if addrs, err := net.LookupHost(hostname); err == nil && len(addrs) > 0 {
			return hostname, false
		}
	}
	return "127.0.0.1", true
}
