package gengo

import (
	"fmt"
	"sort"
	"strings"
)

// maxResolveAttempts bounds the worklist iteration in ResolveAll: any
// acyclic dependency set converges within its depth, so a count this
// far past any realistic nesting means a cycle.
const maxResolveAttempts = 2048

// transitiveDeps returns the full set of non-primitive "pkg/Name" types
// spec depends on, directly or indirectly, not including spec itself.
func (ctx *MsgContext) transitiveDeps(spec *MsgSpec, seen map[string]bool) error {
	for _, f := range spec.Fields {
		if f.IsBuiltin() {
			continue
		}
		full := f.FullType()
		if seen[full] {
			continue
		}
		seen[full] = true
		sub, err := ctx.LoadMsg(full)
		if err != nil {
			return err
		}
		if err := ctx.transitiveDeps(sub, seen); err != nil {
			return err
		}
	}
	return nil
}

// ExpandedText builds the `message_definition` string a publisher puts
// in its connection header: spec's own trimmed source, then one
// "========"-separated block per transitively referenced message, in
// sorted order of full type name.
func (ctx *MsgContext) ExpandedText(spec *MsgSpec) (string, error) {
	seen := make(map[string]bool)
	if err := ctx.transitiveDeps(spec, seen); err != nil {
		return "", err
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)

	var buf strings.Builder
	buf.WriteString(strings.TrimRight(spec.Text, "\n"))

	for _, name := range names {
		sub, err := ctx.LoadMsg(name)
		if err != nil {
			return "", err
		}
		buf.WriteString("\n")
		buf.WriteString(strings.Repeat("=", 80))
		buf.WriteString("\n")
		buf.WriteString("MSG: " + name + "\n")
		buf.WriteString(strings.TrimRight(sub.Text, "\n"))
	}

	return buf.String(), nil
}

// IsFixedLength reports whether spec and every field it transitively
// contains has a statically known wire size: no variable array, no
// string, and (recursively) no variable-length sub-message.
func (ctx *MsgContext) IsFixedLength(spec *MsgSpec) (bool, error) {
	for _, f := range spec.Fields {
		if f.Array.IsArray && !f.Array.IsFixed {
			return false, nil
		}
		if f.IsBuiltin() {
			if f.Type == "string" {
				return false, nil
			}
			continue
		}
		sub, err := ctx.LoadMsg(f.FullType())
		if err != nil {
			return false, err
		}
		fixed, err := ctx.IsFixedLength(sub)
		if err != nil {
			return false, err
		}
		if !fixed {
			return false, nil
		}
	}
	return true, nil
}

// ResolveAll resolves every message in fullnames (plus everything they
// transitively depend on) using an explicit worklist: a message becomes
// resolvable once every non-primitive field it references is already
// registered. This bounds the cost of a cyclic or missing dependency,
// unlike the plain recursive LoadMsg path, which would otherwise
// recurse forever on a true cycle.
func (ctx *MsgContext) ResolveAll(fullnames []string) ([]*MsgSpec, error) {
	pending := make(map[string]bool, len(fullnames))
	for _, n := range fullnames {
		pending[n] = true
	}

	var resolved []*MsgSpec
	attempts := make(map[string]int)

	for len(pending) > 0 {
		progressed := false
		for name := range pending {
			if !ctx.dependenciesResolved(name) {
				attempts[name]++
				if attempts[name] > maxResolveAttempts {
					return nil, fmt.Errorf("gengo: unresolved dependencies: %s", strings.Join(pendingNames(pending), ", "))
				}
				continue
			}
			spec, err := ctx.LoadMsg(name)
			if err != nil {
				return nil, err
			}
			resolved = append(resolved, spec)
			delete(pending, name)
			progressed = true
		}
		if !progressed && len(pending) > 0 {
			for name := range pending {
				attempts[name]++
				if attempts[name] > maxResolveAttempts {
					return nil, fmt.Errorf("gengo: unresolved dependencies: %s", strings.Join(pendingNames(pending), ", "))
				}
			}
		}
	}
	return resolved, nil
}

func pendingNames(pending map[string]bool) []string {
	names := make([]string, 0, len(pending))
	for n := range pending {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// dependenciesResolved reports whether every non-primitive field
// referenced by the (not yet necessarily loaded) message fullname can
// itself be loaded, i.e. its own file parses and its fields in turn
// resolve. It tolerates fullname not being loadable yet by returning
// false rather than propagating the error, since that's exactly the
// "not yet resolvable" case the worklist loop is probing for.
func (ctx *MsgContext) dependenciesResolved(fullname string) bool {
	path, ok := ctx.msgPathMap[fullname]
	if !ok {
		_, ok = ctx.msgRegistry[fullname]
		return ok
	}
	_ = path
	// A message is resolvable once LoadMsg can run to completion, which
	// recursively requires every dependency to already be loadable.
	_, err := ctx.LoadMsg(fullname)
	return err == nil
}
