package ros

import "testing"

func TestIsValidGraphName(t *testing.T) {
	cases := map[string]bool{
		"/a/b":     true,
		"~a/b":     true,
		"a/b":      true,
		"/":        true,
		"~":        true,
		"":         false,
		"/a//b":    false,
		"1abc":     false,
		"/a/1bad":  false,
		"/a_b/c9":  true,
	}
	for name, want := range cases {
		if got := isValidGraphName(name); got != want {
			t.Errorf("isValidGraphName(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestQualifyNodeName(t *testing.T) {
	ns, name, err := qualifyNodeName("/ns/talker")
	if err != nil {
		t.Fatalf("qualifyNodeName: %v", err)
	}
	if ns != "/ns" || name != "talker" {
		t.Errorf("got (%q, %q), want (/ns, talker)", ns, name)
	}

	ns, name, err = qualifyNodeName("/talker")
	if err != nil {
		t.Fatalf("qualifyNodeName: %v", err)
	}
	if ns != "/" || name != "talker" {
		t.Errorf("got (%q, %q), want (/, talker)", ns, name)
	}

	ns, name, err = qualifyNodeName("talker")
	if err != nil {
		t.Fatalf("qualifyNodeName: %v", err)
	}
	if ns != "/" || name != "talker" {
		t.Errorf("got (%q, %q), want (/, talker)", ns, name)
	}

	if _, _, err := qualifyNodeName("/bad name"); err == nil {
		t.Fatal("expected an error for an invalid node name")
	}
}

func TestNameResolverResolve(t *testing.T) {
	r := newNameResolver("/ns", "talker", nil)

	got, err := r.resolve("/abs/topic")
	if err != nil {
		t.Fatalf("resolve absolute: %v", err)
	}
	if got != "/abs/topic" {
		t.Errorf("resolve(/abs/topic) = %q", got)
	}

	got, err = r.resolve("rel")
	if err != nil {
		t.Fatalf("resolve relative: %v", err)
	}
	if got != "/ns/rel" {
		t.Errorf("resolve(rel) = %q, want /ns/rel", got)
	}

	got, err = r.resolve("~priv")
	if err != nil {
		t.Fatalf("resolve private: %v", err)
	}
	if got != "/ns/talker/priv" {
		t.Errorf("resolve(~priv) = %q, want /ns/talker/priv", got)
	}
}

func TestNameResolverResolveRootNamespace(t *testing.T) {
	r := newNameResolver("/", "talker", nil)
	got, err := r.resolve("rel")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "/rel" {
		t.Errorf("resolve(rel) under root namespace = %q, want /rel", got)
	}
}

func TestNameResolverRemap(t *testing.T) {
	r := newNameResolver("/ns", "talker", NameMap{"/ns/chatter": "/ns/renamed"})
	if got := r.remap("chatter"); got != "/ns/renamed" {
		t.Errorf("remap(chatter) = %q, want /ns/renamed", got)
	}
	if got := r.remap("untouched"); got != "/ns/untouched" {
		t.Errorf("remap(untouched) = %q, want /ns/untouched", got)
	}
}

func TestCleanSlashes(t *testing.T) {
	if got := cleanSlashes("/a//b///c/"); got != "/a/b/c" {
		t.Errorf("cleanSlashes = %q, want /a/b/c", got)
	}
	if got := cleanSlashes("/"); got != "/" {
		t.Errorf("cleanSlashes(/) = %q, want /", got)
	}
}
