package gengo

import "testing"

func TestExpandedTextIncludesDependency(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}

	text, err := ctx.LoadMsgFromString("Header header\nstring data\n", "fake_pkg/Stamped")
	if err != nil {
		t.Fatalf("LoadMsgFromString: %v", err)
	}

	if text.ExpandedText == text.Text {
		t.Fatal("expanded text for a message with a dependency should differ from its own source")
	}
	const marker = "MSG: std_msgs/Header"
	if !contains(text.ExpandedText, marker) {
		t.Errorf("expanded text missing dependency block %q:\n%s", marker, text.ExpandedText)
	}
}

func TestResolveAllOrdersDependenciesBeforeDependents(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}

	specs, err := ctx.ResolveAll(ctx.MessageNames())
	if err != nil {
		t.Fatalf("ResolveAll: %v", err)
	}
	if len(specs) != len(ctx.MessageNames()) {
		t.Fatalf("ResolveAll returned %d specs, want %d", len(specs), len(ctx.MessageNames()))
	}
	for _, spec := range specs {
		if spec.MD5Sum == "" {
			t.Errorf("%s: resolved spec has no MD5Sum", spec.FullName)
		}
	}
}

func TestLoadMsgFromStringFailsOnMissingDependency(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}

	if _, err := ctx.LoadMsgFromString("nonexistent_pkg/Missing missing\n", "broken_pkg/Broken"); err == nil {
		t.Fatal("expected LoadMsgFromString to fail resolving an unregistered dependency")
	}
}

func TestResolveAllFailsOnUnsatisfiableWorklistEntry(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}

	if _, err := ctx.ResolveAll([]string{"nonexistent_pkg/Missing"}); err == nil {
		t.Fatal("expected ResolveAll to fail on a name absent from both the path map and the registry")
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
