package gengo

import "testing"

const commonInterfacesRoot = "../testdata/corpus/ros1_common_interfaces"

func TestMD5ConformanceSpotChecks(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}

	cases := []struct {
		fullname string
		want     string
	}{
		{"std_msgs/Header", "2176decaecbce78abc3b96ef049fabed"},
		{"geometry_msgs/Point", "4a842b65f413084dc2b10fb484ea7f17"},
		{"std_msgs/String", "992ce8a1687cec8cc8d0b3a073b1e4d1"},
	}

	for _, c := range cases {
		spec, err := ctx.LoadMsg(c.fullname)
		if err != nil {
			t.Fatalf("LoadMsg(%s): %v", c.fullname, err)
		}
		if spec.MD5Sum != c.want {
			t.Errorf("%s: MD5Sum = %q, want %q", c.fullname, spec.MD5Sum, c.want)
		}
		if len(spec.MD5Sum) != 32 {
			t.Errorf("%s: MD5Sum has length %d, want 32", c.fullname, len(spec.MD5Sum))
		}
	}
}

func TestAddTwoIntsServiceMD5(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}

	srv, err := ctx.LoadSrv("rospy_tutorials/AddTwoInts")
	if err != nil {
		t.Fatalf("LoadSrv: %v", err)
	}
	if len(srv.MD5Sum) != 32 {
		t.Fatalf("service MD5Sum has length %d, want 32", len(srv.MD5Sum))
	}
	if len(srv.Request.Fields) != 2 || len(srv.Response.Fields) != 1 {
		t.Fatalf("unexpected field counts: req=%d res=%d", len(srv.Request.Fields), len(srv.Response.Fields))
	}
}

func TestHeaderExpandedTextHasNoTrailingNewline(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}
	spec, err := ctx.LoadMsg("std_msgs/Header")
	if err != nil {
		t.Fatalf("LoadMsg: %v", err)
	}
	if len(spec.ExpandedText) == 0 {
		t.Fatal("expected non-empty expanded text")
	}
	if spec.ExpandedText[len(spec.ExpandedText)-1] == '\n' {
		t.Fatalf("expanded text must not end in a trailing newline: %q", spec.ExpandedText)
	}
}

func TestPointIsFixedLength(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}
	spec, err := ctx.LoadMsg("geometry_msgs/Point")
	if err != nil {
		t.Fatalf("LoadMsg: %v", err)
	}
	if !spec.IsFixedLength {
		t.Error("geometry_msgs/Point has three float64 fields and should be fixed length")
	}
}

func TestHeaderIsNotFixedLength(t *testing.T) {
	ctx, err := NewMsgContext([]string{commonInterfacesRoot})
	if err != nil {
		t.Fatalf("NewMsgContext: %v", err)
	}
	spec, err := ctx.LoadMsg("std_msgs/Header")
	if err != nil {
		t.Fatalf("LoadMsg: %v", err)
	}
	if spec.IsFixedLength {
		t.Error("std_msgs/Header has a variable-length frame_id string and must not be fixed length")
	}
}
