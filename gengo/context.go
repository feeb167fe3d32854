package gengo

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// isRosPackage reports whether dir contains a package.xml, the
// ROS package marker.
func isRosPackage(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Name() == "package.xml" {
			return true
		}
	}
	return false
}

// findPackages crawls rosPkgPaths for packages carrying a pkgType
// ("msg", "srv" or "action") subdirectory, returning a map from
// "pkg/Name" to the definition file's path.
func findPackages(pkgType string, rosPkgPaths []string) (map[string]string, error) {
	found := make(map[string]string)
	for _, root := range rosPkgPaths {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			pkgPath := filepath.Join(root, e.Name())
			if !isRosPackage(pkgPath) {
				continue
			}
			pkgName := filepath.Base(pkgPath)
			matches, err := filepath.Glob(filepath.Join(pkgPath, pkgType, "*."+pkgType))
			if err != nil {
				continue
			}
			for _, m := range matches {
				base := filepath.Base(m)
				rootName := base[:len(base)-len(pkgType)-1]
				found[pkgName+"/"+rootName] = m
			}
		}
	}
	return found, nil
}

func findAllMessages(rosPkgPaths []string) (map[string]string, error) { return findPackages("msg", rosPkgPaths) }
func findAllServices(rosPkgPaths []string) (map[string]string, error) { return findPackages("srv", rosPkgPaths) }
func findAllActions(rosPkgPaths []string) (map[string]string, error)  { return findPackages("action", rosPkgPaths) }

// MsgContext crawls a set of ROS package roots once, then loads and
// resolves message/service/action definitions on demand, caching every
// message it has already resolved so shared sub-messages are parsed
// only once.
type MsgContext struct {
	msgPathMap    map[string]string
	srvPathMap    map[string]string
	actionPathMap map[string]string
	msgRegistry   map[string]*MsgSpec
}

// resolvePackagePaths prepends the colon-separated roots named by
// ROS_PACKAGE_PATH onto the paths the caller supplied explicitly, the
// way roscpp/rospy resolve a package name against the environment
// before falling back to nothing.
func resolvePackagePaths(rosPkgPaths []string) []string {
	envPath := os.Getenv("ROS_PACKAGE_PATH")
	if envPath == "" {
		return rosPkgPaths
	}
	var resolved []string
	for _, p := range strings.Split(envPath, ":") {
		if p != "" {
			resolved = append(resolved, p)
		}
	}
	return append(resolved, rosPkgPaths...)
}

// NewMsgContext crawls rosPkgPaths, plus every root named by
// ROS_PACKAGE_PATH, for every message, service and action definition
// reachable from them.
func NewMsgContext(rosPkgPaths []string) (*MsgContext, error) {
	ctx := &MsgContext{msgRegistry: make(map[string]*MsgSpec)}
	rosPkgPaths = resolvePackagePaths(rosPkgPaths)

	msgs, err := findAllMessages(rosPkgPaths)
	if err != nil {
		return nil, err
	}
	ctx.msgPathMap = msgs

	srvs, err := findAllServices(rosPkgPaths)
	if err != nil {
		return nil, err
	}
	ctx.srvPathMap = srvs

	acts, err := findAllActions(rosPkgPaths)
	if err != nil {
		return nil, err
	}
	ctx.actionPathMap = acts

	return ctx, nil
}

// MessageNames returns every "pkg/Name" message discovered while
// crawling, sorted for deterministic generation order.
func (ctx *MsgContext) MessageNames() []string {
	names := make([]string, 0, len(ctx.msgPathMap))
	for n := range ctx.msgPathMap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ServiceNames returns every "pkg/Name" service discovered while
// crawling, sorted for deterministic generation order.
func (ctx *MsgContext) ServiceNames() []string {
	names := make([]string, 0, len(ctx.srvPathMap))
	for n := range ctx.srvPathMap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ActionNames returns every "pkg/Name" action discovered while
// crawling, sorted for deterministic generation order.
func (ctx *MsgContext) ActionNames() []string {
	names := make([]string, 0, len(ctx.actionPathMap))
	for n := range ctx.actionPathMap {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register records spec under fullname, overwriting any prior entry —
// used both internally and by callers pre-seeding well-known messages
// (e.g. std_msgs/Header) without a backing file.
func (ctx *MsgContext) Register(fullname string, spec *MsgSpec) {
	ctx.msgRegistry[fullname] = spec
}

// LoadMsgFromString parses text as the body of fullname ("pkg/Name"),
// resolves it against everything already registered, and registers the
// result. It parses as ROS1; use LoadMsgFromStringVersion to parse a
// ROS2 body (which additionally permits a default literal per field).
func (ctx *MsgContext) LoadMsgFromString(text, fullname string) (*MsgSpec, error) {
	return ctx.LoadMsgFromStringVersion(text, fullname, 1)
}

// LoadMsgFromStringVersion is LoadMsgFromString with an explicit ROS
// dialect (1 or 2).
func (ctx *MsgContext) LoadMsgFromStringVersion(text, fullname string, rosVersion int) (*MsgSpec, error) {
	pkg, short, err := packageResourceName(fullname)
	if err != nil {
		return nil, err
	}

	var fields []Field
	var constants []Constant
	for lineno, raw := range strings.Split(text, "\n") {
		clean := stripComment(raw)
		if clean == "" {
			continue
		}
		if strings.Contains(clean, ConstChar) {
			c, err := loadConstantLine(raw)
			if err != nil {
				return nil, NewSyntaxError(fullname, lineno+1, err.Error())
			}
			constants = append(constants, *c)
		} else {
			f, err := loadFieldLine(raw, pkg, rosVersion)
			if err != nil {
				return nil, NewSyntaxError(fullname, lineno+1, err.Error())
			}
			fields = append(fields, *f)
		}
	}

	spec, _ := NewMsgSpec(fields, constants, text, fullname, OptionPackageName(pkg), OptionShortName(short), OptionRosVersion(rosVersion))
	ctx.Register(fullname, spec)

	md5sum, err := ctx.ComputeMsgMD5(spec)
	if err != nil {
		return nil, err
	}
	spec.MD5Sum = md5sum

	expanded, err := ctx.ExpandedText(spec)
	if err != nil {
		return nil, err
	}
	spec.ExpandedText = expanded

	fixed, err := ctx.IsFixedLength(spec)
	if err != nil {
		return nil, err
	}
	spec.IsFixedLength = fixed

	return spec, nil
}

func (ctx *MsgContext) LoadMsgFromFile(path, fullname string) (*MsgSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ctx.LoadMsgFromString(string(data), fullname)
}

// LoadMsgFromFileVersion is LoadMsgFromFile with an explicit ROS
// dialect (1 or 2).
func (ctx *MsgContext) LoadMsgFromFileVersion(path, fullname string, rosVersion int) (*MsgSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ctx.LoadMsgFromStringVersion(string(data), fullname, rosVersion)
}

// LoadMsg returns the already-registered spec for fullname, or loads it
// from the crawled path map.
func (ctx *MsgContext) LoadMsg(fullname string) (*MsgSpec, error) {
	if spec, ok := ctx.msgRegistry[fullname]; ok {
		return spec, nil
	}
	if path, ok := ctx.msgPathMap[fullname]; ok {
		return ctx.LoadMsgFromFile(path, fullname)
	}
	return nil, fmt.Errorf("gengo: message definition of %q not found", fullname)
}

func (ctx *MsgContext) LoadSrvFromString(text, fullname string) (*SrvSpec, error) {
	pkg, short, err := packageResourceName(fullname)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(text, "---")
	if len(parts) != 2 {
		return nil, fmt.Errorf("gengo: service %q: missing '---' separator", fullname)
	}

	reqSpec, err := ctx.LoadMsgFromString(parts[0], fullname+"Request")
	if err != nil {
		return nil, err
	}
	resSpec, err := ctx.LoadMsgFromString(parts[1], fullname+"Response")
	if err != nil {
		return nil, err
	}

	spec := &SrvSpec{Package: pkg, ShortName: short, FullName: fullname, Text: text, Request: reqSpec, Response: resSpec}
	md5sum, err := ctx.ComputeSrvMD5(spec)
	if err != nil {
		return nil, err
	}
	spec.MD5Sum = md5sum
	return spec, nil
}

func (ctx *MsgContext) LoadSrvFromFile(path, fullname string) (*SrvSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ctx.LoadSrvFromString(string(data), fullname)
}

func (ctx *MsgContext) LoadSrv(fullname string) (*SrvSpec, error) {
	if path, ok := ctx.srvPathMap[fullname]; ok {
		return ctx.LoadSrvFromFile(path, fullname)
	}
	return nil, fmt.Errorf("gengo: service definition of %q not found", fullname)
}

// actionDerivedText builds the synthesized wrapper message body ROS
// generates around every action Goal/Feedback/Result, per the action
// protocol's fixed three extra fields.
func actionDerivedText(kind, fullname, innerField string) string {
	switch kind {
	case "Goal":
		return "Header header\nactionlib_msgs/GoalID goal_id\n" + fullname + "Goal goal\n"
	case "Feedback":
		return "Header header\nactionlib_msgs/GoalStatus status\n" + fullname + "Feedback feedback"
	case "Result":
		return "Header header\nactionlib_msgs/GoalStatus status\n" + fullname + "Result result"
	default:
		return ""
	}
}

func (ctx *MsgContext) LoadActionFromString(text, fullname string) (*ActionSpec, error) {
	pkg, short, err := packageResourceName(fullname)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(text, "---")
	if len(parts) != 3 {
		return nil, fmt.Errorf("gengo: action %q: expected two '---' separators", fullname)
	}
	goalText, resultText, feedbackText := parts[0], parts[1], parts[2]

	goalSpec, err := ctx.LoadMsgFromString(goalText, fullname+"Goal")
	if err != nil {
		return nil, err
	}
	actionGoalSpec, err := ctx.LoadMsgFromString(actionDerivedText("Goal", fullname, ""), fullname+"ActionGoal")
	if err != nil {
		return nil, err
	}
	feedbackSpec, err := ctx.LoadMsgFromString(feedbackText, fullname+"Feedback")
	if err != nil {
		return nil, err
	}
	actionFeedbackSpec, err := ctx.LoadMsgFromString(actionDerivedText("Feedback", fullname, ""), fullname+"ActionFeedback")
	if err != nil {
		return nil, err
	}
	resultSpec, err := ctx.LoadMsgFromString(resultText, fullname+"Result")
	if err != nil {
		return nil, err
	}
	actionResultSpec, err := ctx.LoadMsgFromString(actionDerivedText("Result", fullname, ""), fullname+"ActionResult")
	if err != nil {
		return nil, err
	}

	spec := &ActionSpec{
		Package: pkg, ShortName: short, FullName: fullname, Text: text,
		Goal: goalSpec, Feedback: feedbackSpec, Result: resultSpec,
		ActionGoal: actionGoalSpec, ActionFeedback: actionFeedbackSpec, ActionResult: actionResultSpec,
	}
	md5sum, err := ctx.ComputeActionMD5(spec)
	if err != nil {
		return nil, err
	}
	spec.MD5Sum = md5sum
	return spec, nil
}

func (ctx *MsgContext) LoadActionFromFile(path, fullname string) (*ActionSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ctx.LoadActionFromString(string(data), fullname)
}

func (ctx *MsgContext) LoadAction(fullname string) (*ActionSpec, error) {
	if path, ok := ctx.actionPathMap[fullname]; ok {
		return ctx.LoadActionFromFile(path, fullname)
	}
	return nil, fmt.Errorf("gengo: action definition of %q not found", fullname)
}

// ComputeMD5Text builds the canonical pre-hash text for spec: one line
// per constant, then one line per field — primitive fields literally,
// non-primitive fields as "SUBMSG_MD5 NAME" — with the trailing newline
// trimmed.
func (ctx *MsgContext) ComputeMD5Text(spec *MsgSpec) (string, error) {
	var buf bytes.Buffer
	for _, c := range spec.Constants {
		fmt.Fprintf(&buf, "%s %s=%s\n", c.Type, c.Name, c.ValueText)
	}
	for _, f := range spec.Fields {
		if f.IsBuiltin() {
			fmt.Fprintf(&buf, "%s\n", f.String())
			continue
		}
		sub, err := ctx.LoadMsg(f.FullType())
		if err != nil {
			return "", err
		}
		submd5, err := ctx.ComputeMsgMD5(sub)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&buf, "%s %s\n", submd5, f.Name)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func (ctx *MsgContext) ComputeMsgMD5(spec *MsgSpec) (string, error) {
	text, err := ctx.ComputeMD5Text(spec)
	if err != nil {
		return "", err
	}
	return md5Hex(text), nil
}

func (ctx *MsgContext) ComputeActionMD5(spec *ActionSpec) (string, error) {
	goalText, err := ctx.ComputeMD5Text(spec.ActionGoal)
	if err != nil {
		return "", err
	}
	feedbackText, err := ctx.ComputeMD5Text(spec.ActionFeedback)
	if err != nil {
		return "", err
	}
	resultText, err := ctx.ComputeMD5Text(spec.ActionResult)
	if err != nil {
		return "", err
	}
	return md5Hex(goalText + feedbackText + resultText), nil
}

func (ctx *MsgContext) ComputeSrvMD5(spec *SrvSpec) (string, error) {
	reqText, err := ctx.ComputeMD5Text(spec.Request)
	if err != nil {
		return "", err
	}
	resText, err := ctx.ComputeMD5Text(spec.Response)
	if err != nil {
		return "", err
	}
	return md5Hex(reqText + resText), nil
}

func md5Hex(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
