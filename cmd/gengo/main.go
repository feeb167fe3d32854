// Command gengo compiles ROS message, service and action definitions
// found under a set of ROS package directories into Go source, one
// package per ROS package, written under an output directory.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ros-go/rosgo/gengo"
)

func main() {
	var (
		outDir  = flag.String("o", "", "output directory for generated Go packages (required)")
		verbose = flag.Bool("v", false, "enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: gengo -o OUTDIR ROS_PKG_PATH [ROS_PKG_PATH ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *outDir == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(log, *outDir, flag.Args()); err != nil {
		log.Fatalf("gengo: %+v", err)
	}
}

func run(log *logrus.Logger, outDir string, rosPkgPaths []string) error {
	ctx, err := gengo.NewMsgContext(rosPkgPaths)
	if err != nil {
		return errors.Wrap(err, "crawling ROS package paths")
	}

	specs, err := ctx.ResolveAll(ctx.MessageNames())
	if err != nil {
		return errors.Wrap(err, "resolving message dependencies")
	}
	for _, spec := range specs {
		if err := writeMsg(log, outDir, spec); err != nil {
			return err
		}
	}

	for _, name := range ctx.ServiceNames() {
		srv, err := ctx.LoadSrv(name)
		if err != nil {
			return errors.Wrapf(err, "loading service %s", name)
		}
		if err := writeSrv(log, outDir, srv); err != nil {
			return err
		}
	}

	for _, name := range ctx.ActionNames() {
		action, err := ctx.LoadAction(name)
		if err != nil {
			return errors.Wrapf(err, "loading action %s", name)
		}
		if err := writeAction(log, outDir, action); err != nil {
			return err
		}
	}

	return nil
}

func writeMsg(log *logrus.Logger, outDir string, spec *gengo.MsgSpec) error {
	code, err := gengo.EmitMsg(spec)
	if err != nil {
		return errors.Wrapf(err, "emitting message %s", spec.FullName)
	}
	path := filepath.Join(outDir, spec.Package, strings.ToLower(spec.ShortName)+".go")
	if err := writeGenerated(path, code); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"package": spec.Package, "message": spec.ShortName}).Debug("wrote message")
	return nil
}

func writeSrv(log *logrus.Logger, outDir string, srv *gengo.SrvSpec) error {
	if err := writeMsg(log, outDir, srv.Request); err != nil {
		return err
	}
	if err := writeMsg(log, outDir, srv.Response); err != nil {
		return err
	}
	code, err := gengo.EmitSrv(srv)
	if err != nil {
		return errors.Wrapf(err, "emitting service %s", srv.FullName)
	}
	path := filepath.Join(outDir, srv.Package, strings.ToLower(srv.ShortName)+"_srv.go")
	if err := writeGenerated(path, code); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{"package": srv.Package, "service": srv.ShortName}).Debug("wrote service")
	return nil
}

func writeAction(log *logrus.Logger, outDir string, action *gengo.ActionSpec) error {
	for _, spec := range []*gengo.MsgSpec{
		action.Goal, action.Feedback, action.Result,
		action.ActionGoal, action.ActionFeedback, action.ActionResult,
	} {
		if err := writeMsg(log, outDir, spec); err != nil {
			return err
		}
	}
	log.WithFields(logrus.Fields{"package": action.Package, "action": action.ShortName}).Debug("wrote action")
	return nil
}

func writeGenerated(path string, code []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, code, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
