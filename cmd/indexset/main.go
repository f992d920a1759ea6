package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	// klogr reads the verbosity at log time, so flags parsed later apply
	ctx = logr.NewContext(ctx, klog.NewKlogr())

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		klog.ErrorS(err, "indexset failed")
		klog.Flush()
		cancel()
		os.Exit(1)
	}
	klog.Flush()
}
