package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewCommand().ExecuteContext(ctx); err != nil {
		logrus.WithError(err).Error("gatecount failed")
		stop()
		os.Exit(1)
	}
}
