package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/aq2208/gorder-oms/cmd/order-api/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}
