// Command gateway starts the dynamic reverse-proxy service gateway:
// registry, sweeper, and HTTP ingress wired together per spec.md.
// Grounded on the teacher's main() (getEnv-driven config, a background
// goroutine for the Redis side-channel, http.ListenAndServe under a
// top-level CORS wrapper).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/swarm-blackjack/service-gateway/internal/clock"
	"github.com/swarm-blackjack/service-gateway/internal/config"
	"github.com/swarm-blackjack/service-gateway/internal/dispatcher"
	"github.com/swarm-blackjack/service-gateway/internal/eventbus"
	"github.com/swarm-blackjack/service-gateway/internal/httpclient"
	"github.com/swarm-blackjack/service-gateway/internal/ingress"
	"github.com/swarm-blackjack/service-gateway/internal/logring"
	"github.com/swarm-blackjack/service-gateway/internal/proxy"
	"github.com/swarm-blackjack/service-gateway/internal/registry"
	"github.com/swarm-blackjack/service-gateway/internal/sweeper"
)

func main() {
	cfg := config.Load()

	sysClock := clock.System{}
	logs := logring.New(cfg.LogRingCapacity)
	bus := eventbus.New(cfg.RedisURL)
	defer bus.Close()

	reg := registry.New(sysClock)
	client := httpclient.New(httpclient.WithMaxBodyBytes(cfg.HTTPClientMaxBodyBytes))
	px := proxy.New(client, logs, bus)
	disp := dispatcher.New(reg, px)
	server := ingress.New(reg, disp, logs, bus)

	sw := sweeper.New(reg, logs, bus,
		sweeper.WithStaleThreshold(cfg.StaleThreshold),
		sweeper.WithEvictThreshold(cfg.EvictThreshold),
		sweeper.WithInterval(cfg.SweepInterval),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sw.Run(ctx)

	httpServer := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: server,
	}

	go func() {
		log.Printf("[gateway] starting on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[gateway] listen failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[gateway] shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.SweepInterval)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[gateway] shutdown error: %v", err)
		os.Exit(1)
	}
}
