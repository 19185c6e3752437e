package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mknoufi/stockverify/internal/adapter"
	"github.com/mknoufi/stockverify/internal/config"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/internal/netmon"
	"github.com/mknoufi/stockverify/internal/service"
	"github.com/mknoufi/stockverify/internal/store"
	"github.com/mknoufi/stockverify/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	printBuildInfo()

	log := logger.NewClientLogger("stockverify-client")
	cfg, err := config.GetClientConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("error getting configs")
	}

	storages, err := store.NewClientStorages(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("create local storage")
	}

	remote, err := adapter.NewHTTPRemoteClient(cfg.Adapter, adapter.StaticTokenSource(cfg.Adapter.Token), log)
	if err != nil {
		log.Fatal().Err(err).Msg("create remote client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	monitor := netmon.NewMonitor(log)
	services := service.NewClientServices(ctx, cfg.Sync, storages, remote, monitor, log)

	unsubscribe := services.Notifier.Subscribe(func(event models.Event) {
		log.Info().
			Str("event", string(event.Type)).
			Int("queue_length", event.QueueLength).
			Int("delivered", event.Delivered).
			Int("parked", event.Parked).
			Msg("engine event")
	})
	defer unsubscribe()

	services.Orchestrator.Start(ctx)
	defer services.Orchestrator.Stop()

	go probeConnectivity(ctx, cfg.Adapter, monitor, log)

	log.Info().Str("base_url", cfg.Adapter.BaseURL).Msg("sync engine running")
	<-ctx.Done()
	log.Info().Msg("shutting down")
}

// probeConnectivity stands in for a platform connectivity API: it checks the
// warehouse endpoint periodically and feeds the result to the network
// monitor, which drives drain/suspend transitions.
func probeConnectivity(ctx context.Context, cfg config.Adapter, monitor *netmon.Monitor, log *logger.Logger) {
	client := &http.Client{Timeout: 5 * time.Second}
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, cfg.BaseURL, nil)
			if err != nil {
				continue
			}

			reachable := false
			if resp, probeErr := client.Do(req); probeErr == nil {
				_ = resp.Body.Close()
				reachable = true
			} else {
				log.Warn().Err(probeErr).Msg("connectivity probe failed")
			}

			monitor.SetState(models.NetworkState{
				Online:            reachable,
				InternetReachable: &reachable,
				ConnectionType:    models.ConnectionUnknown,
			})
		}
	}
}

func printBuildInfo() {
	if buildVersion == "" {
		buildVersion = "N/A"
	}
	if buildDate == "" {
		buildDate = "N/A"
	}
	if buildCommit == "" {
		buildCommit = "N/A"
	}

	fmt.Printf("Build version: %s\n", buildVersion)
	fmt.Printf("Build date: %s\n", buildDate)
	fmt.Printf("Build commit: %s\n", buildCommit)
}
