package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mknoufi/stockverify/internal/devserver"
	"github.com/mknoufi/stockverify/internal/logger"
	"github.com/mknoufi/stockverify/models"
)

func main() {
	addr := flag.String("a", "localhost:8080", "listen address")
	flag.Parse()

	log := logger.NewLogger("stockverify-devserver")

	server := devserver.NewServer(log)
	server.Seed([]models.Item{
		{SKU: "WID-100", Barcode: "4006381333931", Name: "Widget, blue", Location: "A-01-03"},
		{SKU: "WID-101", Barcode: "4006381333948", Name: "Widget, red", Location: "A-01-04"},
		{SKU: "GAD-200", Barcode: "5000112637922", Name: "Gadget", Location: "B-02-01"},
	})

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Msg("devserver listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("devserver failed")
	}
	log.Info().Msg("devserver stopped")
}
