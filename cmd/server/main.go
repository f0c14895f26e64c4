// Command server hosts ServerOrchestrator: it loads a board, starts the
// WebSocket game server, and serves the diagnostic HTTP endpoints. Shape
// follows github.com/lab1702/netrek-web's main.go.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gridrelay/internal/board"
	"gridrelay/internal/config"
	"gridrelay/internal/game"
	"gridrelay/internal/server"
)

func main() {
	boardPath := flag.String("board", "boards/classic.json", "board layout file")
	host := flag.String("host", "", "listen host")
	port := flag.String("port", "3000", "listen port")
	flag.Parse()

	log := logrus.NewEntry(logrus.StandardLogger())

	b, err := board.Load(*boardPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load board")
	}

	cfg := config.ServerConfig{
		BoardPath:         *boardPath,
		Host:              *host,
		Port:              *port,
		BroadcastInterval: 250 * time.Millisecond,
	}

	core := game.NewCore(b, game.DefaultSpawnConfig(), log)
	gameServer := server.New(cfg, core, log)
	go gameServer.Run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gameServer.HandleWebSocket)
	mux.HandleFunc("/api/stats", gameServer.HandleStats)
	mux.HandleFunc("/health", gameServer.HandleHealth)

	httpServer := &http.Server{
		Addr:         cfg.Host + ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Infof("gridrelay server listening on %s", httpServer.Addr)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.WithField("signal", sig).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	gameServer.Shutdown(ctx)
	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("http server shutdown error")
	}

	log.Info("server stopped")
	os.Exit(0)
}
