package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hubchat/server/configs"
	"github.com/hubchat/server/internal/auth"
	"github.com/hubchat/server/internal/chat"
	"github.com/hubchat/server/internal/db"
	"github.com/hubchat/server/internal/directory"
	"github.com/hubchat/server/internal/hub"
	"github.com/hubchat/server/internal/routes"
	"github.com/hubchat/server/internal/rtc"
)

// CreateAndListen wires the services together and serves the websocket
// endpoint until SIGINT/SIGTERM.
func CreateAndListen(debug bool, host string, port int) {
	logger := newLogger(debug)

	database := db.GetDB()
	defer database.Close()

	authSvc := auth.NewService(database, logger)
	dirSvc := directory.NewService(database, logger)
	chatSvc := chat.NewService(database, dirSvc, logger)

	connHub := hub.New(logger)
	orch := rtc.NewOrchestrator(connHub, configs.ICEConfig(), logger)
	// a vanished connection leaves its calls the same way an explicit
	// rtc.leave would
	connHub.SetDisconnectHandler(orch.DropConnection)

	h := routes.NewRouteHandler(database, logger, connHub, authSvc, dirSvc, chatSvc, orch)

	mux := http.NewServeMux()
	createRoutes(mux, h, connHub, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		ReadHeaderTimeout: 5 * time.Second,
		Handler:           mux,
	}

	// graceful shutdown channel
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server.start", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.listen", "err", err)
			os.Exit(1)
		}
		logger.Info("server.stopped_listening")
	}()

	<-sigChan

	connHub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server.shutdown", "err", err)
		os.Exit(1)
	}
	logger.Info("server.shutdown_complete")
}

// createRoutes creates the routing rules for the webserver.
func createRoutes(mux *http.ServeMux, h *routes.RouteHandler, connHub *hub.Hub, logger *slog.Logger) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		// clients are native apps and self-hosted web frontends; origin
		// policy is left to the deployment's reverse proxy
		CheckOrigin: func(_ *http.Request) bool { return true },
	}

	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws.upgrade_failed", "addr", r.RemoteAddr, "err", err)
			return
		}
		connHub.Register(conn, r.RemoteAddr, h.Handle)
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
