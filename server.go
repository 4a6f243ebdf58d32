package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/wricardo/carreritas/api"
	"github.com/wricardo/carreritas/game/config"
	"github.com/wricardo/carreritas/game/service"
	"github.com/wricardo/carreritas/game/session"
	"github.com/wricardo/carreritas/game/store"
	"github.com/wricardo/carreritas/game/telemetry"
	"github.com/wricardo/carreritas/settings"
	"github.com/wricardo/carreritas/transport/mcp"
	"github.com/wricardo/carreritas/transport/websocket"
)

// app wires the managers, observers and the game service
type app struct {
	settings    *settings.Settings
	tracks      *config.Manager
	sessions    *session.Manager
	persistence session.SessionPersistence
	service     service.GameService
	store       *store.Store
	metrics     *telemetry.Recorder
}

// newApp wires track and session managers with persistence, the record store
// and telemetry observers, and loads persisted sessions.
func newApp(s *settings.Settings) (*app, error) {
	tracks, err := config.NewManager(s.TracksDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create track manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(s.SessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}

	a := &app{
		settings:    s,
		tracks:      tracks,
		persistence: persistence,
		sessions:    session.NewManagerWithPersistence(tracks, persistence),
	}

	if s.StoreEnabled() {
		a.store, err = store.Open(s.Store.Driver, s.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s store: %w", s.Store.Driver, err)
		}
		a.sessions.AddObserver(a.store)
		log.Info().Str("driver", s.Store.Driver).Msg("recording races")
	}

	a.metrics, err = telemetry.New(telemetry.InfluxConfig{
		URL:    s.Influx.URL,
		Token:  s.Influx.Token,
		Org:    s.Influx.Org,
		Bucket: s.Influx.Bucket,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create telemetry: %w", err)
	}
	a.sessions.AddObserver(a.metrics)

	if err := a.sessions.LoadPersistedSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to load persisted sessions")
	}

	a.service = service.NewGameService(a.sessions, tracks, s.Game)
	return a, nil
}

// Close saves sessions and releases the observers
func (a *app) Close() {
	if err := a.sessions.SaveAllSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to save sessions")
	}
	if a.metrics != nil {
		a.metrics.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close store")
		}
	}
}

// maintenance prunes expired sessions hourly and, every few seconds, drops
// sessions whose persisted file was deleted.
func (a *app) maintenance(ctx context.Context) {
	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()
	syncTicker := time.NewTicker(5 * time.Second)
	defer syncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-cleanup.C:
			if removed := a.sessions.CleanupExpiredSessions(a.settings.SessionMaxAge); removed > 0 {
				log.Info().Int("removed", removed).Msg("cleaned up expired sessions")
			}

		case <-syncTicker.C:
			pruned := 0
			for _, s := range a.sessions.List() {
				if !a.persistence.Exists(s.ID()) {
					if err := a.sessions.DeleteFromMemory(s.ID()); err == nil {
						pruned++
						log.Debug().Str("game", s.ID()).Msg("pruned session from memory (file deleted)")
					}
				}
			}
			if pruned > 0 {
				log.Info().Int("pruned", pruned).Msg("filesystem sync pruned orphaned sessions")
			}
		}
	}
}

// localURL is the base URL for calling our own HTTP server
func localURL(h settings.HTTP) string {
	host := h.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprint(h.Port)))
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server with REST API, WebSocket events and MCP endpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "ngrok",
				Usage: "expose the server through an ngrok tunnel (overrides ngrok.enabled)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, closeLog, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			if cmd.Bool("ngrok") {
				s.Ngrok.Enabled = true
			}
			return runServe(ctx, s)
		},
	}
}

// runServe starts the HTTP server and blocks until SIGINT or SIGTERM
func runServe(ctx context.Context, s *settings.Settings) error {
	log.Info().Str("version", Version).Msgf("starting %s server", AppName)

	a, err := newApp(s)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	a.sessions.AddObserver(hub)

	go a.maintenance(ctx)

	addr := s.HTTP.Addr()
	mcpClient := mcp.NewClient(localURL(s.HTTP))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", api.NewServer(a.service, hub))
	mainRouter.Handle("/mcp", mcpClient.HTTPHandler())

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var wg sync.WaitGroup
	serveErr := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()

		log.Info().Str("addr", addr).
			Str("api", fmt.Sprintf("http://%s/api", addr)).
			Str("ws", fmt.Sprintf("ws://%s/ws?game=<game_id>", addr)).
			Str("mcp", fmt.Sprintf("http://%s/mcp", addr)).
			Msg("HTTP server listening")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
	}()

	if s.Ngrok.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, s.Ngrok, mainRouter)
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	wg.Wait()
	log.Info().Msg("server stopped")

	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server failed: %w", err)
	default:
		return nil
	}
}

// runNgrok serves handler through an ngrok tunnel until ctx is done
func runNgrok(ctx context.Context, cfg settings.Ngrok, handler http.Handler) {
	if cfg.AuthToken == "" {
		log.Warn().Msg("ngrok enabled but no auth token provided (set NGROK_AUTHTOKEN or ngrok.authtoken)")
		return
	}

	log.Info().Msg("starting ngrok tunnel")

	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
		log.Info().Str("domain", cfg.Domain).Msg("using custom ngrok domain")
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error().Err(err).Msg("failed to start ngrok tunnel")
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close ngrok tunnel")
		}
	}()

	ngrokURL := tun.URL()
	log.Info().Str("url", ngrokURL).
		Str("api", ngrokURL+"/api").
		Str("ws", ngrokURL+"/ws?game=<game_id>").
		Str("mcp", ngrokURL+"/mcp").
		Msg("ngrok tunnel established")

	if err := http.Serve(tun, handler); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
		log.Error().Err(err).Msg("ngrok server error")
	}
	log.Info().Msg("ngrok tunnel closed")
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:    "mcp",
		Aliases: []string{"stdio-mcp", "mcp-stdio"},
		Usage:   "run an MCP stdio server backed by the REST API",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s, closeLog, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeLog()
			return runStdioMCP(ctx, s)
		},
	}
}

// runStdioMCP runs an MCP stdio server. It reuses an API already listening at
// the configured address; otherwise it starts an internal HTTP API on a
// random loopback port and targets that.
func runStdioMCP(ctx context.Context, s *settings.Settings) error {
	baseURL := localURL(s.HTTP)
	log.Info().Str("url", baseURL).Msg("checking for external API server")

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(baseURL + "/healthz")
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		log.Info().Str("url", baseURL).Msg("external API server found, using it for MCP")
	} else {
		if err == nil {
			resp.Body.Close()
		}
		log.Info().Msg("no external API server found, starting internal HTTP server")

		a, err := newApp(s)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer a.Close()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		hub := websocket.NewHub()
		go hub.Run(ctx)
		a.sessions.AddObserver(hub)

		httpServer := &http.Server{Handler: api.NewServer(a.service, hub)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("internal HTTP server error")
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		log.Info().Str("url", baseURL).Msg("internal HTTP server started for MCP stdio")
	}

	mcpClient := mcp.NewClient(baseURL)
	log.Info().Msg("MCP stdio server ready")

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
