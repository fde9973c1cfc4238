package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/andhy-leong/MediboxApi/internal/config"
	"github.com/andhy-leong/MediboxApi/internal/datastore"
	"github.com/andhy-leong/MediboxApi/internal/directory"
	"github.com/andhy-leong/MediboxApi/internal/dispatcher"
	"github.com/andhy-leong/MediboxApi/internal/httpapi"
	"github.com/andhy-leong/MediboxApi/internal/mqtt"
	"github.com/andhy-leong/MediboxApi/internal/pending"
	"github.com/andhy-leong/MediboxApi/internal/registry"
	"github.com/andhy-leong/MediboxApi/internal/ws"
)

// Server wires the gateway components together.
type Server struct {
	config *config.Config
	logger *zap.Logger

	registry   *registry.Registry
	store      *pending.Store
	cache      *directory.Cache
	dispatcher *dispatcher.Dispatcher
	sweeper    *dispatcher.Sweeper
	mqttClient *mqtt.Client
	router     *mqtt.Router
	httpServer *http.Server
}

// NewServer builds the gateway. The MQTT broker connection is
// established here so a misconfigured broker fails fast.
func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// 1. External API clients
	directoryClient := directory.NewClient(cfg.Directory.BaseURL, logger)
	cache := directory.NewCache(directoryClient, cfg.Directory.CacheTTL, logger)
	storeClient := datastore.NewClient(cfg.DataStore.BaseURL, logger)

	// 2. In-memory core: registry, pending queue, dispatcher, sweeper
	reg := registry.New(logger)
	store := pending.NewStore(logger)
	disp := dispatcher.New(store, reg, logger)
	sweeper := dispatcher.NewSweeper(store, reg, cfg.Sweep.Interval, logger)

	// 3. Transport in: MQTT client + topic router
	mqttClient, err := mqtt.NewClient(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT client: %w", err)
	}
	router := mqtt.NewRouter(cfg, cache, disp, storeClient, logger)

	// 4. Transport out: WebSocket endpoint + operational HTTP API
	wsHandler := ws.NewHandler(reg, store, directoryClient, cfg.WS.Token, logger)
	apiHandler := httpapi.NewHandler(disp, reg, mqttClient, logger)
	apiRouter := httpapi.NewRouter(logger)
	apiRouter.RegisterGatewayRoutes(apiHandler)
	apiRouter.Handle("/ws", wsHandler)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: apiRouter,
	}

	return &Server{
		config:     cfg,
		logger:     logger,
		registry:   reg,
		store:      store,
		cache:      cache,
		dispatcher: disp,
		sweeper:    sweeper,
		mqttClient: mqttClient,
		router:     router,
		httpServer: httpServer,
	}, nil
}

// Start subscribes to the box topic, starts the retry sweeper and the
// HTTP listener, then blocks until the context is cancelled or the
// listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.mqttClient.Subscribe(s.config.MQTT.Topic, s.config.MQTT.QoS, s.router.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	s.sweeper.Start()

	s.logger.Info("Gateway started",
		zap.String("http_addr", s.config.HTTP.Addr),
		zap.String("mqtt_topic", s.config.MQTT.Topic),
		zap.Duration("sweep_interval", s.config.Sweep.Interval),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errChan:
		return fmt.Errorf("HTTP server failed: %w", err)
	}
}

// Stop shuts the gateway down: sweeper first, then the transports.
// In-flight external calls are left to complete or fail on their own.
func (s *Server) Stop() {
	s.logger.Info("Stopping gateway")

	s.sweeper.Stop()
	s.mqttClient.Disconnect()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", zap.Error(err))
	}

	s.registry.CloseAll()
}
