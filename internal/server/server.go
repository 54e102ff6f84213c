package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/berfenger/goodwe2prom/internal/config"
	"github.com/berfenger/goodwe2prom/internal/core/domain"
	"github.com/berfenger/goodwe2prom/internal/instrument"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"
)

type Inverter interface {
	Scrape(ctx context.Context) (*domain.ScrapeResponse, error)
	Health(ctx context.Context) (*domain.ActorHealthResponse, error)
}

type Server struct {
	port     uint
	httpLog  bool
	inverter Inverter
	metrics  *instrument.Metrics
	logger   *zap.Logger
}

func NewServer(cfg config.Config, inverter Inverter, metrics *instrument.Metrics, logger *zap.Logger) *http.Server {
	NewServer := &Server{
		port:     cfg.Port,
		httpLog:  cfg.HttpLog,
		inverter: inverter,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "http")),
	}

	// Declare Server config
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", NewServer.port),
		Handler:      NewServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return server
}
