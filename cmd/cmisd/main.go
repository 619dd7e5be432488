package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashwnsri/sonic-platform-common/internal/config"
	"github.com/ashwnsri/sonic-platform-common/internal/observability"
)

var startedAt = time.Now()

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	addr := flag.String("addr", "", "listen address override")
	port := flag.String("port", "", "port label override")
	flat := flag.Bool("flat-memory", false, "serve a flat-memory module")
	flag.Parse()

	logger := observability.InitLogger("cmisd")
	observability.RegisterMetrics()

	cfg := config.DaemonConfig{
		Addr:        ":9000",
		Port:        "Ethernet0",
		CorsOrigins: []string{"http://localhost:3000"},
	}
	if *configPath != "" {
		var err error
		cfg, err = config.LoadDaemonConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cmisd: %v\n", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *flat {
		cfg.FlatMemory = true
	}

	srv := newServer(cfg.Port, cfg.FlatMemory)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware(cfg.Port))
	if len(cfg.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: cfg.CorsOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	srv.registerRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info().Str("addr", cfg.Addr).Str("port", cfg.Port).Msg("cmisd listening")
	if err := r.Run(cfg.Addr); err != nil {
		fmt.Fprintf(os.Stderr, "cmisd: %v\n", err)
		os.Exit(1)
	}
}
