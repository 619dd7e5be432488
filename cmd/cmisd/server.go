package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ashwnsri/sonic-platform-common/internal/cmis"
	"github.com/ashwnsri/sonic-platform-common/internal/observability"
	"github.com/ashwnsri/sonic-platform-common/internal/sim"
)

// server exposes one port's transceiver management plane over read-only
// HTTP. Every endpoint is a thin wrapper over a driver aggregate.
type server struct {
	port   string
	driver *cmis.Driver
}

func newServer(port string, flatMemory bool) *server {
	opts := []sim.Option{sim.WithLogger(log.Logger)}
	if flatMemory {
		opts = append(opts, sim.FlatMemory())
	}
	m := sim.NewModule(opts...)
	d := cmis.New(m,
		cmis.WithCDB(m),
		cmis.WithVDM(m),
		cmis.WithLogger(log.With().Str("port", port).Logger()),
	)
	return &server{port: port, driver: d}
}

func (s *server) registerRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	api := r.Group("/api/transceiver")
	api.GET("/info", s.aggregate("info", func() (any, error) { return s.driver.TransceiverInfo() }))
	api.GET("/dom", s.aggregate("dom", func() (any, error) { return s.driver.TransceiverDomRealValues() }))
	api.GET("/dom-flags", s.aggregate("dom_flags", func() (any, error) { return s.driver.TransceiverDomFlags(), nil }))
	api.GET("/thresholds", s.aggregate("thresholds", func() (any, error) { return s.driver.TransceiverThresholdInfo() }))
	api.GET("/status", s.aggregate("status", func() (any, error) { return s.driver.TransceiverStatus() }))
	api.GET("/status-flags", s.aggregate("status_flags", func() (any, error) { return s.driver.TransceiverStatusFlags(), nil }))
	api.GET("/loopback", s.aggregate("loopback", func() (any, error) { return s.driver.TransceiverLoopback(), nil }))
	api.GET("/error-description", s.aggregate("error_description", func() (any, error) {
		desc, err := s.driver.ErrorDescription()
		if err != nil {
			return nil, err
		}
		return gin.H{"error_description": desc}, nil
	}))

	vdm := api.Group("/vdm")
	vdm.GET("/values", s.aggregate("vdm_values", func() (any, error) { return s.driver.VdmRealValues(), nil }))
	vdm.GET("/thresholds", s.aggregate("vdm_thresholds", func() (any, error) { return s.driver.VdmThresholds(), nil }))
	vdm.GET("/flags", s.aggregate("vdm_flags", func() (any, error) { return s.driver.VdmFlags(), nil }))

	fw := api.Group("/firmware")
	fw.GET("/info", s.aggregate("fw_info", func() (any, error) { return s.driver.FirmwareInfo() }))
	fw.GET("/features", s.aggregate("fw_features", func() (any, error) { return s.driver.FirmwareManagementFeatures() }))
	fw.GET("/versions", s.aggregate("fw_versions", func() (any, error) { return s.driver.FirmwareVersions(), nil }))
}

func (s *server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(startedAt).String(),
		"service": "cmisd",
		"port":    s.port,
	})
}

// aggregate adapts a driver aggregate call into a handler, recording the
// query outcome for metrics.
func (s *server) aggregate(name string, fn func() (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		out, err := fn()
		observability.RecordDriverQuery(s.port, name, err, time.Since(start))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
