// Package httpapi is a thin REST surface over the virtual-table bridge, for
// deployments where the index runs as its own small service rather than
// embedded in the host engine.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/vectile/vectile/diskstore"
)

// ---------------------------

type HttpApiConfig struct {
	Debug    bool   `yaml:"debug"`
	HttpHost string `yaml:"httpHost"`
	HttpPort int    `yaml:"httpPort"`
}

// ---------------------------

// Zerolog based middleware for logging HTTP requests.
func ZerologLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int("size", c.Writer.Size()).
			Dur("duration", time.Since(start)).
			Msg("")
	}
}

func setupRouter(manager *TableManager, cfg HttpApiConfig) *gin.Engine {
	router := gin.New()
	router.Use(ZerologLogger(), gin.Recovery())
	// ---------------------------
	v1 := router.Group("/v1")
	v1.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong from vectile"})
	})
	manager.SetupV1Handlers(v1)
	return router
}

func RunHTTPServer(store diskstore.DiskStore, cfg HttpApiConfig) *http.Server {
	// ---------------------------
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	// ---------------------------
	server := &http.Server{
		Addr:    cfg.HttpHost + ":" + strconv.Itoa(cfg.HttpPort),
		Handler: setupRouter(NewTableManager(store), cfg),
	}
	go func() {
		log.Info().Str("httpAddr", server.Addr).Msg("HTTPAPI.Serve")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start http server")
		}
	}()
	// ---------------------------
	return server
}
