package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"leafai-server-go/internal/platform/config"
	"leafai-server-go/internal/platform/logging"
	"leafai-server-go/internal/platform/observability"
)

// Options configures the HTTP router builder.
type Options struct {
	Config     *config.Config
	Logger     *logging.Logger
	StaticRoot string
}

// Router bundles the gin engine with the API route group services register
// themselves on.
type Router struct {
	Engine *gin.Engine
	API    *gin.RouterGroup
}

// Build constructs a gin engine pre-configured with recovery, logging, CORS,
// observability and static file middlewares.
func Build(opts Options) (*Router, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("http router requires config")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.DefaultLogger
	}

	if opts.Config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(loggingMiddleware(logger))
	engine.Use(observabilityMiddleware())

	engine.SetTrustedProxies([]string{"0.0.0.0"})

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	origins := opts.Config.Web.AllowedOrigins
	if len(origins) == 0 || contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = origins
	}
	engine.Use(cors.New(corsConfig))

	staticRoot := opts.StaticRoot
	if staticRoot == "" {
		staticRoot = opts.Config.Web.StaticDir
	}
	if staticRoot == "" {
		staticRoot = "./web"
	}
	engine.Use(static.Serve("/", static.LocalFile(staticRoot, true)))

	api := engine.Group("/api")

	return &Router{
		Engine: engine,
		API:    api,
	}, nil
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		logger.InfoTag(
			"HTTP",
			"%s %s -> %d (%s)",
			c.Request.Method,
			c.Request.URL.Path,
			status,
			duration,
		)
	}
}

func observabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		reqCtx, spanEnd := observability.StartSpan(c.Request.Context(), "http.server", path)
		var spanErr error
		c.Request = c.Request.WithContext(reqCtx)

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if len(c.Errors) > 0 {
			spanErr = c.Errors.Last().Err
		} else if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			spanErr = fmt.Errorf("status %d", status)
		}
		spanEnd(spanErr)

		observability.RecordMetric(
			reqCtx,
			"http.requests",
			1,
			map[string]string{
				"component": "http.server",
				"method":    c.Request.Method,
				"path":      path,
				"status":    strconv.Itoa(c.Writer.Status()),
			},
		)
		observability.RecordMetric(
			reqCtx,
			"http.request.duration_ms",
			float64(duration.Milliseconds()),
			map[string]string{
				"component": "http.server",
				"method":    c.Request.Method,
				"path":      path,
			},
		)
	}
}
