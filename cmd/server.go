package cmd

import (
	"log"
	"os"
	"strconv"

	"coda/audio"
	"coda/config"
	"coda/handlers"
	"coda/metrics"
	"coda/middleware"
	"coda/services"
	"coda/trimmer"
	"coda/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerDeps holds the wired service graph behind the HTTP surface.
type ServerDeps struct {
	Queue      services.EncodeQueue
	Trims      *trimmer.Manager
	Transcoder *audio.Transcoder
	Hub        websocket.Hub
	Metrics    *metrics.Metrics
	Assets     services.AssetService
}

// BuildDeps constructs the default production service graph.
func BuildDeps() *ServerDeps {
	m := metrics.NewMetrics()

	hub := websocket.NewHub()
	go hub.Run()

	var uploader services.Uploader
	if endpoint := config.GetUploadEndpoint(); endpoint != "" {
		uploader = services.NewHTTPUploader(endpoint)
	} else {
		uploader = services.NewLocalUploader(config.GetStorageLocation())
	}

	trimCfg := trimmer.DefaultConfig()
	if settings, err := config.LoadSettings(); err == nil {
		trimCfg = trimmer.Config{
			ClipSeconds:   settings.ClipSeconds,
			ToleranceLow:  settings.ToleranceLow,
			ToleranceHigh: settings.ToleranceHigh,
		}
	}

	transcoder := audio.NewTranscoder()
	queue := services.NewEncodeQueue(2, hub, uploader, m, trimCfg.ClipSeconds)
	queue.Start()

	return &ServerDeps{
		Queue:      queue,
		Trims:      trimmer.NewManager(trimCfg, transcoder),
		Transcoder: transcoder,
		Hub:        hub,
		Metrics:    m,
		Assets:     services.NewAssetService(),
	}
}

// NewRouter builds the gin engine with all routes and middleware applied.
func NewRouter(deps *ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply middleware
	r.Use(middleware.CORS())
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	trackHandler := handlers.NewTrackHandler(deps.Queue, deps.Trims, deps.Transcoder, deps.Metrics)
	trimHandler := handlers.NewTrimHandler(deps.Queue, deps.Trims)
	jobHandler := handlers.NewJobHandler(deps.Queue, deps.Hub)
	assetHandler := handlers.NewAssetHandler(deps.Assets)
	healthHandler := handlers.NewHealthHandler()
	settingsHandler := handlers.NewSettingsHandler()

	// Health check endpoint
	r.GET("/health", healthHandler.HealthCheck)

	// Prometheus scrape endpoint
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	// API routes group
	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		// Track intake endpoints
		tracksGroup := apiGroup.Group("/tracks")
		{
			tracksGroup.POST("/:slot/audio", trackHandler.UploadAudio)
			tracksGroup.POST("/:slot/clip", trackHandler.UploadClip)

			// Interactive trim session
			tracksGroup.GET("/:slot/trim", trimHandler.GetTrim)
			tracksGroup.PUT("/:slot/trim/start", trimHandler.SetStart)
			tracksGroup.POST("/:slot/trim/play", trimHandler.TogglePlay)
			tracksGroup.PUT("/:slot/trim/playhead", trimHandler.UpdatePlayhead)
			tracksGroup.POST("/:slot/trim/confirm", trimHandler.Confirm)
			tracksGroup.DELETE("/:slot/trim", trimHandler.Cancel)
		}

		// Encode job management
		jobsGroup := apiGroup.Group("/jobs")
		{
			jobsGroup.GET("", jobHandler.GetAllJobs)
			jobsGroup.GET("/:jobId", jobHandler.GetJob)
			jobsGroup.DELETE("/:jobId", jobHandler.CancelJob)
			jobsGroup.POST("/:jobId/retry-upload", jobHandler.RetryUpload)
		}

		// WebSocket endpoints for real-time progress
		wsGroup := apiGroup.Group("/ws")
		{
			// WebSocket endpoint for specific job progress
			wsGroup.GET("/jobs/:jobId", jobHandler.HandleWebSocketConnection)

			// WebSocket endpoint for all job progress
			wsGroup.GET("/jobs", jobHandler.HandleWebSocketAllConnection)
		}

		// Asset discovery and streaming endpoints
		apiGroup.GET("/assets", assetHandler.ListAssets)
		apiGroup.GET("/assets/stream/*filepath", assetHandler.StreamAsset)

		// Settings endpoints
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.POST("/settings", settingsHandler.UpdateSettings)
	}

	return r
}

// StartWebServer starts the web server
func StartWebServer(port int) {
	// Set production mode if not specified
	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := NewRouter(BuildDeps())

	// Start server
	portStr := strconv.Itoa(port)
	if serverPort := os.Getenv("SERVER_PORT"); serverPort != "" {
		portStr = serverPort
	}

	log.Printf("Coda web server starting on port %s", portStr)
	if err := r.Run(":" + portStr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
