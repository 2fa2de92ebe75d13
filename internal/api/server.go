package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"fileforge/internal/auth"
	"fileforge/internal/storage"
)

// Server wraps the REST API server.
type Server struct {
	handler *Handler
	router  *gin.Engine
}

// NewServer builds the router around the handler set. The cleanup and
// stats routes must come before the parameterized history route so gin
// does not treat their first segment as an id.
func NewServer(handler *Handler, authService *auth.Service, files *storage.Storage) *Server {
	router := gin.New()

	router.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		// Status polls are frequent and noisy
		if len(param.Path) > 13 && param.Path[:13] == "/api/v1/jobs/" && param.StatusCode == http.StatusOK {
			return ""
		}
		return fmt.Sprintf("[%s] %s %s %d %s %s \"%s\" %s\n",
			param.TimeStamp.Format("2006/01/02 - 15:04:05"),
			param.ClientIP,
			param.Method,
			param.StatusCode,
			param.Latency,
			param.Path,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	{
		api.POST("/auth/signup", handler.Signup)
		api.POST("/auth/login", handler.Login)
		api.POST("/auth/logout", handler.Logout)

		// Job status polling is public; job IDs are unguessable
		api.GET("/jobs/:id", handler.GetJobStatus)

		// Conversion requires an account
		conversion := api.Group("/conversion")
		conversion.Use(AuthMiddleware(authService))
		{
			conversion.POST("/convert", handler.Convert)
			conversion.GET("/formats", handler.ConversionFormats)
		}

		compression := api.Group("/compression")
		compression.Use(OptionalAuth(authService))
		{
			compression.POST("/compress", handler.Compress)
			compression.GET("/levels", handler.CompressionLevels)
		}

		extraction := api.Group("/extraction")
		extraction.Use(OptionalAuth(authService))
		{
			extraction.POST("/extract", handler.ExtractText)
			extraction.GET("/modes", handler.ExtractionModes)
			extraction.GET("/languages", handler.ExtractionLanguages)
		}

		archive := api.Group("/archive")
		archive.Use(OptionalAuth(authService))
		{
			archive.POST("/extract", handler.ExtractArchive)
		}

		protected := api.Group("")
		protected.Use(AuthMiddleware(authService))
		{
			protected.GET("/auth/me", handler.Me)
			protected.GET("/history", handler.ListHistory)
			protected.GET("/history/stats/overview", handler.HistoryStats)
			protected.DELETE("/history/cleanup", handler.CleanupHistory)
			protected.GET("/history/:id", handler.GetHistory)
			protected.DELETE("/history/:id", handler.DeleteHistory)
		}
	}

	// Processed outputs are downloadable; uploads are served for previews
	router.Static("/processed", files.ProcessedDir())
	router.Static("/uploads", files.UploadsDir())

	return &Server{handler: handler, router: router}
}

// GetRouter returns the router.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
