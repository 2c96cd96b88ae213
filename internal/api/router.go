package api

import (
	"github.com/gin-gonic/gin"

	"github.com/Abra-CatAbra/foodsync-ai/internal/api/handler"
	"github.com/Abra-CatAbra/foodsync-ai/internal/api/middleware"
	"github.com/Abra-CatAbra/foodsync-ai/internal/logger"
	"github.com/Abra-CatAbra/foodsync-ai/internal/repository"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	repo *repository.ProcessedRepository,
	mode string,
	cors middleware.CORSConfig,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	recordsHandler := handler.NewRecordsHandler(repo)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Processed photo records
		v1.GET("/records", recordsHandler.ListRecords)

		// Stats
		v1.GET("/stats", recordsHandler.GetStats)
	}

	return r
}
