package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"file-manager/config"
	"file-manager/database"
	"file-manager/handlers"
	"file-manager/middleware"
	"file-manager/services"
)

func main() {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, using process environment")
	}

	cfg := config.GetConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	database.InitDB()

	logService := services.NewLogStreamService(cfg)

	s3Service, err := services.NewS3Service(services.S3Config{
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("Failed to create S3 service: %v", err)
	}

	metadataService := services.NewMetadataService(database.DB)

	// Label tagging is best-effort; a missing Rekognition setup only
	// disables it, uploads keep working.
	var labelService services.LabelAnnotator
	if cfg.RekognitionEnabled {
		rekognitionService, err := services.NewRekognitionService(cfg, s3Service, logService)
		if err != nil {
			log.Printf("Rekognition unavailable, label tagging disabled: %v", err)
		} else {
			labelService = rekognitionService
		}
	}

	fileService := services.NewFileService(s3Service, metadataService, labelService, logService)
	fileHandler := handlers.NewFileHandler(fileService)

	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(gin.Recovery())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"success": false,
			"message": "Method not allowed for this endpoint.",
		})
	})

	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	api.Use(middleware.RateLimit(120))
	{
		api.GET("/files", fileHandler.ListFiles)
		api.POST("/upload", fileHandler.UploadFile)
		api.POST("/delete", fileHandler.DeleteFile)
	}

	// Browsers follow this link directly, outside the JSON API
	r.GET("/download", fileHandler.DownloadFile)

	log.Printf("Starting file-manager on port %s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
