package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/taskboardhq/taskboard/database"
	"github.com/taskboardhq/taskboard/handlers"
	"github.com/taskboardhq/taskboard/natsserver"
	"github.com/taskboardhq/taskboard/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Connect to database
	if err := database.Connect(); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
	defer database.Close()

	// Make sure a fresh install has an admin to log in with
	handlers.SeedAdminUser()

	// Start embedded NATS server carrying task change events
	natsPort := 4233
	if p := os.Getenv("NATS_PORT"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			natsPort = parsed
		}
	}
	natsServer, err := natsserver.New(natsserver.Config{Port: natsPort})
	if err != nil {
		log.Fatalf("❌ Failed to start NATS server: %v", err)
	}
	defer natsServer.Shutdown()

	// Board hub fans task events out to WebSocket sessions
	boardHub := services.NewBoardHub(natsServer.Conn())
	go boardHub.Run()
	handlers.SetBoardHub(boardHub)
	handlers.SetEventBus(natsServer.Conn())
	log.Println("📺 Board hub initialized")

	// Setup Gin router
	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// CORS middleware
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(config))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Serve uploaded task images statically
	uploadsDir := handlers.UploadsBaseDir()
	log.Printf("📁 Serving uploads from: %s", uploadsDir)
	router.Static("/storage", uploadsDir)

	// WebSocket route for board events (outside /api group)
	router.GET("/ws/board", handlers.HandleBoardWebSocket)

	// API Routes
	api := router.Group("/api")
	{
		api.POST("/login", handlers.Login)

		authorized := api.Group("")
		authorized.Use(handlers.AuthMiddleware())
		{
			authorized.GET("/user", handlers.CurrentUser)
			authorized.GET("/board/stats", handlers.GetBoardStats)

			tasks := authorized.Group("/tasks")
			{
				tasks.GET("", handlers.GetTasks)
				tasks.POST("", handlers.CreateTask)
				tasks.PUT("/:id", handlers.UpdateTask)
				tasks.PATCH("/:id", handlers.UpdateTask)
				tasks.DELETE("/:id", handlers.DeleteTask)
			}

			admin := authorized.Group("/admin")
			admin.Use(handlers.RequireAdmin())
			{
				admin.GET("/users", handlers.GetUsers)
				admin.POST("/create-user", handlers.CreateUser)
			}
		}
	}

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	log.Printf("🚀 Server running on http://localhost:%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
