package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/chat-relay/backend/api/handlers"
	"github.com/chat-relay/backend/internal/hub"
	"github.com/chat-relay/backend/internal/ws"
)

func main() {
	// Get configuration from environment
	port := getEnv("PORT", "8080")
	defaultRoom := getEnv("CHAT_ROOM", hub.DefaultRoom)

	// Wire the broadcast core: the broadcaster fans hub events out to live
	// WebSocket clients and resolves rooms through the hub's member store.
	broadcaster := ws.NewRoomBroadcaster()
	chatHub := hub.New(broadcaster, hub.WithDefaultRoom(defaultRoom))
	broadcaster.SetMembers(chatHub.Rooms())

	wsTransport := ws.NewHandler(chatHub, broadcaster)

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(wsTransport)
	presenceHandler := handlers.NewPresenceHandler(chatHub)

	// Initialize Gin router
	r := gin.Default()

	// Enable CORS for development
	r.Use(corsMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"online": chatHub.OnlineCount(),
		})
	})

	// WebSocket attach
	wsHandler.RegisterRoutes(&r.RouterGroup)

	// API routes
	api := r.Group("/api")
	{
		presenceHandler.RegisterRoutes(api)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		broadcaster.Close()
		os.Exit(0)
	}()

	// Start server
	log.Printf("Starting chat relay on port %s (room %q)", port, defaultRoom)
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// corsMiddleware returns a CORS middleware for development.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
