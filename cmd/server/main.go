package main

import (
	"log"
	"os"

	"commentease/internal/db"
	"commentease/internal/middleware"
	"commentease/internal/router"
	"commentease/internal/services"
	"commentease/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "commentease.db"
	}
	conn, err := db.Open(dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	log.Println("Database connection established")

	// Engines
	renderer := utils.NewHTMLRenderer()
	voting := services.NewVotingService(conn)
	comments := services.NewCommentService(conn, renderer)
	dispatcher := services.NewActionDispatcher(voting, comments, services.AllowAll{})

	// Initialize Gin
	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	store := cookie.NewStore([]byte(secret))
	r.Use(sessions.Sessions("commentease_session", store))
	r.Use(middleware.LoadUser(conn))

	router.RegisterRoutes(r, conn, voting, comments, dispatcher)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("commentease demo server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
