package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gamelog/handlers"
	"gamelog/middleware"
	"gamelog/models"
	"gamelog/services"
	"gamelog/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New()

	app.Use(middleware.ServiceAuthMiddleware())

	// Load allowed origins from environment variable
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOriginsString,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitCoverStore(); err != nil {
		log.Fatal("failed to initialize cover store:", err)
	}

	// TranslateError turns unique-constraint violations into
	// gorm.ErrDuplicatedKey, which the ingest dedup path depends on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(&models.Game{}); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	rawgURL := os.Getenv("RAWG_API_URL")
	if rawgURL == "" {
		rawgURL = "https://api.rawg.io/api"
	}
	rawgKey := os.Getenv("RAWG_API_KEY")
	if rawgKey == "" {
		log.Fatal("RAWG_API_KEY environment variable not set")
	}

	catalog := services.NewRawgClient(rawgURL, rawgKey)
	gameService := services.NewGameService(db, catalog)

	gameService.StartReleaseRefresh()

	handlers.SetupGameRoutes(app, gameService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Println("✅ Release refresh job running (every 24h)")
	if utils.CoverMirrorEnabled() {
		log.Println("✅ Cover mirror to R2 enabled")
	}

	<-ctx.Done()
	log.Println("Shutting down server...")
}
