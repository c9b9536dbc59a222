package main

import (
	"log"
	"os"
	"time"

	"wire-payment-backend/internal/config"
	"wire-payment-backend/internal/models"
	"wire-payment-backend/internal/routes"
	"wire-payment-backend/internal/services/ledger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on system env")
	}

	logger, err := config.NewLogger()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	db := config.InitDB()

	if err := db.AutoMigrate(
		&models.WirePayment{},
		&models.ContractAllocation{},
		&models.AuditLog{},
	); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	gl := ledger.NewSimulator(ledger.NewRandomFaults(0.05), 500*time.Millisecond, logger)

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-User-Id"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, gl, logger)

	addr := os.Getenv("APP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if err := r.Run(addr); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
