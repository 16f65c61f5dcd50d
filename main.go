package main

import (
	"log"

	"github.com/Suraj-792/KinMel/config"
	"github.com/Suraj-792/KinMel/controllers"
	"github.com/Suraj-792/KinMel/gateways"
	"github.com/Suraj-792/KinMel/payments"
	"github.com/Suraj-792/KinMel/routes"
	"github.com/Suraj-792/KinMel/utils"
)

func main() {
	// Initialize logger
	if err := utils.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load environment variables; missing gateway secrets abort here instead
	// of surfacing as silently rejected signatures per request
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("Error loading config: %v", err)
		log.Fatal("Error loading config:", err)
	}

	// Initialize database
	config.InitDB()

	// Wire the reconciliation engine
	verifiers := gateways.NewRegistry(cfg.Gateways)
	engine := payments.NewEngine(config.DB, cfg.Gateways, verifiers)
	controllers.InitPaymentEngine(engine)

	// Set up router
	router := routes.SetupRouter()

	// Add middleware
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	utils.LogInfo("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
