package main

import (
	"log"
	"os"

	"taxengine/internal/database"
	"taxengine/internal/handler"
	"taxengine/internal/middleware"
	"taxengine/internal/repository"
	"taxengine/internal/service"
	"taxengine/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Years of expanded holiday dates kept in the calculator's read-through cache.
const holidayCacheYears = 16

// @title           Tax Deadline Engine API
// @version         1.0
// @description     Configurable tax filing deadline engine: deadline rules, public holidays, client extensions and audit trail.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub for config-change events
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	ruleRepo := repository.NewRuleRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	extensionRepo := repository.NewExtensionRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	holidayCache := service.NewHolidayYearCache(holidayCacheYears)

	ruleService := service.NewRuleService(ruleRepo, auditRepo, txManager, wsHub)
	holidayService := service.NewHolidayService(holidayRepo, auditRepo, txManager, wsHub, holidayCache)
	extensionService := service.NewExtensionService(extensionRepo, auditRepo, txManager, wsHub)
	deadlineService := service.NewDeadlineService(ruleRepo, holidayRepo, extensionRepo, holidayCache)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	ruleHandler := handler.NewRuleHandler(ruleService)
	holidayHandler := handler.NewHolidayHandler(holidayService)
	extensionHandler := handler.NewExtensionHandler(extensionService)
	deadlineHandler := handler.NewDeadlineHandler(deadlineService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Admin frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint for config-change events
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	ruleHandler.RegisterRoutes(router.Group(""))
	holidayHandler.RegisterRoutes(router.Group(""))
	extensionHandler.RegisterRoutes(router.Group(""))
	deadlineHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
