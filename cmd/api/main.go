package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ims-platform/inventory-service/internal/application"
	"github.com/ims-platform/inventory-service/internal/infrastructure/events"
	mongoRepo "github.com/ims-platform/inventory-service/internal/infrastructure/mongodb"
	apperrors "github.com/ims-platform/inventory-service/pkg/errors"
	"github.com/ims-platform/inventory-service/pkg/logging"
	"github.com/ims-platform/inventory-service/pkg/metrics"
	"github.com/ims-platform/inventory-service/pkg/middleware"
	"github.com/ims-platform/inventory-service/pkg/mongodb"
)

const serviceName = "inventory-service"

func main() {
	logConfig := logging.DefaultConfig(serviceName)
	logConfig.Level = logging.LogLevel(getEnv("LOG_LEVEL", "info"))
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting inventory-service API")

	config := loadConfig()
	ctx := context.Background()

	metricsConfig := metrics.DefaultConfig(serviceName)
	m := metrics.New(metricsConfig)
	logger.Info("Metrics initialized")

	mongoClient, err := mongodb.NewClient(ctx, config.MongoDB)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	protectedMongo := mongodb.NewCircuitBreakerClient(mongoClient, logger.Logger)
	defer protectedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", config.MongoDB.Database)

	itemRepo, err := mongoRepo.NewItemRepository(protectedMongo)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize item repository")
		os.Exit(1)
	}
	salesRepo, err := mongoRepo.NewSalesRecordRepository(protectedMongo)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize sales record repository")
		os.Exit(1)
	}
	categoryRepo, err := mongoRepo.NewCategoryRepository(protectedMongo)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize category repository")
		os.Exit(1)
	}

	publisher := events.NewPublisher(config.Events, logger)
	defer publisher.Close()
	logger.Info("Kafka publisher initialized", "brokers", config.Events.Brokers, "topic", config.Events.Topic)

	inventoryService := application.NewInventoryService(itemRepo, salesRepo, publisher, m, logger)
	salesService := application.NewSalesService(itemRepo, salesRepo, logger)
	categoryService := application.NewCategoryService(categoryRepo, logger)
	authService := application.NewAuthService(config.Auth, logger)

	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return protectedMongo.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	router.POST("/auth/login", loginHandler(authService, logger))

	requireAuth := middleware.RequireAuth(authService.Verify)

	items := router.Group("/api/v1/items")
	{
		// Static routes first (must come before wildcard routes)
		items.GET("", listItemsHandler(inventoryService, logger))
		items.POST("", requireAuth, createItemHandler(inventoryService, logger))
		items.GET("/category/:category", listByCategoryHandler(inventoryService, logger))
		items.PATCH("/update-prices", requireAuth, updatePricesHandler(inventoryService, logger))

		// Wildcard id routes
		items.GET("/:id", getItemHandler(inventoryService, logger))
		items.PUT("/:id", requireAuth, updateItemHandler(inventoryService, logger))
		items.DELETE("/:id", requireAuth, deleteItemHandler(inventoryService, logger))
		items.PATCH("/:id/quantity", requireAuth, adjustQuantityHandler(inventoryService, logger))
		items.POST("/:id/sell", requireAuth, sellItemHandler(inventoryService, logger))
	}

	sales := router.Group("/api/v1/sales")
	{
		sales.GET("", dashboardHandler(salesService, logger))
		sales.GET("/top-sellers", topSellersHandler(salesService, logger))
		sales.GET("/low-stock", lowStockHandler(salesService, logger))
		sales.GET("/period", salesByPeriodHandler(salesService, logger))
		sales.GET("/category/:category", salesByCategoryHandler(salesService, logger))
		sales.GET("/item/:itemId", salesByItemHandler(salesService, logger))
		sales.GET("/item/:itemId/period", itemSalesByPeriodHandler(salesService, logger))
		sales.GET("/history/:itemId", salesHistoryHandler(salesService, logger))
	}

	categories := router.Group("/api/v1/categories")
	{
		categories.GET("", listCategoriesHandler(categoryService, logger))
		categories.POST("", requireAuth, createCategoryHandler(categoryService, logger))
		categories.GET("/:id", getCategoryHandler(categoryService, logger))
		categories.PUT("/:id", requireAuth, updateCategoryHandler(categoryService, logger))
		categories.DELETE("/:id", requireAuth, deleteCategoryHandler(categoryService, logger))
	}

	srv := &http.Server{
		Addr:         config.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", config.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// Config holds application configuration
type Config struct {
	ServerAddr string
	MongoDB    *mongodb.Config
	Events     *events.Config
	Auth       application.AuthConfig
}

func loadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		MongoDB: &mongodb.Config{
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "ims_db"),
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			MinPoolSize:    10,
		},
		Events: &events.Config{
			Brokers:      strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:        getEnv("KAFKA_TOPIC", "inventory.events"),
			BatchTimeout: 50 * time.Millisecond,
		},
		Auth: application.AuthConfig{
			Username: getEnv("AUTH_USERNAME", "admin"),
			Password: getEnv("AUTH_PASSWORD", ""),
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   serviceName,
			TokenTTL: 24 * time.Hour,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// itemID binds and validates the :id path parameter. Malformed ids are
// rejected up front; well-formed but unknown ids surface as not-found from the
// service.
func itemID(c *gin.Context) (string, bool) {
	var uri struct {
		ID string `uri:"id" binding:"required,object_id"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.AbortWithAppError(c, apperrors.ErrValidation("invalid item id").WithDetail("id", c.Param("id")))
		return "", false
	}
	return uri.ID, true
}

func loginHandler(service *application.AuthService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		resp, err := service.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

func createItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name        string  `json:"name" binding:"required"`
			Category    string  `json:"category"`
			Description string  `json:"description"`
			Quantity    int     `json:"quantity" binding:"gte=0"`
			MinStock    int     `json:"minStock" binding:"gte=0"`
			Price       float64 `json:"price" binding:"gte=0"`
			ImageURL    string  `json:"imageUrl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		item, err := service.CreateItem(c.Request.Context(), application.CreateItemCommand{
			Name:        req.Name,
			Category:    req.Category,
			Description: req.Description,
			Quantity:    req.Quantity,
			MinStock:    req.MinStock,
			Price:       req.Price,
			ImageURL:    req.ImageURL,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, item)
	}
}

func listItemsHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		items, err := service.ListItems(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

func listByCategoryHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		items, err := service.ListByCategory(c.Request.Context(), c.Param("category"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

func getItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		id, ok := itemID(c)
		if !ok {
			return
		}

		item, err := service.GetItem(c.Request.Context(), application.GetItemQuery{ID: id})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func updateItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		id, ok := itemID(c)
		if !ok {
			return
		}

		var req struct {
			Name        string  `json:"name" binding:"required"`
			Category    string  `json:"category"`
			Quantity    int     `json:"quantity" binding:"gte=0"`
			MinStock    int     `json:"minStock" binding:"gte=0"`
			Price       float64 `json:"price" binding:"gte=0"`
			ImageURL    string  `json:"imageUrl"`
			Description *string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		item, err := service.UpdateItem(c.Request.Context(), application.UpdateItemCommand{
			ID:          id,
			Name:        req.Name,
			Category:    req.Category,
			Quantity:    req.Quantity,
			MinStock:    req.MinStock,
			Price:       req.Price,
			ImageURL:    req.ImageURL,
			Description: req.Description,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func deleteItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		id, ok := itemID(c)
		if !ok {
			return
		}

		if err := service.DeleteItem(c.Request.Context(), id); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "item deleted"})
	}
}

func adjustQuantityHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		id, ok := itemID(c)
		if !ok {
			return
		}

		var req struct {
			Delta int `json:"delta" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		item, err := service.AdjustQuantity(c.Request.Context(), application.AdjustQuantityCommand{
			ID:    id,
			Delta: req.Delta,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func sellItemHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		id, ok := itemID(c)
		if !ok {
			return
		}

		var req struct {
			Quantity int `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		item, err := service.SellItem(c.Request.Context(), application.SellItemCommand{
			ID:       id,
			Quantity: req.Quantity,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, item)
	}
}

func updatePricesHandler(service *application.InventoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		result, err := service.UpdateAllPrices(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func dashboardHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		dashboard, err := service.Dashboard(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, dashboard)
	}
}

func topSellersHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "5"), 10, 64)

		items, err := service.TopSellingItems(c.Request.Context(), limit)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

func lowStockHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "5"), 10, 64)

		items, err := service.LowStockItems(c.Request.Context(), limit)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

func salesByItemHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		records, err := service.SalesByItem(c.Request.Context(), c.Param("itemId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func salesHistoryHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		records, err := service.SalesHistory(c.Request.Context(), c.Param("itemId"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func salesByCategoryHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		records, err := service.SalesByCategory(c.Request.Context(), c.Param("category"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func salesByPeriodHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		start, end, err := parsePeriod(c)
		if err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		records, err := service.SalesByPeriod(c.Request.Context(), application.SalesByPeriodQuery{
			Start: start,
			End:   end,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func itemSalesByPeriodHandler(service *application.SalesService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		start, end, err := parsePeriod(c)
		if err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		records, err := service.ItemSalesByPeriod(c.Request.Context(), application.ItemSalesByPeriodQuery{
			ItemID: c.Param("itemId"),
			Start:  start,
			End:    end,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, records)
	}
}

func createCategoryHandler(service *application.CategoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name     string `json:"name" binding:"required"`
			ImageURL string `json:"imageUrl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		category, err := service.CreateCategory(c.Request.Context(), application.CreateCategoryCommand{
			Name:     req.Name,
			ImageURL: req.ImageURL,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, category)
	}
}

func listCategoriesHandler(service *application.CategoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		categories, err := service.ListCategories(c.Request.Context())
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, categories)
	}
}

func getCategoryHandler(service *application.CategoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		category, err := service.GetCategory(c.Request.Context(), c.Param("id"))
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, category)
	}
}

func updateCategoryHandler(service *application.CategoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req struct {
			Name     string `json:"name" binding:"required"`
			ImageURL string `json:"imageUrl"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			responder.RespondBadRequest(err.Error())
			return
		}

		category, err := service.UpdateCategory(c.Request.Context(), application.UpdateCategoryCommand{
			ID:       c.Param("id"),
			Name:     req.Name,
			ImageURL: req.ImageURL,
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, category)
	}
}

func deleteCategoryHandler(service *application.CategoryService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		if err := service.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "category deleted"})
	}
}

// parsePeriod reads the start and end query parameters as RFC 3339 timestamps
func parsePeriod(c *gin.Context) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
