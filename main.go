package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/godwins3/beta-store/handlers/orders"
	"github.com/godwins3/beta-store/handlers/payments"
	"github.com/godwins3/beta-store/handlers/products"
	"github.com/godwins3/beta-store/migrations"
	"github.com/godwins3/beta-store/mpesa"
	"github.com/godwins3/beta-store/notify"
	"github.com/godwins3/beta-store/seed"
	"github.com/godwins3/beta-store/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env file:", err)
	}
}

func main() {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://shop.betamilk.co.ke"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := cookie.NewStore([]byte(os.Getenv("SESSION_SECRET")))
	r.Use(sessions.Sessions("checkout", store))

	utils.ConnectDatabase()

	migrations.MigrateShop()

	// Seed Initial Data
	if err := seed.SeedProducts(); err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	dispatcher := notify.NewDispatcher(utils.DB, notify.NewSMTPMailer(), 2)
	dispatcher.Start()
	defer dispatcher.Stop()

	orders.Notifier = dispatcher
	payments.Notifier = dispatcher
	payments.Gateway = mpesa.FromEnv()

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Beta Milk shop"})
	})
	r.GET("/products", products.GetProducts)
	r.POST("/orders", orders.CreateOrder)
	r.GET("/orders", orders.ListOrders)
	payments.RegisterPaymentRoutes(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
