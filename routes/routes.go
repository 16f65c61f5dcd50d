package routes

import (
	"github.com/Suraj-792/KinMel/controllers"
	"github.com/Suraj-792/KinMel/middleware"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter() *gin.Engine {
	router := gin.Default()

	store := cookie.NewStore([]byte("kinmel-session-key"))
	store.Options(sessions.Options{
		MaxAge:   60 * 60 * 24, // 1 day
		Path:     "/",
		Secure:   false, // Set to true in production with HTTPS
		HttpOnly: true,
	})
	router.Use(sessions.Sessions("kinmel", store))

	api := router.Group("/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", controllers.Register)
			auth.POST("/login", controllers.Login)
		}

		products := api.Group("/products")
		{
			products.GET("", controllers.ListProducts)
			products.GET("/:slug", controllers.GetProduct)
		}

		cart := api.Group("/cart")
		cart.Use(middleware.AuthMiddleware())
		{
			cart.GET("", controllers.GetCart)
			cart.POST("", controllers.AddToCart)
			cart.DELETE("/:id", controllers.RemoveFromCart)
		}

		orders := api.Group("/orders")
		orders.Use(middleware.AuthMiddleware())
		{
			orders.POST("/checkout", controllers.Checkout)
			orders.GET("", controllers.ListOrders)
			orders.GET("/:id", controllers.GetOrder)
			orders.GET("/:id/invoice", controllers.DownloadInvoice)
		}

		payments := api.Group("/payments")
		{
			// Gateway callbacks come from the gateway's browser redirect and
			// carry no session; verification happens server-side.
			payments.GET("/esewa-verify", controllers.EsewaVerifyCallback)
			payments.POST("/esewa-verify", controllers.EsewaVerifyCallback)
			payments.GET("/esewa-fail", controllers.EsewaFailCallback)
			payments.POST("/esewa-fail", controllers.EsewaFailCallback)
			payments.GET("/fonepay-verify", controllers.FonepayVerify)

			authed := payments.Group("")
			authed.Use(middleware.AuthMiddleware())
			{
				authed.POST("/initiate", controllers.InitiatePayment)
				authed.POST("/khalti-verify", controllers.KhaltiVerify)
				authed.POST("/bank-confirm", controllers.BankConfirm)
			}
		}
	}

	return router
}
