package router

import (
	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-orders/board"
	"github.com/yeremiapane/restaurant-orders/cart"
	"github.com/yeremiapane/restaurant-orders/controllers"
	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/middlewares"
	"github.com/yeremiapane/restaurant-orders/repository"
	"github.com/yeremiapane/restaurant-orders/services"
	"github.com/yeremiapane/restaurant-orders/storage"
)

type Deps struct {
	Repo        *repository.OrderRepository
	KV          storage.KV
	Hub         *kds.Hub
	Boards      *board.Registry
	RateLimiter *middlewares.RateLimiter
	CORSOrigin  string
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigin))
	r.Use(middlewares.LoggerMiddleware())
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.RateLimit())
	}

	// Inisialisasi controller
	catalogCtrl := controllers.NewCatalogController(d.Repo)
	carts := cart.NewSessions(d.KV)
	cartCtrl := controllers.NewCartController(carts, d.Repo)
	orderCtrl := controllers.NewOrderController(carts, d.Repo, services.NewCheckoutService(d.Repo))
	boardCtrl := controllers.NewBoardController(d.Boards, d.Hub)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// ----------------------------------------------------------------
	//                      DINER ROUTES
	// ----------------------------------------------------------------
	diner := r.Group("/merchants/:merchant_id")
	{
		diner.GET("/menus", catalogCtrl.GetMenus)
		diner.GET("/tables", catalogCtrl.GetTables)

		diner.GET("/cart", cartCtrl.GetCart)
		diner.POST("/cart/items", cartCtrl.AddItem)
		diner.DELETE("/cart/items/:item_id", cartCtrl.RemoveItem)
		diner.DELETE("/cart", cartCtrl.ClearCart)

		diner.POST("/checkout", orderCtrl.CreateOrder)
	}
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)

	// ----------------------------------------------------------------
	//                      STAFF ROUTES
	// ----------------------------------------------------------------
	staff := r.Group("/admin/merchants/:merchant_id")
	{
		staff.GET("/board", boardCtrl.GetBoard)
		staff.PATCH("/orders/:order_id/status", boardCtrl.UpdateOrderStatus)
		staff.POST("/orders/:order_id/advance", boardCtrl.AdvanceOrder)
	}

	r.GET("/ws/merchants/:merchant_id", boardCtrl.KDSHandler)

	return r
}
