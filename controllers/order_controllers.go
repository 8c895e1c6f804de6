package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-orders/cart"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/services"
	"github.com/yeremiapane/restaurant-orders/utils"
)

type OrderReader interface {
	GetOrder(ctx context.Context, orderID uint) (*models.Order, error)
}

type OrderController struct {
	Carts    *cart.Sessions
	Orders   OrderReader
	Checkout *services.CheckoutService
}

func NewOrderController(carts *cart.Sessions, orders OrderReader, checkout *services.CheckoutService) *OrderController {
	return &OrderController{Carts: carts, Orders: orders, Checkout: checkout}
}

// CreateOrder -> checkout the session's cart (status='pending')
func (oc *OrderController) CreateOrder(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		Table string `json:"table"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var order *models.Order
	err = oc.Carts.Do(c.Request.Context(), cartSession(c), merchantID, func(store *cart.Store) error {
		var err error
		order, err = oc.Checkout.CheckoutStore(c.Request.Context(), store, body.Table)
		return err
	})
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("merchant_id", merchantID).Error("checkout failed")
		utils.RespondAppError(c, err)
		return
	}

	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrderByID -> detail 1 order
func (oc *OrderController) GetOrderByID(c *gin.Context) {
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	order, err := oc.Orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}
