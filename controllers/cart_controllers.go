package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yeremiapane/restaurant-orders/cart"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/utils"
)

// CartSessionHeader identifies the diner's browsing session. Carts are keyed by
// session and merchant.
const CartSessionHeader = "X-Cart-Session"

type MenuReader interface {
	GetMenu(ctx context.Context, merchantID, menuID uint) (*models.Menu, error)
}

type CartController struct {
	Carts *cart.Sessions
	Menus MenuReader
}

func NewCartController(carts *cart.Sessions, menus MenuReader) *CartController {
	return &CartController{Carts: carts, Menus: menus}
}

// cartSession returns the request's session id, issuing a new one when the
// client has none.
func cartSession(c *gin.Context) string {
	session := strings.TrimSpace(c.GetHeader(CartSessionHeader))
	if _, err := uuid.Parse(session); err != nil {
		session = uuid.NewString()
	}
	c.Header(CartSessionHeader, session)
	return session
}

// withCart runs fn on the session's cart and answers with the resulting snapshot.
func (cc *CartController) withCart(c *gin.Context, message string, fn func(*cart.Store)) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var snap cart.Snapshot
	cc.Carts.Do(c.Request.Context(), cartSession(c), merchantID, func(store *cart.Store) error {
		fn(store)
		snap = store.Snapshot()
		return nil
	})
	utils.RespondJSON(c, http.StatusOK, message, snap)
}

// GetCart -> current cart with totals
func (cc *CartController) GetCart(c *gin.Context) {
	cc.withCart(c, "Cart", func(*cart.Store) {})
}

// AddItem -> add one unit of a menu item
func (cc *CartController) AddItem(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		MenuID uint `json:"menu_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	menu, err := cc.Menus.GetMenu(c.Request.Context(), merchantID, body.MenuID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	cc.withCart(c, "Item added", func(store *cart.Store) {
		store.Add(cart.Item{
			ID:       menu.ID,
			Name:     menu.Name,
			Price:    menu.Price,
			ImageRef: menu.ImageURL,
		})
	})
}

// RemoveItem -> remove one unit of an item
func (cc *CartController) RemoveItem(c *gin.Context) {
	itemID, err := uintParam(c, "item_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	cc.withCart(c, "Item removed", func(store *cart.Store) {
		store.Remove(itemID)
	})
}

// ClearCart -> empty the cart
func (cc *CartController) ClearCart(c *gin.Context) {
	cc.withCart(c, "Cart cleared", func(store *cart.Store) {
		store.Clear()
	})
}
