package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-orders/board"
	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware
	},
}

const pongWait = 60 * time.Second

type BoardController struct {
	Boards *board.Registry
	Hub    *kds.Hub
}

func NewBoardController(boards *board.Registry, hub *kds.Hub) *BoardController {
	return &BoardController{Boards: boards, Hub: hub}
}

// GetBoard -> current orders for the staff board, optionally filtered by status
func (bc *BoardController) GetBoard(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	b, err := bc.Boards.Get(c.Request.Context(), merchantID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	orders := b.Orders()
	if status := c.Query("status"); status != "" {
		if !models.IsValidStatus(status) {
			utils.RespondError(c, http.StatusBadRequest, errInvalidStatus(status))
			return
		}
		orders = b.OrdersByStatus(status)
	}

	snap := board.NewSnapshot(merchantID, orders)
	snap.ActiveCount = b.ActiveCount()
	utils.RespondJSON(c, http.StatusOK, "Order board", snap)
}

// UpdateOrderStatus -> staff moves an order to its next status
func (bc *BoardController) UpdateOrderStatus(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.IsValidStatus(body.Status) {
		utils.RespondError(c, http.StatusBadRequest, errInvalidStatus(body.Status))
		return
	}

	b, err := bc.Boards.Get(c.Request.Context(), merchantID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if err := b.UpdateStatus(c.Request.Context(), orderID, body.Status); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order updated", board.NewSnapshot(merchantID, b.Orders()))
}

// AdvanceOrder -> move an order to whatever status follows its current one
func (bc *BoardController) AdvanceOrder(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	orderID, err := uintParam(c, "order_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	b, err := bc.Boards.Get(c.Request.Context(), merchantID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	if err := b.Advance(c.Request.Context(), orderID); err != nil {
		utils.RespondAppError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order advanced", board.NewSnapshot(merchantID, b.Orders()))
}

// KDSHandler -> websocket endpoint streaming board updates for one merchant
func (bc *BoardController) KDSHandler(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	role := c.DefaultQuery("role", "staff")

	b, err := bc.Boards.Get(c.Request.Context(), merchantID)
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	bc.Hub.RegisterClient(ws, merchantID, role)
	if err := bc.Hub.Send(ws, kds.Message{
		Event: kds.EventBoardUpdate,
		Data:  board.NewSnapshot(merchantID, b.Orders()),
	}); err != nil {
		ws.Close()
		return
	}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))
	}

	bc.Hub.UnregisterClient(ws)
}
