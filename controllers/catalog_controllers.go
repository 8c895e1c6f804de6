package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/utils"
)

// CatalogReader serves the read-only menu and table lists diners browse.
type CatalogReader interface {
	MenusByMerchant(ctx context.Context, merchantID uint) ([]models.Menu, error)
	TablesByMerchant(ctx context.Context, merchantID uint) ([]models.Table, error)
}

type CatalogController struct {
	Repo CatalogReader
}

func NewCatalogController(repo CatalogReader) *CatalogController {
	return &CatalogController{Repo: repo}
}

// GetMenus -> list of menus for one merchant
func (cc *CatalogController) GetMenus(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	menus, err := cc.Repo.MenusByMerchant(c.Request.Context(), merchantID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menus", menus)
}

// GetTables -> list of tables for one merchant
func (cc *CatalogController) GetTables(c *gin.Context) {
	merchantID, err := uintParam(c, "merchant_id")
	if err != nil {
		utils.RespondAppError(c, err)
		return
	}
	tables, err := cc.Repo.TablesByMerchant(c.Request.Context(), merchantID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}
