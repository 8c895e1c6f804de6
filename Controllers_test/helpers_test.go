package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-orders/board"
	"github.com/yeremiapane/restaurant-orders/database"
	"github.com/yeremiapane/restaurant-orders/kds"
	"github.com/yeremiapane/restaurant-orders/models"
	"github.com/yeremiapane/restaurant-orders/repository"
	"github.com/yeremiapane/restaurant-orders/router"
	"github.com/yeremiapane/restaurant-orders/storage"
)

type testEnv struct {
	db     *gorm.DB
	repo   *repository.OrderRepository
	hub    *kds.Hub
	boards *board.Registry
	router *gin.Engine
	burger models.Menu
	fries  models.Menu
}

// setupTestEnv -> sqlite in-memory, one merchant (id 1) with two menus and table "12"
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	env := &testEnv{db: db, repo: repository.NewOrderRepository(db), hub: kds.NewHub()}
	env.boards = board.NewRegistry(env.repo, env.hub, kds.NewHubAlerter(env.hub))
	t.Cleanup(env.boards.Close)

	env.burger = models.Menu{MerchantID: 1, Name: "Burger", Price: decimal.RequireFromString("12.50")}
	env.fries = models.Menu{MerchantID: 1, Name: "Fries", Price: decimal.RequireFromString("3.25")}
	require.NoError(t, db.Create(&env.burger).Error)
	require.NoError(t, db.Create(&env.fries).Error)
	require.NoError(t, db.Create(&models.Table{MerchantID: 1, TableNumber: "12", Status: "available"}).Error)

	env.router = router.SetupRouter(router.Deps{
		Repo:       env.repo,
		KV:         storage.NewMemoryKV(),
		Hub:        env.hub,
		Boards:     env.boards,
		CORSOrigin: "http://localhost",
	})
	return env
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, session string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set("X-Cart-Session", session)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}
