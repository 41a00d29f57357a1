package portfolios

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	portfoliosvc "piefolio-backend/internal/application/portfolios"
	"piefolio-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUserID = "550e8400-e29b-41d4-a716-446655440000"

func setupPortfolioHandlerTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Portfolio{}, &models.Pie{}, &models.Slice{},
	))

	h := &Handlers{Service: &portfoliosvc.Service{DB: db}}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", testUserID)
		return c.Next()
	})
	app.Get("/portfolios", h.List)
	app.Post("/portfolios", h.Create)
	app.Get("/portfolios/:portfolio_id", h.Get)
	app.Put("/portfolios/:portfolio_id", h.Update)
	app.Delete("/portfolios/:portfolio_id", h.Delete)
	return app, db
}

func TestCreatePortfolio_Created(t *testing.T) {
	app, _ := setupPortfolioHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{
		"name":        "Retirement",
		"description": "long horizon",
	})
	req := httptest.NewRequest("POST", "/portfolios", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	data, _ := result["data"].(map[string]interface{})
	assert.Equal(t, "Retirement", data["name"])
	assert.Equal(t, 0.0, data["pie_count"])
}

func TestCreatePortfolio_DuplicateName(t *testing.T) {
	app, _ := setupPortfolioHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{"name": "Retirement"})
	req := httptest.NewRequest("POST", "/portfolios", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	dup, _ := json.Marshal(map[string]interface{}{"name": "retirement"})
	req = httptest.NewRequest("POST", "/portfolios", bytes.NewReader(dup))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	errObj, _ := result["error"].(map[string]interface{})
	assert.Equal(t, "Portfolio with name 'retirement' already exists", errObj["message"])
}

func TestGetPortfolio_ForeignIs404(t *testing.T) {
	app, db := setupPortfolioHandlerTest(t)

	foreign := &models.Portfolio{UserID: "00000000-0000-0000-0000-000000000099", Name: "Theirs"}
	require.NoError(t, db.Create(foreign).Error)

	req := httptest.NewRequest("GET", "/portfolios/"+foreign.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestGetPortfolio_WithAggregates(t *testing.T) {
	app, db := setupPortfolioHandlerTest(t)

	portfolio := &models.Portfolio{UserID: testUserID, Name: "Main"}
	require.NoError(t, db.Create(portfolio).Error)
	require.NoError(t, db.Create(&models.Pie{PortfolioID: portfolio.ID, Name: "Growth", TargetAllocation: 40, IsActive: true}).Error)
	// GORM skips zero-value fields on create and the column defaults to true,
	// so the pie is deactivated with an explicit update.
	dormant := &models.Pie{PortfolioID: portfolio.ID, Name: "Dormant", TargetAllocation: 20, IsActive: true}
	require.NoError(t, db.Create(dormant).Error)
	require.NoError(t, db.Model(dormant).Update("is_active", false).Error)

	req := httptest.NewRequest("GET", "/portfolios/"+portfolio.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	data, _ := result["data"].(map[string]interface{})
	// Inactive pies count in pie_count but not in the allocation total.
	assert.Equal(t, 2.0, data["pie_count"])
	assert.Equal(t, 40.0, data["total_allocation"])
}

func TestListPortfolios_OwnOnly(t *testing.T) {
	app, db := setupPortfolioHandlerTest(t)

	require.NoError(t, db.Create(&models.Portfolio{UserID: testUserID, Name: "Mine"}).Error)
	require.NoError(t, db.Create(&models.Portfolio{UserID: "00000000-0000-0000-0000-000000000099", Name: "Theirs"}).Error)

	req := httptest.NewRequest("GET", "/portfolios", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	data, _ := result["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["total"])
	list, _ := data["portfolios"].([]interface{})
	require.Len(t, list, 1)
	first, _ := list[0].(map[string]interface{})
	assert.Equal(t, "Mine", first["name"])
}

func TestUpdatePortfolio_ForeignIs404(t *testing.T) {
	app, db := setupPortfolioHandlerTest(t)

	foreign := &models.Portfolio{UserID: "00000000-0000-0000-0000-000000000099", Name: "Theirs"}
	require.NoError(t, db.Create(foreign).Error)

	body, _ := json.Marshal(map[string]interface{}{"name": "Hijacked"})
	req := httptest.NewRequest("PUT", "/portfolios/"+foreign.ID, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	// Unchanged.
	var got models.Portfolio
	require.NoError(t, db.First(&got, "id = ?", foreign.ID).Error)
	assert.Equal(t, "Theirs", got.Name)
}

func TestDeletePortfolio_NoContent(t *testing.T) {
	app, db := setupPortfolioHandlerTest(t)

	portfolio := &models.Portfolio{UserID: testUserID, Name: "Main"}
	require.NoError(t, db.Create(portfolio).Error)
	pie := &models.Pie{PortfolioID: portfolio.ID, Name: "Growth", IsActive: true}
	require.NoError(t, db.Create(pie).Error)
	require.NoError(t, db.Create(&models.Slice{PieID: pie.ID, Symbol: "AAPL", TargetWeight: 10, IsActive: true}).Error)

	req := httptest.NewRequest("DELETE", "/portfolios/"+portfolio.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Pie{}).Where("portfolio_id = ?", portfolio.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, db.Model(&models.Slice{}).Where("pie_id = ?", pie.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	req = httptest.NewRequest("DELETE", "/portfolios/"+portfolio.ID, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestDeletePortfolio_ForeignIs404(t *testing.T) {
	app, db := setupPortfolioHandlerTest(t)

	foreign := &models.Portfolio{UserID: "00000000-0000-0000-0000-000000000099", Name: "Theirs"}
	require.NoError(t, db.Create(foreign).Error)

	req := httptest.NewRequest("DELETE", "/portfolios/"+foreign.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.Portfolio{}).Where("id = ?", foreign.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
