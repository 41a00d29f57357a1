package pies

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	piesvc "piefolio-backend/internal/application/pies"
	portfoliosvc "piefolio-backend/internal/application/portfolios"
	"piefolio-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testUserID = "550e8400-e29b-41d4-a716-446655440000"

func setupPieHandlerTest(t *testing.T) (*fiber.App, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Portfolio{}, &models.Pie{}, &models.Slice{},
	))

	h := &Handlers{
		Service:    &piesvc.Service{DB: db},
		Portfolios: &portfoliosvc.Service{DB: db},
	}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", testUserID)
		return c.Next()
	})
	app.Get("/pies", h.List)
	app.Post("/pies", h.Create)
	app.Post("/pies/reorder", h.Reorder)
	app.Get("/pies/:pie_id", h.Get)
	app.Patch("/pies/:pie_id", h.Update)
	app.Delete("/pies/:pie_id", h.Delete)
	return app, db
}

func TestCreatePie_DefaultPortfolio(t *testing.T) {
	app, db := setupPieHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{
		"name":              "Growth",
		"target_allocation": 40,
	})
	req := httptest.NewRequest("POST", "/pies", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 201, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	assert.Equal(t, "success", result["status"])
	data, _ := result["data"].(map[string]interface{})
	assert.Equal(t, "Growth", data["name"])
	assert.Equal(t, "#3B82F6", data["color"])

	// First write resolved the implicit default portfolio.
	var portfolio models.Portfolio
	require.NoError(t, db.First(&portfolio, "user_id = ? AND name = ?", testUserID, "Default Portfolio").Error)
}

func TestCreatePie_ForeignPortfolioIs403(t *testing.T) {
	app, db := setupPieHandlerTest(t)

	foreign := &models.Portfolio{UserID: "00000000-0000-0000-0000-000000000099", Name: "Theirs"}
	require.NoError(t, db.Create(foreign).Error)

	body, _ := json.Marshal(map[string]interface{}{
		"portfolio_id":      foreign.ID,
		"name":              "Growth",
		"target_allocation": 10,
	})
	req := httptest.NewRequest("POST", "/pies", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestCreatePie_MissingPortfolioIs404(t *testing.T) {
	app, _ := setupPieHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{
		"portfolio_id":      "no-such-portfolio",
		"name":              "Growth",
		"target_allocation": 10,
	})
	req := httptest.NewRequest("POST", "/pies", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestCreatePie_OverAllocationIs400WithDetails(t *testing.T) {
	app, _ := setupPieHandlerTest(t)

	first, _ := json.Marshal(map[string]interface{}{"name": "Growth", "target_allocation": 60})
	req := httptest.NewRequest("POST", "/pies", bytes.NewReader(first))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	second, _ := json.Marshal(map[string]interface{}{"name": "Income", "target_allocation": 50})
	req = httptest.NewRequest("POST", "/pies", bytes.NewReader(second))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	assert.Equal(t, "error", result["status"])
	errObj, _ := result["error"].(map[string]interface{})
	assert.Contains(t, errObj["message"], "Current: 60%")
	assert.Contains(t, errObj["message"], "Attempted: 50%")
	assert.Contains(t, errObj["message"], "Total would be: 110%")
	details, _ := errObj["details"].(map[string]interface{})
	assert.Equal(t, 110.0, details["total"])
}

func TestCreatePie_InvalidColor(t *testing.T) {
	app, _ := setupPieHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{
		"name":  "Growth",
		"color": "blue",
	})
	req := httptest.NewRequest("POST", "/pies", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestCreatePie_BlankName(t *testing.T) {
	app, _ := setupPieHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{"name": "   "})
	req := httptest.NewRequest("POST", "/pies", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestGetPie_ForeignPieIs404(t *testing.T) {
	app, db := setupPieHandlerTest(t)

	foreign := &models.Portfolio{UserID: "00000000-0000-0000-0000-000000000099", Name: "Theirs"}
	require.NoError(t, db.Create(foreign).Error)
	pie := &models.Pie{PortfolioID: foreign.ID, Name: "Secret", IsActive: true}
	require.NoError(t, db.Create(pie).Error)

	// Reached through the caller's own default portfolio the foreign pie id
	// simply does not exist.
	req := httptest.NewRequest("GET", "/pies/"+pie.ID, nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestListPies_ReturnsTotalAllocation(t *testing.T) {
	app, _ := setupPieHandlerTest(t)

	for _, p := range []map[string]interface{}{
		{"name": "Growth", "target_allocation": 40},
		{"name": "Income", "target_allocation": 25},
	} {
		body, _ := json.Marshal(p)
		req := httptest.NewRequest("POST", "/pies", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, 201, resp.StatusCode)
	}

	req := httptest.NewRequest("GET", "/pies", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	data, _ := result["data"].(map[string]interface{})
	assert.Equal(t, 65.0, data["total_allocation"])
	list, _ := data["pies"].([]interface{})
	assert.Len(t, list, 2)
}

func TestDeletePie_NoContent(t *testing.T) {
	app, _ := setupPieHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{"name": "Growth", "target_allocation": 10})
	req := httptest.NewRequest("POST", "/pies", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, 201, resp.StatusCode)

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	data, _ := result["data"].(map[string]interface{})
	pieID, _ := data["id"].(string)
	require.NotEmpty(t, pieID)

	req = httptest.NewRequest("DELETE", "/pies/"+pieID, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 204, resp.StatusCode)

	req = httptest.NewRequest("DELETE", "/pies/"+pieID, nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestReorderPies_EmptyIDs(t *testing.T) {
	app, _ := setupPieHandlerTest(t)

	body, _ := json.Marshal(map[string]interface{}{"ids": []string{}})
	req := httptest.NewRequest("POST", "/pies/reorder", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
