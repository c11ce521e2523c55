package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mydata-ng/privacy-client/internal/models"
)

// Эндпойнты /dashboard.
const (
	PathDashboard       = "/dashboard"
	PathPermissionStats = "/dashboard/permissions/stats"
	PathSecurity        = "/dashboard/security"
	PathAlerts          = "/dashboard/alerts"
)

// DashboardAPI — сводные данные главного экрана.
// Форма data у обзорных эндпойнтов не зафиксирована и отдаётся как есть.
type DashboardAPI struct {
	c Caller
}

func (d *DashboardAPI) GetOverview(ctx context.Context) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, d.c, http.MethodGet, PathDashboard, nil)
}

func (d *DashboardAPI) GetPermissionStats(ctx context.Context) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, d.c, http.MethodGet, PathPermissionStats, nil)
}

func (d *DashboardAPI) GetSecurityInsights(ctx context.Context) (models.Envelope[json.RawMessage], error) {
	return send[json.RawMessage](ctx, d.c, http.MethodGet, PathSecurity, nil)
}

// GetAlerts возвращает активные алерты аномального доступа.
func (d *DashboardAPI) GetAlerts(ctx context.Context) (models.Envelope[[]models.Alert], error) {
	return send[[]models.Alert](ctx, d.c, http.MethodGet, PathAlerts, nil)
}
