package api

import (
	"net/http"
)

// dashboardHandler serves the map page.
type dashboardHandler struct{}

func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard requests.
// The page polls /api/alerts and draws the latest alert on a Leaflet map.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	http.ServeFileFS(w, r, dashboardFS, "dashboard.html")
}

// HandleRoot redirects / to the dashboard.
func (h *dashboardHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
