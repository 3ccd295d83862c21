package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/campus-hr/hrdesk/pkg/application"
	"github.com/campus-hr/hrdesk/pkg/httpapi"
)

// NavController serves the navigation items registered by all modules to the dashboard shell.
type NavController struct {
	app      application.Application
	basePath string
}

func NewNavController(app application.Application) application.Controller {
	return &NavController{app: app, basePath: "/hrm/api/nav"}
}

func (c *NavController) Key() string {
	return c.basePath
}

func (c *NavController) Register(r *mux.Router) {
	r.HandleFunc(c.basePath, c.List).Methods(http.MethodGet)
}

func (c *NavController) List(w http.ResponseWriter, r *http.Request) {
	items := c.app.NavItems()
	if items == nil {
		items = []application.NavigationItem{}
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, items)
}
