package controllers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/leave"
	"github.com/campus-hr/hrdesk/pkg/application"
	"github.com/campus-hr/hrdesk/pkg/httpapi"
)

// LeaveController exposes the leave approval workflow so dashboards render the same status chain.
type LeaveController struct {
	basePath string
}

func NewLeaveController() application.Controller {
	return &LeaveController{basePath: "/hrm/api/leave"}
}

func (c *LeaveController) Key() string {
	return c.basePath
}

func (c *LeaveController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.HandleFunc("/statuses", c.Statuses).Methods(http.MethodGet)
	router.HandleFunc("/transitions", c.Transition).Methods(http.MethodPost)
}

type leaveStatusResponse struct {
	Status   leave.Status   `json:"status"`
	Terminal bool           `json:"terminal"`
	Next     []leave.Status `json:"next"`
}

func (c *LeaveController) Statuses(w http.ResponseWriter, r *http.Request) {
	all := leave.Statuses()
	out := make([]leaveStatusResponse, 0, len(all))
	for _, st := range all {
		item := leaveStatusResponse{Status: st, Terminal: st.IsTerminal(), Next: []leave.Status{}}
		for _, to := range all {
			if st.CanTransition(to) {
				item.Next = append(item.Next, to)
			}
		}
		out = append(out, item)
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

type transitionRequest struct {
	// Kind is CL or CCL. Empty means CL.
	Kind string `json:"kind"`
	From string `json:"from"`
	To   string `json:"to"`
}

type transitionResponse struct {
	Kind   leave.RequestKind `json:"kind"`
	Status leave.Status      `json:"status"`
}

// Transition checks a single status move and echoes the request kind and resulting status.
func (c *LeaveController) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_INVALID_BODY", "invalid json body")
		return
	}
	kind := leave.KindCL
	if strings.TrimSpace(req.Kind) != "" {
		k, err := leave.ParseRequestKind(req.Kind)
		if err != nil {
			_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_UNKNOWN_LEAVE_KIND", err.Error())
			return
		}
		kind = k
	}
	from, err := leave.ParseStatus(req.From)
	if err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_UNKNOWN_STATUS", err.Error())
		return
	}
	to, err := leave.ParseStatus(req.To)
	if err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_UNKNOWN_STATUS", err.Error())
		return
	}
	st, err := from.Transition(to)
	if err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusUnprocessableEntity, "HRM_ILLEGAL_TRANSITION", err.Error())
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, transitionResponse{Kind: kind, Status: st})
}
