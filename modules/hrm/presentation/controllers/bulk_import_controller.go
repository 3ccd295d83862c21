package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/hrapi"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/spreadsheet"
	"github.com/campus-hr/hrdesk/modules/hrm/services"
	"github.com/campus-hr/hrdesk/pkg/application"
	"github.com/campus-hr/hrdesk/pkg/composables"
	"github.com/campus-hr/hrdesk/pkg/httpapi"
	"github.com/campus-hr/hrdesk/pkg/middleware"
)

const (
	CampusHeader     = "X-Campus"
	uploadFormField  = "file"
	templateFilename = "employee-import-template.xlsx"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	multipartMemory  = 8 << 20
	defaultMaxUpload = 10 << 20
)

type BulkImportControllerOptions struct {
	// OperatorCampus is used when a request carries no X-Campus header.
	OperatorCampus string
	MaxUploadSize  int64
}

type BulkImportController struct {
	app            application.Application
	imports        *services.BulkImportService
	operatorCampus string
	maxUploadSize  int64
	basePath       string
}

func NewBulkImportController(app application.Application, opts BulkImportControllerOptions) application.Controller {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = defaultMaxUpload
	}
	return &BulkImportController{
		app:            app,
		imports:        app.Service(services.BulkImportService{}).(*services.BulkImportService),
		operatorCampus: strings.TrimSpace(opts.OperatorCampus),
		maxUploadSize:  opts.MaxUploadSize,
		basePath:       "/hrm/api/imports",
	}
}

func (c *BulkImportController) Key() string {
	return c.basePath
}

func (c *BulkImportController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()
	router.Use(middleware.TracedMiddleware("hrm.imports"))

	router.HandleFunc("/fields", c.Fields).Methods(http.MethodGet)
	router.HandleFunc("/template", c.Template).Methods(http.MethodGet)

	router.HandleFunc("", c.Upload).Methods(http.MethodPost)
	router.HandleFunc("/{id:[0-9a-fA-F-]{36}}", c.Get).Methods(http.MethodGet)
	router.HandleFunc("/{id:[0-9a-fA-F-]{36}}", c.Cancel).Methods(http.MethodDelete)
	router.HandleFunc("/{id:[0-9a-fA-F-]{36}}/upload", c.Reupload).Methods(http.MethodPost)
	router.HandleFunc("/{id:[0-9a-fA-F-]{36}}/rows/{rowID:[0-9]+}", c.UpdateRow).Methods(http.MethodPatch)
	router.HandleFunc("/{id:[0-9a-fA-F-]{36}}/rows/{rowID:[0-9]+}", c.DeleteRow).Methods(http.MethodDelete)
	router.HandleFunc("/{id:[0-9a-fA-F-]{36}}/submit", c.Submit).Methods(http.MethodPost)
}

type fieldsResponse struct {
	Fields     []employee.CanonicalField `json:"fields"`
	Extensions []string                  `json:"extensions"`
}

func (c *BulkImportController) Fields(w http.ResponseWriter, r *http.Request) {
	_ = httpapi.WriteJSON(w, http.StatusOK, fieldsResponse{
		Fields:     employee.CanonicalFields,
		Extensions: spreadsheet.SupportedExtensions(),
	})
}

func (c *BulkImportController) Template(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+templateFilename+`"`)
	if err := spreadsheet.WriteTemplate(w); err != nil {
		logger(r).WithError(err).Error("failed to write import template")
	}
}

func (c *BulkImportController) Upload(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := c.readUpload(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	sess, err := c.imports.Start(r.Context(), c.campus(r), filename, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, sess.View())
}

func (c *BulkImportController) Reupload(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	file, filename, ok := c.readUpload(w, r)
	if !ok {
		return
	}
	defer func() { _ = file.Close() }()

	if err := c.imports.Load(r.Context(), id, filename, file); err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.writeSession(w, r, id)
}

func (c *BulkImportController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	c.writeSession(w, r, id)
}

type updateRowRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type rowResponse struct {
	Row     services.RowView `json:"row"`
	Summary services.Summary `json:"summary"`
}

func (c *BulkImportController) UpdateRow(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	rowID, ok := rowIDParam(w, r)
	if !ok {
		return
	}

	var req updateRowRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_INVALID_BODY", "invalid json body")
		return
	}

	row, err := c.imports.UpdateField(r.Context(), id, rowID, req.Field, req.Value)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	sess, err := c.imports.Get(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, rowResponse{Row: row, Summary: sess.Summary()})
}

func (c *BulkImportController) DeleteRow(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	rowID, ok := rowIDParam(w, r)
	if !ok {
		return
	}
	if err := c.imports.DeleteRow(r.Context(), id, rowID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	c.writeSession(w, r, id)
}

func (c *BulkImportController) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	out, err := c.imports.Submit(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *BulkImportController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	if err := c.imports.Cancel(id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *BulkImportController) writeSession(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, err := c.imports.Get(id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, sess.View())
}

func (c *BulkImportController) campus(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(CampusHeader)); v != "" {
		return v
	}
	return c.operatorCampus
}

func (c *BulkImportController) readUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, c.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = httpapi.WriteRequestError(w, r, http.StatusRequestEntityTooLarge, "HRM_UPLOAD_TOO_LARGE", "file is too large")
			return nil, "", false
		}
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_INVALID_UPLOAD", "expected a multipart form upload")
		return nil, "", false
	}
	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_INVALID_UPLOAD", "file is required")
		return nil, "", false
	}
	return file, header.Filename, true
}

func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_INVALID_ID", "invalid import id")
		return uuid.Nil, false
	}
	return id, true
}

func rowIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	rowID, err := strconv.Atoi(mux.Vars(r)["rowID"])
	if err != nil || rowID < 1 {
		_ = httpapi.WriteRequestError(w, r, http.StatusBadRequest, "HRM_INVALID_ROW", "invalid row id")
		return 0, false
	}
	return rowID, true
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func logger(r *http.Request) *logrus.Entry {
	l, _ := composables.TryUseLogger(r.Context())
	return l
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "HRM_INTERNAL"
	message := err.Error()
	switch {
	case errors.Is(err, hrapi.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "HRM_SESSION_EXPIRED"
		message = "session expired, please sign in again"
	case errors.Is(err, services.ErrSessionNotFound):
		status, code = http.StatusNotFound, "HRM_IMPORT_NOT_FOUND"
	case errors.Is(err, services.ErrRowNotFound):
		status, code = http.StatusNotFound, "HRM_ROW_NOT_FOUND"
	case errors.Is(err, services.ErrUnknownField):
		status, code = http.StatusBadRequest, "HRM_UNKNOWN_FIELD"
	case errors.Is(err, services.ErrSessionBusy), errors.Is(err, services.ErrSubmissionInProgress):
		status, code = http.StatusConflict, "HRM_IMPORT_BUSY"
	case errors.Is(err, services.ErrNothingLoaded):
		status, code = http.StatusConflict, "HRM_NOTHING_LOADED"
	case errors.Is(err, services.ErrNoValidRows):
		status, code = http.StatusUnprocessableEntity, "HRM_NO_VALID_ROWS"
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		status, code = http.StatusUnsupportedMediaType, "HRM_UNSUPPORTED_FORMAT"
	case errors.Is(err, services.ErrParse):
		status, code = http.StatusUnprocessableEntity, "HRM_PARSE_FAILED"
	case errors.Is(err, services.ErrReferenceData), errors.Is(err, services.ErrSubmissionFailed):
		status, code = http.StatusBadGateway, "HRM_UPSTREAM_FAILED"
	}

	entry := logger(r).WithError(err).WithField("code", code)
	if status >= http.StatusInternalServerError {
		entry.Error("import request failed")
	} else {
		entry.Warn("import request rejected")
	}
	_ = httpapi.WriteRequestError(w, r, status, code, message)
}
