package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
	"github.com/campus-hr/hrdesk/modules/hrm/infrastructure/spreadsheet"
	"github.com/campus-hr/hrdesk/modules/hrm/services"
	"github.com/campus-hr/hrdesk/pkg/application"
)

const staffCSV = "Name,Email,Employee ID,Phone Number,Branch Code,Role\n" +
	"John Doe,john.doe@college.edu,EMP-001,9876543210,CSE,Faculty\n" +
	"Mary Major,mary.major@college.edu,EMP-002,12345,CSE,\n"

type staticRefs struct{}

func (staticRefs) Branches(ctx context.Context, campus string) ([]employee.Branch, error) {
	return []employee.Branch{{Code: "CSE", Name: "Computer Science", IsActive: true}}, nil
}

func (staticRefs) Roles(ctx context.Context, campus string) ([]employee.Role, error) {
	return []employee.Role{{Value: "faculty", Label: "Faculty"}, {Value: "other", Label: "Other"}}, nil
}

type recordingSubmitter struct {
	batches [][]employee.Record
}

func (s *recordingSubmitter) BulkCreate(ctx context.Context, records []employee.Record) ([]employee.BulkResult, error) {
	s.batches = append(s.batches, records)
	out := make([]employee.BulkResult, len(records))
	for i, r := range records {
		out[i] = employee.BulkResult{Row: i + 1, EmployeeID: r.EmployeeID, Success: true}
	}
	return out, nil
}

func newTestRouter(t *testing.T) (*mux.Router, *recordingSubmitter) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	app := application.New(&application.ApplicationOptions{Logger: logger})

	submitter := &recordingSubmitter{}
	app.RegisterServices(services.NewBulkImportService(
		spreadsheet.NewDecoder(),
		staticRefs{},
		submitter,
		services.NewSessionStore(time.Hour),
		app.EventPublisher(),
		logger,
	))

	r := mux.NewRouter()
	NewBulkImportController(app, BulkImportControllerOptions{OperatorCampus: "engineering"}).Register(r)
	NewLeaveController().Register(r)
	return r, submitter
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type sessionBody struct {
	ID      string           `json:"id"`
	State   string           `json:"state"`
	Summary services.Summary `json:"summary"`
	Rows    []struct {
		ID     int               `json:"id"`
		Valid  bool              `json:"valid"`
		Errors map[string]string `json:"errors"`
		Record employee.Record   `json:"record"`
	} `json:"rows"`
}

func upload(t *testing.T, r http.Handler) sessionBody {
	t.Helper()
	body, contentType := multipartUpload(t, "staff.csv", staffCSV)
	req := httptest.NewRequest(http.MethodPost, "/hrm/api/imports", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(r, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestBulkImportController_UploadEditSubmit(t *testing.T) {
	r, submitter := newTestRouter(t)

	sess := upload(t, r)
	require.Equal(t, "mapped", sess.State)
	require.Equal(t, 2, sess.Summary.Total)
	require.Equal(t, 1, sess.Summary.Valid)
	require.Equal(t, "engineering", sess.Rows[0].Record.Campus)
	require.Equal(t, "faculty", sess.Rows[0].Record.Role)
	require.Contains(t, sess.Rows[1].Errors, "phoneNumber")

	patch := httptest.NewRequest(http.MethodPatch, "/hrm/api/imports/"+sess.ID+"/rows/2",
		strings.NewReader(`{"field":"phoneNumber","value":"9876543211"}`))
	patch.Header.Set("Content-Type", "application/json")
	rec := serve(r, patch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated struct {
		Row     struct{ Valid bool }
		Summary services.Summary
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.True(t, updated.Row.Valid)
	require.True(t, updated.Summary.BulkValid)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/hrm/api/imports/"+sess.ID+"/submit", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var outcome services.SubmitOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.Equal(t, 2, outcome.Sent)
	require.Equal(t, 0, outcome.Skipped)
	require.Len(t, submitter.batches, 1)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/hrm/api/imports/"+sess.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var final sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &final))
	require.Equal(t, "done", final.State)
}

func TestBulkImportController_CampusHeaderOverridesDefault(t *testing.T) {
	r, _ := newTestRouter(t)
	body, contentType := multipartUpload(t, "staff.csv", staffCSV)
	req := httptest.NewRequest(http.MethodPost, "/hrm/api/imports", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(CampusHeader, "medical")

	rec := serve(r, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var out sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "medical", out.Rows[0].Record.Campus)
}

func TestBulkImportController_DeleteRowAndCancel(t *testing.T) {
	r, _ := newTestRouter(t)
	sess := upload(t, r)

	rec := serve(r, httptest.NewRequest(http.MethodDelete, "/hrm/api/imports/"+sess.ID+"/rows/2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var out sessionBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Rows, 1)
	require.True(t, out.Summary.BulkValid)

	rec = serve(r, httptest.NewRequest(http.MethodDelete, "/hrm/api/imports/"+sess.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/hrm/api/imports/"+sess.ID, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "HRM_IMPORT_NOT_FOUND")
}

func TestBulkImportController_Errors(t *testing.T) {
	r, _ := newTestRouter(t)
	sess := upload(t, r)

	cases := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{
			name:   "unknown field",
			req:    httptest.NewRequest(http.MethodPatch, "/hrm/api/imports/"+sess.ID+"/rows/1", strings.NewReader(`{"field":"salary","value":"1"}`)),
			status: http.StatusBadRequest,
			code:   "HRM_UNKNOWN_FIELD",
		},
		{
			name:   "malformed body",
			req:    httptest.NewRequest(http.MethodPatch, "/hrm/api/imports/"+sess.ID+"/rows/1", strings.NewReader(`{"field":`)),
			status: http.StatusBadRequest,
			code:   "HRM_INVALID_BODY",
		},
		{
			name:   "missing row",
			req:    httptest.NewRequest(http.MethodDelete, "/hrm/api/imports/"+sess.ID+"/rows/99", nil),
			status: http.StatusNotFound,
			code:   "HRM_ROW_NOT_FOUND",
		},
		{
			name:   "missing file",
			req:    httptest.NewRequest(http.MethodPost, "/hrm/api/imports", strings.NewReader("")),
			status: http.StatusBadRequest,
			code:   "HRM_INVALID_UPLOAD",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(r, tc.req)
			require.Equal(t, tc.status, rec.Code, rec.Body.String())
			require.Contains(t, rec.Body.String(), tc.code)
		})
	}
}

func TestBulkImportController_UnsupportedFormat(t *testing.T) {
	r, _ := newTestRouter(t)
	body, contentType := multipartUpload(t, "staff.txt", staffCSV)
	req := httptest.NewRequest(http.MethodPost, "/hrm/api/imports", body)
	req.Header.Set("Content-Type", contentType)

	rec := serve(r, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	require.Contains(t, rec.Body.String(), "HRM_UNSUPPORTED_FORMAT")
}

func TestBulkImportController_FieldsAndTemplate(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/hrm/api/imports/fields", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"employeeId"`)
	require.Contains(t, rec.Body.String(), `".xlsx"`)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/hrm/api/imports/template", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	rows, err := spreadsheet.NewDecoder().Decode(context.Background(), templateFilename, rec.Body)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestLeaveController(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/hrm/api/leave/statuses", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var statuses []struct {
		Status   string   `json:"status"`
		Terminal bool     `json:"terminal"`
		Next     []string `json:"next"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 5)
	require.Equal(t, "Pending", statuses[0].Status)
	require.Equal(t, []string{"Forwarded by HOD", "Rejected"}, statuses[0].Next)
	require.True(t, statuses[3].Terminal)
	require.Empty(t, statuses[3].Next)

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/hrm/api/leave/transitions",
		strings.NewReader(`{"from":"forwarded to hr","to":"Approved"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"kind":"CL","status":"Approved"}`, rec.Body.String())

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/hrm/api/leave/transitions",
		strings.NewReader(`{"kind":"ccl","from":"Pending","to":"Forwarded by HOD"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"kind":"CCL","status":"Forwarded by HOD"}`, rec.Body.String())

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/hrm/api/leave/transitions",
		strings.NewReader(`{"kind":"EL","from":"Pending","to":"Rejected"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "HRM_UNKNOWN_LEAVE_KIND")

	rec = serve(r, httptest.NewRequest(http.MethodPost, "/hrm/api/leave/transitions",
		strings.NewReader(`{"from":"Pending","to":"Approved"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "HRM_ILLEGAL_TRANSITION")
}
