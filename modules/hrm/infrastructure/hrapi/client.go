package hrapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
	"github.com/campus-hr/hrdesk/pkg/composables"
)

const (
	branchesPath   = "/api/branches"
	rolesPath      = "/api/roles"
	bulkCreatePath = "/api/employees/bulk"
)

var ErrUnauthorized = errors.New("hr api: session expired or missing, sign in again")

// APIError is a non-2xx answer from the HR backend.
type APIError struct {
	Status  int               `json:"-"`
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("hr api: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("hr api: status %d: %s", e.Status, e.Message)
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithRequestIDHeader(h string) Option {
	return func(c *Client) { c.requestIDHeader = h }
}

// Client talks to the HR REST backend: campus reference data and bulk employee creation.
type Client struct {
	baseURL         *url.URL
	session         *Session
	httpClient      *http.Client
	timeout         time.Duration
	requestIDHeader string
}

func NewClient(baseURL string, session *Session, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid hr api base url: %q", baseURL)
	}
	if session == nil {
		session = NewSession("")
	}
	c := &Client{
		baseURL:         u,
		session:         session,
		timeout:         30 * time.Second,
		requestIDHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(c)
	}

	base := http.DefaultTransport
	if c.httpClient != nil && c.httpClient.Transport != nil {
		base = c.httpClient.Transport
	}
	hc := &http.Client{Timeout: c.timeout}
	if c.httpClient != nil {
		copied := *c.httpClient
		hc = &copied
		if hc.Timeout == 0 {
			hc.Timeout = c.timeout
		}
	}
	hc.Transport = &tokenTransport{session: session, base: base}
	c.httpClient = hc
	return c, nil
}

func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, reqBody any, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return errors.Wrap(err, "json marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrap(err, "http request")
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestIDHeader != "" {
		id, ok := composables.UseRequestID(ctx)
		if !ok {
			id = uuid.NewString()
		}
		req.Header.Set(c.requestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "http do")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "http read")
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || strings.TrimSpace(apiErr.Message) == "" {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrap(err, "json unmarshal response")
	}
	return nil
}

func campusQuery(campus string) url.Values {
	return url.Values{"campus": []string{campus}}
}

// Branches returns the active branches of campus.
func (c *Client) Branches(ctx context.Context, campus string) ([]employee.Branch, error) {
	var all []employee.Branch
	if err := c.doJSON(ctx, http.MethodGet, branchesPath, campusQuery(campus), nil, &all); err != nil {
		return nil, errors.Wrapf(err, "fetch branches for %q", campus)
	}
	active := make([]employee.Branch, 0, len(all))
	for _, b := range all {
		if b.IsActive {
			active = append(active, b)
		}
	}
	return active, nil
}

func (c *Client) Roles(ctx context.Context, campus string) ([]employee.Role, error) {
	var roles []employee.Role
	if err := c.doJSON(ctx, http.MethodGet, rolesPath, campusQuery(campus), nil, &roles); err != nil {
		return nil, errors.Wrapf(err, "fetch roles for %q", campus)
	}
	return roles, nil
}

// EmployeePayload is the wire shape of one record in a bulk create call.
type EmployeePayload struct {
	Name                     string  `json:"name"`
	Email                    string  `json:"email,omitempty"`
	EmployeeID               string  `json:"employeeId"`
	PhoneNumber              string  `json:"phoneNumber"`
	BranchCode               string  `json:"branchCode"`
	Role                     string  `json:"role,omitempty"`
	CustomRole               string  `json:"customRole,omitempty"`
	Status                   string  `json:"status"`
	Designation              string  `json:"designation,omitempty"`
	LeaveBalanceByExperience float64 `json:"leaveBalanceByExperience"`
	Campus                   string  `json:"campus"`
}

// NewEmployeePayload converts a validated record. A blank leave balance becomes the default.
func NewEmployeePayload(rec employee.Record) EmployeePayload {
	leave, err := strconv.ParseFloat(strings.TrimSpace(rec.LeaveBalanceByExperience), 64)
	if err != nil {
		leave, _ = strconv.ParseFloat(employee.DefaultLeaveBalance, 64)
	}
	status := rec.Status
	if status == "" {
		status = employee.DefaultStatus
	}
	p := EmployeePayload{
		Name:                     strings.TrimSpace(rec.Name),
		Email:                    strings.TrimSpace(rec.Email),
		EmployeeID:               strings.TrimSpace(rec.EmployeeID),
		PhoneNumber:              strings.TrimSpace(rec.PhoneNumber),
		BranchCode:               strings.TrimSpace(rec.BranchCode),
		Role:                     strings.TrimSpace(rec.Role),
		Status:                   status,
		Designation:              strings.TrimSpace(rec.Designation),
		LeaveBalanceByExperience: leave,
		Campus:                   strings.TrimSpace(rec.Campus),
	}
	if strings.EqualFold(p.Role, employee.RoleOther) {
		p.CustomRole = strings.TrimSpace(rec.CustomRole)
	}
	return p
}

type bulkRequest struct {
	Employees []EmployeePayload `json:"employees"`
}

type bulkResponse struct {
	Results []employee.BulkResult `json:"results"`
}

// BulkCreate sends records in one call. Result rows are 1-based positions in records.
func (c *Client) BulkCreate(ctx context.Context, records []employee.Record) ([]employee.BulkResult, error) {
	req := bulkRequest{Employees: make([]EmployeePayload, len(records))}
	for i, rec := range records {
		req.Employees[i] = NewEmployeePayload(rec)
	}
	var resp bulkResponse
	if err := c.doJSON(ctx, http.MethodPost, bulkCreatePath, nil, req, &resp); err != nil {
		return nil, errors.Wrap(err, "bulk create employees")
	}
	return resp.Results, nil
}
