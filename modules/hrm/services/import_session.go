package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
)

type State string

const (
	StateIdle       State = "idle"
	StateParsing    State = "parsing"
	StateMapped     State = "mapped"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
)

// Row is one loaded record keyed by its stable id: the 1-based data row number in the upload.
type Row struct {
	ID     int                       `json:"id"`
	Record employee.Record           `json:"record"`
	Errors employee.ValidationErrors `json:"errors"`
}

func (r Row) Valid() bool {
	return employee.IsRowValid(r.Errors)
}

type Summary struct {
	Total     int  `json:"total"`
	Valid     int  `json:"valid"`
	Invalid   int  `json:"invalid"`
	BulkValid bool `json:"bulkValid"`
}

type reference struct {
	branches []employee.Branch
	roles    []employee.Role
}

// ImportSession is the state of one operator's bulk import. All access goes through its mutex.
type ImportSession struct {
	ID             uuid.UUID
	OperatorCampus string
	CreatedAt      time.Time

	mu        sync.Mutex
	state     State
	filename  string
	updatedAt time.Time
	rows      []*Row
	report    employee.MappingReport
	refs      map[string]reference
	results   []employee.BulkResult
}

func newImportSession(operatorCampus string, now time.Time) *ImportSession {
	return &ImportSession{
		ID:             uuid.New(),
		OperatorCampus: operatorCampus,
		CreatedAt:      now,
		state:          StateIdle,
		updatedAt:      now,
		refs:           make(map[string]reference),
	}
}

// SessionView is a detached copy of a session for presentation.
type SessionView struct {
	ID             uuid.UUID              `json:"id"`
	State          State                  `json:"state"`
	Filename       string                 `json:"filename"`
	OperatorCampus string                 `json:"operatorCampus"`
	Mapping        employee.MappingReport `json:"mapping"`
	Rows           []RowView              `json:"rows"`
	Summary        Summary                `json:"summary"`
	Results        []employee.BulkResult  `json:"results,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

type RowView struct {
	Row
	Valid bool `json:"valid"`
}

func viewRow(r *Row) RowView {
	cp := *r
	cp.Errors = make(employee.ValidationErrors, len(r.Errors))
	for k, v := range r.Errors {
		cp.Errors[k] = v
	}
	return RowView{Row: cp, Valid: cp.Valid()}
}

func (s *ImportSession) View() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := SessionView{
		ID:             s.ID,
		State:          s.state,
		Filename:       s.filename,
		OperatorCampus: s.OperatorCampus,
		Mapping:        s.report,
		Rows:           make([]RowView, 0, len(s.rows)),
		Summary:        s.summaryLocked(),
		Results:        append([]employee.BulkResult(nil), s.results...),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.updatedAt,
	}
	for _, r := range s.rows {
		v.Rows = append(v.Rows, viewRow(r))
	}
	return v
}

func (s *ImportSession) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ImportSession) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *ImportSession) summaryLocked() Summary {
	sum := Summary{Total: len(s.rows)}
	errs := make([]employee.ValidationErrors, 0, len(s.rows))
	for _, r := range s.rows {
		if r.Valid() {
			sum.Valid++
		}
		errs = append(errs, r.Errors)
	}
	sum.Invalid = sum.Total - sum.Valid
	sum.BulkValid = employee.IsBulkValid(errs)
	return sum
}

func (s *ImportSession) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

func (s *ImportSession) findLocked(rowID int) (int, *Row) {
	for i, r := range s.rows {
		if r.ID == rowID {
			return i, r
		}
	}
	return -1, nil
}

// SessionStore holds live sessions in memory and drops those idle for longer than ttl.
type SessionStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*ImportSession
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*ImportSession),
	}
}

func (st *SessionStore) Put(s *ImportSession) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.ID] = s
	activeSessions.Set(float64(len(st.sessions)))
}

func (st *SessionStore) Get(id uuid.UUID) (*ImportSession, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *SessionStore) Delete(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	activeSessions.Set(float64(len(st.sessions)))
	return ok
}

func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were dropped. Sessions mid-submission stay.
func (st *SessionStore) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()
	defer st.mu.Unlock()
	dropped := 0
	for id, s := range st.sessions {
		if s.State() == StateSubmitting {
			continue
		}
		if s.lastTouched().Before(cutoff) {
			delete(st.sessions, id)
			dropped++
		}
	}
	activeSessions.Set(float64(len(st.sessions)))
	return dropped
}

// Run sweeps every interval until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
