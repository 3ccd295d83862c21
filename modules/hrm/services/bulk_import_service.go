package services

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/campus-hr/hrdesk/modules/hrm/domain/aggregates/employee"
	"github.com/campus-hr/hrdesk/pkg/composables"
	"github.com/campus-hr/hrdesk/pkg/eventbus"
)

var (
	ErrSessionNotFound      = errors.New("import session not found")
	ErrRowNotFound          = errors.New("row not found")
	ErrUnknownField         = errors.New("unknown field")
	ErrNothingLoaded        = errors.New("no spreadsheet loaded")
	ErrSessionBusy          = errors.New("import session is busy submitting")
	ErrSubmissionInProgress = errors.New("a submission is already in progress")
	ErrNoValidRows          = errors.New("no valid rows to submit")
	ErrParse                = errors.New("could not read spreadsheet")
	ErrReferenceData        = errors.New("could not load campus reference data")
	ErrSubmissionFailed     = errors.New("bulk submission failed")
)

type SpreadsheetDecoder interface {
	Decode(ctx context.Context, filename string, r io.Reader) ([]employee.RawRow, error)
}

type ReferenceDataProvider interface {
	Branches(ctx context.Context, campus string) ([]employee.Branch, error)
	Roles(ctx context.Context, campus string) ([]employee.Role, error)
}

// ReferenceDataInvalidator is implemented by caching providers. A new upload into an existing
// session drops the cached data of the campuses that session used.
type ReferenceDataInvalidator interface {
	Invalidate(ctx context.Context, campus string) error
}

type BulkSubmitter interface {
	BulkCreate(ctx context.Context, records []employee.Record) ([]employee.BulkResult, error)
}

// SubmitOutcome reports one submission. Result rows are session row ids.
type SubmitOutcome struct {
	Sent      int                   `json:"sent"`
	Skipped   int                   `json:"skipped"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Message   string                `json:"message,omitempty"`
	Results   []employee.BulkResult `json:"results"`
}

// BulkImportService drives upload, mapping, validation, correction and submission of employees.
type BulkImportService struct {
	decoder   SpreadsheetDecoder
	refs      ReferenceDataProvider
	submitter BulkSubmitter
	sessions  *SessionStore
	publisher eventbus.EventBus
	log       *logrus.Entry
	now       func() time.Time
}

func NewBulkImportService(
	decoder SpreadsheetDecoder,
	refs ReferenceDataProvider,
	submitter BulkSubmitter,
	sessions *SessionStore,
	publisher eventbus.EventBus,
	logger *logrus.Logger,
) *BulkImportService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BulkImportService{
		decoder:   decoder,
		refs:      refs,
		submitter: submitter,
		sessions:  sessions,
		publisher: publisher,
		log:       logger.WithField("component", "hrm.bulk_import"),
		now:       time.Now,
	}
}

func (s *BulkImportService) logger(ctx context.Context) *logrus.Entry {
	if l, ok := composables.TryUseLogger(ctx); ok {
		return l.WithField("component", "hrm.bulk_import")
	}
	return s.log
}

// Start opens a session for operatorCampus and loads the upload into it. A session is only
// registered when the upload parses.
func (s *BulkImportService) Start(ctx context.Context, operatorCampus, filename string, r io.Reader) (*ImportSession, error) {
	sess := newImportSession(strings.TrimSpace(operatorCampus), s.now())
	if err := s.load(ctx, sess, filename, r); err != nil {
		return nil, err
	}
	s.sessions.Put(sess)
	return sess, nil
}

func (s *BulkImportService) Get(id uuid.UUID) (*ImportSession, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Load replaces the rows of an existing session with a new upload. On failure the session keeps
// its previous rows.
func (s *BulkImportService) Load(ctx context.Context, id uuid.UUID, filename string, r io.Reader) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	return s.load(ctx, sess, filename, r)
}

func (s *BulkImportService) load(ctx context.Context, sess *ImportSession, filename string, r io.Reader) (err error) {
	defer func() { recordLoad(err) }()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state == StateSubmitting {
		return ErrSessionBusy
	}
	prev := sess.state
	sess.state = StateParsing
	defer func() {
		if err != nil {
			sess.state = prev
		}
	}()

	raw, err := s.decoder.Decode(ctx, filename, r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}

	rows := make([]*Row, 0, len(raw))
	var report employee.MappingReport
	for i, rr := range raw {
		rec, rep := employee.MapHeaders(rr)
		if i == 0 {
			report = rep
		}
		rec.Campus = sess.OperatorCampus
		rows = append(rows, &Row{ID: i + 1, Record: rec})
	}

	if sess.filename != "" {
		s.invalidate(ctx, slices.Sorted(maps.Keys(sess.refs)))
	}
	refs := make(map[string]reference)
	for _, row := range rows {
		ref, err := s.reference(ctx, refs, row.Record.Campus)
		if err != nil {
			return err
		}
		s.attach(sess, row, ref)
	}

	sess.rows = rows
	sess.report = report
	sess.refs = refs
	sess.results = nil
	sess.filename = filename
	sess.state = StateMapped
	sess.updatedAt = s.now()

	sum := sess.summaryLocked()
	s.logger(ctx).WithFields(logrus.Fields{
		"session":  sess.ID,
		"filename": filename,
		"total":    sum.Total,
		"valid":    sum.Valid,
		"missing":  report.MissingRequired(),
	}).Info("spreadsheet loaded")
	if s.publisher != nil {
		s.publisher.Publish(&ImportLoadedEvent{
			SessionID:  sess.ID,
			Campus:     sess.OperatorCampus,
			Filename:   filename,
			Total:      sum.Total,
			Valid:      sum.Valid,
			OccurredAt: s.now(),
		})
	}
	return nil
}

// reference returns campus data from cache, fetching it once per campus. Blank campuses get none.
func (s *BulkImportService) reference(ctx context.Context, cache map[string]reference, campus string) (reference, error) {
	if campus == "" {
		return reference{}, nil
	}
	if ref, ok := cache[campus]; ok {
		return ref, nil
	}
	branches, err := s.refs.Branches(ctx, campus)
	if err != nil {
		return reference{}, fmt.Errorf("%w: %w", ErrReferenceData, err)
	}
	roles, err := s.refs.Roles(ctx, campus)
	if err != nil {
		return reference{}, fmt.Errorf("%w: %w", ErrReferenceData, err)
	}
	ref := reference{branches: branches, roles: roles}
	cache[campus] = ref
	return ref, nil
}

func (s *BulkImportService) invalidate(ctx context.Context, campuses []string) {
	inv, ok := s.refs.(ReferenceDataInvalidator)
	if !ok {
		return
	}
	for _, campus := range campuses {
		if err := inv.Invalidate(ctx, campus); err != nil {
			s.logger(ctx).WithError(err).WithField("campus", campus).Warn("reference cache invalidation failed")
		}
	}
}

// attach sets reference data, canonicalizes a recognised role and re-validates the row.
func (s *BulkImportService) attach(sess *ImportSession, row *Row, ref reference) {
	row.Record = row.Record.WithReference(ref.branches, ref.roles)
	if role, ok := employee.ResolveRole(ref.roles, row.Record.Role); ok {
		row.Record.Role = role.Value
	}
	s.validate(sess, row)
}

func (s *BulkImportService) validate(sess *ImportSession, row *Row) {
	row.Errors = employee.Validate(row.Record, employee.ValidateOptions{OperatorCampus: sess.OperatorCampus})
}

func editable(sess *ImportSession) error {
	switch sess.state {
	case StateSubmitting:
		return ErrSessionBusy
	case StateIdle, StateParsing:
		return ErrNothingLoaded
	}
	return nil
}

// UpdateField applies one operator edit and re-validates that row only. Changing the campus
// reloads the row's reference data first and clears branchCode, role and customRole.
func (s *BulkImportService) UpdateField(ctx context.Context, id uuid.UUID, rowID int, field, value string) (RowView, error) {
	sess, err := s.Get(id)
	if err != nil {
		return RowView{}, err
	}
	f := employee.Field(field)
	if !employee.EditableFields[f] {
		return RowView{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := editable(sess); err != nil {
		return RowView{}, err
	}
	_, row := sess.findLocked(rowID)
	if row == nil {
		return RowView{}, fmt.Errorf("%w: %d", ErrRowNotFound, rowID)
	}

	value = employee.NormalizeValue(f, value)
	switch f {
	case employee.FieldCampus:
		if value != row.Record.Campus {
			ref, err := s.reference(ctx, sess.refs, value)
			if err != nil {
				return RowView{}, err
			}
			row.Record.Campus = value
			row.Record.BranchCode = ""
			row.Record.Role = ""
			row.Record.CustomRole = ""
			row.Record = row.Record.WithReference(ref.branches, ref.roles)
		}
	case employee.FieldRole:
		if role, ok := employee.ResolveRole(row.Record.Roles, value); ok {
			value = role.Value
		}
		row.Record.Role = value
	default:
		row.Record.Set(f, value)
	}

	s.validate(sess, row)
	sess.state = StateEditing
	sess.updatedAt = s.now()
	return viewRow(row), nil
}

func (s *BulkImportService) DeleteRow(ctx context.Context, id uuid.UUID, rowID int) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := editable(sess); err != nil {
		return err
	}
	i, row := sess.findLocked(rowID)
	if row == nil {
		return fmt.Errorf("%w: %d", ErrRowNotFound, rowID)
	}
	sess.rows = append(sess.rows[:i], sess.rows[i+1:]...)
	sess.state = StateEditing
	sess.updatedAt = s.now()
	s.logger(ctx).WithFields(logrus.Fields{"session": sess.ID, "row": rowID}).Debug("row deleted")
	return nil
}

// Submit sends the valid rows in one batch. Invalid rows are skipped and counted in the outcome.
// The session lock is released while the backend call is in flight; edits and a second submit are
// rejected until it returns.
func (s *BulkImportService) Submit(ctx context.Context, id uuid.UUID) (SubmitOutcome, error) {
	sess, err := s.Get(id)
	if err != nil {
		return SubmitOutcome{}, err
	}

	sess.mu.Lock()
	if sess.state == StateSubmitting {
		sess.mu.Unlock()
		return SubmitOutcome{}, ErrSubmissionInProgress
	}
	if err := editable(sess); err != nil {
		sess.mu.Unlock()
		return SubmitOutcome{}, err
	}

	var records []employee.Record
	var ids []int
	for _, row := range sess.rows {
		s.validate(sess, row)
		if row.Valid() {
			records = append(records, row.Record)
			ids = append(ids, row.ID)
		}
	}
	skipped := len(sess.rows) - len(records)
	if len(records) == 0 {
		sess.mu.Unlock()
		recordSubmission("rejected", 0, skipped, 0)
		return SubmitOutcome{Skipped: skipped}, ErrNoValidRows
	}
	prev := sess.state
	sess.state = StateSubmitting
	sess.mu.Unlock()

	log := s.logger(ctx).WithFields(logrus.Fields{"session": sess.ID, "sent": len(records), "skipped": skipped})
	results, err := s.submitter.BulkCreate(ctx, records)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.updatedAt = s.now()
	if err != nil {
		sess.state = prev
		recordSubmission("error", len(records), skipped, 0)
		log.WithError(err).Error("bulk submission failed")
		return SubmitOutcome{}, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	out := SubmitOutcome{
		Sent:    len(records),
		Skipped: skipped,
		Results: remapResults(results, records, ids),
	}
	for _, r := range out.Results {
		if r.Success {
			out.Succeeded++
		}
	}
	out.Failed = out.Sent - out.Succeeded
	if skipped > 0 {
		out.Message = fmt.Sprintf("%d invalid rows were excluded", skipped)
	}

	sess.results = out.Results
	sess.state = StateDone
	recordSubmission("ok", out.Sent, out.Skipped, out.Succeeded)
	log.WithFields(logrus.Fields{"succeeded": out.Succeeded, "failed": out.Failed}).Info("bulk submission finished")
	if s.publisher != nil {
		s.publisher.Publish(&ImportSubmittedEvent{
			SessionID:  sess.ID,
			Campus:     sess.OperatorCampus,
			Sent:       out.Sent,
			Skipped:    out.Skipped,
			Succeeded:  out.Succeeded,
			Failed:     out.Failed,
			OccurredAt: s.now(),
		})
	}
	return out, nil
}

// remapResults turns the backend's 1-based batch positions into session row ids. Results with an
// out-of-range position are matched by employee id instead.
func remapResults(results []employee.BulkResult, sent []employee.Record, ids []int) []employee.BulkResult {
	out := make([]employee.BulkResult, 0, len(results))
	for _, r := range results {
		switch {
		case r.Row >= 1 && r.Row <= len(ids):
			r.Row = ids[r.Row-1]
		default:
			r.Row = 0
			for i, rec := range sent {
				if r.EmployeeID != "" && rec.EmployeeID == r.EmployeeID {
					r.Row = ids[i]
					break
				}
			}
		}
		out = append(out, r)
	}
	return out
}

// Cancel discards the session and everything loaded into it.
func (s *BulkImportService) Cancel(id uuid.UUID) error {
	sess, err := s.Get(id)
	if err != nil {
		return err
	}
	if sess.State() == StateSubmitting {
		return ErrSessionBusy
	}
	s.sessions.Delete(id)
	return nil
}
