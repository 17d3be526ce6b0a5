package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

var requestClock = time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)

func TestSubmitEditRequiresAttendanceRecords(t *testing.T) {
	fx := newRequestFixture(t)

	_, err := fx.svc.SubmitEdit(context.Background(), "teacher-1", "lecture-1", dto.SubmitEditRequest{Reason: "marked the wrong student"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	fx.records.count = 1
	req, err := fx.svc.SubmitEdit(context.Background(), "teacher-1", "lecture-1", dto.SubmitEditRequest{Reason: "marked the wrong student"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, models.RequestKindEdit, req.Kind)
	assert.Equal(t, requestClock, req.RequestedAt)
	assert.Equal(t, []string{models.AuditActionRequestSubmit}, fx.audit.actions())
}

func TestSubmitEditRejectsSecondPendingRequest(t *testing.T) {
	fx := newRequestFixture(t)
	fx.records.count = 3
	fx.requests.pendingEdit = true

	_, err := fx.svc.SubmitEdit(context.Background(), "teacher-1", "lecture-1", dto.SubmitEditRequest{Reason: "fix a typo please"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fx.requests.created)
}

func TestSubmitEditForeignLecture(t *testing.T) {
	fx := newRequestFixture(t)
	fx.records.count = 1

	_, err := fx.svc.SubmitEdit(context.Background(), "teacher-2", "lecture-1", dto.SubmitEditRequest{Reason: "not my lecture"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitExtensionPreconditions(t *testing.T) {
	cases := []struct {
		name     string
		kind     string
		startsAt time.Time
		records  int
		wantCode string
	}{
		{name: "missed inside window", kind: "MISSED", startsAt: requestClock.Add(-5 * time.Minute), wantCode: appErrors.ErrPreconditionFailed.Code},
		{name: "missed with records", kind: "MISSED", startsAt: requestClock.Add(-2 * time.Hour), records: 4, wantCode: appErrors.ErrPreconditionFailed.Code},
		{name: "edit inside window", kind: "EDIT", startsAt: requestClock.Add(-15 * time.Minute), records: 4, wantCode: appErrors.ErrPreconditionFailed.Code},
		{name: "edit without records", kind: "EDIT", startsAt: requestClock.Add(-2 * time.Hour), wantCode: appErrors.ErrPreconditionFailed.Code},
		{name: "missed accepted", kind: "MISSED", startsAt: requestClock.Add(-2 * time.Hour)},
		{name: "edit accepted", kind: "EDIT", startsAt: requestClock.Add(-2 * time.Hour), records: 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newRequestFixture(t)
			fx.lectures.detail.StartsAt = tc.startsAt
			fx.records.count = tc.records

			req, err := fx.svc.SubmitExtension(context.Background(), "teacher-1", "lecture-1", dto.SubmitExtensionRequest{Type: tc.kind, Reason: "was invigilating an exam"})
			if tc.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.RequestKindExtension, req.Kind)
			require.NotNil(t, req.ExtensionType)
			assert.Equal(t, models.ExtensionType(tc.kind), *req.ExtensionType)
		})
	}
}

func TestSubmitExtensionRejectsOpenExtension(t *testing.T) {
	fx := newRequestFixture(t)
	fx.lectures.detail.StartsAt = requestClock.Add(-3 * time.Hour)
	fx.requests.openExtension = true

	_, err := fx.svc.SubmitExtension(context.Background(), "teacher-1", "lecture-1", dto.SubmitExtensionRequest{Type: "MISSED", Reason: "forgot to mark it"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Equal(t, 1, fx.requests.sweeps, "a stale extension must be expired before the duplicate check")
}

func TestApproveExtensionOpensWindow(t *testing.T) {
	fx := newRequestFixture(t)
	missed := models.ExtensionMissed
	fx.requests.put(models.AttendanceRequest{
		ID:            "req-1",
		LectureID:     "lecture-1",
		TeacherID:     "teacher-1",
		Kind:          models.RequestKindExtension,
		ExtensionType: &missed,
		Status:        models.RequestPending,
		RequestedAt:   requestClock.Add(-2 * time.Hour),
	})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	req, err := fx.svc.Approve(context.Background(), "admin-1", "req-1", dto.ReviewRequest{Notes: "ok"})
	require.NoError(t, err)
	assert.NoError(t, fx.mock.ExpectationsWereMet())

	want := requestClock.Add(24 * time.Hour)
	assert.Equal(t, models.RequestApproved, req.Status)
	require.NotNil(t, req.ExtendsUntil)
	assert.Equal(t, want, *req.ExtendsUntil)
	assert.Equal(t, want, fx.lectures.deadlines["lecture-1"])
	require.NotNil(t, req.ReviewedBy)
	assert.Equal(t, "admin-1", *req.ReviewedBy)
	assert.Contains(t, fx.audit.actions(), models.AuditActionRequestApprove)
}

func TestApproveEditReopensLecture(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.put(models.AttendanceRequest{ID: "req-2", LectureID: "lecture-1", Kind: models.RequestKindEdit, Status: models.RequestPending, RequestedAt: requestClock.Add(-72 * time.Hour)})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	req, err := fx.svc.Approve(context.Background(), "admin-1", "req-2", dto.ReviewRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, req.Status)
	assert.Nil(t, req.ExtendsUntil)
	assert.Equal(t, models.LectureStatusOpen, fx.lectures.statuses["lecture-1"])
}

func TestRejectLeavesLectureUntouched(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.put(models.AttendanceRequest{ID: "req-3", LectureID: "lecture-1", Kind: models.RequestKindEdit, Status: models.RequestPending, RequestedAt: requestClock})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	req, err := fx.svc.Reject(context.Background(), "admin-1", "req-3", dto.ReviewRequest{Notes: "records look right"})
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, req.Status)
	require.NotNil(t, req.AdminNotes)
	assert.Equal(t, "records look right", *req.AdminNotes)
	assert.Empty(t, fx.lectures.statuses)
	assert.Empty(t, fx.lectures.deadlines)
}

func TestReviewNonPendingIsAlreadyProcessed(t *testing.T) {
	for _, status := range []models.RequestStatus{models.RequestApproved, models.RequestRejected, models.RequestExpired} {
		t.Run(string(status), func(t *testing.T) {
			fx := newRequestFixture(t)
			fx.requests.put(models.AttendanceRequest{ID: "req-4", LectureID: "lecture-1", Kind: models.RequestKindEdit, Status: status})
			fx.mock.ExpectBegin()
			fx.mock.ExpectRollback()

			_, err := fx.svc.Approve(context.Background(), "admin-1", "req-4", dto.ReviewRequest{})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)
			assert.NoError(t, fx.mock.ExpectationsWereMet())
		})
	}
}

func TestReviewLostRaceIsAlreadyProcessed(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.put(models.AttendanceRequest{ID: "req-5", LectureID: "lecture-1", Kind: models.RequestKindEdit, Status: models.RequestPending, RequestedAt: requestClock})
	fx.requests.reviewErr = sql.ErrNoRows
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.svc.Reject(context.Background(), "admin-1", "req-5", dto.ReviewRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)
}

func TestReviewMissingRequest(t *testing.T) {
	fx := newRequestFixture(t)
	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.svc.Approve(context.Background(), "admin-1", "missing", dto.ReviewRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestApproveStaleExtensionExpiresIt(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.put(models.AttendanceRequest{ID: "req-6", LectureID: "lecture-1", Kind: models.RequestKindExtension, Status: models.RequestPending, RequestedAt: requestClock.Add(-25 * time.Hour)})
	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	_, err := fx.svc.Approve(context.Background(), "admin-1", "req-6", dto.ReviewRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadyProcessed.Code, appErrors.FromError(err).Code)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
	assert.Equal(t, models.RequestExpired, fx.requests.items["req-6"].Status)
	assert.Empty(t, fx.lectures.deadlines)
}

func TestExpireStaleUsesRequestTTL(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.expireIDs = []string{"req-7", "req-8"}

	n, err := fx.svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, requestClock.Add(-24*time.Hour), fx.requests.lastCutoff)
	assert.Len(t, fx.audit.actions(), 2)
}

func TestGetReportsEffectiveStatusWhenSweepFails(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.expireErr = errors.New("db down")
	fx.requests.put(models.AttendanceRequest{ID: "req-9", TeacherID: "teacher-1", Kind: models.RequestKindExtension, Status: models.RequestPending, RequestedAt: requestClock.Add(-25 * time.Hour)})

	item, err := fx.svc.Get(context.Background(), Actor{ID: "teacher-1", Role: models.RoleTeacher}, "req-9")
	require.NoError(t, err)
	assert.Equal(t, models.RequestExpired, item.Status)

	_, err = fx.svc.Get(context.Background(), Actor{ID: "teacher-2", Role: models.RoleTeacher}, "req-9")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestListScopesTeachers(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.put(models.AttendanceRequest{ID: "req-10", TeacherID: "teacher-1", Kind: models.RequestKindEdit, Status: models.RequestPending, RequestedAt: requestClock})

	items, page, err := fx.svc.List(context.Background(), Actor{ID: "teacher-1", Role: models.RoleTeacher}, dto.AttendanceRequestQuery{Status: "PENDING"})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "teacher-1", fx.requests.lastFilter.TeacherID)
	assert.Equal(t, models.RequestPending, fx.requests.lastFilter.Status)

	_, _, err = fx.svc.List(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, dto.AttendanceRequestQuery{})
	require.NoError(t, err)
	assert.Empty(t, fx.requests.lastFilter.TeacherID)

	_, _, err = fx.svc.List(context.Background(), Actor{ID: "admin-1", Role: models.RoleAdmin}, dto.AttendanceRequestQuery{Status: "DONE"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestListStatusFilterMatchesEffectiveStatusWhenSweepFails(t *testing.T) {
	fx := newRequestFixture(t)
	fx.requests.expireErr = errors.New("db down")
	fx.requests.put(models.AttendanceRequest{ID: "req-stale", TeacherID: "teacher-1", Kind: models.RequestKindExtension, Status: models.RequestPending, RequestedAt: requestClock.Add(-25 * time.Hour)})
	fx.requests.put(models.AttendanceRequest{ID: "req-fresh", TeacherID: "teacher-1", Kind: models.RequestKindExtension, Status: models.RequestPending, RequestedAt: requestClock.Add(-time.Hour)})
	fx.requests.put(models.AttendanceRequest{ID: "req-edit", TeacherID: "teacher-1", Kind: models.RequestKindEdit, Status: models.RequestPending, RequestedAt: requestClock.Add(-48 * time.Hour)})
	admin := Actor{ID: "admin-1", Role: models.RoleAdmin}

	pending, page, err := fx.svc.List(context.Background(), admin, dto.AttendanceRequestQuery{Status: "PENDING"})
	require.NoError(t, err)
	assert.Equal(t, requestClock.Add(-24*time.Hour), fx.requests.lastFilter.StaleBefore)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, pending, 2)
	for _, item := range pending {
		assert.Equal(t, models.RequestPending, item.Status)
		assert.NotEqual(t, "req-stale", item.ID)
	}

	expired, page, err := fx.svc.List(context.Background(), admin, dto.AttendanceRequestQuery{Status: "EXPIRED"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
	require.Len(t, expired, 1)
	assert.Equal(t, "req-stale", expired[0].ID)
	assert.Equal(t, models.RequestExpired, expired[0].Status)
}

// --- Fixtures ---

type requestFixture struct {
	svc      *AttendanceRequestService
	requests *requestStoreStub
	lectures *requestLectureStub
	records  *attendanceCounterStub
	audit    *auditLogStub
	mock     sqlmock.Sqlmock
}

func newRequestFixture(t *testing.T) *requestFixture {
	tx, mock := newTxProviderMock(t)
	requests := &requestStoreStub{items: map[string]models.AttendanceRequest{}}
	lectures := &requestLectureStub{
		detail: models.LectureDetail{
			Lecture:   models.Lecture{ID: "lecture-1", StartsAt: requestClock.Add(-time.Hour), Status: models.LectureStatusLocked},
			TeacherID: "teacher-1",
		},
		deadlines: map[string]time.Time{},
		statuses:  map[string]models.LectureStatus{},
	}
	records := &attendanceCounterStub{}
	audit := &auditLogStub{}
	svc := NewAttendanceRequestService(requests, lectures, records, tx, nil, audit, nil, nil, RequestConfig{})
	svc.now = func() time.Time { return requestClock }
	return &requestFixture{svc: svc, requests: requests, lectures: lectures, records: records, audit: audit, mock: mock}
}

type requestStoreStub struct {
	items         map[string]models.AttendanceRequest
	created       []models.AttendanceRequest
	pendingEdit   bool
	openExtension bool
	reviewErr     error
	expireIDs     []string
	expireErr     error
	lastCutoff    time.Time
	lastFilter    models.AttendanceRequestFilter
	sweeps        int
}

func (s *requestStoreStub) put(req models.AttendanceRequest) {
	s.items[req.ID] = req
}

func (s *requestStoreStub) Create(_ context.Context, _ sqlx.ExtContext, req *models.AttendanceRequest) error {
	req.ID = fmt.Sprintf("req-new-%d", len(s.created)+1)
	s.created = append(s.created, *req)
	s.items[req.ID] = *req
	return nil
}

func (s *requestStoreStub) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.AttendanceRequest, error) {
	req, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

func (s *requestStoreStub) FindDetail(_ context.Context, id string) (*models.AttendanceRequestDetail, error) {
	req, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.AttendanceRequestDetail{AttendanceRequest: req}, nil
}

func (s *requestStoreStub) List(_ context.Context, filter models.AttendanceRequestFilter) ([]models.AttendanceRequestDetail, int, error) {
	s.lastFilter = filter
	var out []models.AttendanceRequestDetail
	for _, req := range s.items {
		if filter.TeacherID != "" && req.TeacherID != filter.TeacherID {
			continue
		}
		status := req.Status
		if !filter.StaleBefore.IsZero() && req.Kind == models.RequestKindExtension &&
			status == models.RequestPending && req.RequestedAt.Before(filter.StaleBefore) {
			status = models.RequestExpired
		}
		if filter.Status != "" && status != filter.Status {
			continue
		}
		out = append(out, models.AttendanceRequestDetail{AttendanceRequest: req})
	}
	return out, len(out), nil
}

func (s *requestStoreStub) HasPendingEdit(context.Context, sqlx.ExtContext, string) (bool, error) {
	return s.pendingEdit, nil
}

func (s *requestStoreStub) HasOpenExtension(context.Context, sqlx.ExtContext, string) (bool, error) {
	return s.openExtension, nil
}

func (s *requestStoreStub) ExpireStale(_ context.Context, _ sqlx.ExtContext, cutoff, _ time.Time) ([]string, error) {
	s.sweeps++
	s.lastCutoff = cutoff
	if s.expireErr != nil {
		return nil, s.expireErr
	}
	return s.expireIDs, nil
}

func (s *requestStoreStub) Review(_ context.Context, _ sqlx.ExtContext, req *models.AttendanceRequest) error {
	if s.reviewErr != nil {
		return s.reviewErr
	}
	s.items[req.ID] = *req
	return nil
}

type requestLectureStub struct {
	detail    models.LectureDetail
	deadlines map[string]time.Time
	statuses  map[string]models.LectureStatus
}

func (s *requestLectureStub) FindDetail(_ context.Context, id string) (*models.LectureDetail, error) {
	if id != s.detail.ID {
		return nil, sql.ErrNoRows
	}
	detail := s.detail
	return &detail, nil
}

func (s *requestLectureStub) SetDeadline(_ context.Context, _ sqlx.ExtContext, id string, deadline time.Time) error {
	s.deadlines[id] = deadline
	return nil
}

func (s *requestLectureStub) UpdateStatus(_ context.Context, _ sqlx.ExtContext, id string, status models.LectureStatus) error {
	s.statuses[id] = status
	return nil
}

type attendanceCounterStub struct {
	count int
}

func (s *attendanceCounterStub) CountByLecture(context.Context, sqlx.ExtContext, string) (int, error) {
	return s.count, nil
}
