package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

func TestLectureGeneratorSkipsHolidayAndWeekdays(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := newGeneratorLectureStoreStub()
	audit := &auditLogStub{}
	svc := newGeneratorFixture(tx, store, audit, []models.Holiday{{Date: mustDate(t, "2025-01-06"), Name: "Founders Day"}})

	mock.ExpectBegin()
	mock.ExpectCommit()

	summary, err := svc.Generate(context.Background(), "admin-1", januaryRange())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 6, summary.Skipped)
	assert.Equal(t, 1, summary.SkipReasons[models.SkipHoliday])
	assert.Equal(t, 5, summary.SkipReasons[models.SkipWeekdayMismatch])
	assert.Equal(t, 0, summary.SkipReasons[models.SkipDuplicate])
	assert.Len(t, summary.LectureIDs, 2)

	require.Len(t, store.created, 2)
	assert.Equal(t, time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC), store.created[0].StartsAt)
	assert.Equal(t, time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), store.created[0].EndsAt)
	assert.Equal(t, time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC), store.created[1].StartsAt)
	assert.Equal(t, models.LectureStatusScheduled, store.created[0].Status)
	assert.Equal(t, models.LectureKindRegular, store.created[0].Kind)
	assert.Equal(t, []string{models.AuditActionLecturesGenerate}, audit.actions())
}

func TestLectureGeneratorSecondRunOnlyReportsDuplicates(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := newGeneratorLectureStoreStub()
	svc := newGeneratorFixture(tx, store, nil, []models.Holiday{{Date: mustDate(t, "2025-01-06")}})

	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.Generate(context.Background(), "admin-1", januaryRange())
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), "admin-1", januaryRange())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.SkipReasons[models.SkipDuplicate])
	assert.Empty(t, second.LectureIDs)
	assert.Len(t, store.created, 2)
}

func TestLectureGeneratorOutsideRuleRangeTakesPrecedence(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := newGeneratorLectureStoreStub()
	svc := newGeneratorFixture(tx, store, nil, nil)
	svc.rules = generatorRuleSourceStub{rules: []models.TimetableRule{{
		ID:              "rule-1",
		TeacherCourseID: "tc-1",
		Weekdays:        pq.StringArray{"Monday", "Wednesday"},
		StartTime:       "09:00",
		DurationMinutes: 60,
		StartDate:       mustDate(t, "2025-01-03"),
		EndDate:         mustDate(t, "2025-01-31"),
	}}}

	mock.ExpectBegin()
	mock.ExpectCommit()

	summary, err := svc.Generate(context.Background(), "admin-1", januaryRange())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.SkipReasons[models.SkipOutsideRuleRange])
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 4, summary.SkipReasons[models.SkipWeekdayMismatch])
}

func TestLectureGeneratorResolvesWallClockInLocation(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := newGeneratorLectureStoreStub()
	svc := newGeneratorFixture(tx, store, nil, nil)
	svc.config.Location = time.FixedZone("PKT", 5*60*60)

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.Generate(context.Background(), "admin-1", dto.GenerateLecturesRequest{StartDate: "2025-01-01", EndDate: "2025-01-01"})
	require.NoError(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, time.Date(2025, 1, 1, 4, 0, 0, 0, time.UTC), store.created[0].StartsAt)
}

func TestLectureGeneratorRollsBackOnInsertFailure(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	store := newGeneratorLectureStoreStub()
	store.failAfter = 1
	svc := newGeneratorFixture(tx, store, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Generate(context.Background(), "admin-1", januaryRange())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLectureGeneratorValidatesRange(t *testing.T) {
	svc := newGeneratorFixture(nil, newGeneratorLectureStoreStub(), nil, nil)

	cases := []struct {
		name string
		req  dto.GenerateLecturesRequest
	}{
		{name: "missing end", req: dto.GenerateLecturesRequest{StartDate: "2025-01-01"}},
		{name: "bad format", req: dto.GenerateLecturesRequest{StartDate: "01/01/2025", EndDate: "2025-01-08"}},
		{name: "reversed", req: dto.GenerateLecturesRequest{StartDate: "2025-01-08", EndDate: "2025-01-01"}},
		{name: "too long", req: dto.GenerateLecturesRequest{StartDate: "2025-01-01", EndDate: "2025-04-30"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), "admin-1", tc.req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestLectureGeneratorMalformedRuleIsInternal(t *testing.T) {
	svc := newGeneratorFixture(nil, newGeneratorLectureStoreStub(), nil, nil)
	svc.rules = generatorRuleSourceStub{rules: []models.TimetableRule{{ID: "rule-x", Weekdays: pq.StringArray{"Funday"}, StartTime: "09:00"}}}

	_, err := svc.Generate(context.Background(), "admin-1", januaryRange())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestLectureGeneratorPreviewWritesNothing(t *testing.T) {
	store := newGeneratorLectureStoreStub()
	svc := newGeneratorFixture(nil, store, nil, []models.Holiday{{Date: mustDate(t, "2025-01-06")}})

	summary, err := svc.Preview(context.Background(), januaryRange())
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.Created)
	assert.Empty(t, summary.LectureIDs)
	assert.Empty(t, store.created)
}

func TestLectureGeneratorReadsHolidaysInsideTransaction(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	holidays := &holidaySourceStub{}
	svc := newGeneratorFixture(tx, newGeneratorLectureStoreStub(), nil, nil)
	svc.holidays = holidays

	mock.ExpectBegin()
	mock.ExpectCommit()

	_, err := svc.Generate(context.Background(), "admin-1", januaryRange())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, 1, holidays.calls)
	assert.NotNil(t, holidays.execs[0])
}

func TestLectureGeneratorSeesHolidayDeclaredBetweenRuns(t *testing.T) {
	calendar := &holidaySourceStub{}
	svc := newGeneratorFixture(nil, newGeneratorLectureStoreStub(), nil, nil)
	svc.holidays = calendar
	holidays := NewHolidayService(calendar, nil, nil)

	before, err := svc.Preview(context.Background(), januaryRange())
	require.NoError(t, err)
	assert.Equal(t, 3, before.Created)
	assert.Equal(t, 0, before.SkipReasons[models.SkipHoliday])

	_, err = holidays.Create(context.Background(), dto.HolidayRequest{Date: "2025-01-06", Name: "Founders Day"})
	require.NoError(t, err)

	after, err := svc.Preview(context.Background(), januaryRange())
	require.NoError(t, err)
	assert.Equal(t, 2, after.Created)
	assert.Equal(t, 1, after.SkipReasons[models.SkipHoliday])

	calendar.items = nil
	restored, err := svc.Preview(context.Background(), januaryRange())
	require.NoError(t, err)
	assert.Equal(t, 3, restored.Created)
}

// --- Fixtures ---

func newGeneratorFixture(tx *txProviderMock, store *generatorLectureStoreStub, audit *auditLogStub, holidays []models.Holiday) *LectureGeneratorService {
	rules := generatorRuleSourceStub{rules: []models.TimetableRule{{
		ID:              "rule-1",
		TeacherCourseID: "tc-1",
		Weekdays:        pq.StringArray{"Monday", "Wednesday"},
		StartTime:       "09:00",
		DurationMinutes: 60,
		StartDate:       time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}}}
	var writer auditLogWriter
	if audit != nil {
		writer = audit
	}
	svc := NewLectureGeneratorService(rules, &holidaySourceStub{items: holidays}, store, nil, nil, writer, nil, nil, GeneratorConfig{})
	if tx != nil {
		svc.tx = tx
	}
	return svc
}

func januaryRange() dto.GenerateLecturesRequest {
	return dto.GenerateLecturesRequest{StartDate: "2025-01-01", EndDate: "2025-01-08"}
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, raw)
	require.NoError(t, err)
	return d
}

type generatorRuleSourceStub struct {
	rules []models.TimetableRule
	err   error
}

func (s generatorRuleSourceStub) ListOverlapping(context.Context, time.Time, time.Time) ([]models.TimetableRule, error) {
	return s.rules, s.err
}

type holidaySourceStub struct {
	items  []models.Holiday
	execs  []sqlx.ExtContext
	calls  int
	nextID int
}

func (s *holidaySourceStub) ListBetween(_ context.Context, exec sqlx.ExtContext, from, to time.Time) ([]models.Holiday, error) {
	s.calls++
	s.execs = append(s.execs, exec)
	var out []models.Holiday
	for _, h := range s.items {
		if !h.Date.Before(from) && !h.Date.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

type generatorLectureStoreStub struct {
	existing  map[string]bool
	created   []models.Lecture
	failAfter int
}

func newGeneratorLectureStoreStub() *generatorLectureStoreStub {
	return &generatorLectureStoreStub{existing: map[string]bool{}}
}

func generatorKey(ruleID string, startsAt time.Time) string {
	return ruleID + "|" + startsAt.UTC().Format(time.RFC3339)
}

func (s *generatorLectureStoreStub) ExistsForRule(_ context.Context, _ sqlx.ExtContext, ruleID string, startsAt time.Time) (bool, error) {
	return s.existing[generatorKey(ruleID, startsAt)], nil
}

func (s *generatorLectureStoreStub) Create(_ context.Context, _ sqlx.ExtContext, lecture *models.Lecture) error {
	if s.failAfter > 0 && len(s.created) >= s.failAfter {
		return errors.New("insert failed")
	}
	lecture.ID = fmt.Sprintf("lecture-%d", len(s.created)+1)
	s.created = append(s.created, *lecture)
	s.existing[generatorKey(*lecture.TimetableRuleID, lecture.StartsAt)] = true
	return nil
}

func (s *holidaySourceStub) List(context.Context, models.ListQuery) ([]models.Holiday, int, error) {
	return s.items, len(s.items), nil
}

func (s *holidaySourceStub) FindByID(_ context.Context, id string) (*models.Holiday, error) {
	for _, h := range s.items {
		if h.ID == id {
			holiday := h
			return &holiday, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *holidaySourceStub) ExistsByDate(_ context.Context, date time.Time, excludeID string) (bool, error) {
	for _, h := range s.items {
		if h.Date.Equal(date) && h.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *holidaySourceStub) Create(_ context.Context, holiday *models.Holiday) error {
	s.nextID++
	holiday.ID = fmt.Sprintf("holiday-%d", s.nextID)
	s.items = append(s.items, *holiday)
	return nil
}

func (s *holidaySourceStub) Update(context.Context, *models.Holiday) error { return nil }

func (s *holidaySourceStub) Delete(context.Context, string) error { return nil }
