package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

func TestCourseServiceCreateNormalisesCode(t *testing.T) {
	repo := &courseRepoStub{codes: map[string]string{}}
	svc := NewCourseService(repo, nil, nil, nil)

	course, err := svc.Create(context.Background(), dto.CourseRequest{Code: " cs-101 ", Title: "Programming Fundamentals", CreditHours: 3})
	require.NoError(t, err)
	assert.Equal(t, "CS-101", course.Code)

	_, err = svc.Create(context.Background(), dto.CourseRequest{Code: "CS-101", Title: "Duplicate", CreditHours: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.CourseRequest{Code: "CS-102", Title: "Too heavy", CreditHours: 9})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestBadgeServiceDeleteMissing(t *testing.T) {
	svc := NewBadgeService(nil, cascadeStub{err: sql.ErrNoRows}, nil, nil)
	err := svc.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestHolidayServiceCreate(t *testing.T) {
	repo := &holidayRepoStub{}
	svc := NewHolidayService(repo, nil, nil)

	holiday, err := svc.Create(context.Background(), dto.HolidayRequest{Date: "2025-03-23", Name: "Pakistan Day"})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 23, 0, 0, 0, 0, time.UTC), holiday.Date)
	assert.Equal(t, "holiday-1", holiday.ID)

	repo.taken = true
	_, err = svc.Create(context.Background(), dto.HolidayRequest{Date: "2025-03-23", Name: "Again"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceCreateIssuesCredentials(t *testing.T) {
	repo := &teacherRepoStub{users: map[string]models.User{}}
	notifier := &credentialsNotifierStub{}
	svc := NewTeacherService(repo, nil, notifier, nil, nil)

	resp, err := svc.Create(context.Background(), dto.CreateTeacherRequest{Email: "Faisal@Uni.Edu", FullName: "Faisal Raza"})
	require.NoError(t, err)
	assert.Equal(t, "faisal@uni.edu", resp.Teacher.Email)
	assert.Equal(t, models.RoleTeacher, resp.Teacher.Role)
	assert.True(t, resp.Teacher.Active)
	assert.Len(t, resp.TemporaryPassword, 16)
	assert.Equal(t, resp.TemporaryPassword, notifier.password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(resp.Teacher.PasswordHash), []byte(resp.TemporaryPassword)))

	_, err = svc.Create(context.Background(), dto.CreateTeacherRequest{Email: "faisal@uni.edu", FullName: "Someone Else"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceHidesAdmins(t *testing.T) {
	repo := &teacherRepoStub{users: map[string]models.User{"admin-1": {ID: "admin-1", Role: models.RoleAdmin}}}
	svc := NewTeacherService(repo, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherCourseAssignChecks(t *testing.T) {
	users := &teacherRepoStub{users: map[string]models.User{
		"teacher-1": {ID: "teacher-1", Role: models.RoleTeacher, Active: true},
		"teacher-2": {ID: "teacher-2", Role: models.RoleTeacher, Active: false},
		"admin-1":   {ID: "admin-1", Role: models.RoleAdmin, Active: true},
	}}
	courses := &courseRepoStub{codes: map[string]string{"course-1": "CS-101"}}
	sections := sectionLookupStub{ids: map[string]bool{"section-1": true}}
	repo := &teacherCourseRepoStub{}
	svc := NewTeacherCourseService(repo, users, courses, sections, nil, nil, nil)

	cases := []struct {
		name     string
		req      dto.AssignTeacherCourseRequest
		wantCode string
	}{
		{name: "admin", req: dto.AssignTeacherCourseRequest{TeacherID: "admin-1", CourseID: "course-1", SectionID: "section-1"}, wantCode: appErrors.ErrValidation.Code},
		{name: "inactive", req: dto.AssignTeacherCourseRequest{TeacherID: "teacher-2", CourseID: "course-1", SectionID: "section-1"}, wantCode: appErrors.ErrPreconditionFailed.Code},
		{name: "unknown course", req: dto.AssignTeacherCourseRequest{TeacherID: "teacher-1", CourseID: "course-9", SectionID: "section-1"}, wantCode: appErrors.ErrNotFound.Code},
		{name: "unknown section", req: dto.AssignTeacherCourseRequest{TeacherID: "teacher-1", CourseID: "course-1", SectionID: "section-9"}, wantCode: appErrors.ErrNotFound.Code},
		{name: "ok", req: dto.AssignTeacherCourseRequest{TeacherID: "teacher-1", CourseID: "course-1", SectionID: "section-1"}},
		{name: "duplicate", req: dto.AssignTeacherCourseRequest{TeacherID: "teacher-1", CourseID: "course-1", SectionID: "section-1"}, wantCode: appErrors.ErrConflict.Code},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Assign(context.Background(), tc.req)
			if tc.wantCode == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
		})
	}
}

func TestTimetableRuleCanonicalisesWeekdays(t *testing.T) {
	repo := &timetableRuleRepoStub{}
	tcs := teacherCourseLookupStub{ids: map[string]bool{"tc-1": true}}
	svc := NewTimetableRuleService(repo, tcs, nil, nil, nil)

	rule, err := svc.Create(context.Background(), dto.TimetableRuleRequest{
		TeacherCourseID: "tc-1",
		Weekdays:        []string{"wednesday", "MONDAY", "Wednesday"},
		StartTime:       "09:00",
		DurationMinutes: 60,
		StartDate:       "2025-01-01",
		EndDate:         "2025-05-31",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Monday", "Wednesday"}, []string(rule.Weekdays))
	assert.Nil(t, rule.LectureType)

	_, err = svc.Create(context.Background(), dto.TimetableRuleRequest{
		TeacherCourseID: "tc-1",
		Weekdays:        []string{"Friday"},
		StartTime:       "09:00",
		DurationMinutes: 60,
		StartDate:       "2025-06-01",
		EndDate:         "2025-01-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), dto.TimetableRuleRequest{
		TeacherCourseID: "tc-1",
		Weekdays:        []string{"Caturday"},
		StartTime:       "09:00",
		DurationMinutes: 60,
		StartDate:       "2025-01-01",
		EndDate:         "2025-01-31",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

type cascadeStub struct {
	err error
}

func (c cascadeStub) DeleteBadge(context.Context, string) error { return c.err }

type courseRepoStub struct {
	codes map[string]string // id -> code
}

func (s *courseRepoStub) List(context.Context, models.ListQuery) ([]models.Course, int, error) {
	return nil, 0, nil
}

func (s *courseRepoStub) FindByID(_ context.Context, id string) (*models.Course, error) {
	code, ok := s.codes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Course{ID: id, Code: code}, nil
}

func (s *courseRepoStub) ExistsByCode(_ context.Context, code, excludeID string) (bool, error) {
	for id, c := range s.codes {
		if c == code && id != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *courseRepoStub) Create(_ context.Context, course *models.Course) error {
	course.ID = "course-new"
	s.codes[course.ID] = course.Code
	return nil
}

func (s *courseRepoStub) Update(_ context.Context, course *models.Course) error {
	s.codes[course.ID] = course.Code
	return nil
}

type holidayRepoStub struct {
	taken bool
}

func (s *holidayRepoStub) List(context.Context, models.ListQuery) ([]models.Holiday, int, error) {
	return nil, 0, nil
}

func (s *holidayRepoStub) FindByID(context.Context, string) (*models.Holiday, error) {
	return nil, sql.ErrNoRows
}

func (s *holidayRepoStub) ExistsByDate(context.Context, time.Time, string) (bool, error) {
	return s.taken, nil
}

func (s *holidayRepoStub) Create(_ context.Context, h *models.Holiday) error {
	h.ID = "holiday-1"
	return nil
}

func (s *holidayRepoStub) Update(context.Context, *models.Holiday) error { return nil }

func (s *holidayRepoStub) Delete(context.Context, string) error { return nil }

type teacherRepoStub struct {
	users map[string]models.User
}

func (s *teacherRepoStub) List(context.Context, models.UserFilter) ([]models.User, int, error) {
	return nil, 0, nil
}

func (s *teacherRepoStub) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (s *teacherRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *teacherRepoStub) Create(_ context.Context, user *models.User) error {
	user.ID = "user-new"
	s.users[user.ID] = *user
	return nil
}

func (s *teacherRepoStub) Update(_ context.Context, user *models.User) error {
	s.users[user.ID] = *user
	return nil
}

type credentialsNotifierStub struct {
	password string
}

func (s *credentialsNotifierStub) SendTeacherCredentials(_ context.Context, _ *models.User, password string) {
	s.password = password
}

type sectionLookupStub struct {
	ids map[string]bool
}

func (s sectionLookupStub) FindByID(_ context.Context, id string) (*models.Section, error) {
	if !s.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Section{ID: id}, nil
}

type teacherCourseRepoStub struct {
	items []models.TeacherCourse
}

func (s *teacherCourseRepoStub) List(context.Context, models.TeacherCourseFilter) ([]models.TeacherCourseDetail, int, error) {
	return nil, 0, nil
}

func (s *teacherCourseRepoStub) FindByID(_ context.Context, id string) (*models.TeacherCourseDetail, error) {
	for _, tc := range s.items {
		if tc.ID == id {
			return &models.TeacherCourseDetail{TeacherCourse: tc}, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *teacherCourseRepoStub) Exists(_ context.Context, teacherID, courseID, sectionID string) (bool, error) {
	for _, tc := range s.items {
		if tc.TeacherID == teacherID && tc.CourseID == courseID && tc.SectionID == sectionID {
			return true, nil
		}
	}
	return false, nil
}

func (s *teacherCourseRepoStub) Create(_ context.Context, tc *models.TeacherCourse) error {
	tc.ID = "tc-new"
	s.items = append(s.items, *tc)
	return nil
}

type teacherCourseLookupStub struct {
	ids map[string]bool
}

func (s teacherCourseLookupStub) FindByID(_ context.Context, id string) (*models.TeacherCourseDetail, error) {
	if !s.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.TeacherCourseDetail{TeacherCourse: models.TeacherCourse{ID: id, TeacherID: "teacher-1"}}, nil
}

type timetableRuleRepoStub struct {
	created []models.TimetableRule
}

func (s *timetableRuleRepoStub) List(context.Context, models.TimetableRuleFilter) ([]models.TimetableRule, int, error) {
	return nil, 0, nil
}

func (s *timetableRuleRepoStub) FindByID(context.Context, string) (*models.TimetableRule, error) {
	return nil, sql.ErrNoRows
}

func (s *timetableRuleRepoStub) Create(_ context.Context, rule *models.TimetableRule) error {
	rule.ID = "rule-new"
	s.created = append(s.created, *rule)
	return nil
}

func (s *timetableRuleRepoStub) Update(context.Context, *models.TimetableRule) error { return nil }
