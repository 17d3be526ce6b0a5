package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uni-attendance-api/internal/dto"
	internalmiddleware "github.com/noah-isme/uni-attendance-api/internal/middleware"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/service"
	appErrors "github.com/noah-isme/uni-attendance-api/pkg/errors"
)

func withClaims(userID string, role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: userID, Role: role})
		c.Next()
	}
}

func doRequest(router http.Handler, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type generatorMock struct {
	actorID string
	req     dto.GenerateLecturesRequest
	preview bool
}

func (m *generatorMock) Generate(_ context.Context, actorID string, req dto.GenerateLecturesRequest) (*models.GenerationSummary, error) {
	m.actorID, m.req = actorID, req
	summary := models.NewGenerationSummary(req.StartDate, req.EndDate)
	summary.Created = 2
	return summary, nil
}

func (m *generatorMock) Preview(_ context.Context, req dto.GenerateLecturesRequest) (*models.GenerationSummary, error) {
	m.preview, m.req = true, req
	summary := models.NewGenerationSummary(req.StartDate, req.EndDate)
	summary.DryRun = true
	return summary, nil
}

func TestLectureGenerateUsesCallerAsActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gen := &generatorMock{}
	h := NewLectureHandler(gen, nil)
	router := gin.New()
	router.POST("/lectures/generate", withClaims("admin-1", models.RoleAdmin), h.Generate)

	w := doRequest(router, http.MethodPost, "/lectures/generate", bytes.NewBufferString(`{"startDate":"2025-01-01","endDate":"2025-01-08"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", gen.actorID)
	assert.Equal(t, "2025-01-08", gen.req.EndDate)

	var summary models.GenerationSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &summary))
	assert.Equal(t, 2, summary.Created)
	assert.Contains(t, summary.SkipReasons, models.SkipHoliday)
}

func TestLectureGenerateRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewLectureHandler(&generatorMock{}, nil)
	router := gin.New()
	router.POST("/lectures/generate", withClaims("admin-1", models.RoleAdmin), h.Generate)

	w := doRequest(router, http.MethodPost, "/lectures/generate", bytes.NewBufferString(`{"startDate":`))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestLectureGenerateWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/lectures/generate", bytes.NewBufferString(`{}`))

	NewLectureHandler(&generatorMock{}, nil).Generate(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLecturePreview(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gen := &generatorMock{}
	router := gin.New()
	router.POST("/lectures/generate/preview", NewLectureHandler(gen, nil).Preview)

	w := doRequest(router, http.MethodPost, "/lectures/generate/preview", bytes.NewBufferString(`{"startDate":"2025-01-01","endDate":"2025-01-02"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gen.preview)
}

type lectureServiceMock struct {
	actor service.Actor
	query dto.LectureQuery
}

func (m *lectureServiceMock) List(_ context.Context, actor service.Actor, q dto.LectureQuery) ([]models.LectureDetail, *models.Pagination, error) {
	m.actor, m.query = actor, q
	return []models.LectureDetail{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *lectureServiceMock) Get(_ context.Context, _ service.Actor, id string) (*models.LectureDetail, error) {
	return nil, appErrors.ErrNotFound
}

func (m *lectureServiceMock) CreateSpecialSession(_ context.Context, teacherID string, _ dto.CreateSpecialSessionRequest) (*models.Lecture, error) {
	return &models.Lecture{ID: "lecture-9"}, nil
}

func (m *lectureServiceMock) Cancel(_ context.Context, _ service.Actor, _ string) (*models.LectureDetail, error) {
	return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "attendance already marked")
}

func (m *lectureServiceMock) Delete(_ context.Context, actor service.Actor, _ string) error {
	m.actor = actor
	return nil
}

func TestMyLecturesBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	lectures := &lectureServiceMock{}
	h := NewLectureHandler(nil, lectures)
	router := gin.New()
	router.Use(withClaims("teacher-1", models.RoleTeacher))
	router.GET("/my/lectures", h.List)
	router.GET("/my/lectures/:id", h.Get)
	router.POST("/my/lectures", h.CreateSpecialSession)
	router.POST("/my/lectures/:id/cancel", h.Cancel)

	w := doRequest(router, http.MethodGet, "/my/lectures?from=2025-01-01&to=2025-01-07&status=LOCKED&pageSize=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.Actor{ID: "teacher-1", Role: models.RoleTeacher}, lectures.actor)
	assert.Equal(t, "2025-01-01", lectures.query.From)
	assert.Equal(t, "LOCKED", lectures.query.Status)
	assert.Equal(t, 5, lectures.query.PageSize)

	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/my/lectures/nope", nil).Code)
	assert.Equal(t, http.StatusCreated, doRequest(router, http.MethodPost, "/my/lectures", bytes.NewBufferString(`{"teacherCourseId":"tc-1"}`)).Code)
	assert.Equal(t, http.StatusPreconditionFailed, doRequest(router, http.MethodPost, "/my/lectures/l-1/cancel", nil).Code)
}

type requestServiceMock struct {
	reviewer string
	notes    string
	err      error
	actor    service.Actor
}

func (m *requestServiceMock) SubmitEdit(_ context.Context, teacherID, lectureID string, req dto.SubmitEditRequest) (*models.AttendanceRequest, error) {
	return &models.AttendanceRequest{ID: "req-1", TeacherID: teacherID, LectureID: lectureID, Kind: models.RequestKindEdit, Reason: req.Reason, Status: models.RequestPending}, nil
}

func (m *requestServiceMock) SubmitExtension(_ context.Context, _, _ string, _ dto.SubmitExtensionRequest) (*models.AttendanceRequest, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "an open extension request already exists")
}

func (m *requestServiceMock) Approve(_ context.Context, reviewerID, id string, req dto.ReviewRequest) (*models.AttendanceRequest, error) {
	m.reviewer, m.notes = reviewerID, req.Notes
	if m.err != nil {
		return nil, m.err
	}
	return &models.AttendanceRequest{ID: id, Status: models.RequestApproved}, nil
}

func (m *requestServiceMock) Reject(_ context.Context, reviewerID, id string, req dto.ReviewRequest) (*models.AttendanceRequest, error) {
	m.reviewer, m.notes = reviewerID, req.Notes
	return &models.AttendanceRequest{ID: id, Status: models.RequestRejected}, nil
}

func (m *requestServiceMock) List(_ context.Context, actor service.Actor, _ dto.AttendanceRequestQuery) ([]models.AttendanceRequestDetail, *models.Pagination, error) {
	m.actor = actor
	return nil, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *requestServiceMock) Get(_ context.Context, actor service.Actor, _ string) (*models.AttendanceRequestDetail, error) {
	m.actor = actor
	return nil, appErrors.ErrForbidden
}

func TestAttendanceRequestReviewAcceptsEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &requestServiceMock{}
	h := NewAttendanceRequestHandler(svc)
	router := gin.New()
	router.Use(withClaims("admin-1", models.RoleAdmin))
	router.POST("/attendance-requests/:id/approve", h.Approve)
	router.POST("/attendance-requests/:id/reject", h.Reject)

	w := doRequest(router, http.MethodPost, "/attendance-requests/req-1/approve", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", svc.reviewer)
	assert.Empty(t, svc.notes)

	w = doRequest(router, http.MethodPost, "/attendance-requests/req-1/reject", bytes.NewBufferString(`{"notes":"too late"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "too late", svc.notes)
}

func TestAttendanceRequestAlreadyProcessedIsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &requestServiceMock{err: appErrors.Clone(appErrors.ErrAlreadyProcessed, "request expired before review")}
	router := gin.New()
	router.Use(withClaims("admin-1", models.RoleAdmin))
	router.POST("/attendance-requests/:id/approve", NewAttendanceRequestHandler(svc).Approve)

	w := doRequest(router, http.MethodPost, "/attendance-requests/req-1/approve", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	env := decode(t, w)
	assert.Equal(t, "ALREADY_PROCESSED", env.Error.Code)
	assert.Equal(t, "request expired before review", env.Error.Message)
}

func TestAttendanceRequestSubmitRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &requestServiceMock{}
	h := NewAttendanceRequestHandler(svc)
	router := gin.New()
	router.Use(withClaims("teacher-1", models.RoleTeacher))
	router.POST("/my/lectures/:id/edit-requests", h.SubmitEdit)
	router.POST("/my/lectures/:id/extension-requests", h.SubmitExtension)
	router.GET("/my/attendance-requests", h.List)
	router.GET("/my/attendance-requests/:id", h.Get)

	w := doRequest(router, http.MethodPost, "/my/lectures/lecture-1/edit-requests", bytes.NewBufferString(`{"reason":"wrong student marked"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.AttendanceRequest
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, "lecture-1", created.LectureID)
	assert.Equal(t, "teacher-1", created.TeacherID)

	w = doRequest(router, http.MethodPost, "/my/lectures/lecture-1/extension-requests", bytes.NewBufferString(`{"type":"MISSED","reason":"network outage"}`))
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/my/attendance-requests?status=EXPIRED", nil).Code)
	assert.Equal(t, models.RoleTeacher, svc.actor.Role)
	assert.Equal(t, http.StatusForbidden, doRequest(router, http.MethodGet, "/my/attendance-requests/req-2", nil).Code)
}

type exporterMock struct {
	format string
}

func (m *exporterMock) ExportLecture(_ context.Context, _ service.Actor, _, format string) (*service.ExportFile, error) {
	m.format = format
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	return &service.ExportFile{Filename: "attendance_CS_101_20250108_0900.csv", ContentType: "text/csv", Payload: []byte("roll_number,full_name,status\n")}, nil
}

func TestAttendanceExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &exporterMock{}
	router := gin.New()
	router.Use(withClaims("teacher-1", models.RoleTeacher))
	router.GET("/my/lectures/:id/attendance/export", NewAttendanceHandler(nil, exporter).Export)

	w := doRequest(router, http.MethodGet, "/my/lectures/lecture-1/attendance/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.format)
	assert.Equal(t, `attachment; filename="attendance_CS_101_20250108_0900.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	w = doRequest(router, http.MethodGet, "/my/lectures/lecture-1/attendance/export?format=XLSX", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "xlsx", exporter.format)
}

type markServiceMock struct {
	teacherID string
	entries   int
}

func (m *markServiceMock) Mark(_ context.Context, teacherID, lectureID string, req dto.MarkAttendanceRequest) (*models.AttendanceSheet, error) {
	m.teacherID, m.entries = teacherID, len(req.Entries)
	return &models.AttendanceSheet{Marked: len(req.Entries)}, nil
}

func (m *markServiceMock) Sheet(context.Context, service.Actor, string) (*models.AttendanceSheet, error) {
	return &models.AttendanceSheet{CanMark: true}, nil
}

func TestAttendanceMark(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &markServiceMock{}
	h := NewAttendanceHandler(svc, nil)
	router := gin.New()
	router.Use(withClaims("teacher-1", models.RoleTeacher))
	router.PUT("/my/lectures/:id/attendance", h.Mark)
	router.GET("/my/lectures/:id/attendance", h.Sheet)

	w := doRequest(router, http.MethodPut, "/my/lectures/lecture-1/attendance", bytes.NewBufferString(`{"entries":[{"studentId":"s-1","status":"PRESENT"},{"studentId":"s-2","status":"LATE"}]}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "teacher-1", svc.teacherID)
	assert.Equal(t, 2, svc.entries)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/my/lectures/lecture-1/attendance", nil).Code)
}

type authServiceMock struct {
	login models.LoginRequest
}

func (m *authServiceMock) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.login = req
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}, nil
}

func (m *authServiceMock) ChangePassword(context.Context, string, models.ChangePasswordRequest) error {
	return nil
}

func (m *authServiceMock) ForgotPassword(context.Context, models.ForgotPasswordRequest) error {
	return nil
}

func (m *authServiceMock) ResetPassword(context.Context, models.ResetPasswordRequest) error {
	return appErrors.ErrInvalidOTP
}

func TestAuthHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	h := NewAuthHandler(svc)
	router := gin.New()
	router.POST("/auth/login", h.Login)
	router.POST("/auth/password/forgot", h.ForgotPassword)
	router.POST("/auth/password/reset", h.ResetPassword)
	router.POST("/auth/password/change", h.ChangePassword)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"t@uni.edu","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "attendance-app/1.0")
	req.RemoteAddr = "10.1.2.3:5555"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "10.1.2.3", svc.login.IP)
	assert.Equal(t, "attendance-app/1.0", svc.login.UserAgent)

	assert.Equal(t, http.StatusAccepted, doRequest(router, http.MethodPost, "/auth/password/forgot", bytes.NewBufferString(`{"email":"ghost@uni.edu"}`)).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodPost, "/auth/password/reset", bytes.NewBufferString(`{"email":"t@uni.edu","code":"123456","new_password":"long-enough"}`)).Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(router, http.MethodPost, "/auth/password/change", bytes.NewBufferString(`{}`)).Code)
}

type teacherServiceMock struct {
	filter models.UserFilter
}

func (m *teacherServiceMock) List(_ context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	m.filter = filter
	return nil, &models.Pagination{}, nil
}

func (m *teacherServiceMock) Get(context.Context, string) (*models.User, error) {
	return nil, appErrors.ErrNotFound
}

func (m *teacherServiceMock) Create(_ context.Context, req dto.CreateTeacherRequest) (*dto.CreateTeacherResponse, error) {
	return &dto.CreateTeacherResponse{Teacher: &models.User{Email: req.Email}, TemporaryPassword: "temp-pass-1234"}, nil
}

func (m *teacherServiceMock) Update(context.Context, string, dto.UpdateTeacherRequest) (*models.User, error) {
	return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
}

func (m *teacherServiceMock) Delete(context.Context, string) error {
	return nil
}

func TestTeacherHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &teacherServiceMock{}
	h := NewTeacherHandler(svc)
	router := gin.New()
	router.GET("/teachers", h.List)
	router.POST("/teachers", h.Create)
	router.PUT("/teachers/:id", h.Update)
	router.DELETE("/teachers/:id", h.Delete)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/teachers?active=false&search=sara&page=2", nil).Code)
	require.NotNil(t, svc.filter.Active)
	assert.False(t, *svc.filter.Active)
	assert.Equal(t, "sara", svc.filter.Search)
	assert.Equal(t, 2, svc.filter.Page)

	w := doRequest(router, http.MethodPost, "/teachers", bytes.NewBufferString(`{"email":"new@uni.edu","fullName":"New Teacher"}`))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "temporaryPassword")

	assert.Equal(t, http.StatusConflict, doRequest(router, http.MethodPut, "/teachers/t-1", bytes.NewBufferString(`{"email":"x@uni.edu","fullName":"X"}`)).Code)
	assert.Equal(t, http.StatusNoContent, doRequest(router, http.MethodDelete, "/teachers/t-1", nil).Code)
}

type sectionServiceMock struct {
	filter models.SectionFilter
}

func (m *sectionServiceMock) List(_ context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	m.filter = filter
	return nil, &models.Pagination{}, nil
}

func (m *sectionServiceMock) Get(context.Context, string) (*models.Section, error) {
	return &models.Section{ID: "s-1"}, nil
}

func (m *sectionServiceMock) Create(context.Context, dto.SectionRequest) (*models.Section, error) {
	return &models.Section{ID: "s-1"}, nil
}

func (m *sectionServiceMock) Update(context.Context, string, dto.SectionRequest) (*models.Section, error) {
	return &models.Section{ID: "s-1"}, nil
}

func (m *sectionServiceMock) Delete(context.Context, string) error {
	return errors.New("db down")
}

func TestSectionHandlerFilterAndErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &sectionServiceMock{}
	h := NewSectionHandler(svc)
	router := gin.New()
	router.GET("/sections", h.List)
	router.DELETE("/sections/:id", h.Delete)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/sections?badgeId=b-1&semester=3&session=2024-2028", nil).Code)
	assert.Equal(t, "b-1", svc.filter.BadgeID)
	assert.Equal(t, 3, svc.filter.Semester)
	assert.Equal(t, "2024-2028", svc.filter.Session)

	w := doRequest(router, http.MethodDelete, "/sections/s-1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestReadyReportsFailingDependency(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(nil, map[string]Pinger{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}, nil)
	router := gin.New()
	router.GET("/ready", h.Ready)
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Prometheus)

	w := doRequest(router, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"down"`)
	assert.Contains(t, w.Body.String(), `"postgres":"up"`)

	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(router, http.MethodGet, "/metrics", nil).Code)
}

func TestPrometheusServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, 0)
	router := gin.New()
	router.GET("/metrics", NewMetricsHandler(metrics.Handler(), nil, nil).Prometheus)

	w := doRequest(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
