package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/handler"
	"github.com/noah-isme/uni-attendance-api/internal/middleware"
	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/internal/service"
	"github.com/noah-isme/uni-attendance-api/pkg/config"
	"github.com/noah-isme/uni-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-attendance-api/pkg/middleware/requestid"
)

// crudHandler is satisfied by every admin catalogue handler.
type crudHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Create(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

func newRouter(cfg *config.Config, logr *zap.Logger, repos *repositories, svc *services, metrics *service.MetricsService, checks map[string]handler.Pinger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	if cfg.Env != config.EnvProduction {
		r.Use(middleware.DebugErrors())
	}

	metricsHandler := handler.NewMetricsHandler(metrics.Handler(), checks, logr)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := handler.NewAuthHandler(svc.auth)
	lectureHandler := handler.NewLectureHandler(svc.generator, svc.lectures)
	attendanceHandler := handler.NewAttendanceHandler(svc.attendance, svc.reports)
	requestHandler := handler.NewAttendanceRequestHandler(svc.requests)
	dashboardHandler := handler.NewDashboardHandler(svc.dashboard)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/password/forgot", authHandler.ForgotPassword)
	auth.POST("/password/reset", authHandler.ResetPassword)
	auth.POST("/password/change", middleware.JWT(svc.auth), authHandler.ChangePassword)

	admin := api.Group("", middleware.JWT(svc.auth), middleware.RequireRoles(models.RoleAdmin))
	registerCRUD(admin, "/badges", handler.NewBadgeHandler(svc.badges), repos, logr)
	registerCRUD(admin, "/sections", handler.NewSectionHandler(svc.sections), repos, logr)
	registerCRUD(admin, "/courses", handler.NewCourseHandler(svc.courses), repos, logr)
	registerCRUD(admin, "/students", handler.NewStudentHandler(svc.students), repos, logr)
	registerCRUD(admin, "/teachers", handler.NewTeacherHandler(svc.teachers), repos, logr)
	registerCRUD(admin, "/timetable-rules", handler.NewTimetableRuleHandler(svc.rules), repos, logr)
	registerCRUD(admin, "/holidays", handler.NewHolidayHandler(svc.holidays), repos, logr)

	teacherCourses := admin.Group("/teacher-courses", middleware.Audit(repos.audit, logr, "teacher-courses"))
	teacherCourseHandler := handler.NewTeacherCourseHandler(svc.teacherCourses)
	teacherCourses.GET("", teacherCourseHandler.List)
	teacherCourses.GET("/:id", teacherCourseHandler.Get)
	teacherCourses.POST("", teacherCourseHandler.Create)
	teacherCourses.DELETE("/:id", teacherCourseHandler.Delete)

	admin.POST("/lectures/generate", lectureHandler.Generate)
	admin.POST("/lectures/generate/preview", lectureHandler.Preview)
	admin.GET("/lectures", lectureHandler.List)
	admin.GET("/lectures/:id", lectureHandler.Get)
	admin.POST("/lectures/:id/cancel", lectureHandler.Cancel)
	admin.DELETE("/lectures/:id", middleware.Audit(repos.audit, logr, "lectures"), lectureHandler.Delete)
	admin.GET("/lectures/:id/attendance", attendanceHandler.Sheet)
	admin.GET("/lectures/:id/attendance/export", attendanceHandler.Export)

	admin.GET("/attendance-requests", requestHandler.List)
	admin.GET("/attendance-requests/:id", requestHandler.Get)
	admin.POST("/attendance-requests/:id/approve", requestHandler.Approve)
	admin.POST("/attendance-requests/:id/reject", requestHandler.Reject)

	admin.GET("/dashboard/summary", dashboardHandler.Summary)

	my := api.Group("/my", middleware.JWT(svc.auth), middleware.RequireRoles(models.RoleTeacher))
	my.GET("/lectures", lectureHandler.List)
	my.POST("/lectures", lectureHandler.CreateSpecialSession)
	my.GET("/lectures/:id", lectureHandler.Get)
	my.POST("/lectures/:id/cancel", lectureHandler.Cancel)
	my.GET("/lectures/:id/attendance", attendanceHandler.Sheet)
	my.PUT("/lectures/:id/attendance", attendanceHandler.Mark)
	my.GET("/lectures/:id/attendance/export", attendanceHandler.Export)
	my.POST("/lectures/:id/edit-requests", requestHandler.SubmitEdit)
	my.POST("/lectures/:id/extension-requests", requestHandler.SubmitExtension)
	my.GET("/attendance-requests", requestHandler.List)
	my.GET("/attendance-requests/:id", requestHandler.Get)

	return r
}

func registerCRUD(group *gin.RouterGroup, path string, h crudHandler, repos *repositories, logr *zap.Logger) {
	g := group.Group(path, middleware.Audit(repos.audit, logr, path[1:]))
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
