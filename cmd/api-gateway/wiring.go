package main

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/handler"
	"github.com/noah-isme/uni-attendance-api/internal/repository"
	"github.com/noah-isme/uni-attendance-api/internal/service"
	"github.com/noah-isme/uni-attendance-api/pkg/config"
)

type repositories struct {
	users          *repository.UserRepository
	badges         *repository.BadgeRepository
	sections       *repository.SectionRepository
	courses        *repository.CourseRepository
	students       *repository.StudentRepository
	teacherCourses *repository.TeacherCourseRepository
	rules          *repository.TimetableRuleRepository
	holidays       *repository.HolidayRepository
	lectures       *repository.LectureRepository
	attendance     *repository.AttendanceRepository
	requests       *repository.AttendanceRequestRepository
	dashboard      *repository.DashboardRepository
	audit          *repository.AuditRepository
	cascade        *repository.CascadeRepository
	cache          *repository.CacheRepository
	otp            *repository.OTPRepository
}

func newRepositories(db *sqlx.DB, client redis.UniversalClient) *repositories {
	return &repositories{
		users:          repository.NewUserRepository(db),
		badges:         repository.NewBadgeRepository(db),
		sections:       repository.NewSectionRepository(db),
		courses:        repository.NewCourseRepository(db),
		students:       repository.NewStudentRepository(db),
		teacherCourses: repository.NewTeacherCourseRepository(db),
		rules:          repository.NewTimetableRuleRepository(db),
		holidays:       repository.NewHolidayRepository(db),
		lectures:       repository.NewLectureRepository(db),
		attendance:     repository.NewAttendanceRepository(db),
		requests:       repository.NewAttendanceRequestRepository(db),
		dashboard:      repository.NewDashboardRepository(db),
		audit:          repository.NewAuditRepository(db),
		cascade:        repository.NewCascadeRepository(db),
		cache:          repository.NewCacheRepository(client),
		otp:            repository.NewOTPRepository(client),
	}
}

type services struct {
	auth           *service.AuthService
	badges         *service.BadgeService
	sections       *service.SectionService
	courses        *service.CourseService
	students       *service.StudentService
	teachers       *service.TeacherService
	teacherCourses *service.TeacherCourseService
	rules          *service.TimetableRuleService
	holidays       *service.HolidayService
	generator      *service.LectureGeneratorService
	lectures       *service.LectureService
	attendance     *service.AttendanceService
	requests       *service.AttendanceRequestService
	reports        *service.ReportService
	dashboard      *service.DashboardService
}

func newServices(
	cfg *config.Config,
	r *repositories,
	db *sqlx.DB,
	cacheSvc *service.CacheService,
	notifications *service.NotificationService,
	metrics *service.MetricsService,
	validate *validator.Validate,
	logr *zap.Logger,
	loc *time.Location,
) *services {
	att := cfg.Attendance
	attendance := service.NewAttendanceService(r.lectures, r.attendance, r.students, db, metrics, r.audit, validate, logr,
		service.MarkingWindow{MarkingGrace: att.MarkingGrace, EditGrace: att.EditGrace})

	return &services{
		auth: service.NewAuthService(r.users, r.otp, notifications, r.audit, validate, logr, service.AuthConfig{
			AccessTokenSecret: cfg.JWT.Secret,
			AccessTokenExpiry: cfg.JWT.Expiration,
			Issuer:            cfg.JWT.Issuer,
			OTPTTL:            cfg.Cache.OTPTTL,
		}),
		badges:         service.NewBadgeService(r.badges, r.cascade, validate, logr),
		sections:       service.NewSectionService(r.sections, r.badges, r.cascade, validate, logr),
		courses:        service.NewCourseService(r.courses, r.cascade, validate, logr),
		students:       service.NewStudentService(r.students, r.sections, r.cascade, validate, logr),
		teachers:       service.NewTeacherService(r.users, r.cascade, notifications, validate, logr),
		teacherCourses: service.NewTeacherCourseService(r.teacherCourses, r.users, r.courses, r.sections, r.cascade, validate, logr),
		rules:          service.NewTimetableRuleService(r.rules, r.teacherCourses, r.cascade, validate, logr),
		holidays:       service.NewHolidayService(r.holidays, validate, logr),
		generator: service.NewLectureGeneratorService(r.rules, r.holidays, r.lectures, db, metrics, r.audit, validate, logr, service.GeneratorConfig{
			Location:    loc,
			MaxSpanDays: att.MaxGenerationSpanDays,
		}),
		lectures:   service.NewLectureService(r.lectures, r.teacherCourses, r.cascade, r.audit, validate, logr, loc),
		attendance: attendance,
		requests: service.NewAttendanceRequestService(r.requests, r.lectures, r.attendance, db, metrics, r.audit, validate, logr, service.RequestConfig{
			MarkingGrace:    att.MarkingGrace,
			EditGrace:       att.EditGrace,
			RequestTTL:      att.RequestTTL,
			ExtensionWindow: att.ExtensionWindow,
		}),
		reports:   service.NewReportService(attendance, loc, logr),
		dashboard: service.NewDashboardService(r.dashboard, cacheSvc, cfg.Cache.DashboardTTL, loc, logr),
	}
}

func readinessChecks(db *sqlx.DB, client redis.UniversalClient) map[string]handler.Pinger {
	return map[string]handler.Pinger{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}
