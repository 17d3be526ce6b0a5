package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/jobs"
	"github.com/noah-isme/uni-attendance-api/pkg/mailer"
)

// JobTypeMail is the queue job type carrying a mailer.Message payload.
const JobTypeMail = "mail.send"

type jobQueue interface {
	Register(jobType string, handler jobs.Handler)
	Enqueue(job jobs.Job) error
}

// NotificationService renders outbound mail and hands it to the background
// queue. Delivery failures are logged and never reach the caller.
type NotificationService struct {
	queue   jobQueue
	mailer  mailer.Mailer
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService registers the mail handler on queue. Without a queue
// messages are delivered inline.
func NewNotificationService(queue jobQueue, m mailer.Mailer, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = mailer.NewLogMailer(logger)
	}
	s := &NotificationService{queue: queue, mailer: m, metrics: metrics, logger: logger}
	if queue != nil {
		queue.Register(JobTypeMail, s.deliver)
	}
	return s
}

// SendTeacherCredentials mails a new teacher their temporary password.
func (s *NotificationService) SendTeacherCredentials(ctx context.Context, teacher *models.User, password string) {
	msg, err := mailer.TeacherCredentials(teacher.Email, teacher.FullName, password)
	if err != nil {
		s.logger.Error("failed to render credentials mail", zap.String("user_id", teacher.ID), zap.Error(err))
		return
	}
	s.dispatch(ctx, msg)
}

// SendPasswordReset mails a one time reset code.
func (s *NotificationService) SendPasswordReset(ctx context.Context, user *models.User, code string, ttl time.Duration) {
	msg, err := mailer.PasswordResetCode(user.Email, user.FullName, code, ttl)
	if err != nil {
		s.logger.Error("failed to render reset mail", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	s.dispatch(ctx, msg)
}

func (s *NotificationService) dispatch(ctx context.Context, msg mailer.Message) {
	if s.queue == nil {
		if err := s.deliver(ctx, jobs.Job{Type: JobTypeMail, Payload: msg}); err != nil {
			s.logger.Warn("mail delivery failed", zap.Strings("to", msg.To), zap.Error(err))
		}
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: JobTypeMail, Payload: msg}); err != nil {
		s.logger.Warn("failed to enqueue mail", zap.Strings("to", msg.To), zap.String("subject", msg.Subject), zap.Error(err))
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		return fmt.Errorf("unexpected mail payload %T", job.Payload)
	}
	err := s.mailer.Send(ctx, msg)
	s.metrics.RecordMailDelivery(err == nil)
	return err
}
