package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/uni-attendance-api/internal/models"
	"github.com/noah-isme/uni-attendance-api/pkg/jobs"
	"github.com/noah-isme/uni-attendance-api/pkg/mailer"
)

func TestNotificationServiceEnqueuesMail(t *testing.T) {
	queue := &jobQueueStub{handlers: map[string]jobs.Handler{}}
	sent := &mailerStub{}
	svc := NewNotificationService(queue, sent, nil, nil)

	svc.SendPasswordReset(context.Background(), &models.User{ID: "u-1", Email: "a@uni.edu", FullName: "Ali"}, "123456", 10*time.Minute)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeMail, queue.jobs[0].Type)
	assert.Empty(t, sent.messages, "nothing is sent until a worker runs the job")

	require.NoError(t, queue.handlers[JobTypeMail](context.Background(), queue.jobs[0]))
	require.Len(t, sent.messages, 1)
	assert.Equal(t, []string{"a@uni.edu"}, sent.messages[0].To)
	assert.Contains(t, sent.messages[0].Body, "123456")
}

func TestNotificationServiceDeliversInlineWithoutQueue(t *testing.T) {
	sent := &mailerStub{}
	svc := NewNotificationService(nil, sent, nil, nil)

	svc.SendTeacherCredentials(context.Background(), &models.User{ID: "u-2", Email: "b@uni.edu", FullName: "Bushra"}, "tmp-pass-123")
	require.Len(t, sent.messages, 1)
	assert.Contains(t, sent.messages[0].Body, "tmp-pass-123")
}

func TestNotificationServiceLogsEnqueueFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	queue := &jobQueueStub{handlers: map[string]jobs.Handler{}, err: errors.New("queue full")}
	svc := NewNotificationService(queue, &mailerStub{}, nil, zap.New(core))

	svc.SendTeacherCredentials(context.Background(), &models.User{ID: "u-3", Email: "c@uni.edu"}, "pw")
	assert.Equal(t, 1, logs.FilterMessage("failed to enqueue mail").Len())
}

func TestNotificationServiceRejectsForeignPayload(t *testing.T) {
	svc := NewNotificationService(nil, &mailerStub{}, nil, nil)
	err := svc.deliver(context.Background(), jobs.Job{Type: JobTypeMail, Payload: "not a message"})
	require.Error(t, err)
}

type jobQueueStub struct {
	handlers map[string]jobs.Handler
	jobs     []jobs.Job
	err      error
}

func (q *jobQueueStub) Register(jobType string, handler jobs.Handler) {
	q.handlers[jobType] = handler
}

func (q *jobQueueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type mailerStub struct {
	mu       sync.Mutex
	messages []mailer.Message
}

func (m *mailerStub) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}
