package chat

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/atozlegal/legalchat/internal/common"
	"github.com/atozlegal/legalchat/internal/session"
)

// JobPublisher hands a queued job id to the broker. *queue.Publisher
// implements it.
type JobPublisher interface {
	Publish(ctx context.Context, jobID string) error
}

// AsyncService is the job-backed send path. The consumer resolving the
// jobs must run in the same process: the session store is in-memory.
type AsyncService struct {
	svc       *Service
	jobs      *JobStore
	publisher JobPublisher
	log       *zap.Logger
}

func NewAsyncService(svc *Service, jobs *JobStore, publisher JobPublisher, log *zap.Logger) *AsyncService {
	return &AsyncService{svc: svc, jobs: jobs, publisher: publisher, log: log}
}

// EnqueueAsk appends the user message optimistically, records an AskJob
// with the session id captured now, and publishes it. A blank text returns
// an empty job id and does nothing. The reply arrives later via the
// consumer; callers poll GetJob.
func (a *AsyncService) EnqueueAsk(ctx context.Context, text string) (string, error) {
	target, err := a.svc.store.Append(session.SenderUser, text)
	if err != nil {
		return "", nil // blank send: rejected, not queued
	}

	jobID, err := common.NewULID()
	if err != nil {
		return "", err
	}

	job := &AskJob{
		ID:        jobID,
		SessionID: target,
		Question:  text,
		Status:    JobQueued,
	}
	if err := a.jobs.Create(ctx, job); err != nil {
		return "", err
	}
	if err := a.publisher.Publish(ctx, jobID); err != nil {
		_ = a.jobs.MarkFailed(ctx, jobID, "enqueue failed")
		return "", err
	}
	return jobID, nil
}

// Resolve runs one queued job: ask the backend and route the reply (or the
// fixed failure text) to the job's captured session. The returned error is
// for requeue/dead-letter decisions only; the chat itself never sees it.
func (a *AsyncService) Resolve(ctx context.Context, jobID string) error {
	_ = a.jobs.MarkRunning(ctx, jobID)

	job, err := a.jobs.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if _, ok := a.svc.store.Get(job.SessionID); !ok {
		// Session deleted while the job sat in the queue.
		a.log.Warn("dropping job for deleted session",
			zap.String("job_id", jobID), zap.String("session_id", job.SessionID))
		return a.jobs.MarkFailed(ctx, jobID, "session deleted")
	}

	docID := a.svc.documentFor(job.SessionID)
	reply, askErr := a.svc.client.Ask(ctx, job.Question, docID)
	if askErr != nil {
		a.log.Warn("async ask exchange failed",
			zap.String("job_id", jobID), zap.Error(askErr))
		a.svc.deliver(ctx, job.SessionID, askFailureText)
		return a.jobs.MarkFailed(ctx, jobID, askErr.Error())
	}
	if strings.TrimSpace(reply) == "" {
		reply = emptyReplyText
	}

	a.svc.deliver(ctx, job.SessionID, reply)
	return a.jobs.MarkSucceeded(ctx, jobID, reply)
}

func (a *AsyncService) GetJob(ctx context.Context, jobID string) (*AskJob, error) {
	return a.jobs.Get(ctx, jobID)
}

var ErrAsyncDisabled = errors.New("chat: async sends are not configured")
