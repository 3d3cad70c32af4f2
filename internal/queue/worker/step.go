package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kharelcodes/bloghub/internal/domain/job"
	"github.com/kharelcodes/bloghub/internal/jobs"
	"github.com/kharelcodes/bloghub/internal/mail"
)

// ProcessOne claims and executes a single job. Returns whether a job was
// claimed; settle errors surface, execution errors are absorbed into the
// retry bookkeeping.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	start := time.Now()

	if w.prom != nil {
		w.prom.JobStarted()
		defer w.prom.JobFinished()
	}

	err = w.execute(ctx, j)

	if err != nil {
		w.handleFailure(ctx, j, start, err)
		return true, nil
	}

	if w.prom != nil {
		w.prom.ObserveJob(j.Type, start, "done")
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	t := jobs.JobType(j.Type)

	payload, err := jobs.DecodePayload(t, j.Payload)

	if err != nil {
		return err
	}

	if err := jobs.ValidatePayload(t, payload); err != nil {
		return err
	}

	switch p := payload.(type) {
	case jobs.PasswordResetEmailPayload:
		return w.mailer.Send(ctx, mail.Message{
			To:      p.Email,
			Subject: "Password Reset Code",
			Body:    fmt.Sprintf("Your password reset code is %s. It expires in 15 minutes.", p.Code),
		})

	case jobs.CommentNotifyEmailPayload:
		return w.mailer.Send(ctx, mail.Message{
			To:      p.RecipientEmail,
			Subject: fmt.Sprintf("New comment on %q", p.BlogTitle),
			Body:    fmt.Sprintf("%s commented on your blog %q.", p.CommenterName, p.BlogTitle),
		})

	default:
		return jobs.ErrInvalidJobType
	}
}

func (w *Worker) handleFailure(ctx context.Context, j job.Job, start time.Time, execErr error) {
	// malformed jobs never heal; fail them without burning retries
	if errors.Is(execErr, jobs.ErrInvalidJobType) ||
		errors.Is(execErr, jobs.ErrInvalidJobPayload) ||
		errors.Is(execErr, jobs.ErrPayloadTypeMismatch) {
		if w.prom != nil {
			w.prom.ObserveJob(j.Type, start, "failed")
		}
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return
	}

	if j.Attempts+1 >= j.MaxAttempts {
		if w.prom != nil {
			w.prom.ObserveJob(j.Type, start, "failed")
		}

		w.log.Error("job exhausted attempts", "job_id", j.ID, "type", j.Type, "err", execErr)

		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return
	}

	if w.prom != nil {
		w.prom.ObserveJob(j.Type, start, "retry")
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule failed", "job_id", j.ID, "err", err)
	}
}
