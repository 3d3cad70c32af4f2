package jobs

type JobType string

const (
	JobPasswordResetEmail JobType = "email.password_reset"
	JobCommentNotifyEmail JobType = "email.comment_notification"
)

func (t JobType) IsValid() bool {
	switch t {
	case JobPasswordResetEmail, JobCommentNotifyEmail:
		return true
	default:
		return false
	}
}
