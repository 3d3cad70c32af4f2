package mail

import "context"

type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer is the email collaborator. Failures are the caller's problem:
// handlers never block on delivery, the worker retries with backoff.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}
