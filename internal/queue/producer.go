package queue

import (
	"context"

	"github.com/citypulse/cityhub/internal/jobs"
	"github.com/citypulse/cityhub/internal/queue/redisclient"
)

// MailKey is the redis list the api produces to and the worker consumes from.
const MailKey = "cityhub:jobs:mail"

// MailProducer is the auth service's WelcomeMailer backed by the redis
// queue. Enqueue failures are the caller's to log; they must never fail
// the signup that triggered them.
type MailProducer struct {
	client *redisclient.Client
}

func NewMailProducer(client *redisclient.Client) *MailProducer {
	return &MailProducer{client: client}
}

func (p *MailProducer) EnqueueWelcome(ctx context.Context, email string) error {
	payload, err := jobs.EncodePayload(jobs.JobSendWelcomeEmail, jobs.SendWelcomeEmailPayload{
		Email: email,
	})

	if err != nil {
		return err
	}

	j, err := jobs.NewJob(jobs.JobSendWelcomeEmail, payload)

	if err != nil {
		return err
	}

	return p.client.Enqueue(ctx, MailKey, j)
}
