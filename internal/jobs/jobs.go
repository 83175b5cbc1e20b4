package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type JobType string

const (
	JobSendWelcomeEmail JobType = "send_welcome_email"
)

// check to see if the job type is a known constant

func (t JobType) IsValid() bool {
	switch t {
	case JobSendWelcomeEmail:
		return true
	default:
		return false
	}
}

var (
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrInvalidJobPayload = errors.New("invalid job payload")
)

// SendWelcomeEmailPayload is ID-light on purpose: the welcome mail needs
// nothing but an address, so the worker never touches the credential store.
type SendWelcomeEmailPayload struct {
	Email string `json:"email"`
}

// Job is the envelope carried over the queue.
type Job struct {
	ID        string    `json:"id"`
	Type      JobType   `json:"type"`
	Payload   []byte    `json:"payload"` // raw json
	Attempts  int       `json:"attempts"`
	MaxTries  int       `json:"maxTries"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewJob creates a pending job with defaults.
func NewJob(t JobType, payloadJSON []byte) (Job, error) {
	if !t.IsValid() {
		return Job{}, ErrInvalidJobType
	}

	return Job{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payloadJSON,
		Attempts:  0,
		MaxTries:  5,
		CreatedAt: time.Now().UTC(),
	}, nil
}
