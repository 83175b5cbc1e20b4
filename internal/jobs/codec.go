package jobs

import (
	"encoding/json"
	"fmt"
)

func EncodePayload(t JobType, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}

	switch t {
	case JobSendWelcomeEmail:
		_, ok := payload.(SendWelcomeEmailPayload)

		if !ok {
			_, ok2 := payload.(*SendWelcomeEmailPayload)

			if !ok2 {
				return nil, ErrInvalidJobPayload
			}
		}
	}

	b, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals job.Payload into the correct typed payload struct.
func DecodePayload(j Job) (any, error) {
	if !j.Type.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch j.Type {
	case JobSendWelcomeEmail:
		var p SendWelcomeEmailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}
