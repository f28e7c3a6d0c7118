package passcode

import (
	"context"

	"github.com/rs/zerolog"
)

// Deliverer sends an issued passcode to the patient's contact. Production
// deployments plug in an SMS or email gateway; what transport is used is
// outside the portal core.
type Deliverer interface {
	Deliver(ctx context.Context, contact, code string) error
}

// LogDeliverer writes codes to the log instead of sending them. Development
// only.
type LogDeliverer struct {
	logger zerolog.Logger
}

func NewLogDeliverer(logger zerolog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, contact, code string) error {
	d.logger.Info().
		Str("contact", contact).
		Str("code", code).
		Msg("passcode issued (log delivery)")
	return nil
}
