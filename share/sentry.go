package share

import (
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/pkg/errors"
)

// InitSentry configures the sentry client. An empty dsn leaves sentry
// disabled, CaptureException then does nothing.
func InitSentry(dsn string) error {
	err := sentry.Init(
		sentry.ClientOptions{
			Dsn:           dsn,
			HTTPTransport: new(http.Transport),
		},
	)
	return errors.WithStack(err)
}

// FlushSentry waits for buffered events before the process exits.
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
