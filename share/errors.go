package share

import (
	"context"
	stderrors "errors"
	"net/url"

	"github.com/pkg/errors"
)

// IsContextClosedError reports whether err (possibly wrapped) comes from a
// canceled or expired context.
func IsContextClosedError(err error) bool {
	if err == nil {
		return false
	}

	err = errors.Cause(err)

	var ue *url.Error
	if stderrors.As(err, &ue) {
		err = ue.Err
	}

	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
