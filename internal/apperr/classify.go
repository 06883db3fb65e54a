package apperr

import (
	"errors"
	"net"
	"net/http"
	"regexp"
)

// nonRetryablePattern matches payment-required/quota and auth failure
// messages. This is the one place in the codebase that classifies by string
// match; everywhere else switches on Kind.
var nonRetryablePattern = regexp.MustCompile(`(?i)payment required|402|unauthorized|401`)

// quotaPattern picks out the payment-required subset of nonRetryablePattern,
// which is tagged KindQuota rather than KindAuth.
var quotaPattern = regexp.MustCompile(`(?i)payment required|402`)

var notFoundPattern = regexp.MustCompile(`(?i)not found|404`)

// Classify turns a raw error from an HTTP client or SDK call into a
// classified *Error tagged with op. It is the taxonomy boundary for the
// whole module: every other package consumes apperr.KindOf, never a string
// match of its own.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(op, KindTransient, err)
	}

	msg := err.Error()
	switch {
	case notFoundPattern.MatchString(msg):
		return Wrap(op, KindNotFound, err)
	case quotaPattern.MatchString(msg):
		return Wrap(op, KindQuota, err)
	case nonRetryablePattern.MatchString(msg):
		return Wrap(op, KindAuth, err)
	default:
		return Wrap(op, KindTransient, err)
	}
}

// ClassifyStatus classifies by an HTTP status code, used by adapters that
// already have the parsed response rather than just an error string.
func ClassifyStatus(op string, status int, err error) error {
	switch {
	case status == http.StatusPaymentRequired, status == http.StatusTooManyRequests:
		return Wrap(op, KindQuota, err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return Wrap(op, KindAuth, err)
	case status == http.StatusNotFound:
		return Wrap(op, KindNotFound, err)
	case status >= 500:
		return Wrap(op, KindTransient, err)
	default:
		return Wrap(op, KindUnknown, err)
	}
}
