package redirect

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strings"
)

// ErrTooManyRedirects is recorded for the pending URL when a chain reaches
// its hop limit.
var ErrTooManyRedirects = errors.New("too many redirects")

// Kind classifies why a hop failed.
type Kind int

const (
	KindNone Kind = iota
	KindSSL
	KindTimeout
	KindTooManyRedirects
	KindConnection
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return ""
	case KindSSL:
		return "ssl"
	case KindTimeout:
		return "timeout"
	case KindTooManyRedirects:
		return "too_many_redirects"
	case KindConnection:
		return "connection"
	default:
		return "other"
	}
}

const (
	SSLErrorMessage                 = "SSL error."
	TimeoutErrorMessage             = "Failed to connect, timeout reached."
	TooManyRedirectsErrorMessage    = "Too many redirects."
	UnhandledConnectionErrorMessage = "Unhandled connection failure."
)

// connectionMessages maps error text fragments to display messages. Order
// matters: the first fragment found wins. Both Go and libc wordings are
// listed.
var connectionMessages = []struct {
	fragment string
	message  string
}{
	{"failed to resolve", "Failed to resolve host."},
	{"no such host", "Name or service not known."},
	{"name or service not known", "Name or service not known."},
	{"temporary failure in name resolution", "Temporary failure in name resolution."},
	{"server misbehaving", "Temporary failure in name resolution."},
	{"nodename nor servname provided, or not known", "Node name nor server name provided, or not known."},
	{"connection refused", "Connection refused."},
	{"connection timed out", "Connection timed out."},
	{"connection reset by peer", "Connection reset by peer."},
	{"connection closed", "Connection closed."},
	{"use of closed network connection", "Connection closed."},
	{"server closed idle connection", "Connection closed."},
	{"eof", "Connection closed."},
	{"connection aborted", "Connection aborted."},
	{"software caused connection abort", "Connection aborted."},
	{"connection broken", "Connection broken."},
	{"broken pipe", "Connection broken."},
}

// Classify returns the failure kind for a transport error.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrTooManyRedirects) {
		return KindTooManyRedirects
	}
	if isTLSError(err) {
		return KindSSL
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return KindConnection
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindConnection
	}
	return KindOther
}

func isTLSError(err error) bool {
	var (
		verifyErr    *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		alertErr     tls.AlertError
		authorityErr x509.UnknownAuthorityError
		hostErr      x509.HostnameError
		invalidErr   x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &verifyErr),
		errors.As(err, &recordErr),
		errors.As(err, &alertErr),
		errors.As(err, &authorityErr),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return true
	}
	return strings.Contains(err.Error(), "tls: ")
}

// Describe returns the user-facing message for a failed hop.
func Describe(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindSSL:
		return SSLErrorMessage
	case KindTimeout:
		return TimeoutErrorMessage
	case KindTooManyRedirects:
		return TooManyRedirectsErrorMessage
	case KindConnection:
		text := strings.ToLower(err.Error())
		for _, m := range connectionMessages {
			if strings.Contains(text, m.fragment) {
				return m.message
			}
		}
		return UnhandledConnectionErrorMessage
	default:
		return err.Error()
	}
}
