package transmission

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrorCode represents a specific error type for client-side handling
type ErrorCode string

const (
	// ErrorCodeNone indicates no error
	ErrorCodeNone ErrorCode = ""

	// ErrorCodeAuthFailure indicates invalid username/password - requires user intervention
	ErrorCodeAuthFailure ErrorCode = "AUTH_FAILURE"

	// ErrorCodeProtocol indicates the daemon answered outside the RPC contract
	ErrorCodeProtocol ErrorCode = "PROTOCOL_ERROR"

	// ErrorCodeDuplicateTorrent indicates torrent-add found the torrent already present
	ErrorCodeDuplicateTorrent ErrorCode = "DUPLICATE_TORRENT"

	// ErrorCodeTimeout indicates connection or request timeout - temporary, can retry
	ErrorCodeTimeout ErrorCode = "TIMEOUT"

	// ErrorCodeDNS indicates DNS resolution failure - check hostname configuration
	ErrorCodeDNS ErrorCode = "DNS_ERROR"

	// ErrorCodeHTTPSRequired indicates HTTP was used but HTTPS is required
	ErrorCodeHTTPSRequired ErrorCode = "HTTPS_REQUIRED"

	// ErrorCodeSSLError indicates SSL/TLS certificate or connection error
	ErrorCodeSSLError ErrorCode = "SSL_ERROR"

	// ErrorCodeConnectionRefused indicates the server actively refused the connection
	ErrorCodeConnectionRefused ErrorCode = "CONNECTION_REFUSED"

	// ErrorCodeNetworkUnreachable indicates network routing issues
	ErrorCodeNetworkUnreachable ErrorCode = "NETWORK_UNREACHABLE"

	// ErrorCodeBadGateway indicates a proxy/gateway error (502)
	ErrorCodeBadGateway ErrorCode = "BAD_GATEWAY"

	// ErrorCodeServiceUnavailable indicates the service is temporarily unavailable (503)
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrorCodeUnknown indicates an unclassified error
	ErrorCodeUnknown ErrorCode = "UNKNOWN"
)

// ErrTorrentNotFound is returned by Only when torrent-get yields no entry.
var ErrTorrentNotFound = errors.New("torrent not found")

// TransportError is a network failure or an HTTP status the RPC layer does
// not interpret. StatusCode is zero for network failures.
type TransportError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Body       string
	Err        error
	// Permanent indicates whether this error requires user intervention (true)
	// or can be resolved by retrying (false)
	Permanent bool
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsPermanent returns true if the error requires user intervention
func (e *TransportError) IsPermanent() bool {
	return e.Permanent
}

// NewTransportError creates a new TransportError
func NewTransportError(code ErrorCode, message string, err error, permanent bool) *TransportError {
	return &TransportError{
		Code:      code,
		Message:   message,
		Err:       err,
		Permanent: permanent,
	}
}

// AuthError is returned when the daemon rejects the configured credentials.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", ErrorCodeAuthFailure, e.Message)
}

// ProtocolError is returned when the handshake yields no token or a call's
// result is neither "success" nor "duplicate torrent".
type ProtocolError struct {
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", ErrorCodeProtocol, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrorCodeProtocol, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// DuplicateTorrentError is returned by torrent-add when the daemon already
// has the torrent. Torrent is set when the daemon reports the existing entry.
type DuplicateTorrentError struct {
	Torrent *AddedTorrent
}

func (e *DuplicateTorrentError) Error() string {
	if e.Torrent != nil && e.Torrent.Name != "" {
		return fmt.Sprintf("%s: %s", ErrorCodeDuplicateTorrent, e.Torrent.Name)
	}
	return fmt.Sprintf("%s: duplicate torrent", ErrorCodeDuplicateTorrent)
}

// IsDuplicateTorrent reports whether err is (or wraps) a DuplicateTorrentError.
func IsDuplicateTorrent(err error) bool {
	var dup *DuplicateTorrentError
	return errors.As(err, &dup)
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ClassifyError analyzes a transport failure and returns a structured TransportError
func ClassifyError(err error) *TransportError {
	if err == nil {
		return nil
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return transportErr
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return NewTransportError(
			ErrorCodeDNS,
			fmt.Sprintf("Failed to resolve hostname: %s", dnsErr.Name),
			err,
			true,
		)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return classifyOpError(opErr, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Err != nil {
			if classified := ClassifyError(urlErr.Err); classified != nil && classified.Code != ErrorCodeUnknown {
				classified.Err = err
				return classified
			}
		}

		if urlErr.Timeout() {
			return NewTransportError(
				ErrorCodeTimeout,
				"Request timed out",
				err,
				false,
			)
		}
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return NewTransportError(
			ErrorCodeSSLError,
			"SSL certificate verification failed",
			err,
			true,
		)
	}

	return classifyByMessage(err.Error(), err)
}

// classifyOpError classifies net.OpError errors
func classifyOpError(opErr *net.OpError, originalErr error) *TransportError {
	if opErr.Op == "dial" {
		if strings.Contains(opErr.Error(), "connection refused") {
			return NewTransportError(
				ErrorCodeConnectionRefused,
				"Connection refused - daemon may be down or port is incorrect",
				originalErr,
				false,
			)
		}

		if strings.Contains(opErr.Error(), "no route to host") ||
			strings.Contains(opErr.Error(), "network is unreachable") {
			return NewTransportError(
				ErrorCodeNetworkUnreachable,
				"Network unreachable - check network connectivity",
				originalErr,
				false,
			)
		}
	}

	if opErr.Timeout() {
		return NewTransportError(
			ErrorCodeTimeout,
			"Connection timed out",
			originalErr,
			false,
		)
	}

	return NewTransportError(
		ErrorCodeUnknown,
		"Network operation failed",
		originalErr,
		false,
	)
}

// classifyByMessage classifies errors based on error message patterns
func classifyByMessage(errStr string, err error) *TransportError {
	lowerErr := strings.ToLower(errStr)

	if strings.Contains(lowerErr, "timeout") ||
		strings.Contains(lowerErr, "deadline exceeded") ||
		strings.Contains(lowerErr, "context canceled") {
		return NewTransportError(
			ErrorCodeTimeout,
			"Request timed out",
			err,
			false,
		)
	}

	// checked before TLS: the message mentions "tls handshake"
	if strings.Contains(lowerErr, "malformed http response") ||
		strings.Contains(lowerErr, "server gave http response to https client") {
		return NewTransportError(
			ErrorCodeHTTPSRequired,
			"Protocol mismatch - check the scheme of the configured host",
			err,
			true,
		)
	}

	if strings.Contains(lowerErr, "certificate") ||
		strings.Contains(lowerErr, "x509") ||
		strings.Contains(lowerErr, "tls") ||
		strings.Contains(lowerErr, "ssl") {
		return NewTransportError(
			ErrorCodeSSLError,
			"SSL/TLS connection failed - check certificate configuration",
			err,
			true,
		)
	}

	if strings.Contains(lowerErr, "connection refused") {
		return NewTransportError(
			ErrorCodeConnectionRefused,
			"Connection refused - daemon may be down",
			err,
			false,
		)
	}

	if strings.Contains(lowerErr, "no such host") ||
		strings.Contains(lowerErr, "lookup") ||
		strings.Contains(lowerErr, "dns") {
		return NewTransportError(
			ErrorCodeDNS,
			"DNS resolution failed - check hostname",
			err,
			true,
		)
	}

	return NewTransportError(
		ErrorCodeUnknown,
		"Unknown error occurred",
		err,
		false,
	)
}

// classifyHTTPStatusCode classifies an HTTP status the RPC layer does not interpret
func classifyHTTPStatusCode(statusCode int, body string) *TransportError {
	var e *TransportError
	switch statusCode {
	case 403:
		// Transmission answers 403 when rpc-whitelist rejects the client address
		e = NewTransportError(
			ErrorCodeAuthFailure,
			fmt.Sprintf("Forbidden (403): %s", body),
			nil,
			true,
		)
	case 502:
		e = NewTransportError(
			ErrorCodeBadGateway,
			fmt.Sprintf("Bad Gateway (502): %s", body),
			nil,
			false,
		)
	case 503:
		e = NewTransportError(
			ErrorCodeServiceUnavailable,
			fmt.Sprintf("Service Unavailable (503): %s", body),
			nil,
			false,
		)
	case 504:
		e = NewTransportError(
			ErrorCodeTimeout,
			fmt.Sprintf("Gateway Timeout (504): %s", body),
			nil,
			false,
		)
	default:
		e = NewTransportError(
			ErrorCodeUnknown,
			fmt.Sprintf("Request failed with status %d: %s", statusCode, body),
			nil,
			statusCode >= 400 && statusCode < 500,
		)
	}
	e.StatusCode = statusCode
	e.Body = body
	return e
}

// IsRetryableError returns true if the error is temporary and can be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return !IsPermanentError(err)
}

// IsPermanentError returns true if the error requires user intervention
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}

	var authErr *AuthError
	var protoErr *ProtocolError
	var dupErr *DuplicateTorrentError
	if errors.As(err, &authErr) || errors.As(err, &protoErr) || errors.As(err, &dupErr) {
		return true
	}
	if errors.Is(err, ErrTorrentNotFound) {
		return true
	}

	return ClassifyError(err).Permanent
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	if err == nil {
		return ErrorCodeNone
	}

	var authErr *AuthError
	if errors.As(err, &authErr) {
		return ErrorCodeAuthFailure
	}

	var dupErr *DuplicateTorrentError
	if errors.As(err, &dupErr) {
		return ErrorCodeDuplicateTorrent
	}

	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		return ErrorCodeProtocol
	}

	return ClassifyError(err).Code
}
