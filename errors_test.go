package transmission

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

func TestClassifyErrorNil(t *testing.T) {
	if result := ClassifyError(nil); result != nil {
		t.Errorf("Expected nil for nil error, got %v", result)
	}
}

func TestClassifyErrorTransportError(t *testing.T) {
	original := NewTransportError(ErrorCodeBadGateway, "test message", nil, false)
	result := ClassifyError(fmt.Errorf("wrapped: %w", original))

	if result != original {
		t.Errorf("Expected the original TransportError, got %v", result)
	}
}

func TestClassifyErrorDNS(t *testing.T) {
	dnsErr := &net.DNSError{
		Err:  "no such host",
		Name: "example.invalid",
	}
	result := ClassifyError(dnsErr)

	if result.Code != ErrorCodeDNS {
		t.Errorf("Expected ErrorCodeDNS, got %v", result.Code)
	}
	if !result.Permanent {
		t.Error("Expected DNS errors to be permanent")
	}
}

func TestClassifyErrorTimeout(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"context deadline exceeded", context.DeadlineExceeded},
		{"context canceled", context.Canceled},
		{"timeout string", errors.New("connection timeout")},
		{"deadline string", errors.New("deadline exceeded")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ClassifyError(tt.err)
			if result.Code != ErrorCodeTimeout {
				t.Errorf("Expected ErrorCodeTimeout for %s, got %v", tt.name, result.Code)
			}
			if result.Permanent {
				t.Error("Expected timeout errors to be temporary (not permanent)")
			}
		})
	}
}

func TestClassifyErrorSSL(t *testing.T) {
	for _, msg := range []string{"x509: certificate signed by unknown authority", "tls: bad record MAC"} {
		t.Run(msg, func(t *testing.T) {
			result := ClassifyError(errors.New(msg))
			if result.Code != ErrorCodeSSLError {
				t.Errorf("Expected ErrorCodeSSLError, got %v", result.Code)
			}
			if !result.Permanent {
				t.Error("Expected SSL errors to be permanent")
			}
		})
	}
}

func TestClassifyErrorHTTPSRequired(t *testing.T) {
	result := ClassifyError(errors.New("http: server gave HTTP response to HTTPS client"))
	if result.Code != ErrorCodeHTTPSRequired {
		t.Errorf("Expected ErrorCodeHTTPSRequired, got %v", result.Code)
	}
	if !result.Permanent {
		t.Error("Expected protocol mismatch errors to be permanent")
	}
}

func TestClassifyErrorNetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: errors.New("connection refused"),
	}
	result := ClassifyError(opErr)

	if result.Code != ErrorCodeConnectionRefused {
		t.Errorf("Expected ErrorCodeConnectionRefused, got %v", result.Code)
	}
	if result.Permanent {
		t.Error("Expected connection refused errors to be temporary")
	}
}

func TestClassifyErrorNetworkUnreachable(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: errors.New("no route to host"),
	}
	result := ClassifyError(opErr)

	if result.Code != ErrorCodeNetworkUnreachable {
		t.Errorf("Expected ErrorCodeNetworkUnreachable, got %v", result.Code)
	}
}

func TestClassifyHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name         string
		statusCode   int
		expectedCode ErrorCode
		permanent    bool
	}{
		{"403 forbidden", 403, ErrorCodeAuthFailure, true},
		{"404 not found", 404, ErrorCodeUnknown, true},
		{"502 bad gateway", 502, ErrorCodeBadGateway, false},
		{"503 service unavailable", 503, ErrorCodeServiceUnavailable, false},
		{"504 gateway timeout", 504, ErrorCodeTimeout, false},
		{"500 internal server error", 500, ErrorCodeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := classifyHTTPStatusCode(tt.statusCode, "test body")
			if result.Code != tt.expectedCode {
				t.Errorf("Expected %v for %s, got %v", tt.expectedCode, tt.name, result.Code)
			}
			if result.Permanent != tt.permanent {
				t.Errorf("Expected permanent=%v for %s, got %v", tt.permanent, tt.name, result.Permanent)
			}
			if result.StatusCode != tt.statusCode || result.Body != "test body" {
				t.Errorf("Expected status and body to be kept, got %d %q", result.StatusCode, result.Body)
			}
		})
	}
}

func TestClassifyErrorUnknown(t *testing.T) {
	result := ClassifyError(errors.New("some random error that doesn't match any pattern"))

	if result.Code != ErrorCodeUnknown {
		t.Errorf("Expected ErrorCodeUnknown, got %v", result.Code)
	}
	if result.Permanent {
		t.Error("Expected unknown errors to be temporary by default")
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil error", nil, false},
		{"timeout error", errors.New("connection timeout"), true},
		{"auth error", &AuthError{Message: "invalid credentials"}, false},
		{"protocol error", &ProtocolError{Message: "no such method"}, false},
		{"duplicate torrent", pkgerrors.Wrap(&DuplicateTorrentError{}, "add"), false},
		{"connection refused", errors.New("connection refused"), true},
		{"dns error", &net.DNSError{Err: "no such host", Name: "test"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsRetryableError(tt.err); result != tt.retryable {
				t.Errorf("Expected IsRetryableError=%v for %s, got %v", tt.retryable, tt.name, result)
			}
		})
	}
}

func TestIsPermanentError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"nil error", nil, false},
		{"timeout error", errors.New("connection timeout"), false},
		{"auth error", &AuthError{Message: "invalid credentials"}, true},
		{"not found", pkgerrors.Wrap(ErrTorrentNotFound, "id 3"), true},
		{"connection refused", errors.New("connection refused"), false},
		{"dns error", &net.DNSError{Err: "no such host", Name: "test"}, true},
		{"ssl error", errors.New("certificate verify failed"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsPermanentError(tt.err); result != tt.permanent {
				t.Errorf("Expected IsPermanentError=%v for %s, got %v", tt.permanent, tt.name, result)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorCode
	}{
		{"nil error", nil, ErrorCodeNone},
		{"timeout error", errors.New("connection timeout"), ErrorCodeTimeout},
		{"auth error", &AuthError{Message: "invalid credentials"}, ErrorCodeAuthFailure},
		{"protocol error", &ProtocolError{Message: "missing session token header"}, ErrorCodeProtocol},
		{"duplicate", &DuplicateTorrentError{}, ErrorCodeDuplicateTorrent},
		{"transport error", NewTransportError(ErrorCodeServiceUnavailable, "test", nil, false), ErrorCodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := GetErrorCode(tt.err); result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.name, result)
			}
		})
	}
}

func TestTransportErrorFormat(t *testing.T) {
	err := NewTransportError(ErrorCodeBadGateway, "test message", nil, false)
	if err.Error() != "BAD_GATEWAY: test message" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}

	wrapped := errors.New("underlying error")
	err = NewTransportError(ErrorCodeTimeout, "test message", wrapped, false)
	if err.Error() != "TIMEOUT: test message (underlying error)" {
		t.Errorf("Unexpected error message: %s", err.Error())
	}
	if !errors.Is(err, wrapped) {
		t.Error("Expected Unwrap to return wrapped error")
	}
}

func TestTypedErrorFormats(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&AuthError{Message: "invalid credentials"}, "AUTH_FAILURE: invalid credentials"},
		{&ProtocolError{Message: "missing session token header"}, "PROTOCOL_ERROR: missing session token header"},
		{&DuplicateTorrentError{}, "DUPLICATE_TORRENT: duplicate torrent"},
		{&DuplicateTorrentError{Torrent: &AddedTorrent{Name: "ubuntu.iso"}}, "DUPLICATE_TORRENT: ubuntu.iso"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Expected %q, got %q", tt.want, got)
		}
	}
}

func TestErrorHelpers(t *testing.T) {
	if !IsDuplicateTorrent(pkgerrors.Wrap(&DuplicateTorrentError{}, "failed to add torrent")) {
		t.Error("Expected wrapped duplicate to be detected")
	}
	if IsDuplicateTorrent(&ProtocolError{Message: "x"}) {
		t.Error("ProtocolError is not a duplicate")
	}
	if !IsAuthError(fmt.Errorf("call: %w", &AuthError{Message: "invalid credentials"})) {
		t.Error("Expected wrapped auth error to be detected")
	}
}
