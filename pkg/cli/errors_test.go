package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("server.listen_address", "missing port")
	if got := err.Error(); !strings.Contains(got, "server.listen_address") || !strings.Contains(got, "missing port") {
		t.Errorf("Error() = %q", got)
	}

	bare := NewConfigError("", "file unreadable")
	if got := bare.Error(); strings.Contains(got, "in ") {
		t.Errorf("fieldless error should omit the field clause: %q", got)
	}
}

func TestCommandErrorUnwraps(t *testing.T) {
	cause := errors.New("listen tcp: address in use")
	err := NewCommandError("run", cause)

	if !errors.Is(err, cause) {
		t.Error("CommandError must unwrap to its cause")
	}
	if got := err.Error(); !strings.Contains(got, "run") || !strings.Contains(got, "address in use") {
		t.Errorf("Error() = %q", got)
	}
}
