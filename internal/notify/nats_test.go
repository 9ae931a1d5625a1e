package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNATSForwarderUnreachableServer(t *testing.T) {
	_, err := NewNATSForwarder(NewHub(), "nats://127.0.0.1:1", "")
	assert.ErrorContains(t, err, "failed to connect to NATS")
}

func TestNilForwarderCloseIsSafe(t *testing.T) {
	var f *NATSForwarder
	assert.NoError(t, f.Close())
}
