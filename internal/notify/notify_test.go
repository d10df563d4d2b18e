package notify_test

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datalib/internal/notify"
)

func TestLogNotifier_Send(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLogNotifier(log.New(&buf, "", 0), 0)

	err := n.Send(context.Background(), "abc1@def.com", "Reminder", "Have a nice day!")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "sending email to abc1@def.com")
	assert.Contains(t, out, "subject: Reminder")
	assert.Contains(t, out, "body: Have a nice day!")
}

func TestLogNotifier_EmptyAddress(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLogNotifier(log.New(&buf, "", 0), 0)

	err := n.Send(context.Background(), "", "Reminder", "body")

	assert.Error(t, err)
	assert.Empty(t, buf.String())
}

func TestLogNotifier_Throttled(t *testing.T) {
	var buf bytes.Buffer
	n := notify.NewLogNotifier(log.New(&buf, "", 0), time.Hour)

	require.NoError(t, n.Send(context.Background(), "abc1@def.com", "first", "body"))

	// The second send would have to wait an hour; it gives up with the context.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := n.Send(ctx, "abc1@def.com", "second", "body")

	assert.Error(t, err)
	assert.NotContains(t, buf.String(), "subject: second")
}
