package queue

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	mu  sync.Mutex
	ids []string
}

func (h *recordingHandler) Dispatch(_ context.Context, documentID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.ids = append(h.ids, documentID)
	return nil
}

func (h *recordingHandler) received() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	return append([]string(nil), h.ids...)
}

func TestNATSDispatcher_RoundTrip(t *testing.T) {
	url := os.Getenv("TEST_NATS_URL")
	if url == "" {
		t.Skip("TEST_NATS_URL not set")
	}

	nc, err := Connect(url, "docuchat-test")
	require.NoError(t, err)
	defer nc.Close()

	d := NewNATSDispatcher(nc, "docuchat.test."+time.Now().Format("150405.000000"))
	h := &recordingHandler{}

	require.NoError(t, d.Consume(h))
	require.NoError(t, nc.Flush())

	require.NoError(t, d.Dispatch(t.Context(), "doc-1"))
	require.NoError(t, d.Dispatch(t.Context(), "doc-2"))

	assert.Eventually(t, func() bool {
		return len(h.received()) == 2
	}, 5*time.Second, 20*time.Millisecond)

	assert.ElementsMatch(t, []string{"doc-1", "doc-2"}, h.received())
	assert.NoError(t, d.Close())
}

func TestNATSDispatcher_RejectsEmptyID(t *testing.T) {
	d := NewNATSDispatcher(nil, "")
	assert.Equal(t, DefaultSubject, d.subject)

	err := d.Dispatch(t.Context(), "")
	assert.Error(t, err)
}

func TestNATSDispatcher_CancelledContext(t *testing.T) {
	d := NewNATSDispatcher(nil, "")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	assert.ErrorIs(t, d.Dispatch(ctx, "doc-1"), context.Canceled)
}

func TestNATSDispatcher_CloseWithoutConsume(t *testing.T) {
	d := NewNATSDispatcher(nil, "")
	assert.NoError(t, d.Close())
}
