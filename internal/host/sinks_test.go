package host

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sidebar/internal/sidebar"
	"github.com/leapstack-labs/sidebar/internal/testutil"
	"github.com/leapstack-labs/sidebar/pkg/core"
)

func TestWebhookSink(t *testing.T) {
	var got core.OutboundMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, time.Second)
	err := sink.PostMessage(context.Background(), core.OutboundMessage{Type: core.MessageOpenExternal, URL: "https://example.com"})
	require.NoError(t, err)

	assert.Equal(t, core.MessageOpenExternal, got.Type)
	assert.Equal(t, "https://example.com", got.URL)
}

func TestWebhookSink_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookSink(srv.URL, 0).PostMessage(context.Background(), core.OutboundMessage{Type: core.MessageClearHistory})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestLogSink(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()

	require.NoError(t, LogSink{Logger: logger}.PostMessage(context.Background(), core.OutboundMessage{Type: core.MessageSelectHistory, RunID: "run-1"}))
	assert.Contains(t, logs.String(), "type=selectHistory")
	assert.Contains(t, logs.String(), "run=run-1")
}

func TestMultiSink(t *testing.T) {
	outbox := NewOutbox(0, nil)
	boom := errors.New("boom")
	failing := sidebar.SinkFunc(func(context.Context, core.OutboundMessage) error { return boom })

	multi := MultiSink{failing, outbox}
	err := multi.PostMessage(context.Background(), core.OutboundMessage{Type: core.MessageClearHistory})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, outbox.Len(), "later sinks still receive the message")
}
