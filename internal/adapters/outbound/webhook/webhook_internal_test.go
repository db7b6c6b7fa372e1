package webhook

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ec2keeper/ec2keeper/internal/logic/alerting"
)

func testPayload() alerting.Payload {
	return alerting.Payload{
		AlertName:             "long-running",
		InstanceID:            "i-001",
		InstanceType:          "t3.large",
		PublicIP:              "203.0.113.10",
		UptimeHours:           4.083,
		ThresholdHours:        4,
		ReminderIntervalHours: 2,
	}
}

func TestDeliverCommand(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("posts the payload as json", func(t *testing.T) {
		t.Parallel()

		var (
			gotMethod      string
			gotContentType string
			gotBody        []byte
		)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotContentType = r.Header.Get("Content-Type")
			gotBody, _ = io.ReadAll(r.Body)

			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		notifier := New(slog.New(slog.DiscardHandler), srv.URL)

		err := notifier.DeliverCommand(ctx, testPayload())
		require.NoError(t, err)

		require.Equal(t, http.MethodPost, gotMethod)
		require.Equal(t, "application/json", gotContentType)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(gotBody, &decoded))
		require.Equal(t, "long-running", decoded["alertName"])
		require.Equal(t, "i-001", decoded["instanceId"])
		require.InDelta(t, 4.083, decoded["uptimeHours"], 0.0001)
		require.NotContains(t, decoded, "Destination")
	})

	t.Run("destination override wins over the default url", func(t *testing.T) {
		t.Parallel()

		hit := false

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hit = true

			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		notifier := New(slog.New(slog.DiscardHandler), "http://127.0.0.1:1/unreachable")

		payload := testPayload()
		payload.Destination = srv.URL

		err := notifier.DeliverCommand(ctx, payload)
		require.NoError(t, err)
		require.True(t, hit)
	})

	t.Run("non-2xx status is a delivery failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "upstream broken", http.StatusBadGateway)
		}))
		defer srv.Close()

		notifier := New(slog.New(slog.DiscardHandler), srv.URL)

		err := notifier.DeliverCommand(ctx, testPayload())
		require.Error(t, err)
		require.Contains(t, err.Error(), "502")
	})

	t.Run("missing destination fails without a request", func(t *testing.T) {
		t.Parallel()

		notifier := New(slog.New(slog.DiscardHandler), "")

		err := notifier.DeliverCommand(ctx, testPayload())
		require.Error(t, err)
	})
}
