package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medimind/internal/schedule"
)

func testReminder() Reminder {
	return Reminder{
		To:           "alice@example.com",
		MedicineName: "Metformin",
		Dosage:       "500mg",
		Period:       schedule.Morning,
	}
}

func TestResendNotifierSend(t *testing.T) {
	var got resendPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"id": "msg_123"})
	}))
	defer srv.Close()

	n := NewResendNotifier("test-key", "MediMind <reminders@medimind.in>", "", zerolog.Nop(),
		WithAPIURL(srv.URL))

	err := n.SendReminder(context.Background(), testReminder())
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", auth)
	assert.Equal(t, []string{"alice@example.com"}, got.To)
	assert.Equal(t, "MediMind — Morning Reminder: Metformin", got.Subject)
	assert.Contains(t, got.Text, "Medicine: Metformin")
	assert.Contains(t, got.Text, "Dosage: 500mg")
	assert.Contains(t, got.HTML, "Metformin")
}

func TestResendNotifierAPIErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   string
	}{
		{"forbidden", http.StatusForbidden, "403"},
		{"validation", http.StatusUnprocessableEntity, "422"},
		{"server error", http.StatusInternalServerError, "500"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", c.status)
			}))
			defer srv.Close()

			n := NewResendNotifier("test-key", "from@example.com", "", zerolog.Nop(),
				WithAPIURL(srv.URL))
			err := n.SendReminder(context.Background(), testReminder())
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.want)
		})
	}
}

func TestResendNotifierNoKey(t *testing.T) {
	n := NewResendNotifier("", "from@example.com", "", zerolog.Nop())
	err := n.SendReminder(context.Background(), testReminder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestLogNotifierAlwaysSucceeds(t *testing.T) {
	n := NewLogNotifier(zerolog.Nop())
	assert.NoError(t, n.SendReminder(context.Background(), testReminder()))
}
