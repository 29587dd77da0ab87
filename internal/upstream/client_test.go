package upstream_test

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/presetworks/overseer/internal/setup/config"
	"github.com/presetworks/overseer/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupClient(t *testing.T, handler http.Handler) *upstream.Client {
	t.Helper()

	cfg := &config.Upstream{
		Token:          "test-token",
		SigningSecret:  "test-secret",
		RequestTimeout: 5000,
	}

	return upstream.NewClient(cfg, zap.NewNop(), upstream.WithBinding(handler))
}

func TestGetPresetNotFound(t *testing.T) {
	t.Parallel()

	client := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	preset, err := client.GetPreset(t.Context(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, preset)
}

func TestSetStatusSendsSignedRequest(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	var captured *http.Request

	var capturedBody map[string]string

	client := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&capturedBody))

		w.Header().Set("Content-Type", "application/json")
		_ = sonic.ConfigDefault.NewEncoder(w).Encode(upstream.Preset{ID: id, Status: upstream.StatusApproved})
	}))

	actor := upstream.Actor{ID: "123456789012345678", Name: "alice"}

	preset, err := client.SetStatus(t.Context(), id, upstream.StatusApproved, "", actor)
	require.NoError(t, err)
	assert.Equal(t, upstream.StatusApproved, preset.Status)

	require.NotNil(t, captured)
	assert.Equal(t, http.MethodPatch, captured.Method)
	assert.Equal(t, "/presets/"+id.String()+"/status", captured.URL.Path)
	assert.Equal(t, "Bearer test-token", captured.Header.Get("Authorization"))
	assert.Equal(t, "123456789012345678", captured.Header.Get("X-Actor-ID"))
	assert.NotEmpty(t, captured.Header.Get("X-Request-ID"))
	assert.Equal(t, map[string]string{"status": "approved"}, capturedBody)

	// The signature must be reproducible from the timestamp header and the
	// actor identity.
	timestamp, err := strconv.ParseInt(captured.Header.Get(upstream.HeaderTimestamp), 10, 64)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Unix(), timestamp, 5)
	assert.Equal(t,
		upstream.Sign(timestamp, actor.ID, actor.Name, "test-secret"),
		captured.Header.Get(upstream.HeaderSignature))
}

func TestListPresetsQueryFilters(t *testing.T) {
	t.Parallel()

	client := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dark", r.URL.Query().Get("search"))
		assert.Equal(t, "pending", r.URL.Query().Get("status"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		_ = sonic.ConfigDefault.NewEncoder(w).Encode([]*upstream.Preset{
			{ID: uuid.New(), Name: "Dark Mode", Status: upstream.StatusPending},
		})
	}))

	presets, err := client.ListPresets(t.Context(), "dark", upstream.StatusPending, 25)
	require.NoError(t, err)
	require.Len(t, presets, 1)
	assert.Equal(t, "Dark Mode", presets[0].Name)
}

func TestAPIErrorSurfacesMessage(t *testing.T) {
	t.Parallel()

	client := setupClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"preset is already approved"}`))
	}))

	_, err := client.SetStatus(t.Context(), uuid.New(), upstream.StatusApproved, "", upstream.Actor{})
	require.Error(t, err)

	var apiErr *upstream.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "preset is already approved", apiErr.Message)
}
