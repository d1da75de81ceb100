package tieba

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiebatools/autosign/internal/observability"
	"github.com/tiebatools/autosign/internal/retry"
)

// newTestClient builds a client whose endpoints all point at the test server.
func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) Client {
	t.Helper()

	base := []Option{
		WithEndpoints(Endpoints{
			MoIndex: srv.URL + "/mo/q/newmoindex",
			Tbs:     srv.URL + "/dc/common/tbs",
			Sign:    srv.URL + "/sign/add",
		}),
		WithRetryPolicy(&retry.Policy{
			MaxRetries:   2,
			InitialDelay: time.Millisecond,
			Multiplier:   2,
		}),
	}

	c, err := New(nil, observability.NopLogger(), append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestAuthenticate_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "BDUSS=secret", r.Header.Get("Cookie"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Mobile")
		_, _ = w.Write([]byte(`{"no":0,"error":"success","data":{"user_id":"U1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	info, err := c.Authenticate(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "U1", info.UserID)
	assert.Equal(t, "secret", info.Credential)
	assert.True(t, info.Valid)
	assert.Len(t, info.DeviceID, 32)
	assert.Equal(t, int64(0), info.Code)
}

func TestAuthenticate_NumericUserID(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"no":0,"error":"success","data":{"user_id":12345}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	info, err := c.Authenticate(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "12345", info.UserID)
}

func TestAuthenticate_InvalidCredential(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"no":1,"error":"fail"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.Authenticate(context.Background(), "expired")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCredential)
	// Validation failures are retried like generic transient failures until
	// the policy is exhausted.
	assert.Equal(t, int32(3), calls.Load())
}

func TestAuthenticate_FreshDeviceIDPerCall(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"no":0,"error":"success","data":{"user_id":"U1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	first, err := c.Authenticate(context.Background(), "secret")
	require.NoError(t, err)
	second, err := c.Authenticate(context.Background(), "secret")
	require.NoError(t, err)
	assert.NotEqual(t, first.DeviceID, second.DeviceID)
}

func TestListForums_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"no": 0,
			"error": "success",
			"data": {
				"like_forum": [
					{"forum_id": 100, "forum_name": "golang", "level_id": 7, "is_sign": 0},
					{"forum_id": 200, "forum_name": "linux", "level_id": 3, "is_sign": 1}
				]
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	forums, err := c.ListForums(context.Background(), "secret")
	require.NoError(t, err)
	require.Len(t, forums, 2)
	assert.Equal(t, Forum{ForumID: 100, ForumName: "golang", LevelID: 7, IsSign: 0}, forums[0])
	assert.Equal(t, "linux", forums[1].ForumName)
}

func TestListForums_MissingListIsEmpty(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"no":0,"error":"success","data":{}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	forums, err := c.ListForums(context.Background(), "secret")
	require.NoError(t, err)
	assert.NotNil(t, forums)
	assert.Empty(t, forums)
}

func TestListForums_RejectedCarriesServerMessage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"no":301,"error":"not logged in"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.ListForums(context.Background(), "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamRejected)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestFetchTbs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    string
		wantErr error
	}{
		{"valid token", `{"tbs":"abc123","is_login":1}`, "abc123", nil},
		{"empty token", `{"tbs":"","is_login":0}`, "", ErrMissingToken},
		{"missing token", `{"is_login":1}`, "", ErrMissingToken},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv)

			tbs, err := c.FetchTbs(context.Background(), "secret")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, tbs)
		})
	}
}

func TestFetchTbs_NoCaching(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"tbs":"abc123","is_login":1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	for i := 0; i < 3; i++ {
		_, err := c.FetchTbs(context.Background(), "secret")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestSignIn_ReturnsPayloadUnchanged(t *testing.T) {
	t.Parallel()

	const payload = `{"no":0,"error":"","data":{"uinfo":{"user_sign_rank":12}}}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NotContains(t, r.Header.Get("User-Agent"), "Mobile")

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "golang", r.PostForm.Get("kw"))
		assert.Equal(t, "abc123", r.PostForm.Get("tbs"))
		assert.Equal(t, "utf-8", r.PostForm.Get("ie"))

		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	raw, err := c.SignIn(context.Background(), "secret", "golang", "abc123", 0)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestSignIn_EmptyBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"null literal", "null"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := newTestClient(t, srv)

			_, err := c.SignIn(context.Background(), "secret", "golang", "abc123", 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmptyResponse)
		})
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"tbs":"abc123","is_login":1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	tbs, err := c.FetchTbs(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, "abc123", tbs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	_, err := c.FetchTbs(context.Background(), "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamStatus)
	assert.Equal(t, int32(1), calls.Load())

	var rerr *retry.Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "fetch_tbs", rerr.Label)
	assert.Equal(t, 1, rerr.Attempts)
}

func TestClient_RateLimitedIsRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"tbs":"abc123","is_login":1}`))
	}))
	defer srv.Close()

	var classes []retry.Class
	c := newTestClient(t, srv, WithObserver(
		func(label string, attempt int, class retry.Class, delay time.Duration, err error) {
			classes = append(classes, class)
		}))

	_, err := c.FetchTbs(context.Background(), "secret")
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []retry.Class{retry.ClassRateLimited}, classes)
}

func TestClient_BreakerOpensAfterSustainedFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := &Config{
		Breaker: &BreakerConfig{Enabled: true, Threshold: 2, Timeout: time.Minute},
	}
	c, err := New(cfg, observability.NopLogger(),
		WithEndpoints(Endpoints{
			MoIndex: srv.URL, Tbs: srv.URL, Sign: srv.URL,
		}),
		WithRetryPolicy(&retry.Policy{MaxRetries: 1, InitialDelay: time.Millisecond, Multiplier: 2}),
	)
	require.NoError(t, err)

	// 4xx fails fast, so each operation costs one request until the breaker
	// trips.
	for i := 0; i < 2; i++ {
		_, err = c.FetchTbs(context.Background(), "secret")
		require.Error(t, err)
	}
	before := calls.Load()

	_, err = c.FetchTbs(context.Background(), "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, calls.Load())
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *Config
	}{
		{"negative retries", &Config{MaxRetries: -1}},
		{"negative delay", &Config{InitialDelay: -time.Second}},
		{"negative multiplier", &Config{Multiplier: -1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.cfg, observability.NopLogger())
			require.Error(t, err)
		})
	}
}

func TestSignIn_RawPayloadDecodable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"no":1101,"error":"already signed"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv)

	raw, err := c.SignIn(context.Background(), "secret", "golang", "abc123", 3)
	require.NoError(t, err)

	var decoded struct {
		No    int64  `json:"no"`
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, int64(1101), decoded.No)
}
