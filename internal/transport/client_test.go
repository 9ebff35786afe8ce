package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"farmwatch/internal/errs"
)

type staticTokens struct{ token string }

func (s staticTokens) AccessToken() string { return s.token }

func TestClient_AttachesBearer(t *testing.T) {
	t.Parallel()
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, staticTokens{token: "abc"}, zap.NewNop())
	raw, err := c.Get(context.Background(), "/api/farm/farms/")
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(raw))
	require.Equal(t, "Bearer abc", got)
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	t.Parallel()
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, staticTokens{}, zap.NewNop())
	raw, err := c.Get(context.Background(), "/")
	require.NoError(t, err)
	require.Nil(t, raw)
	require.Empty(t, got)
}

func TestClient_NonJSONBodyIsNil(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0, nil, zap.NewNop())
	raw, err := c.Get(context.Background(), "/")
	require.NoError(t, err)
	require.Nil(t, raw)
}

func TestClient_ErrorMessageShapes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"Invalid credentials"}`, "Invalid credentials"},
		{"error", `{"error":"broken"}`, "broken"},
		{"field array", `{"farmer_id":["This field is required."]}`, "This field is required."},
		{"detail wins over array", `{"detail":"top","farmer_id":["nested"]}`, "top"},
		{"unknown shape", `{"weird":42}`, ""},
		{"not json", `oops`, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, 0, nil, zap.NewNop())
			_, err := c.Post(context.Background(), "/", map[string]string{})
			var te *Error
			require.ErrorAs(t, err, &te)
			require.Equal(t, http.StatusBadRequest, te.Status)
			require.Equal(t, tc.want, te.Message)
		})
	}
}

func TestClient_UnauthorizedHookFiresAndErrorMatchesSentinel(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var hookCalls atomic.Int32
	c := NewClient(srv.URL, 0, staticTokens{token: "stale"}, zap.NewNop())
	c.SetUnauthorizedHook(func() { hookCalls.Add(1) })

	wg := &sync.WaitGroup{}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "/")
			if !errors.Is(err, errs.ErrUnauthorized) {
				t.Errorf("want ErrUnauthorized, got %v", err)
			}
		}()
	}
	wg.Wait()

	// the hook fires per 401; exactly-once clearing is the session
	// store's contract, tested there
	require.Equal(t, int32(3), hookCalls.Load())
}

func TestClient_NetworkFailureIsStatusZero(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL, 0, nil, zap.NewNop())
	_, err := c.Get(context.Background(), "/")
	var te *Error
	require.ErrorAs(t, err, &te)
	require.True(t, te.IsNetwork())
	require.Equal(t, 0, te.Status)
	require.NotEmpty(t, te.Error())
}

func TestNormalizeBase(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"api.example.com":          "https://api.example.com",
		"http://localhost:8000":    "http://localhost:8000",
		"https://api.example.com/": "https://api.example.com",
	}
	for in, want := range cases {
		if got := normalizeBase(in); got != want {
			t.Fatalf("normalizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}
