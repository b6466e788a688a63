package tablesvc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{APIKey: "key-1", AccountID: "acct-1"}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := New(append([]Option{WithBaseURL(srv.URL), WithCredentials(testCreds)}, opts...)...)
	require.NoError(t, err)
	return client
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(WithCredentials(Credentials{APIKey: "only-key"}))
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestGetApplication_SendsAuthHeaders(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/applications/T1/", r.URL.Path)
		assert.Equal(t, "Token key-1", r.Header.Get("Authorization"))
		assert.Equal(t, "acct-1", r.Header.Get("ACCOUNT-ID"))
		_, _ = io.WriteString(w, `{"id":"T1","structure":[{"slug":"title","label":"Title"}]}`)
	})

	app, err := client.GetApplication(context.Background(), "T1")
	require.NoError(t, err)
	assert.Equal(t, "T1", app["id"])
}

func TestCreateRecord_PostsFieldsVerbatim(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/applications/T1/records/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"title": "Ship v1", "priority": "1"}, body)
		_, _ = io.WriteString(w, `{"id":"R1","title":"Ship v1"}`)
	})

	rec, err := client.CreateRecord(context.Background(), "T1", map[string]any{"title": "Ship v1", "priority": "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, map[string]any{"id": "R1", "title": "Ship v1"}, rec)
}

func TestCreateRecord_MissingTableID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := client.CreateRecord(context.Background(), "", map[string]any{})
	assert.ErrorIs(t, err, ErrMissingTableID)
}

func TestTableIDIsEscapedAsOnePathSegment(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "/applications/abc%3Fx=1%23/", r.URL.EscapedPath())
		case http.MethodPost:
			assert.Equal(t, "/applications/other%2Frecords%2F..%2Fmembers%2Flist/records/", r.URL.EscapedPath())
		}
		_, _ = io.WriteString(w, `{"id":"R1"}`)
	})

	_, err := client.GetApplication(context.Background(), "abc?x=1#")
	require.NoError(t, err)
	_, err = client.CreateRecord(context.Background(), "other/records/../members/list", map[string]any{"title": "x"})
	require.NoError(t, err)
}

func TestDotTableIDsAreRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	for _, id := range []string{".", ".."} {
		_, err := client.GetApplication(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidTableID)
		_, err = client.CreateRecord(context.Background(), id, map[string]any{})
		assert.ErrorIs(t, err, ErrInvalidTableID)
	}
}

func TestDo_NonSuccessStatusReturnsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"title":["This field is required."]}`)
	})

	_, err := client.CreateRecord(context.Background(), "T1", map[string]any{})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "This field is required.")
	assert.Contains(t, err.Error(), "/applications/T1/records/")
}

func TestListMembers_ReturnsItems(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/members/list/", r.URL.Path)
		_, _ = io.WriteString(w, `{"items":[{"id":"m1"},{"id":"m2"}],"total":2}`)
	})

	items, err := client.ListMembers(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestDo_TimeoutSurfacesAsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(20*time.Millisecond))

	_, err := client.GetApplication(context.Background(), "T1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
