package ipfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

func TestGetBytesFetchesFromGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, testCID)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("payload-bytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/ipfs", time.Second, 1, nil)
	got, err := c.GetBytes(context.Background(), testCID, true)
	require.NoError(t, err)
	require.Equal(t, "payload-bytes", string(got))
}

func TestGetBytesRejectsInvalidCID(t *testing.T) {
	c := NewClient("http://example.invalid/ipfs", time.Second, 1, nil)
	_, err := c.GetBytes(context.Background(), "not-a-cid!!", false)
	require.Error(t, err)
}

func TestGetBytesRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok-on-retry"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/ipfs", 5*time.Second, 3, nil)
	got, err := c.GetBytes(context.Background(), testCID, false)
	require.NoError(t, err)
	require.Equal(t, "ok-on-retry", string(got))
	require.GreaterOrEqual(t, attempts, 2)
}

func TestGetDecodesTypedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("42"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/ipfs", time.Second, 1, nil)
	got, err := Get[int](context.Background(), c, testCID, false, func(b []byte) (int, error) {
		return len(b), nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, got)
}
