package pnw_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jaxron/axonet/pkg/client"
	"github.com/resetwatch/resetwatch/internal/pnw"
	"github.com/resetwatch/resetwatch/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) (*pnw.Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := pnw.NewClient(
		client.NewClient(),
		pnw.NewLimiter(10),
		&config.PNW{BaseURL: server.URL, APIKey: "test-key"},
		0,
		zaptest.NewLogger(t),
	)

	return c, server
}

func nationJSON(id int64, available bool) string {
	return fmt.Sprintf(`{"id":%d,"nation_name":"Nation %d","leader_name":"Leader %d",`+
		`"alliance_id":7,"last_active":"2026-08-29T12:00:00Z","espionage_available":%t}`, id, id, id, available)
}

func TestFetchPage(t *testing.T) {
	t.Parallel()

	var cursors []string

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursors = append(cursors, r.URL.Query().Get("cursor"))

		w.Header().Set("X-RateLimit-Remaining", "900")
		w.Header().Set("X-RateLimit-Limit", "1000")

		if len(cursors) == 1 {
			fmt.Fprintf(w, `{"data":[%s],"has_more":true,"next_cursor":"op@que:t0ken==","total":2}`,
				nationJSON(1, false))
			return
		}

		fmt.Fprintf(w, `{"data":[%s],"has_more":false,"next_cursor":"","total":2}`, nationJSON(2, true))
	}))

	page, err := c.FetchPage(t.Context(), "", 500)
	require.NoError(t, err)
	require.Len(t, page.Nations, 1)
	assert.Equal(t, int64(1), page.Nations[0].ID)
	assert.Equal(t, "Nation 1", page.Nations[0].Name)
	assert.True(t, page.HasMore)
	assert.Equal(t, 2, page.Total)

	// The cursor goes back exactly as the provider issued it.
	page2, err := c.FetchPage(t.Context(), page.NextCursor, 500)
	require.NoError(t, err)
	assert.False(t, page2.HasMore)

	require.Len(t, cursors, 2)
	assert.Empty(t, cursors[0])
	assert.Equal(t, "op@que:t0ken==", cursors[1])
}

func TestFetchPageMalformedResponse(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data": not json`)
	}))

	_, err := c.FetchPage(t.Context(), "", 500)
	require.ErrorIs(t, err, pnw.ErrProtocol)
}

func TestFetchByIDsSplitsBatches(t *testing.T) {
	t.Parallel()

	var batchSizes []int

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ids := strings.Split(r.URL.Query().Get("ids"), ",")
		batchSizes = append(batchSizes, len(ids))

		var nations []string
		for _, id := range ids {
			nations = append(nations, nationJSON(parseID(t, id), true))
		}

		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(nations, ","))
	}))

	ids := make([]int64, 250)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	result, err := c.FetchByIDs(t.Context(), ids)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 100, 50}, batchSizes)
	assert.Len(t, result.Nations, 250)
	assert.Empty(t, result.FailedIDs)
	assert.False(t, result.Failed())
}

func TestFetchByIDsPartialFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64

	c, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The second sub-batch dies mid-flight; the others succeed.
		if calls.Add(1) == 2 {
			panic(http.ErrAbortHandler)
		}

		ids := strings.Split(r.URL.Query().Get("ids"), ",")

		var nations []string
		for _, id := range ids {
			nations = append(nations, nationJSON(parseID(t, id), false))
		}

		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(nations, ","))
	}))

	// Without keep-alives the aborted request dies on a fresh connection,
	// which net/http will not transparently replay the way it does for
	// idempotent GETs on reused connections.
	server.Config.SetKeepAlivesEnabled(false)

	ids := make([]int64, 250)
	for i := range ids {
		ids[i] = int64(i + 1)
	}

	result, err := c.FetchByIDs(t.Context(), ids)
	require.NoError(t, err)

	// First and third sub-batches survive; the middle hundred are reported.
	assert.Len(t, result.Nations, 150)
	assert.Len(t, result.FailedIDs, 100)
	assert.True(t, result.Failed())
	assert.Equal(t, int64(101), result.FailedIDs[0])
	assert.Equal(t, int64(200), result.FailedIDs[99])
}

func TestThrottleRetriesOnce(t *testing.T) {
	t.Parallel()

	t.Run("retry succeeds", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "0")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}

			fmt.Fprintf(w, `{"data":[%s]}`, nationJSON(42, true))
		}))

		result, err := c.FetchByIDs(t.Context(), []int64{42})
		require.NoError(t, err)
		require.Len(t, result.Nations, 1)
		assert.Equal(t, int64(42), result.Nations[0].ID)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("second throttle propagates", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		result, err := c.FetchByIDs(t.Context(), []int64{42})
		require.NoError(t, err)

		// The throttled sub-batch is dropped, not retried forever.
		assert.Empty(t, result.Nations)
		assert.Equal(t, []int64{42}, result.FailedIDs)
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("second throttle fails page fetch", func(t *testing.T) {
		t.Parallel()

		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		}))

		_, err := c.FetchPage(t.Context(), "", 500)
		require.ErrorIs(t, err, pnw.ErrThrottled)
	})
}

func TestClientUpdatesLimiter(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "3")
		w.Header().Set("X-RateLimit-Limit", "1000")
		fmt.Fprint(w, `{"data":[],"has_more":false,"next_cursor":"","total":0}`)
	}))

	require.True(t, c.Limiter().CanMakeRequest())

	_, err := c.FetchPage(t.Context(), "", 500)
	require.NoError(t, err)

	// Budget from the response headers is now below the buffer.
	assert.False(t, c.Limiter().CanMakeRequest())
}

func parseID(t *testing.T, s string) int64 {
	t.Helper()

	var id int64

	_, err := fmt.Sscanf(s, "%d", &id)
	require.NoError(t, err)

	return id
}
