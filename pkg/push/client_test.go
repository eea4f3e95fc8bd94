package push_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rogertalk/roger-api-sub001/pkg/async"
	"github.com/rogertalk/roger-api-sub001/pkg/push"
)

type gateway struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []string
	status   int
}

func newGateway(t *testing.T, status int) (*gateway, *httptest.Server) {
	t.Helper()
	g := &gateway{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		g.mu.Lock()
		g.requests = append(g.requests, r)
		g.bodies = append(g.bodies, string(body))
		g.mu.Unlock()
		w.WriteHeader(g.status)
	}))
	t.Cleanup(srv.Close)
	return g, srv
}

func (g *gateway) snapshot() ([]*http.Request, []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*http.Request(nil), g.requests...), append([]string(nil), g.bodies...)
}

func TestClient_BatchesIntoOnePost(t *testing.T) {
	t.Parallel()

	g, srv := newGateway(t, http.StatusOK)
	c := push.New(push.WithEndpoint(srv.URL), push.WithLinger(50*time.Millisecond))
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	futures := make([]*async.Future[bool], 0, 3)
	for i := range 3 {
		futures = append(futures, c.Post(fmt.Sprintf(`{"n":%d}`, i)))
	}
	results, errs := async.AwaitAll(futures...)
	for i := range futures {
		require.NoError(t, errs[i])
		assert.True(t, results[i])
	}

	reqs, bodies := g.snapshot()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "application/json", reqs[0].Header.Get("Content-Type"))
	assert.Equal(t, "{\"n\":0}\n{\"n\":1}\n{\"n\":2}", bodies[0])
}

func TestClient_BatchSizeLimit(t *testing.T) {
	t.Parallel()

	g, srv := newGateway(t, http.StatusOK)
	c := push.New(push.WithEndpoint(srv.URL), push.WithBatchSize(2), push.WithLinger(time.Second))
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	f1 := c.Post("a")
	f2 := c.Post("b")
	f3 := c.Post("c")

	ok, err := f1.AwaitWithTimeout(time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = f2.Await()
	require.NoError(t, err)

	require.NoError(t, c.Close(context.Background()))
	_, err = f3.Await()
	require.NoError(t, err)

	_, bodies := g.snapshot()
	require.Len(t, bodies, 2)
	assert.Equal(t, "a\nb", bodies[0])
	assert.Equal(t, "c", bodies[1])
}

func TestClient_ErrorStatus(t *testing.T) {
	t.Parallel()

	_, srv := newGateway(t, http.StatusBadGateway)
	c := push.New(push.WithEndpoint(srv.URL))
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	f1 := c.Post("a")
	f2 := c.Post("b")

	ok, err := f1.Await()
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = f2.Await()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_DoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	target, targetSrv := newGateway(t, http.StatusOK)
	redirect := httptest.NewServer(http.RedirectHandler(targetSrv.URL, http.StatusTemporaryRedirect))
	t.Cleanup(redirect.Close)

	c := push.New(push.WithEndpoint(redirect.URL))
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	ok, err := c.Post("a").Await()
	require.NoError(t, err)
	assert.False(t, ok)

	reqs, _ := target.snapshot()
	assert.Empty(t, reqs)
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c := push.New(push.WithEndpoint(srv.URL), push.WithTimeout(50*time.Millisecond))
	t.Cleanup(func() { _ = c.Close(context.Background()) })

	ok, err := c.Post("a").AwaitWithTimeout(2 * time.Second)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClient_DevMode(t *testing.T) {
	t.Parallel()

	c := push.New()
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	require.True(t, c.DevMode())

	ok, err := c.Post(strings.Repeat("x", 10)).Await()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_PostAfterClose(t *testing.T) {
	t.Parallel()

	c := push.New()
	require.NoError(t, c.Close(context.Background()))

	_, err := c.Post("a").Await()
	assert.Error(t, err)
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	g, srv := newGateway(t, http.StatusOK)
	c := push.NewFromConfig(push.Config{
		Endpoint:    srv.URL,
		Timeout:     time.Second,
		BatchSize:   10,
		Linger:      5 * time.Millisecond,
		MaxInFlight: 2,
	})
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	assert.False(t, c.DevMode())

	ok, err := c.Post("a").Await()
	require.NoError(t, err)
	assert.True(t, ok)
	reqs, _ := g.snapshot()
	assert.Len(t, reqs, 1)
}
