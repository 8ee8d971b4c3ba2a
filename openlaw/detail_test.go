package openlaw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// detailStub answers lawService.do and records the identifier parameter of
// every call in order.
type detailStub struct {
	mu    sync.Mutex
	calls []string
	idFn  func(w http.ResponseWriter)
	mstFn func(w http.ResponseWriter)
}

func (s *detailStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	switch {
	case q.Has(ParamID):
		s.calls = append(s.calls, ParamID+"="+q.Get(ParamID))
	case q.Has(ParamMST):
		s.calls = append(s.calls, ParamMST+"="+q.Get(ParamMST))
	}
	s.mu.Unlock()

	if q.Has(ParamID) {
		s.idFn(w)
		return
	}
	s.mstFn(w)
}

func respond(status int, body string) func(http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestDetailPrimarySucceeds(t *testing.T) {
	stub := &detailStub{
		idFn:  respond(http.StatusOK, `{"law":"by id"}`),
		mstFn: respond(http.StatusOK, `{"law":"by mst"}`),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := c.Detail(context.Background(), KindLaw, "011349")
	require.NoError(t, err)
	assert.JSONEq(t, `{"law":"by id"}`, string(got))
	assert.Equal(t, []string{"ID=011349"}, stub.calls)
}

func TestDetailFallsBackToMST(t *testing.T) {
	stub := &detailStub{
		idFn:  respond(http.StatusNotFound, "no such id"),
		mstFn: respond(http.StatusOK, `{"law":"by mst"}`),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := c.Detail(context.Background(), KindLaw, "011349")
	require.NoError(t, err)
	assert.JSONEq(t, `{"law":"by mst"}`, string(got))
	assert.Equal(t, []string{"ID=011349", "MST=011349"}, stub.calls)
}

func TestDetailFallsBackOnDecodeError(t *testing.T) {
	stub := &detailStub{
		idFn:  respond(http.StatusOK, "<html>error</html>"),
		mstFn: respond(http.StatusOK, `{"admrul":1}`),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := newTestClient(t, srv)
	got, err := c.Detail(context.Background(), KindAdmRul, "2100000")
	require.NoError(t, err)
	assert.JSONEq(t, `{"admrul":1}`, string(got))
	assert.Len(t, stub.calls, 2)
}

func TestDetailBothFailReturnsFallbackError(t *testing.T) {
	stub := &detailStub{
		idFn:  respond(http.StatusNotFound, "id missing"),
		mstFn: respond(http.StatusBadGateway, "mst broken"),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	c := newTestClient(t, srv)
	_, err := c.Detail(context.Background(), KindLaw, "011349")
	require.Error(t, err)

	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusBadGateway, fe.Status)
	assert.Equal(t, "mst broken", fe.Body)
	assert.True(t, errors.Is(err, ErrHTTPStatus))

	var de *DetailError
	require.True(t, errors.As(err, &de))
	var primary *FetchError
	require.True(t, errors.As(de.Primary, &primary))
	assert.Equal(t, http.StatusNotFound, primary.Status)

	assert.Equal(t, []string{"ID=011349", "MST=011349"}, stub.calls)
}

func TestDetailCanceledContextSkipsFallback(t *testing.T) {
	stub := &detailStub{
		idFn:  respond(http.StatusOK, `{}`),
		mstFn: respond(http.StatusOK, `{}`),
	}
	srv := httptest.NewServer(stub)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv)
	_, err := c.Detail(ctx, KindLaw, "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Empty(t, stub.calls)
}

func TestDetailRequiresIdentifier(t *testing.T) {
	c, err := New("oc")
	require.NoError(t, err)
	_, err = c.Detail(context.Background(), KindLaw, " ")
	assert.ErrorIs(t, err, ErrValidation)
}
