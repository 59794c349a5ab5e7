package engine

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/reelscore/models"
)

type fakeEngine struct {
	name  string
	err   error
	calls int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Fetch(_ context.Context, req *FetchRequest) (*FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &FetchResult{HTML: "<html>" + f.name + "</html>", FinalURL: req.URL}, nil
}

func TestDispatcher_FirstEngineWins(t *testing.T) {
	a := &fakeEngine{name: "http"}
	b := &fakeEngine{name: "rod"}
	d := NewDispatcher([]Engine{a, b}, nil, nil)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "http", res.EngineName)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 0, b.calls)
}

func TestDispatcher_EscalatesOnFailure(t *testing.T) {
	a := &fakeEngine{name: "http", err: errors.New("blocked")}
	b := &fakeEngine{name: "rod"}
	mem := NewDomainMemory(time.Hour)
	d := NewDispatcher([]Engine{a, b}, mem, nil)

	res, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/x"})
	require.NoError(t, err)
	assert.Equal(t, "rod", res.EngineName)
	assert.Equal(t, "rod", mem.Get("example.com"))

	// The remembered engine goes first next time.
	_, err = d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/y"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 2, b.calls)
}

func TestDispatcher_NotFoundStopsEscalation(t *testing.T) {
	a := &fakeEngine{name: "http", err: models.NewScrapeError(models.ErrCodeNotFound, "404", nil)}
	b := &fakeEngine{name: "rod"}
	d := NewDispatcher([]Engine{a, b}, nil, nil)

	_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/x"})
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.Equal(t, 0, b.calls)
}

func TestDispatcher_AllFail(t *testing.T) {
	a := &fakeEngine{name: "http", err: errors.New("first")}
	b := &fakeEngine{name: "rod", err: errors.New("second")}
	d := NewDispatcher([]Engine{a, b}, nil, nil)

	_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com/x"})
	require.EqualError(t, err, "second")
	assert.Equal(t, []string{"http", "rod"}, d.Engines())
}

func TestDispatcher_NoEngines(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
}

func TestDomainMemory_Expiry(t *testing.T) {
	now := time.Unix(1000, 0)
	mem := NewDomainMemory(time.Minute)
	mem.now = func() time.Time { return now }

	mem.Set("imdb.com", "rod")
	assert.Equal(t, "rod", mem.Get("imdb.com"))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, "", mem.Get("imdb.com"))
}

func TestPacer_SpacesRequests(t *testing.T) {
	p := NewPacer(60 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, p.Wait(ctx, "a.com"))
	p.Done("a.com")
	start := time.Now()
	require.NoError(t, p.Wait(ctx, "a.com"))
	p.Done("a.com")
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	// A different host has its own budget.
	start = time.Now()
	require.NoError(t, p.Wait(ctx, "b.com"))
	p.Done("b.com")
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

// slowEngine takes longer than the pacer delay and records when each
// load started and ended.
type slowEngine struct {
	took   time.Duration
	starts []time.Time
	ends   []time.Time
}

func (e *slowEngine) Name() string { return "slow" }

func (e *slowEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	e.starts = append(e.starts, time.Now())
	time.Sleep(e.took)
	e.ends = append(e.ends, time.Now())
	return &FetchResult{HTML: "<html></html>", FinalURL: req.URL}, nil
}

func TestDispatcher_DelayCountsFromEndOfLoad(t *testing.T) {
	const delay = 80 * time.Millisecond
	eng := &slowEngine{took: 120 * time.Millisecond}
	d := NewDispatcher([]Engine{eng}, nil, NewPacer(delay))

	for i := 0; i < 3; i++ {
		_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://www.imdb.com/title/tt0113277/"})
		require.NoError(t, err)
	}

	require.Len(t, eng.starts, 3)
	for i := 1; i < 3; i++ {
		gap := eng.starts[i].Sub(eng.ends[i-1])
		assert.GreaterOrEqual(t, gap, delay-5*time.Millisecond, "gap before load %d", i+1)
	}
}

func TestDispatcher_FailedLoadStillReleasesHost(t *testing.T) {
	failing := &fakeEngine{name: "http", err: errors.New("boom")}
	d := NewDispatcher([]Engine{failing}, nil, NewPacer(20*time.Millisecond))

	_, err := d.Fetch(context.Background(), &FetchRequest{URL: "https://rt.test/m/heat"})
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err = d.Fetch(ctx, &FetchRequest{URL: "https://rt.test/m/heat"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 2, failing.calls)
}

func TestPacer_LoadsDoNotOverlap(t *testing.T) {
	p := NewPacer(10 * time.Millisecond)
	require.NoError(t, p.Wait(context.Background(), "a.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Wait(ctx, "a.com"), context.DeadlineExceeded)

	p.Done("a.com")
	require.NoError(t, p.Wait(context.Background(), "a.com"))
	p.Done("a.com")
}

func TestPacer_Disabled(t *testing.T) {
	p := NewPacer(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Wait(context.Background(), "a.com"))
		p.Done("a.com")
	}
	var nilPacer *Pacer
	require.NoError(t, nilPacer.Wait(context.Background(), "a.com"))
	nilPacer.Done("a.com")
}

func TestPacer_ContextCanceled(t *testing.T) {
	p := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Wait(ctx, "a.com"))
	p.Done("a.com")
	cancel()
	require.Error(t, p.Wait(ctx, "a.com"))
}

func TestHTTPEngine_PlainHTML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title> Heat </title></head><body>ok</body></html>"))
	}))
	defer ts.Close()

	res, err := NewHTTPEngine("").Fetch(context.Background(), &FetchRequest{URL: ts.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "Heat", res.Title)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "http", res.EngineName)
}

func TestHTTPEngine_DecodesGzipAndBrotli(t *testing.T) {
	page := "<html><head><title>Encoded</title></head></html>"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(page))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(page))
	require.NoError(t, bw.Close())

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write(gz.Bytes())
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			_, _ = w.Write(br.Bytes())
		}
	}))
	defer ts.Close()

	eng := NewHTTPEngine("")
	for _, path := range []string{"/gzip", "/br"} {
		res, err := eng.Fetch(context.Background(), &FetchRequest{URL: ts.URL + path})
		require.NoError(t, err, path)
		assert.Equal(t, page, res.HTML, path)
	}
}

func TestHTTPEngine_StatusErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer ts.Close()

	eng := NewHTTPEngine("")

	_, err := eng.Fetch(context.Background(), &FetchRequest{URL: ts.URL + "/missing"})
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))

	_, err = eng.Fetch(context.Background(), &FetchRequest{URL: ts.URL + "/forbidden"})
	require.Error(t, err)
	assert.False(t, models.IsNotFound(err))

	_, err = eng.Fetch(context.Background(), &FetchRequest{URL: ts.URL + "/json"})
	require.Error(t, err)
}

func TestRodEngine_ForcesStealth(t *testing.T) {
	var got FetchRequest
	eng := NewRodEngine(func(_ context.Context, req *FetchRequest) (*FetchResult, error) {
		got = *req
		return &FetchResult{HTML: "<html></html>"}, nil
	}, true)

	req := &FetchRequest{URL: "https://example.com"}
	res, err := eng.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, got.Stealth)
	assert.False(t, req.Stealth, "caller's request must not be mutated")
	assert.Equal(t, "rod-stealth", res.EngineName)
}

func TestRodEngine_Unconfigured(t *testing.T) {
	_, err := NewRodEngine(nil, false).Fetch(context.Background(), &FetchRequest{})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeBrowserCrash, models.AsDetail(err).Code)
}

func TestRodEngine_EmptyPage(t *testing.T) {
	eng := NewRodEngine(func(_ context.Context, _ *FetchRequest) (*FetchResult, error) {
		return &FetchResult{HTML: "  "}, nil
	}, false)
	_, err := eng.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeNavigation, models.AsDetail(err).Code)
}

func TestRodEngine_KeepsErrorCode(t *testing.T) {
	eng := NewRodEngine(func(_ context.Context, _ *FetchRequest) (*FetchResult, error) {
		return nil, models.NewScrapeError(models.ErrCodeNotFound, "HTTP 404", nil)
	}, false)
	_, err := eng.Fetch(context.Background(), &FetchRequest{URL: "https://example.com"})
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
	assert.Contains(t, err.Error(), "rod: ")
}

func TestFetchRequest_Host(t *testing.T) {
	assert.Equal(t, "www.imdb.com", (&FetchRequest{URL: "https://www.imdb.com/title/tt0113277/"}).Host())
	assert.Equal(t, "not a url", (&FetchRequest{URL: "not a url"}).Host())
}
