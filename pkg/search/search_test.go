package search

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	delay time.Duration
	calls int64
	fn    func(req *Request) (*Response, error)
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, req *Request) (*Response, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fn != nil {
		return f.fn(req)
	}
	return &Response{
		Query:   req.Query,
		Results: []Result{{Title: "t", URL: "https://example.com/" + req.Query, Score: 0.5}},
	}, nil
}

func newTestManager(p *fakeProvider) *Manager {
	m := NewManager(p.name)
	m.Register(p)
	return m
}

func TestCacheHitSkipsProvider(t *testing.T) {
	p := &fakeProvider{name: "fake"}
	m := newTestManager(p)

	req := &Request{Query: "golang generics"}
	first, err := m.Search(context.Background(), req)
	require.NoError(t, err)

	second, err := m.Search(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), atomic.LoadInt64(&p.calls))
}

func TestCacheExpiryTriggersFreshCall(t *testing.T) {
	p := &fakeProvider{name: "fake"}
	m := newTestManager(p)
	m.cache = newResultCache(20*time.Millisecond, cacheCapacity)

	req := &Request{Query: "expiring"}
	_, err := m.Search(context.Background(), req)
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, err = m.Search(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), atomic.LoadInt64(&p.calls))
}

func TestCacheCapacityEvictsEarliestKey(t *testing.T) {
	c := newResultCache(time.Minute, 100)

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("key-%d", i), &Response{Query: fmt.Sprintf("q%d", i)})
	}
	c.Set("key-100", &Response{Query: "q100"})

	_, ok := c.Get("key-0")
	assert.False(t, ok, "earliest-inserted key should be evicted")

	for i := 1; i <= 100; i++ {
		_, ok := c.Get(fmt.Sprintf("key-%d", i))
		assert.True(t, ok, "key-%d should survive", i)
	}
}

func TestCacheOverwriteDoesNotEvict(t *testing.T) {
	c := newResultCache(time.Minute, 2)

	c.Set("a", &Response{})
	c.Set("b", &Response{})
	c.Set("a", &Response{Answer: "updated"})

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "updated", got.Answer)

	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestConcurrentIdenticalSearchesShareOneCall(t *testing.T) {
	p := &fakeProvider{name: "fake", delay: 50 * time.Millisecond}
	m := newTestManager(p)

	req := &Request{Query: "shared"}
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := m.Search(context.Background(), req)
			assert.NoError(t, err)
			assert.NotNil(t, res)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&p.calls))
}

func TestSearchTimesOut(t *testing.T) {
	p := &fakeProvider{name: "slow", delay: time.Second}
	m := newTestManager(p)
	m.timeout = 20 * time.Millisecond

	_, err := m.Search(context.Background(), &Request{Query: "never"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestUnknownProviderRejected(t *testing.T) {
	m := NewManager("tavily")

	_, err := m.Search(context.Background(), &Request{Query: "x", Provider: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestMergeDedupesByURLKeepingHighestScore(t *testing.T) {
	a := &Response{Results: []Result{
		{URL: "https://a.example", Score: 0.9},
		{URL: "https://b.example", Score: 0.5},
	}}
	b := &Response{Results: []Result{
		{URL: "https://a.example", Score: 0.1},
		{URL: "https://c.example", Score: 0.7},
	}}

	merged := Merge(0, a, b)

	require.Len(t, merged.Results, 3)
	assert.Equal(t, "https://a.example", merged.Results[0].URL)
	assert.Equal(t, 0.9, merged.Results[0].Score)
	assert.Equal(t, "https://c.example", merged.Results[1].URL)
	assert.Equal(t, "https://b.example", merged.Results[2].URL)
}

func TestMergeMissingScoreRanksLast(t *testing.T) {
	merged := Merge(0,
		&Response{Results: []Result{{URL: "https://unscored.example"}}},
		&Response{Results: []Result{{URL: "https://scored.example", Score: 0.2}}},
	)

	require.Len(t, merged.Results, 2)
	assert.Equal(t, "https://scored.example", merged.Results[0].URL)
}

func TestMergeTruncatesAndPicksFirstAnswer(t *testing.T) {
	merged := Merge(1,
		&Response{Results: []Result{{URL: "https://x.example", Score: 0.3}}},
		&Response{Answer: "the answer", Results: []Result{{URL: "https://y.example", Score: 0.8}}},
	)

	require.Len(t, merged.Results, 1)
	assert.Equal(t, "https://y.example", merged.Results[0].URL)
	assert.Equal(t, "the answer", merged.Answer)
}

func TestMergeCapsImages(t *testing.T) {
	var imgs []Image
	for i := 0; i < 15; i++ {
		imgs = append(imgs, Image{URL: fmt.Sprintf("https://img.example/%d", i)})
	}
	merged := Merge(0, &Response{Images: imgs}, &Response{Images: imgs[:3]})

	assert.Len(t, merged.Images, maxMergedImages)
}

func TestMultiDepthMergesBothPasses(t *testing.T) {
	p := &fakeProvider{name: "fake", fn: func(req *Request) (*Response, error) {
		if req.Depth == DepthAdvanced {
			return &Response{Results: []Result{{URL: "https://deep.example", Score: 0.9}}}, nil
		}
		return &Response{Answer: "basic answer", Results: []Result{{URL: "https://shallow.example", Score: 0.4}}}, nil
	}}
	m := newTestManager(p)

	res, err := m.SearchMultiDepth(context.Background(), &Request{Query: "both"})
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Equal(t, "https://deep.example", res.Results[0].URL)
	assert.Equal(t, "basic answer", res.Answer)
	assert.Equal(t, int64(2), atomic.LoadInt64(&p.calls))
}
