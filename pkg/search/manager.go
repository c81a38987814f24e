package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	requestTimeout = 15 * time.Second
	cacheTTL       = 5 * time.Minute
	cacheCapacity  = 100

	DepthBasic    = "basic"
	DepthAdvanced = "advanced"
)

// Manager routes requests to a registered provider, caches responses and
// collapses concurrent identical lookups into a single upstream call.
type Manager struct {
	providers map[string]Provider
	primary   string
	cache     *resultCache
	group     singleflight.Group
	timeout   time.Duration
}

func NewManager(primary string) *Manager {
	return &Manager{
		providers: make(map[string]Provider),
		primary:   primary,
		cache:     newResultCache(cacheTTL, cacheCapacity),
		timeout:   requestTimeout,
	}
}

func (m *Manager) Register(p Provider) {
	m.providers[p.Name()] = p
}

func (m *Manager) provider(name string) (Provider, error) {
	if name == "" {
		name = m.primary
	}
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("search provider %q is not registered", name)
	}
	return p, nil
}

// Search resolves a request through the cache first. On a miss, concurrent
// callers with the same cache key share one provider call; the key is
// registered with the flight group before any network suspension so a second
// caller can never slip past it.
func (m *Manager) Search(ctx context.Context, req *Request) (*Response, error) {
	p, err := m.provider(req.Provider)
	if err != nil {
		return nil, err
	}

	key := cacheKey(p.Name(), req)
	if res, ok := m.cache.Get(key); ok {
		return res, nil
	}

	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		defer cancel()

		res, err := p.Search(cctx, req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("search for %q timed out after %s: %w", req.Query, m.timeout, err)
			}
			return nil, err
		}
		m.cache.Set(key, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

// SearchMultiDepth runs the same query at basic and advanced depth
// concurrently and merges the two responses. A failure of either depth fails
// the whole call.
func (m *Manager) SearchMultiDepth(ctx context.Context, req *Request) (*Response, error) {
	depths := []string{DepthBasic, DepthAdvanced}
	responses := make([]*Response, len(depths))

	g, gctx := errgroup.WithContext(ctx)
	for i, depth := range depths {
		i, depth := i, depth
		g.Go(func() error {
			sub := *req
			sub.Depth = depth
			res, err := m.Search(gctx, &sub)
			if err != nil {
				return err
			}
			responses[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(req.MaxResults, responses...)
	merged.Query = req.Query
	return merged, nil
}

func cacheKey(provider string, req *Request) string {
	include := append([]string(nil), req.IncludeDomains...)
	exclude := append([]string(nil), req.ExcludeDomains...)
	sort.Strings(include)
	sort.Strings(exclude)

	parts := []string{
		provider,
		strings.ToLower(strings.TrimSpace(req.Query)),
		strconv.Itoa(req.MaxResults),
		req.Depth,
		req.Topic,
		strconv.FormatBool(req.IncludeImages),
		strings.Join(include, ","),
		strings.Join(exclude, ","),
	}
	return strings.Join(parts, "|")
}
