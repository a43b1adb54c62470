package httpclient

import (
	"net/http"
	"sync"
	"time"
)

// HTTPClientPool manages a pool of HTTP clients for optimal performance
type HTTPClientPool struct {
	clients chan *http.Client
	factory func() *http.Client
	mu      sync.RWMutex
	closed  bool
}

// NewHTTPClientPool creates a new HTTP client pool
func NewHTTPClientPool(maxClients int) *HTTPClientPool {
	pool := &HTTPClientPool{
		clients: make(chan *http.Client, maxClients),
		factory: createOptimizedHTTPClient,
	}

	// Pre-populate the pool
	for i := 0; i < maxClients; i++ {
		pool.clients <- pool.factory()
	}

	return pool
}

// createOptimizedHTTPClient creates an HTTP client with optimal settings
func createOptimizedHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
		},
	}
}

// Get retrieves an HTTP client from the pool
func (p *HTTPClientPool) Get() *http.Client {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return p.factory()
	}

	select {
	case client := <-p.clients:
		return client
	default:
		// Pool is empty, create a new client
		return p.factory()
	}
}

// Put returns an HTTP client to the pool
func (p *HTTPClientPool) Put(client *http.Client) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed || client == nil {
		return
	}

	select {
	case p.clients <- client:
	default:
		// Pool is full, discard the client
	}
}

// Close closes the pool
func (p *HTTPClientPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.clients)
	for range p.clients {
	}
}

var (
	globalPool     *HTTPClientPool
	globalPoolOnce sync.Once
)

// GetGlobalPool returns the shared HTTP client pool
func GetGlobalPool() *HTTPClientPool {
	globalPoolOnce.Do(func() {
		globalPool = NewHTTPClientPool(20)
	})
	return globalPool
}
