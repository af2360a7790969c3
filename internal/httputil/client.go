// Package httputil provides HTTP client abstractions for testability.
package httputil

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"
)

// Doer abstracts HTTP request execution so the remote API client can be
// exercised against canned responses. Use NewStandardClient for production
// and MockClient in tests.
type Doer interface {
	// Do sends an HTTP request and returns an HTTP response.
	Do(req *http.Request) (*http.Response, error)
}

// NewStandardClient returns an *http.Client with keep-alives enabled and the
// given request timeout. A hung connection must not stall the delivery cycle
// past its own timeout, so zero is replaced with a 40 s default.
func NewStandardClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 40 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// MockClient provides a testable Doer implementation that records requests
// and replays queued responses in order.
type MockClient struct {
	mu           sync.Mutex
	DoFunc       func(req *http.Request) (*http.Response, error)
	Requests     []*http.Request
	RequestBodys [][]byte
	responses    []*mockResponse
	responseIdx  int
	DefaultError error
}

type mockResponse struct {
	statusCode int
	body       string
	err        error
}

// NewMockClient creates a new mock HTTP client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// AddResponse queues a response to be returned by a subsequent request.
func (m *MockClient) AddResponse(statusCode int, body string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, &mockResponse{statusCode: statusCode, body: body})
	return m
}

// AddErrorResponse queues a transport-level error.
func (m *MockClient) AddErrorResponse(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, &mockResponse{err: err})
	return m
}

// Do records the request (including its body) and returns the next queued
// response, or an empty 200 when the queue is exhausted.
func (m *MockClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}
	m.RequestBodys = append(m.RequestBodys, body)

	if m.DoFunc != nil {
		return m.DoFunc(req)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}

	if m.responseIdx < len(m.responses) {
		resp := m.responses[m.responseIdx]
		m.responseIdx++
		if resp.err != nil {
			return nil, resp.err
		}
		return &http.Response{
			StatusCode: resp.statusCode,
			Body:       io.NopCloser(bytes.NewBufferString(resp.body)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}

	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString("")),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// RequestCount returns the number of recorded requests.
func (m *MockClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// Request returns the nth recorded request, or nil.
func (m *MockClient) Request(n int) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.Requests) {
		return nil
	}
	return m.Requests[n]
}

// RequestBody returns the recorded body of the nth request, or nil.
func (m *MockClient) RequestBody(n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n < 0 || n >= len(m.RequestBodys) {
		return nil
	}
	return m.RequestBodys[n]
}
