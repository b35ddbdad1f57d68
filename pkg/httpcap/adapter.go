// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpcap

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPAdapter is a reference Client backed by *http.Client, sufficient to
// drive a system under test and capture each exchange. Request/response
// bodies are JSON-encoded/decoded; an action needing a different content
// type should build its own Client.
type HTTPAdapter struct {
	httpClient *http.Client
	ctx        context.Context

	mu      sync.Mutex
	history []Exchange
}

// NewHTTPAdapter returns an HTTPAdapter issuing requests through
// httpClient, bound to ctx for cancellation.
func NewHTTPAdapter(ctx context.Context, httpClient *http.Client) *HTTPAdapter {
	return &HTTPAdapter{httpClient: httpClient, ctx: ctx}
}

var _ Client = (*HTTPAdapter)(nil)

func (a *HTTPAdapter) Get(url string, headers map[string]string) (*Response, error) {
	return a.do(http.MethodGet, url, headers, nil)
}

func (a *HTTPAdapter) Post(url string, headers map[string]string, body any) (*Response, error) {
	return a.do(http.MethodPost, url, headers, body)
}

func (a *HTTPAdapter) Put(url string, headers map[string]string, body any) (*Response, error) {
	return a.do(http.MethodPut, url, headers, body)
}

func (a *HTTPAdapter) Patch(url string, headers map[string]string, body any) (*Response, error) {
	return a.do(http.MethodPatch, url, headers, body)
}

func (a *HTTPAdapter) Delete(url string, headers map[string]string) (*Response, error) {
	return a.do(http.MethodDelete, url, headers, nil)
}

func (a *HTTPAdapter) Head(url string, headers map[string]string) (*Response, error) {
	return a.do(http.MethodHead, url, headers, nil)
}

func (a *HTTPAdapter) Options(url string, headers map[string]string) (*Response, error) {
	return a.do(http.MethodOptions, url, headers, nil)
}

func (a *HTTPAdapter) History() []Exchange {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Exchange, len(a.history))
	copy(out, a.history)
	return out
}

func (a *HTTPAdapter) do(method, url string, headers map[string]string, body any) (*Response, error) {
	req := Request{Method: method, URL: url, Headers: headers, Body: body}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(a.ctx, method, url, reqBody)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	httpResp, err := a.httpClient.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	var decodedBody any
	if len(respBodyBytes) > 0 {
		if jsonErr := json.Unmarshal(respBodyBytes, &decodedBody); jsonErr != nil {
			decodedBody = string(respBodyBytes)
		}
	}

	respHeaders := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		respHeaders[k] = httpResp.Header.Get(k)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    respHeaders,
		Body:       decodedBody,
		Duration:   elapsed,
	}

	a.mu.Lock()
	a.history = append(a.history, Exchange{Request: req, Response: *resp})
	a.mu.Unlock()

	return resp, nil
}
