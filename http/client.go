package http

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Execute performs an HTTP request, retrying on non-4xx failure per
// req.RetryCount with backoff between attempts.
func Execute(req *Request) (*Response, error) {
	startTime := time.Now()

	if req.Method == "" {
		return nil, fmt.Errorf("HTTP method is required")
	}
	if req.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}

	var lastErr error
	attempts := req.RetryCount + 1

	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := executeOnce(req)
		if err == nil {
			resp.Duration = time.Since(startTime)
			return resp, nil
		}

		lastErr = err

		if resp != nil && resp.IsClientError() {
			resp.Duration = time.Since(startTime)
			return resp, err
		}

		if attempt < attempts-1 {
			time.Sleep(calculateBackoff(attempt, req.RetryBackoff, req.RetryInterval))
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", attempts, lastErr)
}

func executeOnce(req *Request) (*Response, error) {
	var body io.Reader
	if req.RawBody != nil {
		body = bytes.NewReader(req.RawBody)
	}

	httpReq, err := http.NewRequest(req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	client := &http.Client{
		Timeout: time.Duration(req.Timeout) * time.Second,
	}
	if req.InsecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	if !req.FollowRedirect {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	} else if req.MaxRedirects > 0 {
		maxRedirects := req.MaxRedirects
		client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		}
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    make(map[string]string),
		Body:       respBody,
		BodyString: string(respBody),
	}
	for key, values := range httpResp.Header {
		if len(values) > 0 {
			resp.Headers[key] = values[0]
		}
	}

	if !resp.IsSuccess() {
		return resp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return resp, nil
}

func calculateBackoff(attempt int, strategy string, initial time.Duration) time.Duration {
	if strategy == "linear" {
		return initial * time.Duration(attempt+1)
	}
	multiplier := 1 << uint(attempt)
	return initial * time.Duration(multiplier)
}
