// Package client talks to a certd server over its REST API.
package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vaheed/certd/internal/certificate"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("certd: %d: %s", e.Status, e.Message) }

type errorBody struct {
	Error string `json:"error"`
}

type IssueResponse struct {
	Success            bool                    `json:"success"`
	Signature          string                  `json:"signature"`
	CertificateAddress string                  `json:"certificateAddress"`
	Certificate        certificate.Certificate `json:"certificate"`
	Message            string                  `json:"message"`
}

type RevokeResponse struct {
	Success     bool                    `json:"success"`
	Signature   string                  `json:"signature"`
	Message     string                  `json:"message"`
	Certificate certificate.Certificate `json:"certificate"`
}

type VerifyResponse struct {
	Success     bool                    `json:"success"`
	Certificate certificate.Certificate `json:"certificate"`
	IsValid     bool                    `json:"isValid"`
	Message     string                  `json:"message"`
}

type ListResponse struct {
	Success      bool                      `json:"success"`
	Count        int                       `json:"count"`
	Certificates []certificate.Certificate `json:"certificates"`
}

type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	CertificateCount *int   `json:"certificateCount,omitempty"`
}

type Client struct {
	r *resty.Client
}

func New(baseURL string) *Client {
	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			// only idempotent reads are retried
			if resp == nil || resp.Request == nil {
				return false
			}
			return resp.Request.Method == "GET" && (err != nil || resp.StatusCode() >= 502)
		})
	return &Client{r: r}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.r.R().SetContext(ctx).SetResult(out).SetError(&errorBody{})
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := resp.Status()
		if e, ok := resp.Error().(*errorBody); ok && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

func (c *Client) Issue(ctx context.Context, in certificate.IssueRequest) (*IssueResponse, error) {
	var out IssueResponse
	if err := c.do(ctx, "POST", "/api/certificate/issue", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Revoke(ctx context.Context, address, issuer string) (*RevokeResponse, error) {
	var out RevokeResponse
	in := certificate.RevokeRequest{CertificateAddress: address, IssuerAddress: issuer}
	if err := c.do(ctx, "POST", "/api/certificate/revoke", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Verify(ctx context.Context, address string) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := c.do(ctx, "GET", "/api/certificate/verify/"+url.PathEscape(address), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) List(ctx context.Context) (*ListResponse, error) {
	var out ListResponse
	if err := c.do(ctx, "GET", "/api/certificates", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.do(ctx, "GET", "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
