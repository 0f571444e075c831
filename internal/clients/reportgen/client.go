// Package reportgen is the REST client for the report generation service.
// The tracker submits a render task, polls its status and downloads the
// finished document.
package reportgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"

	"nestling-tracker/internal/core/domain"
)

// Client represents the report generation service REST client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new report generation service client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetHTTPClient allows setting a custom HTTP client
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// createRequest creates an HTTP request with proper headers
func (c *Client) createRequest(ctx context.Context, method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set content type for requests with body
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Request ID for tracing across the renderer's logs
	req.Header.Set("x-request-id", uuid.New().String())

	return req, nil
}

// doRequest executes an HTTP request and handles the response
func (c *Client) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("API error (status %d): %s - %s", resp.StatusCode, errResp.Error, errResp.Message)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// CreateReport submits a new render task to the report service
func (c *Client) CreateReport(ctx context.Context, req CreateReportRequest) (*CreateReportResponse, error) {
	httpReq, err := c.createRequest(ctx, "POST", c.baseURL+"/v1/reports", req)
	if err != nil {
		return nil, err
	}

	var result CreateReportResponse
	if err := c.doRequest(httpReq, &result); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if result.TaskID == "" {
		return nil, fmt.Errorf("report service accepted the task but returned no task_id")
	}

	return &result, nil
}

// CreateReportTask submits a render task for a report request and returns
// the task id the service assigned. Empty sections fall back to
// DefaultSections.
func (c *Client) CreateReportTask(ctx context.Context, req domain.ReportRequest) (string, error) {
	sections := req.Sections
	if len(sections) == 0 {
		sections = DefaultSections
	}

	result, err := c.CreateReport(ctx, CreateReportRequest{
		Name:     req.Name,
		Format:   req.Format,
		ChildID:  req.ChildID,
		From:     req.From,
		To:       req.To,
		Sections: sections,
	})
	if err != nil {
		return "", err
	}

	return result.TaskID, nil
}

// GetReportStatus retrieves the current status of a render task
func (c *Client) GetReportStatus(ctx context.Context, taskID string) (*domain.StatusReport, error) {
	url := fmt.Sprintf("%s/v1/reports/%s/status", c.baseURL, taskID)

	req, err := c.createRequest(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	var result domain.StatusReport
	if err := c.doRequest(req, &result); err != nil {
		return nil, fmt.Errorf("failed to get report status: %w", err)
	}

	return &result, nil
}

// DownloadReport fetches a finished document. The URL comes from the
// result payload of a completed task. Returns the document bytes and the
// filename the service suggests.
func (c *Client) DownloadReport(ctx context.Context, downloadURL string) ([]byte, string, error) {
	req, err := c.createRequest(ctx, "GET", downloadURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, "", fmt.Errorf("download failed (status %d): %s", resp.StatusCode, string(body))
		}
		return nil, "", fmt.Errorf("download failed (status %d): %s - %s", resp.StatusCode, errResp.Error, errResp.Message)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read download data: %w", err)
	}

	return data, filenameFromResponse(resp, downloadURL), nil
}

// filenameFromResponse extracts the document filename from the
// Content-Disposition header, falling back to the last URL path segment.
func filenameFromResponse(resp *http.Response, downloadURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
	}
	if req := resp.Request; req != nil && req.URL != nil {
		if name := path.Base(req.URL.Path); name != "" && name != "/" && name != "." {
			return name
		}
	}
	return path.Base(downloadURL)
}
