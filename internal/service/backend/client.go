// Package backend 도메인 생성 백엔드의 HTTP API 클라이언트를 제공합니다.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/darkkaiser/domain-sync/internal/service/backend/fetcher"
	"github.com/darkkaiser/domain-sync/internal/service/contract"
)

const (
	endpointGenerate = "generate-domains/"
	endpointDetails  = "details/"

	// maxResponseBytes 응답 본문의 최대 크기
	maxResponseBytes = 8 << 20
)

// Client contract.Backend의 HTTP 구현체입니다.
type Client struct {
	baseURL *url.URL
	fetcher fetcher.Fetcher
}

var _ contract.Backend = (*Client)(nil)

// NewClient baseURL을 기준으로 요청을 보내는 Client를 생성합니다.
func NewClient(baseURL string, f fetcher.Fetcher) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, newErrRequestBuildFailed(err, baseURL)
	}
	if f == nil {
		panic("Fetcher는 필수입니다")
	}

	return &Client{baseURL: u, fetcher: f}, nil
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type detailsRequest struct {
	Prompt     string `json:"prompt"`
	DomainName string `json:"domain_name"`
}

// statusResponse 상태 문자열을 검증하기 위해 원시 값으로 받는다.
type statusResponse struct {
	Status         string `json:"status"`
	ProcessedItems int    `json:"processed_items"`
	TotalItems     *int   `json:"total_items"`
}

type resultsResponse struct {
	Status  string                  `json:"status"`
	Results []contract.ResultRecord `json:"results"`
}

func (c *Client) Generate(ctx context.Context, query string) (*contract.GenerateResult, error) {
	var result contract.GenerateResult
	if err := c.doJSON(ctx, http.MethodPost, endpointGenerate, generateRequest{Prompt: query}, &result); err != nil {
		return nil, err
	}

	if result.TotalItems != nil && *result.TotalItems < 0 {
		return nil, newErrInvalidResponse(endpointGenerate, "total_domains가 음수입니다")
	}

	return &result, nil
}

func (c *Client) PollStatus(ctx context.Context, taskID contract.TaskID) (*contract.StatusReport, error) {
	if taskID.IsEmpty() {
		return nil, ErrEmptyTaskID
	}

	endpoint := taskEndpoint(taskID, "status")

	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	status, err := contract.ParseTaskStatus(resp.Status)
	if err != nil {
		return nil, newErrDecodeFailed(err, endpoint)
	}
	if resp.ProcessedItems < 0 {
		return nil, newErrInvalidResponse(endpoint, "processed_items가 음수입니다")
	}

	return &contract.StatusReport{
		Status:         status,
		ProcessedItems: resp.ProcessedItems,
		TotalItems:     resp.TotalItems,
	}, nil
}

func (c *Client) FetchResults(ctx context.Context, taskID contract.TaskID) (*contract.ResultBatch, error) {
	if taskID.IsEmpty() {
		return nil, ErrEmptyTaskID
	}

	endpoint := taskEndpoint(taskID, "results")

	var resp resultsResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	batch := &contract.ResultBatch{Results: resp.Results}
	if resp.Status != "" {
		status, err := contract.ParseTaskStatus(resp.Status)
		if err != nil {
			return nil, newErrDecodeFailed(err, endpoint)
		}
		batch.Status = status
	}

	return batch, nil
}

func (c *Client) GenerateOne(ctx context.Context, query, itemName string) (*contract.ResultRecord, error) {
	var record contract.ResultRecord
	if err := c.doJSON(ctx, http.MethodPost, endpointDetails, detailsRequest{Prompt: query, DomainName: itemName}, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func taskEndpoint(taskID contract.TaskID, leaf string) string {
	return "tasks/" + url.PathEscape(taskID.String()) + "/" + leaf
}

// doJSON body를 JSON으로 보내고 응답을 out으로 디코딩합니다. body가 nil이면 본문 없이 보냅니다.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	target := c.baseURL.JoinPath(endpoint)
	if strings.HasSuffix(endpoint, "/") && !strings.HasSuffix(target.Path, "/") {
		target.Path += "/"
	}

	var reader io.Reader
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return newErrRequestBuildFailed(err, endpoint)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return newErrRequestBuildFailed(err, endpoint)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.fetcher.Do(req)
	if err != nil {
		return newErrRequestFailed(err, endpoint)
	}
	defer resp.Body.Close()

	r, err := utf8Reader(io.LimitReader(resp.Body, maxResponseBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return newErrDecodeFailed(err, endpoint)
	}

	if err := json.NewDecoder(r).Decode(out); err != nil {
		return newErrDecodeFailed(err, endpoint)
	}

	return nil
}
