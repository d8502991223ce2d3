package advisor

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"expert-router/internal/common/errors"
	httpclient "expert-router/internal/common/http"
	"expert-router/internal/models"
)

// ExecutionResult is what a specialist produced for one query.
type ExecutionResult struct {
	Response            string   `json:"response"`
	Insights            []string `json:"insights"`
	FollowUpSuggestions []string `json:"followUpSuggestions"`
	Success             bool     `json:"success"`
}

// Executor runs a selected specialist against a query.
type Executor interface {
	Execute(ctx context.Context, selection models.AgentSelection, query string) (ExecutionResult, error)
}

// HTTPExecutor calls the agent service at POST {baseURL}/agents/{name}/execute.
type HTTPExecutor struct {
	client  *httpclient.Client
	baseURL string
}

func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{
		client:  httpclient.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type executeRequest struct {
	Query     string                `json:"query"`
	Selection models.AgentSelection `json:"selection"`
}

func (e *HTTPExecutor) Execute(ctx context.Context, selection models.AgentSelection, query string) (ExecutionResult, error) {
	endpoint := fmt.Sprintf("%s/agents/%s/execute", e.baseURL, url.PathEscape(selection.Agent))

	var out ExecutionResult
	if err := e.client.PostJSON(ctx, endpoint, executeRequest{Query: query, Selection: selection}, &out); err != nil {
		return ExecutionResult{}, errors.NewAgentExecutionFailedError(selection.Agent, err)
	}
	return out, nil
}
