package lims

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"cg/pkg/orderapi"
)

// RESTGateway talks to the LIMS HTTP API.
type RESTGateway struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewRESTGateway constructs a gateway against the given base URL. A nil
// client falls back to a default with a conservative timeout.
func NewRESTGateway(baseURL, token string, client *http.Client) *RESTGateway {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RESTGateway{baseURL: baseURL, token: token, client: client}
}

var _ Gateway = (*RESTGateway)(nil)

type submitProjectRequest struct {
	Name     string          `json:"name"`
	Customer string          `json:"customer"`
	Samples  []ProjectSample `json:"samples"`
}

type projectSamplesResponse struct {
	Samples []struct {
		Name   string `json:"name"`
		LimsID string `json:"lims_id"`
	} `json:"samples"`
}

// Process submits a project for the order's new samples and retrieves the
// name to LIMS-id mapping. Orders without new samples skip the LIMS entirely.
func (g *RESTGateway) Process(ctx context.Context, samples []orderapi.Sample, customer, ticket string) (ProjectInfo, map[string]string, error) {
	projectSamples := Project(samples)
	if len(projectSamples) == 0 {
		return ProjectInfo{}, nil, nil
	}
	req := submitProjectRequest{
		Name:     ticket,
		Customer: customer,
		Samples:  projectSamples,
	}
	var info ProjectInfo
	if err := g.do(ctx, http.MethodPost, "/api/v1/projects", req, &info); err != nil {
		return ProjectInfo{}, nil, fmt.Errorf("submit lims project: %w", err)
	}

	var resp projectSamplesResponse
	path := "/api/v1/projects/" + url.PathEscape(info.ID) + "/samples"
	if err := g.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return ProjectInfo{}, nil, fmt.Errorf("map lims sample ids: %w", err)
	}
	ids := make(map[string]string, len(resp.Samples))
	for _, s := range resp.Samples {
		ids[s.Name] = s.LimsID
	}
	return info, ids, nil
}

// UpdateSample sets the target read count on an existing LIMS sample.
func (g *RESTGateway) UpdateSample(ctx context.Context, internalID string, targetReads int64) error {
	body := map[string]int64{"target_reads": targetReads}
	path := "/api/v1/samples/" + url.PathEscape(internalID)
	if err := g.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("update lims sample %s: %w", internalID, err)
	}
	return nil
}

func (g *RESTGateway) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("lims %s %s: status %d: %s", method, path, resp.StatusCode, payload)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
