package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"catalog-relay/domain"
)

const (
	analyzePath        = "/vision/v3.1/analyze"
	subscriptionHeader = "Ocp-Apim-Subscription-Key"
	maxErrorBody       = 4096
)

type AnalysisRepository struct {
	client     *http.Client
	analyzeURL string
	apiKey     string
}

// NewAnalysisRepository targets the analyze operation of the vision resource at
// endpoint, requesting the given comma separated feature and detail sets.
func NewAnalysisRepository(client *http.Client, endpoint, apiKey, features, details string) *AnalysisRepository {
	query := url.Values{}
	if features != "" {
		query.Set("visualFeatures", features)
	}
	if details != "" {
		query.Set("details", details)
	}
	analyzeURL := endpoint + analyzePath
	if encoded := query.Encode(); encoded != "" {
		analyzeURL += "?" + encoded
	}

	return &AnalysisRepository{
		client:     defaultClient(client),
		analyzeURL: analyzeURL,
		apiKey:     apiKey,
	}
}

func (r *AnalysisRepository) Analyze(ctx context.Context, imageURL string) (domain.AnalysisResult, error) {
	payload, err := json.Marshal(domain.AnalyzeRequest{URL: imageURL})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.analyzeURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create analyze request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(subscriptionHeader, r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call analysis service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        imageURL,
			Message:    upstreamMessage(resp),
		}
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	var result domain.AnalysisResult
	if err := decoder.Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	if result == nil {
		result = domain.AnalysisResult{}
	}
	return result, nil
}

// upstreamMessage extracts {"error":{"message":...}} from an error body, falling
// back to the status text.
func upstreamMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Code != "" {
			return envelope.Error.Code + ": " + envelope.Error.Message
		}
		return envelope.Error.Message
	}
	return http.StatusText(resp.StatusCode)
}
