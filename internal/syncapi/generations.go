package syncapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	generatePath     = "/v2/generate"
	estimateCostPath = "/v2/analyze/cost/generate"
)

// GenerationsService exposes the generation operations of the sync API.
type GenerationsService struct {
	client *Client
}

// Create submits a new lipsync generation job. The request is validated
// locally before any bytes are sent.
func (s *GenerationsService) Create(ctx context.Context, req CreateGenerationRequest) (*Generation, error) {
	req.normalize()
	if err := s.client.validateStruct(&req); err != nil {
		return nil, err
	}
	if err := req.checkInputs(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	var out Generation
	if err := s.client.do(ctx, http.MethodPost, generatePath, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one generation by id.
func (s *GenerationsService) Get(ctx context.Context, id string) (*Generation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("generation id is required")
	}
	var out Generation
	err := s.client.do(ctx, http.MethodGet, generatePath+"/"+url.PathEscape(id), nil, nil, &out)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%q: %w", id, ErrGenerationNotFound)
		}
		return nil, err
	}
	return &out, nil
}

// List returns one page of generations, newest first.
func (s *GenerationsService) List(ctx context.Context, opts *ListOptions) (*GenerationList, error) {
	query := url.Values{}
	if opts != nil {
		if cursor := strings.TrimSpace(opts.Cursor); cursor != "" {
			query.Set("cursor", cursor)
		}
		if opts.Limit > 0 {
			query.Set("limit", strconv.Itoa(opts.Limit))
		}
	}
	var out GenerationList
	if err := s.client.do(ctx, http.MethodGet, generatePath, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EstimateCost prices a prospective generation without running it.
func (s *GenerationsService) EstimateCost(ctx context.Context, req CreateGenerationRequest) (*CostEstimate, error) {
	req.normalize()
	if err := s.client.validateStruct(&req); err != nil {
		return nil, err
	}
	if err := req.checkInputs(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	var out CostEstimate
	if err := s.client.do(ctx, http.MethodPost, estimateCostPath, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
