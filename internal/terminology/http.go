package terminology

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"umlreg/internal/errors"
	"umlreg/internal/slogutil"
)

// HTTPService queries a remote terminology server.
//
//	GET {endpoint}/concepts?namespace=..&property=..&value=..  -> Concept (404 when absent)
//	GET {endpoint}/concepts/{id}/children                      -> []Concept
type HTTPService struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPService creates a client for the given base URL.
func NewHTTPService(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &HTTPService{
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// FindConcept implements Service.
func (s *HTTPService) FindConcept(ctx context.Context, key Key) (*Concept, error) {
	q := url.Values{}
	q.Set("namespace", key.Namespace)
	q.Set("property", key.PropertyName)
	q.Set("value", key.PropertyValue)

	var c Concept
	found, err := s.getJSON(ctx, s.endpoint+"/concepts?"+q.Encode(), &c)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, NotFound(key)
	}
	return &c, nil
}

// Children implements Service.
func (s *HTTPService) Children(ctx context.Context, conceptID string) ([]Concept, error) {
	var out []Concept
	found, err := s.getJSON(ctx, s.endpoint+"/concepts/"+url.PathEscape(conceptID)+"/children", &out)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Newf(errors.ConceptNotFound, "no concept with id %s", conceptID)
	}
	return out, nil
}

func (s *HTTPService) getJSON(ctx context.Context, target string, v interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, errors.New(errors.TerminologyUnavailable, "invalid terminology request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return false, errors.New(errors.TerminologyUnavailable, "terminology server unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	s.logger.Debug("Terminology request",
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, errors.New(errors.TerminologyUnavailable,
			fmt.Sprintf("terminology server returned %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return false, errors.New(errors.TerminologyUnavailable, "invalid terminology response", err)
	}
	return true, nil
}
