package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"talentvault/internal/logger"
	"talentvault/internal/tracing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var enrichmentTracer = otel.Tracer("talentvault/enrichment")

// EnrichedContact is the slice of the Apollo person-match response the
// pipeline cares about.
type EnrichedContact struct {
	Email            string `json:"email"`
	FullName         string `json:"full_name,omitempty"`
	Title            string `json:"title,omitempty"`
	OrganizationName string `json:"organization_name,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	LinkedInURL      string `json:"linkedin_url,omitempty"`
}

// ContactCache is the cache surface the client needs; the Redis adapter
// satisfies it.
type ContactCache interface {
	GetEnrichment(ctx context.Context, email string) (string, error)
	SetEnrichment(ctx context.Context, email string, payloadJSON string) error
}

// ApolloClient enriches referral contacts through the Apollo people-match
// API, with a cache in front so repeat referrers cost one lookup.
type ApolloClient struct {
	baseURL    string
	apiKey     string
	maxRetries int
	httpClient *http.Client
	cache      ContactCache
	log        zerolog.Logger
}

// NewApolloClient builds the client. An empty apiKey produces a disabled
// client whose Enrich returns (nil, nil).
func NewApolloClient(baseURL, apiKey string, timeout time.Duration, maxRetries int, cache ContactCache) *ApolloClient {
	if baseURL == "" {
		baseURL = "https://api.apollo.io"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &ApolloClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		log:        logger.Logger.With().Str("component", "apollo_client").Logger(),
	}
}

// Enabled reports whether an API key is configured.
func (c *ApolloClient) Enabled() bool {
	return c.apiKey != ""
}

type matchRequest struct {
	Email string `json:"email"`
}

type matchResponse struct {
	Person *struct {
		Email        string `json:"email"`
		Name         string `json:"name"`
		Title        string `json:"title"`
		City         string `json:"city"`
		State        string `json:"state"`
		LinkedInURL  string `json:"linkedin_url"`
		Organization *struct {
			Name string `json:"name"`
		} `json:"organization"`
	} `json:"person"`
}

// Enrich looks up one contact by email, serving from cache when possible.
// A contact Apollo does not know returns (nil, nil); enrichment is
// best-effort and the pipeline continues without it.
func (c *ApolloClient) Enrich(ctx context.Context, email string) (*EnrichedContact, error) {
	if !c.Enabled() {
		return nil, nil
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}

	ctx, span := enrichmentTracer.Start(ctx, "ApolloClient.Enrich",
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if c.cache != nil {
		if cached, err := c.cache.GetEnrichment(ctx, email); err == nil && cached != "" {
			var contact EnrichedContact
			if err := json.Unmarshal([]byte(cached), &contact); err == nil {
				span.SetAttributes(attribute.Bool("enrichment.cache_hit", true))
				span.SetStatus(codes.Ok, "")
				return &contact, nil
			}
		}
	}
	span.SetAttributes(attribute.Bool("enrichment.cache_hit", false))

	contact, err := c.fetch(ctx, email)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeEnrichment)
		return nil, err
	}
	span.SetStatus(codes.Ok, "")

	if contact != nil && c.cache != nil {
		if payload, err := json.Marshal(contact); err == nil {
			if err := c.cache.SetEnrichment(ctx, email, string(payload)); err != nil {
				c.log.Warn().Err(err).Str("email", email).Msg("caching enrichment failed")
			}
		}
	}
	return contact, nil
}

// fetch calls POST /v1/people/match, retrying transient failures (5xx and
// 429) with a short linear backoff.
func (c *ApolloClient) fetch(ctx context.Context, email string) (*EnrichedContact, error) {
	body, err := json.Marshal(matchRequest{Email: email})
	if err != nil {
		return nil, fmt.Errorf("serializing match request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/people/match", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building match request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("calling apollo: %w", err)
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("reading apollo response: %w", readErr)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			var parsed matchResponse
			if err := json.Unmarshal(respBody, &parsed); err != nil {
				return nil, fmt.Errorf("parsing apollo response: %w", err)
			}
			if parsed.Person == nil {
				return nil, nil
			}
			contact := &EnrichedContact{
				Email:       email,
				FullName:    parsed.Person.Name,
				Title:       parsed.Person.Title,
				City:        parsed.Person.City,
				State:       parsed.Person.State,
				LinkedInURL: parsed.Person.LinkedInURL,
			}
			if parsed.Person.Organization != nil {
				contact.OrganizationName = parsed.Person.Organization.Name
			}
			return contact, nil

		case resp.StatusCode == http.StatusNotFound:
			return nil, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = fmt.Errorf("apollo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			continue

		default:
			err := fmt.Errorf("apollo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, resp.StatusCode)
			return nil, err
		}
	}
	return nil, lastErr
}
