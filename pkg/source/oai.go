package source

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
)

// OAIError is an error reported inside an OAI-PMH response.
type OAIError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

func (e *OAIError) Error() string {
	return fmt.Sprintf("OAI-PMH error %s: %s", e.Code, e.Message)
}

// ErrMaxRequests is returned when a listing still has a resumption token
// after the client's request limit. The partial listing is discarded.
var ErrMaxRequests = errors.New("max requests limit reached")

// IsNoRecordsMatch reports whether err is the OAI-PMH noRecordsMatch
// condition, which means an empty result rather than a failure.
func IsNoRecordsMatch(err error) bool {
	var oaiErr *OAIError
	return errors.As(err, &oaiErr) && oaiErr.Code == "noRecordsMatch"
}

// Identify describes an OAI-PMH repository.
type Identify struct {
	RepositoryName    string `xml:"repositoryName"`
	BaseURL           string `xml:"baseURL"`
	ProtocolVersion   string `xml:"protocolVersion"`
	EarliestDatestamp string `xml:"earliestDatestamp"`
	DeletedRecord     string `xml:"deletedRecord"`
	Granularity       string `xml:"granularity"`
}

type oaiHeader struct {
	Status     string   `xml:"status,attr"`
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpecs   []string `xml:"setSpec"`
}

type oaiResponse struct {
	XMLName         xml.Name  `xml:"OAI-PMH"`
	Error           *OAIError `xml:"error"`
	Identify        *Identify `xml:"Identify"`
	ListIdentifiers struct {
		Headers         []oaiHeader `xml:"header"`
		ResumptionToken string      `xml:"resumptionToken"`
	} `xml:"ListIdentifiers"`
}

// Client is an OAI-PMH client with retrying HTTP transport.
type Client struct {
	baseURL        string
	metadataPrefix string
	set            string
	http           *pester.Client
	doer           HTTPClient
	interval       time.Duration
	maxRequests    int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSet restricts list requests to an OAI-PMH set.
func WithSet(set string) ClientOption {
	return func(c *Client) { c.set = set }
}

// WithMaxRetries sets the number of attempts per request.
func WithMaxRetries(retries int) ClientOption {
	return func(c *Client) { c.http.MaxRetries = retries }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = timeout }
}

// WithMaxRequests bounds the number of list requests of one harvest, which
// guards against endpoints that never stop returning resumption tokens.
func WithMaxRequests(requests int) ClientOption {
	return func(c *Client) { c.maxRequests = requests }
}

// WithRequestInterval spaces requests to the endpoint at least interval
// apart.
func WithRequestInterval(interval time.Duration) ClientOption {
	return func(c *Client) { c.interval = interval }
}

// NewClient creates a client for an OAI-PMH endpoint.
func NewClient(baseURL, metadataPrefix string, opts ...ClientOption) (*Client, error) {
	parsed, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse endpoint %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("endpoint %q must use http or https", baseURL)
	}

	httpClient := pester.New()
	httpClient.Backoff = pester.ExponentialBackoff
	httpClient.MaxRetries = 3
	httpClient.SetRetryOnHTTP429(true)

	c := &Client{
		baseURL:        baseURL,
		metadataPrefix: metadataPrefix,
		http:           httpClient,
		maxRequests:    10000,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.doer = c.http
	if c.interval > 0 {
		c.doer = NewRateLimitedHTTPClient(c.http, c.interval)
	}
	return c, nil
}

// Identify requests the repository description.
func (c *Client) Identify(ctx context.Context) (*Identify, error) {
	body, err := c.fetch(ctx, url.Values{"verb": {"Identify"}})
	if err != nil {
		return nil, err
	}
	var response oaiResponse
	if err := xml.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to decode Identify response: %w", err)
	}
	if response.Error != nil {
		return nil, response.Error
	}
	if response.Identify == nil {
		return nil, errors.New("response has no Identify element")
	}
	return response.Identify, nil
}

// ListIdentifiers lists the headers of records changed since from,
// following resumption tokens. A zero from lists everything.
// noRecordsMatch yields an empty list.
func (c *Client) ListIdentifiers(ctx context.Context, from time.Time) ([]Header, error) {
	params := url.Values{
		"verb":           {"ListIdentifiers"},
		"metadataPrefix": {c.metadataPrefix},
	}
	if !from.IsZero() {
		params.Set("from", from.UTC().Format("2006-01-02"))
	}
	if c.set != "" {
		params.Set("set", c.set)
	}

	var headers []Header
	for requests := 0; ; requests++ {
		if c.maxRequests > 0 && requests >= c.maxRequests {
			log.WithFields(log.Fields{
				"endpoint":     c.baseURL,
				"max_requests": c.maxRequests,
			}).Warn("Max requests limit reached")
			return nil, fmt.Errorf("%w after %d requests (%d headers listed)", ErrMaxRequests, requests, len(headers))
		}

		body, err := c.fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		var response oaiResponse
		if err := xml.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to decode ListIdentifiers response: %w", err)
		}
		if response.Error != nil {
			if IsNoRecordsMatch(response.Error) {
				return headers, nil
			}
			return nil, response.Error
		}

		for _, h := range response.ListIdentifiers.Headers {
			headers = append(headers, Header{
				Identifier: h.Identifier,
				Datestamp:  h.Datestamp,
				Deleted:    h.Status == "deleted",
				SetSpecs:   h.SetSpecs,
			})
		}

		token := response.ListIdentifiers.ResumptionToken
		if token == "" {
			return headers, nil
		}
		params = url.Values{
			"verb":            {"ListIdentifiers"},
			"resumptionToken": {token},
		}
	}
}

// GetRecord fetches the raw OAI-PMH response for one record.
func (c *Client) GetRecord(ctx context.Context, identifier string) ([]byte, error) {
	return c.fetchURL(ctx, c.RecordURL(identifier))
}

// RecordURL returns the GetRecord request URL of one record.
func (c *Client) RecordURL(identifier string) string {
	return c.baseURL + "?" + url.Values{
		"verb":           {"GetRecord"},
		"identifier":     {identifier},
		"metadataPrefix": {c.metadataPrefix},
	}.Encode()
}

// BaseURL returns the endpoint address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	return c.fetchURL(ctx, c.baseURL+"?"+params.Encode())
}

func (c *Client) fetchURL(ctx context.Context, link string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", link, err)
	}
	defer resp.Body.Close()

	log.WithFields(log.Fields{
		"url":         link,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("OAI-PMH request")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: %s", link, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", link, err)
	}
	return body, nil
}
