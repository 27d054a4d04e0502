package opentdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://opentdb.com"
	defaultTimeout = 10 * time.Second
)

// Client talks to the Open Trivia DB token and question endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// RawQuestion mirrors one entry of the api.php results array. Text fields are
// HTML-entity encoded by the remote service.
type RawQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Query selects a single multiple-choice question.
type Query struct {
	Category   int
	Difficulty string
	Token      string
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

type questionResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []RawQuestion `json:"results"`
}

// RequestToken asks the service for a session token.
func (c *Client) RequestToken(ctx context.Context) (string, error) {
	values := url.Values{}
	values.Set("command", "request")

	var payload tokenResponse
	if err := c.get(ctx, "/api_token.php", values, &payload); err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	if payload.ResponseCode != 0 {
		return "", fmt.Errorf("request token: %w", &ResponseCodeError{Code: payload.ResponseCode})
	}
	if payload.Token == "" {
		return "", fmt.Errorf("request token: empty token")
	}
	return payload.Token, nil
}

// FetchQuestion returns exactly one question for the query.
func (c *Client) FetchQuestion(ctx context.Context, q Query) (RawQuestion, error) {
	values := url.Values{}
	values.Set("amount", "1")
	values.Set("category", strconv.Itoa(q.Category))
	values.Set("difficulty", q.Difficulty)
	values.Set("type", "multiple")
	values.Set("token", q.Token)

	var payload questionResponse
	if err := c.get(ctx, "/api.php", values, &payload); err != nil {
		return RawQuestion{}, err
	}
	if payload.ResponseCode != 0 || len(payload.Results) == 0 {
		return RawQuestion{}, &ResponseCodeError{Code: payload.ResponseCode}
	}
	return payload.Results[0], nil
}

func (c *Client) get(ctx context.Context, path string, values url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s%s?%s", c.baseURL, path, values.Encode()), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
