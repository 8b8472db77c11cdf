package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"texttoaudio/pkg/tools"
)

const DefaultURL = "https://api-inference.huggingface.co"

const defaultTimeout = 60 * time.Second

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the hosted model endpoint. URL is the inference host, the
// model path is appended per call.
type Config struct {
	URL         string        `yaml:"url"`
	Model       string        `yaml:"model"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Client struct {
	httpClient HTTPClient
	cfg        *Config
}

func New(httpClient HTTPClient, cfg *Config) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if cfg == nil {
		cfg = &Config{}
	}

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
	}
}

// Request is a single text-to-audio call. Empty Model and Credential fall back
// to the client config. URL, when set, is used verbatim as the endpoint and
// requires its own Credential: the configured token is only sent to the
// configured host.
type Request struct {
	InputText  string
	Model      string
	Credential string
	URL        string
}

type AudioResult struct {
	Audio       []byte
	ContentType string
}

type body struct {
	Inputs string `json:"inputs"`
}

// BuildBody returns the JSON payload sent to the model: {"inputs": text}.
func BuildBody(text string) ([]byte, error) {
	if err := validateText(text); err != nil {
		return nil, err
	}

	data, err := json.Marshal(&body{Inputs: text})
	if err != nil {
		return nil, &InvalidInputError{Reason: fmt.Sprintf("failed to marshal inputs: %v", err)}
	}

	return data, nil
}

func validateText(text string) error {
	if text == "" {
		return &InvalidInputError{Reason: "input text must not be empty"}
	}

	// json.Marshal replaces invalid sequences with U+FFFD, which would change the text.
	if !utf8.ValidString(text) {
		return &InvalidInputError{Reason: "input text is not valid utf-8"}
	}

	return nil
}

// Endpoint resolves the URL the request is posted to.
func (c *Client) Endpoint(req *Request) (string, error) {
	if req != nil && strings.TrimSpace(req.URL) != "" {
		return strings.TrimSpace(req.URL), nil
	}

	model := c.cfg.Model
	if req != nil && strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}

	model = strings.Trim(strings.TrimSpace(model), "/")
	if model == "" {
		return "", &InvalidInputError{Reason: "model identifier is not configured"}
	}

	base := c.cfg.URL
	if strings.TrimSpace(base) == "" {
		base = DefaultURL
	}

	return strings.TrimRight(base, "/") + "/models/" + model, nil
}

func (c *Client) credential(req *Request) (string, error) {
	if req != nil && req.Credential != "" {
		return req.Credential, nil
	}

	if req != nil && strings.TrimSpace(req.URL) != "" {
		return "", &InvalidInputError{Reason: "endpoint override requires a request credential"}
	}

	token := c.cfg.AccessToken

	if token == "" {
		return "", &InvalidInputError{Reason: "credential is not configured"}
	}

	return token, nil
}

func (c *Client) prepare(req *Request) (url string, token string, data []byte, err error) {
	if req == nil {
		return "", "", nil, &InvalidInputError{Reason: "nil request provided"}
	}

	if url, err = c.Endpoint(req); err != nil {
		return "", "", nil, err
	}

	if token, err = c.credential(req); err != nil {
		return "", "", nil, err
	}

	if data, err = BuildBody(req.InputText); err != nil {
		return "", "", nil, err
	}

	return url, token, data, nil
}

// Invoke posts the text to the model endpoint and returns the audio exactly as
// the remote produced it.
func (c *Client) Invoke(ctx context.Context, req *Request) (*AudioResult, error) {
	url, token, data, err := c.prepare(req)
	if err != nil {
		metrics.Errors.WithLabelValues(KindInvalidInput.String()).Inc()
		return nil, err
	}

	timeout := c.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		metrics.Errors.WithLabelValues(KindInvalidInput.String()).Inc()
		return nil, &InvalidInputError{Reason: fmt.Sprintf("failed to create inference request: %v", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "*/*")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.Errors.WithLabelValues(KindTransport.String()).Inc()
		return nil, newTransportError("failed to call inference api", err)
	}
	defer tools.DrainAndClose(resp.Body)

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.Errors.WithLabelValues(KindTransport.String()).Inc()
		return nil, newTransportError("failed to read inference response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.Errors.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		return nil, newRemoteAPIError(resp.StatusCode, respBody)
	}

	// the hosted api sometimes reports failures with a 2xx json body
	if remoteErr := embeddedRemoteError(resp.StatusCode, respBody); remoteErr != nil {
		metrics.Errors.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
		return nil, remoteErr
	}

	metrics.QueryTime.Observe(time.Since(start).Seconds())

	return &AudioResult{
		Audio:       respBody,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
