package api

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"texttoaudio/pkg/inference"
	"texttoaudio/pkg/slg"

	"github.com/google/uuid"
)

const (
	headerInvocationID = "X-Invocation-Id"

	maxBodyBytes = 1 << 20
)

type ttsRequest struct {
	Inputs *string `json:"inputs"`
	Model  string  `json:"model,omitempty"`
	APIURL string  `json:"api_url,omitempty"`
}

type errorResponse struct {
	Error        string `json:"error"`
	Kind         string `json:"kind"`
	RemoteStatus int    `json:"remote_status,omitempty"`
}

func (api *API) tts(w http.ResponseWriter, r *http.Request) {
	invocationID := uuid.NewString()
	w.Header().Set(headerInvocationID, invocationID)

	logger := slg.GetSlog(r.Context()).With("invocation_id", invocationID)

	req, err := parseTTSRequest(r)
	if err != nil {
		logger.Info("rejected tts request", "err", err)
		writeInvokeError(w, err)

		return
	}

	logger = logger.With("model", req.Model, "text_len", len(req.InputText))

	res, err := api.forwarder.Invoke(r.Context(), req)
	if err != nil {
		logger.Error("inference failed", "kind", inference.KindOf(err).String(), "err", err)
		writeInvokeError(w, err)

		return
	}

	contentType := res.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	logger.Info("audio generated", "content_type", contentType, "bytes", len(res.Audio))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Audio)))
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(res.Audio)
}

// parseTTSRequest accepts {"inputs": "..."} or a text/plain body. A bearer
// token on the inbound request is used as the credential for this call only.
// An api_url override is only honoured together with such a token.
func parseTTSRequest(r *http.Request) (*inference.Request, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &inference.InvalidInputError{Reason: "failed to read body: " + err.Error()}
	}

	req := &inference.Request{
		Model:      r.URL.Query().Get("model"),
		Credential: bearerToken(r),
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "text/plain" {
		req.InputText = string(body)

		return req, nil
	}

	var payload ttsRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &inference.InvalidInputError{Reason: "body must be json: " + err.Error()}
	}

	if payload.Inputs == nil {
		return nil, &inference.InvalidInputError{Reason: `missing "inputs" field`}
	}

	req.InputText = *payload.Inputs

	if payload.Model != "" {
		req.Model = payload.Model
	}

	if strings.TrimSpace(payload.APIURL) != "" && req.Credential == "" {
		return nil, &inference.InvalidInputError{Reason: "api_url requires an Authorization bearer token"}
	}

	req.URL = payload.APIURL

	return req, nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")

	const prefix = "bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}

	return ""
}

func writeInvokeError(w http.ResponseWriter, err error) {
	resp := &errorResponse{
		Error: err.Error(),
		Kind:  inference.KindOf(err).String(),
	}

	var remoteErr *inference.RemoteAPIError

	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &remoteErr):
		resp.Error = remoteErr.Message
		resp.RemoteStatus = remoteErr.StatusCode

		switch remoteErr.StatusCode {
		case http.StatusServiceUnavailable, http.StatusTooManyRequests:
			status = remoteErr.StatusCode
		default:
			status = http.StatusBadGateway
		}

		if remoteErr.EstimatedTime > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(remoteErr.EstimatedTime))))
		}
	case inference.KindOf(err) == inference.KindInvalidInput:
		status = http.StatusBadRequest
	case inference.IsTimeout(err):
		status = http.StatusGatewayTimeout
	case inference.KindOf(err) == inference.KindTransport:
		status = http.StatusBadGateway
	}

	writeJSON(w, status, resp)
}
