package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// PostCommentPath is the endpoint that comments are submitted to.
const PostCommentPath = "/api/post-comment"

// StatusError is returned when the server rejects a submission.
type StatusError struct {
	Code    int
	Message string
}

func (err *StatusError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("server returned %d %s", err.Code, http.StatusText(err.Code))
	}
	return fmt.Sprintf("server returned %d: %s", err.Code, err.Message)
}

// Client posts comments to a fundboard server.
type Client struct {
	// Base is the server's base URL, such as "http://localhost:8080".
	Base string
	// Header is added to every request. It usually carries the session.
	Header http.Header
	// HTTP is the client used to send requests; nil means
	// http.DefaultClient.
	HTTP *http.Client
}

var _ Poster = (*Client)(nil)

// NewClient creates a client for the server at base.
func NewClient(base string) *Client {
	return &Client{
		Base:   strings.TrimSuffix(base, "/"),
		Header: http.Header{},
	}
}

// PostComment implements Poster.
func (c *Client) PostComment(ctx context.Context, req Request) (Response, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to marshal request")
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+PostCommentPath, bytes.NewReader(b))
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to create request")
	}

	for k, v := range c.Header {
		r.Header[k] = v
	}
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Accept", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(r)
	if err != nil {
		return Response{}, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct{ Error string }
		json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body)

		return Response{}, &StatusError{Code: resp.StatusCode, Message: body.Error}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, errors.Wrap(err, "failed to decode response")
	}

	return out, nil
}
