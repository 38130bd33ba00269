/*
	HTTP client for the 815 back-office API.  All provisioning workflow
	traffic - catalog reads, subscriber/connection creation and the
	equipment provisioning command - goes through here.  The backend is
	treated as an opaque request/response service.
*/
package backend815

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	provision815 "github.com/luysmarlcm/provision815/structs"
)

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	// Diag receives failures that were degraded to empty catalog results
	// instead of being returned to the caller.  Optional.
	Diag func(op string, err error)
}

func New(config Configuration) *Client {
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if config.TimeoutSeconds == 0 {
		timeout = time.Second * 4
	}
	return &Client{
		BaseURL: config.BaseURL,
		APIKey:  config.APIKey,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) report(op string, err error) {
	log.Errorf("Problem with %v - %v", op, err)
	if c.Diag != nil {
		c.Diag(op, err)
	}
}

func (c *Client) get(path string) (result []byte, err error) {
	req, err := http.NewRequest(http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return
	}
	if c.APIKey != "" {
		req.Header.Set("api-key", c.APIKey)
	}
	var response *http.Response
	response, err = c.HTTP.Do(req)
	if err != nil {
		return
	}
	defer response.Body.Close()
	result, err = io.ReadAll(response.Body)
	return
}

func (c *Client) post(path string, data interface{}) (result []byte, err error) {
	var jsonStr []byte
	jsonStr, err = json.Marshal(data)
	if err != nil {
		return
	}
	log.Debugf("Posting to %v - %v", path, string(jsonStr))
	var req *http.Request
	req, err = http.NewRequest(http.MethodPost, c.BaseURL+path, bytes.NewBuffer(jsonStr))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("api-key", c.APIKey)
	}
	var response *http.Response
	response, err = c.HTTP.Do(req)
	if err != nil {
		return
	}
	defer response.Body.Close()
	result, err = io.ReadAll(response.Body)
	return
}

// errorMessage checks a response body for the backend's error shape.  The
// backend reports business failures with a "message" field regardless of the
// HTTP status code, so this runs on nominally successful responses too.
func errorMessage(body []byte) string {
	var envelope struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return envelope.Message
}

// ConnectionPK extracts the connection identifier from a created-connection
// payload.  The backend answers with either a single object or a one-element
// list, and names the key pk or id depending on the endpoint, so all four
// combinations are accepted.
func ConnectionPK(raw json.RawMessage) (string, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", errors.New("empty connection payload")
	}
	if data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return "", err
		}
		if len(list) == 0 {
			return "", errors.New("empty connection list")
		}
		data = list[0]
	}
	var conn struct {
		PK provision815.PK `json:"pk"`
		ID provision815.PK `json:"id"`
	}
	if err := json.Unmarshal(data, &conn); err != nil {
		return "", err
	}
	if conn.PK != "" {
		return conn.PK.String(), nil
	}
	if conn.ID != "" {
		return conn.ID.String(), nil
	}
	return "", errors.New("connection payload has no pk or id")
}
