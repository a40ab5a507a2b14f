// Package appsheet is a client for the AppSheet table API.
//
// Every operation is a POST to /apps/{appId}/tables/{table}/Action carrying
// an action name, request properties and the affected rows. Find returns the
// matching rows; Add and Edit echo the written rows; Delete returns nothing
// useful.
package appsheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/JonMunkholm/nvl/internal/config"
)

// Action is an AppSheet table operation.
type Action string

const (
	ActionFind   Action = "Find"
	ActionAdd    Action = "Add"
	ActionEdit   Action = "Edit"
	ActionDelete Action = "Delete"
)

// ErrUnknownColumn is wrapped when strict decoding meets a column the record type does not declare.
var ErrUnknownColumn = errors.New("unknown column in api response")

// APIError is returned when AppSheet answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("appsheet api error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("appsheet api error: status=%d, message=%s", e.StatusCode, e.Message)
}

// Request describes one table operation.
type Request struct {
	Table    string
	Action   Action
	Selector string // Find only, e.g. Filter(Kiện, [Loại giao dịch] = "Nhập")
	Rows     any    // slice of row structs or maps
}

// Observer is notified after every call; used for metrics.
type Observer func(table string, action Action, elapsed time.Duration, err error)

// Client is a resty-backed AppSheet API client.
type Client struct {
	httpClient *resty.Client
	appID      string
	locale     string
	strict     bool
	observer   Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithObserver registers a call observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// NewClient builds an AppSheet client from configuration.
func NewClient(cfg config.AppSheetConfig, opts ...Option) *Client {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("ApplicationAccessKey", cfg.AccessKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.Timeout)

	c := &Client{
		httpClient: restyClient,
		appID:      cfg.AppID,
		locale:     cfg.Locale,
		strict:     cfg.StrictDecode,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type properties struct {
	Locale   string `json:"Locale,omitempty"`
	Selector string `json:"Selector,omitempty"`
}

type payload struct {
	Action     Action     `json:"Action"`
	Properties properties `json:"Properties"`
	Rows       any        `json:"Rows"`
}

// Do executes req and decodes the returned rows into out (a pointer to a slice).
// A nil out discards the response body.
func (c *Client) Do(ctx context.Context, req Request, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer(req.Table, req.Action, time.Since(start), err)
		}
	}()

	rows := req.Rows
	if rows == nil {
		rows = []any{}
	}

	body := payload{
		Action: req.Action,
		Properties: properties{
			Locale:   c.locale,
			Selector: req.Selector,
		},
		Rows: rows,
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"appId": c.appID,
			"table": req.Table,
		}).
		SetBody(body).
		Post("/apps/{appId}/tables/{table}/Action")
	if err != nil {
		return fmt.Errorf("appsheet %s %s: %w", req.Action, req.Table, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("appsheet %s %s: %w", req.Action, req.Table, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    errorMessage(resp.Body()),
		})
	}

	if out == nil {
		return nil
	}
	if err := c.decodeRows(resp.Body(), out); err != nil {
		return fmt.Errorf("appsheet %s %s: decode rows: %w", req.Action, req.Table, err)
	}
	return nil
}

// decodeRows accepts either a bare JSON array or an object with a Rows field.
// An empty body decodes to no rows.
func (c *Client) decodeRows(data []byte, out any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	if data[0] == '{' {
		var wrapper struct {
			Rows json.RawMessage `json:"Rows"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return err
		}
		data = bytes.TrimSpace(wrapper.Rows)
		if len(data) == 0 || bytes.Equal(data, []byte("null")) {
			return nil
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if c.strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(out); err != nil {
		if c.strict && strings.HasPrefix(err.Error(), "json: unknown field") {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, strings.TrimPrefix(err.Error(), "json: unknown field "))
		}
		return err
	}
	return nil
}

// errorMessage extracts a readable message from an error body.
func errorMessage(body []byte) string {
	var parsed struct {
		Message string `json:"Message"`
		Detail  string `json:"detail"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.Detail != "":
			return parsed.Detail
		case parsed.Title != "":
			return parsed.Title
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
