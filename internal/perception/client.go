package perception

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"go-omnicontrol/internal/desktop"
	"io"
	"net/http"
	"strings"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	processPath   = "/call/process"
	maxStreamLine = 32 << 20
)

type Thresholds struct {
	Box float64
	IOU float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Box: 0.05, IOU: 0.1}
}

// Submitter turns a frame into a parsed element map.
type Submitter interface {
	Submit(ctx context.Context, frame *desktop.Frame, th Thresholds) (*Result, error)
}

// Client talks to an OmniParser deployment through the Gradio call API: a POST that queues the job
// and returns an event id, then a server-sent event stream carrying the result.
type Client struct {
	baseURL         string
	http            *http.Client
	waitForComplete bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithWaitForComplete only accepts the data of the stream's "complete" event. By default the first
// data line ends the stream.
func WithWaitForComplete(wait bool) Option {
	return func(c *Client) {
		c.waitForComplete = wait
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type fileData struct {
	URL      string            `json:"url"`
	Size     int               `json:"size"`
	OrigName string            `json:"orig_name"`
	MIMEType string            `json:"mime_type"`
	Meta     map[string]string `json:"meta"`
}

type processRequest struct {
	Data []any `json:"data"`
}

func (c *Client) Submit(ctx context.Context, frame *desktop.Frame, th Thresholds) (*Result, error) {
	if frame == nil {
		return nil, &Error{Reason: "no frame"}
	}
	eventID, err := c.queue(ctx, frame, th)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("event_id", eventID).Str("frame", frame.Name).Msg("parser job queued")

	payload, err := c.await(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return decodeResult(payload)
}

func (c *Client) queue(ctx context.Context, frame *desktop.Frame, th Thresholds) (string, error) {
	img := frame.PNG()
	body, err := json.Marshal(processRequest{Data: []any{
		fileData{
			URL:      "data:" + desktop.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img),
			Size:     len(img),
			OrigName: frame.Name,
			MIMEType: desktop.MIMEType,
			Meta:     map[string]string{"_type": "gradio.FileData"},
		},
		th.Box,
		th.IOU,
	}})
	if err != nil {
		return "", &Error{Reason: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+processPath, bytes.NewReader(body))
	if err != nil {
		return "", &Error{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Reason: "submit", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Reason: "read submit response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Reason: "submit rejected", StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(data)))}
	}
	eventID := gjson.GetBytes(data, "event_id").String()
	if eventID == "" {
		return "", &Error{Reason: "no event_id in submit response"}
	}
	return eventID, nil
}

func (c *Client) await(ctx context.Context, eventID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+processPath+"/"+eventID, nil)
	if err != nil {
		return "", &Error{Reason: "build stream request", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &Error{Reason: "open stream", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Reason: "stream rejected", StatusCode: resp.StatusCode}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)

	event := ""
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			event = ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch {
			case event == "heartbeat":
				continue
			case event == "error":
				return "", &Error{Reason: "parser reported an error", Err: errors.New(payload)}
			case c.waitForComplete && event != "complete":
				log.Debug().Str("event", event).Msg("skipping intermediate parser event")
				continue
			}
			return payload, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", &Error{Reason: "read stream", Err: err}
	}
	return "", &Error{Reason: "stream ended without data"}
}

// decodeResult reads the [annotated image, text, coordinates] triple the process endpoint emits.
func decodeResult(payload string) (*Result, error) {
	if !gjson.Valid(payload) {
		return nil, &Error{Reason: "result is not valid JSON"}
	}
	parsed := gjson.Parse(payload)
	if !parsed.IsArray() {
		return nil, &Error{Reason: fmt.Sprintf("result is %s, want array", parsed.Type)}
	}
	items := parsed.Array()
	if len(items) < 3 {
		return nil, &Error{Reason: fmt.Sprintf("result has %d items, want 3", len(items))}
	}

	literal := items[2].Raw
	if items[2].Type == gjson.String {
		literal = items[2].Str
	}
	elements, err := ParseCoordinates(literal)
	if err != nil {
		return nil, err
	}

	res := &Result{
		AnnotatedImage: imageReference(items[0]),
		Text:           items[1].String(),
		Elements:       elements,
	}
	if err := res.checkDescribed(); err != nil {
		return nil, &Error{Reason: "inconsistent result", Err: err}
	}
	return res, nil
}

func imageReference(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	if url := v.Get("url").String(); url != "" {
		return url
	}
	return v.Get("path").String()
}
