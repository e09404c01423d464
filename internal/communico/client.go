// Package communico is the HTTP client for the Communico library-services
// API.  It exposes raw calls used by the passthrough proxy routes and typed
// calls used by the availability fetcher and the booking flow.
package communico

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/config"
	"github.com/faylib/equipment-calendar/internal/model"
)

// ErrUpstreamStatus is wrapped when the upstream answers with a non-2xx status.
var ErrUpstreamStatus = errors.New("upstream responded with non-success status")

const (
	availabilityPath = "/v2/{tenant}/assetbooking/group/{group}"
	bookingPath      = "/v2/{tenant}/assetbooking/booking"
	patronPath       = "/v1/{tenant}/patron"
)

// Response is an upstream reply kept byte for byte so proxies can mirror it.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client talks to one Communico tenant.
type Client struct {
	http   *resty.Client
	tenant string
	logger *zap.Logger
}

// NewClient configures a resty client with the browser user-agent and JSON
// accept header the upstream requires.  Retries are disabled: every
// upstream failure is terminal for the operation that triggered it.
func NewClient(cfg config.CommunicoConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	hc := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", ua).
		SetHeader("Accept", "application/json")

	return &Client{http: hc, tenant: cfg.Tenant, logger: logger}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetPathParam("tenant", c.tenant)
}

func toResponse(resp *resty.Response) *Response {
	return &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}
}

// GroupAvailability fetches the raw availability of one asset group for the
// 7-day window starting at date.
func (c *Client) GroupAvailability(ctx context.Context, groupID, date string) (*Response, error) {
	resp, err := c.request(ctx).
		SetPathParam("group", groupID).
		SetQueryParams(map[string]string{
			"date":       date,
			"assetType":  "INPERSON",
			"multiplier": "1",
		}).
		Get(availabilityPath)
	if err != nil {
		c.logger.Error("communico availability call failed",
			zap.String("group_id", groupID),
			zap.String("date", date),
			zap.Error(err),
		)
		return nil, fmt.Errorf("fetch availability for group %s: %w", groupID, err)
	}
	return toResponse(resp), nil
}

// SubmitBooking posts a booking body as-is.  body may be raw JSON bytes or
// any value resty can marshal.
func (c *Client) SubmitBooking(ctx context.Context, body any) (*Response, error) {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(bookingPath)
	if err != nil {
		c.logger.Error("communico booking call failed", zap.Error(err))
		return nil, fmt.Errorf("submit booking: %w", err)
	}
	return toResponse(resp), nil
}

// PatronSignIn checks a library card barcode and PIN.  The credentials
// travel in the query string, so transport errors are returned with the
// query removed; neither the PIN nor the barcode reaches a log line or the
// caller's error.
func (c *Client) PatronSignIn(ctx context.Context, barcode, pin string) (*Response, error) {
	resp, err := c.request(ctx).
		SetQueryParams(map[string]string{
			"u":    barcode,
			"p":    pin,
			"type": "schedule",
		}).
		Get(patronPath)
	if err != nil {
		err = redactQuery(err, barcode, pin)
		c.logger.Error("communico patron sign-in failed", zap.Error(err))
		return nil, fmt.Errorf("patron sign-in: %w", err)
	}
	return toResponse(resp), nil
}

// redactQuery strips the query string from the URL carried by a transport
// error.  Other errors get the secrets masked in their text, which drops
// the wrapped chain.
func redactQuery(err error, secrets ...string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		target := ue.URL
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			u.User = nil
			target = u.String()
		} else if i := strings.IndexByte(target, '?'); i >= 0 {
			target = target[:i]
		}
		return &url.Error{Op: ue.Op, URL: target, Err: ue.Err}
	}
	msg := err.Error()
	masked := msg
	for _, s := range secrets {
		if s == "" {
			continue
		}
		masked = strings.ReplaceAll(masked, s, "***")
		masked = strings.ReplaceAll(masked, url.QueryEscape(s), "***")
	}
	if masked == msg {
		return err
	}
	return errors.New(masked)
}

// FetchWeek returns the decoded availability of one group for one week.
// Non-2xx statuses and undecodable bodies are errors.
func (c *Client) FetchWeek(ctx context.Context, groupID, weekStart string) (*model.WeekResponse, error) {
	resp, err := c.GroupAvailability(ctx, groupID, weekStart)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}
	var week model.WeekResponse
	if err := json.Unmarshal(resp.Body, &week); err != nil {
		return nil, fmt.Errorf("decode availability for group %s: %w", groupID, err)
	}
	return &week, nil
}

// SignIn decodes the patron answer.  The HTTP status is returned next to the
// body because a rejected sign-in still carries a useful error payload.
func (c *Client) SignIn(ctx context.Context, barcode, pin string) (*model.PatronResponse, int, error) {
	resp, err := c.PatronSignIn(ctx, barcode, pin)
	if err != nil {
		return nil, 0, err
	}
	var out model.PatronResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode patron response: %w", err)
	}
	return &out, resp.StatusCode, nil
}

// Book submits one booking and decodes the answer, returning the status
// alongside it for the same reason as SignIn.
func (c *Client) Book(ctx context.Context, req model.BookingRequest) (*model.BookingResponse, int, error) {
	resp, err := c.SubmitBooking(ctx, req)
	if err != nil {
		return nil, 0, err
	}
	var out model.BookingResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode booking response: %w", err)
	}
	return &out, resp.StatusCode, nil
}
