package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGatewayTimeout = 30 * time.Second

// EMPClient talks to the EMP gateway's JSON reporting API. Authentication
// is a shared API key/secret pair sent as headers on every call.
type EMPClient struct {
	client *resty.Client
	base   string
	apiKey string
	secret string
}

func NewEMPClient(baseURL, apiKey, secret string, timeout time.Duration) (*EMPClient, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("invalid gateway base url: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("gateway credentials are required")
	}

	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &EMPClient{
		client: client,
		base:   strings.TrimRight(trimmed, "/"),
		apiKey: apiKey,
		secret: secret,
	}, nil
}

type submitPayload struct {
	TransactionID     string `json:"transaction_id"`
	AmountMinor       int64  `json:"amount"`
	BankAccountNumber string `json:"bank_account_number"`
	CustomerName      string `json:"customer_name"`
	CustomerEmail     string `json:"customer_email"`
}

type submitResponse struct {
	UniqueID string `json:"unique_id"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

func (c *EMPClient) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	var out submitResponse
	resp, err := c.request(ctx).
		SetBody(submitPayload{
			TransactionID:     req.TransactionID,
			AmountMinor:       req.AmountMinor,
			BankAccountNumber: req.BankAccountNumber,
			CustomerName:      req.CustomerName,
			CustomerEmail:     req.CustomerEmail,
		}).
		SetResult(&out).
		Post(c.base + "/payments")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &SubmitResult{
		UniqueID: out.UniqueID,
		Status:   out.Status,
		Message:  out.Message,
	}, nil
}

type listResponse struct {
	Transactions []RemoteTx `json:"transactions"`
}

// ListTransactions fetches the authoritative transaction list. A zero
// from/to asks for full available history.
func (c *EMPClient) ListTransactions(ctx context.Context, from, to time.Time) ([]RemoteTx, error) {
	req := c.request(ctx)
	if !from.IsZero() {
		req.SetQueryParam("start_date", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		req.SetQueryParam("end_date", to.UTC().Format(time.RFC3339))
	}

	var out listResponse
	resp, err := req.SetResult(&out).Get(c.base + "/transactions")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}

	return out.Transactions, nil
}

type voidPayload struct {
	ReferenceID string `json:"transaction_id"`
}

type voidResponse struct {
	UniqueID string `json:"unique_id"`
	Status   string `json:"status"`
}

func (c *EMPClient) Void(ctx context.Context, uniqueID, referenceID string) (*VoidResult, error) {
	if strings.TrimSpace(uniqueID) == "" {
		return nil, fmt.Errorf("unique id is required")
	}

	var out voidResponse
	resp, err := c.request(ctx).
		SetBody(voidPayload{ReferenceID: referenceID}).
		SetResult(&out).
		Post(c.base + "/transactions/" + url.PathEscape(uniqueID) + "/void")
	if err := c.checkResponse(resp, err); err != nil {
		return nil, err
	}

	return &VoidResult{UniqueID: out.UniqueID, Status: out.Status}, nil
}

func (c *EMPClient) request(ctx context.Context) *resty.Request {
	return c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-API-Key", c.apiKey).
		SetHeader("X-API-Secret", c.secret)
}

func (c *EMPClient) checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return &Error{
			Message:   "gateway request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if resp == nil {
		return &Error{Message: "gateway returned empty response", Transient: true}
	}

	statusCode := resp.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	return &Error{
		StatusCode: statusCode,
		Message:    gatewayErrorMessage(statusCode, strings.TrimSpace(resp.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func gatewayErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("gateway returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
