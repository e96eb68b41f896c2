package cryptopay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/subgate/subgate/internal/config"
	"go.uber.org/zap"
)

const tokenHeader = "Crypto-Pay-API-Token"

type httpClient struct {
	baseURL string
	token   string
	log     *zap.Logger
	client  *http.Client
}

// NewClient builds the HTTP client with a bounded timeout so processor
// unavailability cannot hang event handling.
func NewClient(cfg config.Config, log *zap.Logger) Client {
	timeout := cfg.Processor.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(cfg.Processor.BaseURL, "/"),
		token:   cfg.Processor.Token,
		log:     log.Named("cryptopay.client"),
		client:  &http.Client{Timeout: timeout},
	}
}

// flexID tolerates the processor sending invoice ids as either a JSON
// number or a string.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type envelope struct {
	Ok     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
}

type createInvoicePayload struct {
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

type createInvoiceResult struct {
	InvoiceID flexID `json:"invoice_id"`
	PayURL    string `json:"pay_url"`
}

type getInvoicesResult struct {
	Items []struct {
		InvoiceID flexID `json:"invoice_id"`
		Status    string `json:"status"`
	} `json:"items"`
}

func (c *httpClient) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*CreatedInvoice, error) {
	payload := createInvoicePayload{
		Asset:       req.Asset,
		Amount:      req.Amount.String(),
		Description: req.Description,
		ExpiresIn:   req.ExpiresIn,
	}

	var result createInvoiceResult
	if err := c.do(ctx, http.MethodPost, "/createInvoice", payload, &result); err != nil {
		return nil, err
	}
	if result.InvoiceID == "" {
		return nil, fmt.Errorf("%w: createInvoice returned no invoice_id", ErrProcessor)
	}
	return &CreatedInvoice{
		InvoiceID: string(result.InvoiceID),
		PayURL:    result.PayURL,
	}, nil
}

func (c *httpClient) InvoiceStatus(ctx context.Context, invoiceID string) (Status, error) {
	path := "/getInvoices?invoice_ids=" + url.QueryEscape(invoiceID)

	var result getInvoicesResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return StatusUnknown, err
	}
	for _, item := range result.Items {
		if string(item.InvoiceID) != invoiceID {
			continue
		}
		switch strings.ToLower(item.Status) {
		case "paid":
			return StatusPaid, nil
		case "active", "pending":
			return StatusActive, nil
		case "expired":
			return StatusExpired, nil
		default:
			return StatusUnknown, nil
		}
	}
	return StatusUnknown, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, payload any, out any) error {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrProcessor, err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrProcessor, err)
	}
	req.Header.Set(tokenHeader, c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("processor request failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrProcessor, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.log.Warn("processor returned non-2xx", zap.String("path", path), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: http status %d", ErrProcessor, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProcessor, err)
	}
	if !env.Ok {
		return fmt.Errorf("%w: processor reported not ok", ErrProcessor)
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("%w: decode result: %v", ErrProcessor, err)
		}
	}
	return nil
}
