package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotatord/rotatord/internal/faults"
	"github.com/rotatord/rotatord/internal/model"
)

func init() {
	Register(model.ProviderCloudflare, func(account model.Account, token string) (Client, error) {
		return NewCloudflare(token), nil
	})
}

// RequestTimeout is the per-request timeout spec §5 mandates for every
// provider call.
const RequestTimeout = 30 * time.Second

// Cloudflare implements Client against the Cloudflare v4 HTTP API,
// authenticating with a bearer token. It never retries and never logs;
// every failure is returned as a classified *faults.Error.
type Cloudflare struct {
	apiToken string
	baseURL  string
	http     *http.Client
}

// NewCloudflare constructs a Cloudflare-backed Client for an already
// resolved API token.
func NewCloudflare(apiToken string) *Cloudflare {
	return &Cloudflare{
		apiToken: apiToken,
		baseURL:  "https://api.cloudflare.com/client/v4",
		http:     &http.Client{Timeout: RequestTimeout},
	}
}

type cfError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type cfEnvelope[T any] struct {
	Success    bool      `json:"success"`
	Result     T         `json:"result"`
	ResultInfo *cfPaging `json:"result_info,omitempty"`
	Errors     []cfError `json:"errors"`
}

type cfPaging struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
}

type cfZone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type cfRecord struct {
	ID      string `json:"id"`
	ZoneID  string `json:"zone_id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Proxied bool   `json:"proxied"`
	TTL     int64  `json:"ttl"`
}

func (c *Cloudflare) do(ctx context.Context, op, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return faults.New(faults.KindRecordScope, op, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return faults.New(faults.KindTransient, op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return faults.New(faults.KindTransient, op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return faults.New(faults.KindTransient, op, fmt.Errorf("read response: %w", err))
	}

	if kind, ok := classifyStatus(resp.StatusCode); ok {
		return faults.New(kind, op, fmt.Errorf("http %d: %s", resp.StatusCode, string(raw)))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return faults.New(faults.KindTransient, op, fmt.Errorf("decode response: %w", err))
		}
	}
	return nil
}

// classifyStatus maps Cloudflare's status conventions onto the four fault
// kinds per spec §6.2: 401/403 auth, 404 record-scope not-found, other 4xx
// malformed (also record-scope -- the job is quarantined either way),
// 5xx/network transient.
func classifyStatus(code int) (faults.Kind, bool) {
	switch {
	case code == http.StatusOK:
		return 0, false
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return faults.KindAuth, true
	case code == http.StatusNotFound:
		return faults.KindRecordScope, true
	case code >= 400 && code < 500:
		return faults.KindRecordScope, true
	case code >= 500:
		return faults.KindTransient, true
	default:
		return 0, false
	}
}

func (c *Cloudflare) ListZones(ctx context.Context) ([]model.Zone, error) {
	var env cfEnvelope[[]cfZone]
	if err := c.do(ctx, "list_zones", http.MethodGet, "/zones", nil, &env); err != nil {
		return nil, err
	}
	if err := envelopeErr(env.Success, env.Errors, "list_zones"); err != nil {
		return nil, err
	}

	zones := make([]model.Zone, 0, len(env.Result))
	for _, z := range env.Result {
		zones = append(zones, model.Zone{ID: z.ID, Name: z.Name})
	}
	return zones, nil
}

func (c *Cloudflare) ListRecords(ctx context.Context, zoneID string, typeFilter model.RecordType) ([]model.Record, error) {
	var out []model.Record
	page := 1
	for {
		path := fmt.Sprintf("/zones/%s/dns_records?page=%d&per_page=100", zoneID, page)
		if typeFilter != "" {
			path += "&type=" + string(typeFilter)
		}

		var env cfEnvelope[[]cfRecord]
		if err := c.do(ctx, "list_records", http.MethodGet, path, nil, &env); err != nil {
			return nil, err
		}
		if err := envelopeErr(env.Success, env.Errors, "list_records"); err != nil {
			return nil, err
		}

		for _, r := range env.Result {
			out = append(out, recordFromCF(zoneID, r))
		}

		if env.ResultInfo == nil || env.ResultInfo.Page >= env.ResultInfo.TotalPages {
			break
		}
		page++
	}
	return out, nil
}

func (c *Cloudflare) GetRecord(ctx context.Context, zoneID, recordID string) (model.Record, error) {
	var env cfEnvelope[cfRecord]
	path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID)
	if err := c.do(ctx, "get_record", http.MethodGet, path, nil, &env); err != nil {
		return model.Record{}, asRecordFault(err, zoneID, recordID)
	}
	if err := envelopeErr(env.Success, env.Errors, "get_record"); err != nil {
		return model.Record{}, asRecordFault(err, zoneID, recordID)
	}
	return recordFromCF(zoneID, env.Result), nil
}

func (c *Cloudflare) UpdateRecord(ctx context.Context, zoneID, recordID, newValue string) (model.Record, error) {
	current, err := c.GetRecord(ctx, zoneID, recordID)
	if err != nil {
		return model.Record{}, err
	}

	body := cfRecord{
		Name:    current.Name,
		Type:    string(current.Type),
		Content: newValue,
		Proxied: current.Proxied,
		TTL:     current.TTL,
	}

	var env cfEnvelope[cfRecord]
	path := fmt.Sprintf("/zones/%s/dns_records/%s", zoneID, recordID)
	if err := c.do(ctx, "update_record", http.MethodPut, path, body, &env); err != nil {
		return model.Record{}, asRecordFault(err, zoneID, recordID)
	}
	if err := envelopeErr(env.Success, env.Errors, "update_record"); err != nil {
		return model.Record{}, asRecordFault(err, zoneID, recordID)
	}
	return recordFromCF(zoneID, env.Result), nil
}

func (c *Cloudflare) VerifyToken(ctx context.Context) (bool, []string, error) {
	var env cfEnvelope[struct {
		Status string `json:"status"`
	}]
	if err := c.do(ctx, "verify_token", http.MethodGet, "/user/tokens/verify", nil, &env); err != nil {
		var fe *faults.Error
		if errors.As(err, &fe) && fe.Kind == faults.KindAuth {
			return false, nil, nil
		}
		return false, nil, err
	}
	if !env.Success || env.Result.Status != "active" {
		return false, nil, nil
	}
	return true, nil, nil
}

func recordFromCF(zoneID string, r cfRecord) model.Record {
	return model.Record{
		ID:      r.ID,
		ZoneID:  zoneID,
		Name:    r.Name,
		Type:    model.RecordType(r.Type),
		Value:   r.Content,
		Proxied: r.Proxied,
		TTL:     r.TTL,
	}
}

func envelopeErr(success bool, errs []cfError, op string) error {
	if success {
		return nil
	}
	if len(errs) > 0 {
		return faults.New(faults.KindRecordScope, op, fmt.Errorf("cloudflare error %d: %s", errs[0].Code, errs[0].Message))
	}
	return faults.New(faults.KindRecordScope, op, fmt.Errorf("cloudflare request failed"))
}

func asRecordFault(err error, zoneID, recordID string) error {
	var fe *faults.Error
	if errors.As(err, &fe) {
		return fe.WithRecord(zoneID, recordID)
	}
	return err
}
