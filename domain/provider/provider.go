// Package provider defines the wire contract with the random-number provider:
// the request query, the response envelope and its validation.
package provider

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/artpar/qrng/domain/buffer"
	"github.com/artpar/qrng/domain/sizing"
)

// DataType is the provider data type requested for every refill.
const DataType = "hex16"

// StatusSuccess is the status value of an accepted query.
const StatusSuccess = "success"

// Response is the decoded provider envelope.
// Two variants exist in the wild:
//
//	{"status": "success", "payload": {"data": [...]}}
//	{"success": true, "type": "hex16", "length": 3, "size": 2, "data": [...]}
type Response struct {
	Status  string   `json:"status,omitempty"`
	Success *bool    `json:"success,omitempty"`
	Payload *Payload `json:"payload,omitempty"`
	Type    string   `json:"type,omitempty"`
	Length  int      `json:"length,omitempty"`
	Size    int      `json:"size,omitempty"`
	Data    []string `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Payload wraps the data items in the status-style envelope.
type Payload struct {
	Type   string   `json:"type,omitempty"`
	Length int      `json:"length,omitempty"`
	Size   int      `json:"size,omitempty"`
	Data   []string `json:"data"`
}

// NewResponse builds a successful status-style envelope.
func NewResponse(req sizing.Request, items []string) Response {
	return Response{
		Status: StatusSuccess,
		Payload: &Payload{
			Type:   DataType,
			Length: req.BlockCount,
			Size:   req.BlockSize,
			Data:   items,
		},
	}
}

// Succeeded reports the envelope's success indicator.
func (r Response) Succeeded() bool {
	if r.Success != nil {
		return *r.Success
	}
	return r.Status == StatusSuccess
}

// Items returns the data items from whichever envelope variant was used.
func (r Response) Items() []string {
	if r.Payload != nil && len(r.Payload.Data) > 0 {
		return r.Payload.Data
	}
	return r.Data
}

// Query builds the request parameters for req.
func Query(req sizing.Request) url.Values {
	q := url.Values{}
	q.Set("length", strconv.Itoa(req.BlockCount))
	q.Set("type", DataType)
	q.Set("size", strconv.Itoa(req.BlockSize))
	return q
}

// Validate checks a response against the request that produced it and
// returns the data items. Violations are reported as *ProviderError.
func Validate(resp Response, req sizing.Request) ([]string, error) {
	if !resp.Succeeded() {
		reason := "provider rejected the query"
		if resp.Message != "" {
			reason = fmt.Sprintf("%s: %s", reason, resp.Message)
		}
		return nil, &ProviderError{Reason: reason}
	}

	items := resp.Items()
	if len(items) == 0 {
		return nil, &ProviderError{Reason: "empty payload"}
	}

	want := req.BlockSize * 2
	for i, item := range items {
		if item == "" {
			return nil, &ProviderError{Reason: fmt.Sprintf("item %d is empty", i)}
		}
		if !buffer.IsHex(item) {
			return nil, &ProviderError{Reason: fmt.Sprintf("item %d is not hexadecimal", i)}
		}
		if want > 0 && len(item) != want {
			return nil, &ProviderError{
				Reason: fmt.Sprintf("item %d has %d digits, want %d", i, len(item), want),
			}
		}
	}

	return items, nil
}
