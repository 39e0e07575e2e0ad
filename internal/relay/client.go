// Package relay implements the HTTP client for the message relay. It moves
// opaque, padded envelopes; nothing in it can read them.
package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"qshield/internal/domain"
)

// HTTPClient talks JSON to a relay at Base.
type HTTPClient struct {
	Base string
	HTTP *http.Client
}

var _ domain.RelayClient = (*HTTPClient)(nil)

// NewHTTP builds a client for the relay at base, using httpClient when
// provided and http.DefaultClient otherwise.
func NewHTTP(base string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{Base: base, HTTP: httpClient}
}

type sendRequest struct {
	To   domain.Peer `json:"to"`
	From domain.Peer `json:"from"`
	Msg  []byte      `json:"msg"`
}

type pollRequest struct {
	ID  domain.Peer `json:"id"`
	Max int         `json:"max"`
}

type pollResponse struct {
	OK   bool     `json:"ok"`
	Msgs [][]byte `json:"msgs"`
}

type ackRequest struct {
	ID    domain.Peer `json:"id"`
	Count int         `json:"count"`
}

type genericOK struct {
	OK bool `json:"ok"`
}

// Send delivers an envelope for the peer's mailbox.
func (c *HTTPClient) Send(to, from domain.Peer, envelope []byte) error {
	var resp genericOK
	if err := c.post("/send", sendRequest{To: to, From: from, Msg: envelope}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("relay: send refused")
	}
	return nil
}

// Poll fetches up to max pending envelopes for id without consuming them.
func (c *HTTPClient) Poll(id domain.Peer, max int) ([][]byte, error) {
	var resp pollResponse
	if err := c.post("/poll", pollRequest{ID: id, Max: max}, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("relay: poll refused")
	}
	return resp.Msgs, nil
}

// Ack consumes the first count envelopes from id's mailbox.
func (c *HTTPClient) Ack(id domain.Peer, count int) error {
	var resp genericOK
	if err := c.post("/consume", ackRequest{ID: id, Count: count}, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("relay: consume refused")
	}
	return nil
}

func (c *HTTPClient) post(path string, req, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("relay: encode %s request: %w", path, err)
	}
	resp, err := c.HTTP.Post(c.Base+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("relay: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay: %s failed: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("relay: decode %s response: %w", path, err)
	}
	return nil
}
