package splitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/split-session-service/interfaces"
)

// DefaultRemoteProtocol is the protocol tag assumed for remote splitting
// services that do not report one.
const DefaultRemoteProtocol = "fxc1"

// SplitRequest is the body sent to a remote splitting service.
type SplitRequest struct {
	Secret string `json:"secret"`
	Shares int    `json:"shares"`
	Quorum int    `json:"quorum"`
}

// SplitResponse is the body returned by a remote splitting service.
type SplitResponse struct {
	Protocol string             `json:"protocol"`
	Shares   []interfaces.Share `json:"shares"`
}

// RemoteSplitter delegates splitting to an external HTTP service.
//
// The service is called as POST {baseURL}/split with a SplitRequest and must
// answer 200 with a SplitResponse holding exactly the requested number of shares.
type RemoteSplitter struct {
	baseURL  string
	protocol string
	client   *http.Client
	log      *slog.Logger
}

// NewRemoteSplitter creates a splitter calling the service at baseURL.
// An empty protocol selects DefaultRemoteProtocol.
func NewRemoteSplitter(baseURL, protocol string, timeout time.Duration, log *slog.Logger) *RemoteSplitter {
	if protocol == "" {
		protocol = DefaultRemoteProtocol
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RemoteSplitter{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		protocol: protocol,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

// Protocol returns the configured protocol tag.
func (s *RemoteSplitter) Protocol() string {
	return s.protocol
}

// Split asks the remote service for the shares of secret.
func (s *RemoteSplitter) Split(ctx context.Context, secret []byte, shares, quorum int) ([]interfaces.Share, error) {
	start := time.Now()

	reqJSON, err := json.Marshal(SplitRequest{
		Secret: string(secret),
		Shares: shares,
		Quorum: quorum,
	})
	if err != nil {
		return nil, fmt.Errorf("could not marshal split request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/split", bytes.NewReader(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrSplitterUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read splitter response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("splitter returned %d: %s", resp.StatusCode, string(body))
	}

	var splitResp SplitResponse
	if err := json.Unmarshal(body, &splitResp); err != nil {
		return nil, fmt.Errorf("could not parse splitter response: %w", err)
	}

	if splitResp.Protocol != "" && splitResp.Protocol != s.protocol {
		return nil, fmt.Errorf("splitter answered with protocol %q, expected %q", splitResp.Protocol, s.protocol)
	}
	if len(splitResp.Shares) != shares {
		return nil, fmt.Errorf("splitter returned %d shares, expected %d", len(splitResp.Shares), shares)
	}

	s.log.Debug("Secret split by remote service",
		slog.String("protocol", s.protocol),
		slog.Int("shares", shares),
		slog.Int("quorum", quorum),
		slog.Duration("duration", time.Since(start)))

	return splitResp.Shares, nil
}
