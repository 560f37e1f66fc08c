package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stickman_shake/internal/logger"

	"github.com/google/uuid"
)

// Relayer submits calls through a signing relayer HTTP API and polls until they settle.
type Relayer struct {
	baseURL      string
	apiKey       string
	network      Network
	httpClient   *http.Client
	pollInterval time.Duration
	timeout      time.Duration
}

// NewRelayer creates a relayer client
func NewRelayer(baseURL, apiKey string, network Network) *Relayer {
	return &Relayer{
		baseURL:      baseURL,
		apiKey:       apiKey,
		network:      network,
		pollInterval: PollInterval,
		timeout:      ConfirmTimeout,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Transaction is the relayer's view of a submitted call
type Transaction struct {
	Digest string `json:"digest"`
	Status string `json:"status"` // pending | success | failure | rejected
	Error  string `json:"error,omitempty"`
}

type submitRequest struct {
	Network string `json:"network"`
	Sender  string `json:"sender"`
	Call    Call   `json:"call"`
}

func (r *Relayer) IsConnected(wallet string) bool {
	return ValidateAddress(wallet)
}

func (r *Relayer) Submit(ctx context.Context, sender string, call Call) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		receipt, err := r.execute(ctx, sender, call)
		if err != nil {
			logger.Warn("ledger call failed", "target", call.Target, "sender", sender, "error", err)
			ch <- Result{Err: err}
			return
		}
		ch <- Result{Receipt: receipt}
	}()
	return ch
}

func (r *Relayer) execute(ctx context.Context, sender string, call Call) (*Receipt, error) {
	if !r.IsConnected(sender) {
		return nil, fmt.Errorf("%w: invalid sender", ErrRejected)
	}

	tx, err := r.send(ctx, sender, call)
	if err != nil {
		return nil, err
	}
	if tx.Status == "pending" || tx.Status == "" {
		tx, err = r.WaitForTransaction(ctx, tx.Digest, r.timeout)
		if err != nil {
			return nil, err
		}
	}
	return settle(tx)
}

func settle(tx *Transaction) (*Receipt, error) {
	switch tx.Status {
	case "success":
		return &Receipt{Digest: tx.Digest, Status: tx.Status}, nil
	case "rejected":
		return nil, fmt.Errorf("%w: %s", ErrRejected, tx.Error)
	default:
		return nil, fmt.Errorf("%w: %s %s", ErrTransactionFailed, tx.Digest, tx.Error)
	}
}

func (r *Relayer) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (r *Relayer) send(ctx context.Context, sender string, call Call) (*Transaction, error) {
	b, err := json.Marshal(submitRequest{Network: string(r.network), Sender: sender, Call: call})
	if err != nil {
		return nil, err
	}
	req, err := r.newRequest(ctx, http.MethodPost, r.baseURL+"/transactions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	// повтор запроса с тем же ключом не создаёт вторую транзакцию
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("relayer error: %s - %s", resp.Status, string(body))
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransaction retrieves a transaction by digest. Returns nil if the relayer doesn't know it yet.
func (r *Relayer) GetTransaction(ctx context.Context, digest string) (*Transaction, error) {
	req, err := r.newRequest(ctx, http.MethodGet, r.baseURL+"/transactions/"+digest, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("relayer error: %s - %s", resp.Status, string(body))
	}

	var tx Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// WaitForTransaction polls until the transaction leaves the pending state
func (r *Relayer) WaitForTransaction(ctx context.Context, digest string, timeout time.Duration) (*Transaction, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		tx, err := r.GetTransaction(ctx, digest)
		if err != nil {
			return nil, err
		}
		if tx != nil && tx.Status != "pending" && tx.Status != "" {
			return tx, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrRejected, ctx.Err())
		case <-time.After(r.pollInterval):
		}
	}

	return nil, ErrTimeout
}
