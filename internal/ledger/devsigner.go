package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"stickman_shake/internal/logger"

	"github.com/google/uuid"
)

// DevSigner settles every call locally after Delay. Used when no relayer is configured.
type DevSigner struct {
	Delay time.Duration

	mu    sync.Mutex
	fail  error
	calls []Call
}

func NewDevSigner(delay time.Duration) *DevSigner {
	return &DevSigner{Delay: delay}
}

// FailWith makes subsequent calls resolve with err (nil restores success).
func (d *DevSigner) FailWith(err error) {
	d.mu.Lock()
	d.fail = err
	d.mu.Unlock()
}

// Calls returns the calls submitted so far.
func (d *DevSigner) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

func (d *DevSigner) IsConnected(wallet string) bool {
	return ValidateAddress(wallet)
}

func (d *DevSigner) Submit(ctx context.Context, sender string, call Call) <-chan Result {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	fail := d.fail
	d.mu.Unlock()

	if !d.IsConnected(sender) {
		return resolved(Result{Err: fmt.Errorf("%w: invalid sender", ErrRejected)})
	}

	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		if d.Delay > 0 {
			select {
			case <-ctx.Done():
				ch <- Result{Err: fmt.Errorf("%w: %v", ErrRejected, ctx.Err())}
				return
			case <-time.After(d.Delay):
			}
		}
		if fail != nil {
			ch <- Result{Err: fail}
			return
		}
		digest := strings.ReplaceAll(uuid.NewString(), "-", "")
		logger.Debug("dev signer settled call", "target", call.Target, "digest", digest)
		ch <- Result{Receipt: &Receipt{Digest: digest, Status: "success"}}
	}()
	return ch
}
