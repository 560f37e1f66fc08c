package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stickman_shake/internal/domain"
	"stickman_shake/internal/ledger"
)

var ErrInvalidWallet = errors.New("invalid wallet address")

// WalletService links a ledger wallet to a profile. With an empty proof domain the
// ownership proof is not checked (dev mode).
type WalletService struct {
	sync        *Synchronizer
	audit       *AuditService
	proofDomain string
	now         func() time.Time
}

func NewWalletService(sync *Synchronizer, audit *AuditService, proofDomain string) *WalletService {
	return &WalletService{
		sync:        sync,
		audit:       audit,
		proofDomain: proofDomain,
		now:         time.Now,
	}
}

// Payload issues the nonce the wallet signs in its ownership proof.
func (w *WalletService) Payload() string {
	return ledger.GeneratePayload()
}

// Connect verifies the proof and stores the normalized address.
func (w *WalletService) Connect(ctx context.Context, userID string, account ledger.WalletAccount, proof ledger.ConnectProof) (domain.PlayerProfile, error) {
	addr, err := ledger.NormalizeAddress(account.Address)
	if err != nil {
		return domain.PlayerProfile{}, ErrInvalidWallet
	}
	if w.proofDomain != "" {
		if err := ledger.VerifyProof(account, proof, w.proofDomain, w.now()); err != nil {
			return domain.PlayerProfile{}, fmt.Errorf("%w: proof verification failed: %v", ErrInvalidWallet, err)
		}
	}

	p, err := w.sync.Write(ctx, userID, domain.Mutation{
		Set: map[string]any{domain.FieldWalletAddress: addr},
	})
	ActionsTotal.WithLabelValues(ActionConnectWallet, resultLabel(err)).Inc()
	if err != nil {
		return p, err
	}
	w.audit.Log(ctx, userID, domain.AuditActionWalletConnect, domain.AuditCategoryWallet, map[string]interface{}{
		"address": addr,
	})
	return p, nil
}

// Disconnect clears the linked address. Ledger actions fail with ErrWalletNotConnected afterwards.
func (w *WalletService) Disconnect(ctx context.Context, userID string) (domain.PlayerProfile, error) {
	p, err := w.sync.Write(ctx, userID, domain.Mutation{
		Set: map[string]any{domain.FieldWalletAddress: ""},
	})
	ActionsTotal.WithLabelValues(ActionDisconnectWallet, resultLabel(err)).Inc()
	if err != nil {
		return p, err
	}
	w.audit.Log(ctx, userID, domain.AuditActionWalletDisconnect, domain.AuditCategoryWallet, nil)
	return p, nil
}
