package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    string                 `db:"user_id" json:"user_id"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	IP        string                 `db:"ip" json:"ip,omitempty"`
	UserAgent string                 `db:"user_agent" json:"user_agent,omitempty"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth   = "auth"
	AuditCategoryShop   = "shop"
	AuditCategoryLedger = "ledger"
	AuditCategoryWallet = "wallet"
)

// Audit actions
const (
	// Auth actions
	AuditActionSignUp = "sign_up"
	AuditActionLogin  = "login"
	AuditActionLogout = "logout"

	// Shop actions
	AuditActionBuyUpgrade    = "buy_upgrade"
	AuditActionBuyCosmetic   = "buy_cosmetic"
	AuditActionEquipCosmetic = "equip_cosmetic"
	AuditActionEquipArtifact = "equip_artifact"

	// Ledger-backed actions
	AuditActionMintArtifact = "mint_artifact"
	AuditActionTranscend    = "transcend"
	AuditActionLedgerFailed = "ledger_failed"

	// Wallet actions
	AuditActionWalletConnect    = "wallet_connect"
	AuditActionWalletDisconnect = "wallet_disconnect"
)
