package ledger

import "time"

const (
	// DefaultPackageID is the deployed Move package holding the artifact and leaderboard modules.
	DefaultPackageID = "0x681e28a7ffa06ad63176ff877ebbf157507ac9fcb84b0ce853b486c7635d251c"

	// DefaultLeaderboardID is the shared leaderboard object scores are submitted to.
	DefaultLeaderboardID = "0x2f5ad0cd5d3552ff16d9c1688f09ecc6fc0a6c900dc431fa36ec59e4092d92b6"

	// GasBudget for every call, in MIST
	GasBudget = 200000000

	// EffectScale converts a fractional artifact effect to the on-chain u64 (0.5 -> 50)
	EffectScale = 100

	// ArtifactDescription is the description minted with every artifact
	ArtifactDescription = "Legendary Item"

	// UnknownDisplayName is submitted when the player has no email
	UnknownDisplayName = "Unknown"

	// ProofTTL is how long a wallet ownership proof is valid
	ProofTTL = 15 * time.Minute

	// PollInterval is how often the relayer is asked for transaction status
	PollInterval = 2 * time.Second

	// ConfirmTimeout bounds how long a submitted call may stay pending
	ConfirmTimeout = 90 * time.Second
)

// Network represents the chain network
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkDevnet  Network = "devnet"
)
