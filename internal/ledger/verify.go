package ledger

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Wallet ownership proof. The wallet signs a message binding its address,
// the app domain, a timestamp and a server-issued payload.

// ConnectProof represents the proof sent by the wallet
type ConnectProof struct {
	Timestamp int64  `json:"timestamp"`
	Domain    string `json:"domain"`
	Signature string `json:"signature"`
	Payload   string `json:"payload"`
}

// WalletAccount represents wallet account info
type WalletAccount struct {
	Address   string `json:"address"`
	PublicKey string `json:"publicKey"`
}

// ed25519 signature scheme flag used in address derivation
const ed25519Flag = 0x00

// VerifyProof verifies wallet ownership proof
func VerifyProof(account WalletAccount, proof ConnectProof, allowedDomain string, now time.Time) error {
	// 1. Check timestamp (proof should be recent)
	proofTime := time.Unix(proof.Timestamp, 0)
	if now.Sub(proofTime) > ProofTTL || proofTime.Sub(now) > time.Minute {
		return errors.New("proof expired")
	}

	// 2. Check domain
	if proof.Domain != allowedDomain {
		return fmt.Errorf("domain mismatch: expected %s, got %s", allowedDomain, proof.Domain)
	}

	// 3. Decode public key
	pubKeyBytes, err := hex.DecodeString(strings.TrimPrefix(account.PublicKey, "0x"))
	if err != nil {
		return fmt.Errorf("invalid public key format: %w", err)
	}
	if len(pubKeyBytes) != ed25519.PublicKeySize {
		return errors.New("invalid public key size")
	}

	// 4. Key must own the address
	address, err := NormalizeAddress(account.Address)
	if err != nil {
		return err
	}
	if DeriveAddress(pubKeyBytes) != address {
		return errors.New("public key does not match address")
	}

	// 5. Decode signature
	signatureBytes, err := base64.StdEncoding.DecodeString(proof.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature format: %w", err)
	}

	// 6. Verify signature
	if !ed25519.Verify(pubKeyBytes, BuildProofMessage(address, proof), signatureBytes) {
		return errors.New("invalid signature")
	}
	return nil
}

// BuildProofMessage constructs the message that was signed:
// sha256("stickman-shake" || sha256("wallet-proof-v1/" || address || len(domain) || domain || timestamp || payload))
func BuildProofMessage(address string, proof ConnectProof) []byte {
	var message []byte
	message = append(message, []byte("wallet-proof-v1/")...)
	message = append(message, []byte(address)...)

	// Domain length (4 bytes, little endian)
	domainLen := make([]byte, 4)
	binary.LittleEndian.PutUint32(domainLen, uint32(len(proof.Domain)))
	message = append(message, domainLen...)
	message = append(message, []byte(proof.Domain)...)

	// Timestamp (8 bytes, little endian)
	timestamp := make([]byte, 8)
	binary.LittleEndian.PutUint64(timestamp, uint64(proof.Timestamp))
	message = append(message, timestamp...)

	message = append(message, []byte(proof.Payload)...)

	hash := sha256.Sum256(message)
	final := sha256.Sum256(append([]byte("stickman-shake"), hash[:]...))
	return final[:]
}

// DeriveAddress computes the account address of an ed25519 public key:
// blake2b-256(flag || pubkey), hex with 0x prefix.
func DeriveAddress(pub ed25519.PublicKey) string {
	sum := blake2b.Sum256(append([]byte{ed25519Flag}, pub...))
	return "0x" + hex.EncodeToString(sum[:])
}

// GeneratePayload returns a fresh payload for the wallet to sign
func GeneratePayload() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateAddress checks the 0x + 64 hex address format
func ValidateAddress(address string) bool {
	_, err := NormalizeAddress(address)
	return err == nil
}

// NormalizeAddress lowercases the address and checks its format
func NormalizeAddress(address string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(address))
	if !strings.HasPrefix(a, "0x") || len(a) != 66 {
		return "", errors.New("invalid address format")
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", fmt.Errorf("invalid address format: %w", err)
	}
	return a, nil
}
