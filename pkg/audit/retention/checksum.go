package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"

	"mercator-hq/custodian/pkg/audit"
)

// checksumTimeLayout renders receipt timestamps at millisecond precision,
// the precision every store keeps.
const checksumTimeLayout = "2006-01-02T15:04:05.000Z07:00"

type checksumPayload struct {
	Count     int    `json:"count"`
	Actor     string `json:"actor"`
	Timestamp string `json:"timestamp"`
}

// Checksum returns the verification checksum of a deletion run: xxhash64,
// hex encoded, over the JSON of {count, actor, timestamp}. It detects
// accidental or casual edits to a receipt; it is not a cryptographic seal.
func Checksum(count int, actor string, at time.Time) string {
	payload, _ := json.Marshal(checksumPayload{
		Count:     count,
		Actor:     actor,
		Timestamp: at.UTC().Format(checksumTimeLayout),
	})
	return fmt.Sprintf("%016x", xxhash.Sum64(payload))
}

// Verify recomputes the checksum of receipt and compares it with the stored
// one. A receipt without a stored checksum does not verify.
func Verify(receipt *audit.DeletionReceipt) bool {
	if receipt == nil || receipt.Checksum == "" {
		return false
	}
	return Checksum(receipt.DeletedCount, receipt.DeletedBy, receipt.DeletedAt) == receipt.Checksum
}

// VerificationResult is the outcome for one receipt.
type VerificationResult struct {
	Receipt *audit.DeletionReceipt
	Valid   bool
}

// Verifier checks stored receipts. A failed check is logged at error level
// and counted; the receipt is never modified.
type Verifier struct {
	store audit.ReceiptStore
	deps
}

// NewVerifier creates a verifier.
func NewVerifier(store audit.ReceiptStore, opts ...Option) *Verifier {
	return &Verifier{
		store: store,
		deps:  newDeps("audit.retention.verify", opts),
	}
}

// VerifyReceipt loads one receipt and verifies it.
func (v *Verifier) VerifyReceipt(ctx context.Context, id string) (*VerificationResult, error) {
	receipt, err := v.store.GetReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	return v.check(ctx, receipt), nil
}

// VerifyAll verifies the newest limit receipts (0 for all).
func (v *Verifier) VerifyAll(ctx context.Context, limit int) ([]*VerificationResult, error) {
	receipts, err := v.store.ListReceipts(ctx, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*VerificationResult, 0, len(receipts))
	for _, r := range receipts {
		results = append(results, v.check(ctx, r))
	}
	return results, nil
}

func (v *Verifier) check(ctx context.Context, receipt *audit.DeletionReceipt) *VerificationResult {
	valid := Verify(receipt)
	v.metrics.RecordChecksumVerification(valid)

	if !valid {
		v.logger.ErrorContext(ctx, "deletion receipt failed checksum verification",
			"receipt_id", receipt.ID,
			"deleted_by", receipt.DeletedBy,
			"deleted_count", receipt.DeletedCount,
			"has_checksum", receipt.Checksum != "",
		)
	}

	return &VerificationResult{Receipt: receipt, Valid: valid}
}
