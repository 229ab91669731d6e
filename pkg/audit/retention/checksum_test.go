package retention

import (
	"context"
	"testing"
	"time"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/storage"
)

func TestChecksum(t *testing.T) {
	at := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	sum := Checksum(10, "alice", at)
	if len(sum) != 16 {
		t.Errorf("Expected 16 hex characters, got %q", sum)
	}
	if Checksum(10, "alice", at) != sum {
		t.Error("Expected deterministic checksum")
	}
	if Checksum(10, "alice", at.In(time.FixedZone("CET", 3600))) != sum {
		t.Error("Expected checksum independent of time zone")
	}

	for name, other := range map[string]string{
		"count": Checksum(11, "alice", at),
		"actor": Checksum(10, "bob", at),
		"time":  Checksum(10, "alice", at.Add(time.Millisecond)),
	} {
		if other == sum {
			t.Errorf("Expected checksum to change with %s", name)
		}
	}
}

func TestVerify_Tampered(t *testing.T) {
	at := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	receipt := &audit.DeletionReceipt{
		ID:           "r1",
		DeletedBy:    "alice",
		DeletedCount: 10,
		DeletedAt:    at,
		Checksum:     Checksum(10, "alice", at),
	}
	if !Verify(receipt) {
		t.Fatal("Expected untouched receipt to verify")
	}

	tampered := *receipt
	tampered.DeletedCount = 9
	if Verify(&tampered) {
		t.Error("Expected tampered count to fail verification")
	}

	missing := *receipt
	missing.Checksum = ""
	if Verify(&missing) {
		t.Error("Expected receipt without checksum to fail verification")
	}
	if Verify(nil) {
		t.Error("Expected nil receipt to fail verification")
	}
}

func TestVerifier(t *testing.T) {
	store := storage.NewMemoryStorage()
	ctx := context.Background()
	at := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

	good := &audit.DeletionReceipt{ID: "good", DeletedBy: "alice", DeletedCount: 3, DeletedAt: at, Checksum: Checksum(3, "alice", at)}
	bad := &audit.DeletionReceipt{ID: "bad", DeletedBy: "alice", DeletedCount: 4, DeletedAt: at, Checksum: Checksum(3, "alice", at)}
	for _, r := range []*audit.DeletionReceipt{good, bad} {
		if err := store.CreateReceipt(ctx, r); err != nil {
			t.Fatalf("CreateReceipt() failed: %v", err)
		}
	}

	v := NewVerifier(store, testOptions(testNow)...)

	result, err := v.VerifyReceipt(ctx, "good")
	if err != nil || !result.Valid {
		t.Errorf("Expected good receipt valid, got %+v, %v", result, err)
	}
	result, err = v.VerifyReceipt(ctx, "bad")
	if err != nil || result.Valid {
		t.Errorf("Expected bad receipt invalid, got %+v, %v", result, err)
	}

	all, err := v.VerifyAll(ctx, 0)
	if err != nil {
		t.Fatalf("VerifyAll() failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 results, got %d", len(all))
	}

	// Verification never rewrites the stored receipt.
	stored, _ := store.GetReceipt(ctx, "bad")
	if stored.DeletedCount != 4 || stored.Checksum != bad.Checksum {
		t.Errorf("Expected stored receipt unchanged, got %+v", stored)
	}
}
