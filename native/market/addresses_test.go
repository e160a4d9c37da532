package market

import (
	"testing"
)

func TestShardAddressPartitionsByOrderNonce(t *testing.T) {
	sameNonceA := mustUUID("11111111-0000-0000-0000-000000000001")
	sameNonceB := mustUUID("12222222-0000-0000-0000-000000000001")
	otherNonce := mustUUID("21111111-0000-0000-0000-000000000001")

	a, err := ShardAddress(ItemSubTypeWeapon, sameNonceA)
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	b, err := ShardAddress(ItemSubTypeWeapon, sameNonceB)
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	c, err := ShardAddress(ItemSubTypeWeapon, otherNonce)
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	if a != b {
		t.Fatal("orders sharing a first hex character must share a bucket")
	}
	if a == c {
		t.Fatal("orders with different first hex characters must not share a bucket")
	}

	viaNonce, err := ShardNonceAddress(ItemSubTypeWeapon, "1")
	if err != nil {
		t.Fatalf("shard nonce: %v", err)
	}
	if viaNonce != a {
		t.Fatal("explicit nonce derivation disagrees with order derivation")
	}
}

func TestShardAddressCostumesShareOneBucket(t *testing.T) {
	a, err := ShardAddress(ItemSubTypeFullCostume, mustUUID("11111111-0000-0000-0000-000000000001"))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	b, err := ShardAddress(ItemSubTypeFullCostume, mustUUID("f1111111-0000-0000-0000-000000000001"))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	if a != b {
		t.Fatal("costume listings must share a single bucket per subtype")
	}
	weapon, err := ShardAddress(ItemSubTypeWeapon, mustUUID("11111111-0000-0000-0000-000000000001"))
	if err != nil {
		t.Fatalf("shard: %v", err)
	}
	if a == weapon {
		t.Fatal("different subtypes must not collide")
	}
}

func TestShardAddressRejectsUnknownSubType(t *testing.T) {
	if _, err := ShardAddress(ItemSubType(0), mustUUID("11111111-0000-0000-0000-000000000001")); err == nil {
		t.Fatal("unknown subtype must fail derivation")
	}
}

func TestDerivedAddressesAreDisjoint(t *testing.T) {
	orderID := mustUUID("11111111-0000-0000-0000-000000000001")
	derived := []string{
		ShopAddress.Hex(),
		TreasuryAddress.Hex(),
		OrderAddress(orderID).Hex(),
		ItemAddress(orderID).Hex(),
		ReceiptAddress(orderID).Hex(),
	}
	seen := make(map[string]bool, len(derived))
	for _, hex := range derived {
		if seen[hex] {
			t.Fatalf("address collision at %s", hex)
		}
		seen[hex] = true
	}
}
