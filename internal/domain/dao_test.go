package domain

import "testing"

func TestHoldingsByToken(t *testing.T) {
	got := HoldingsByToken([]TokenHolding{
		{TokenAddress: "0xa", ChainID: "eip155:8453", Balance: "1"},
		{TokenAddress: "0xb", ChainID: "eip155:42161", Balance: "2"},
	})
	if len(got) != 2 || got["0xa"] != "1" || got["0xb"] != "2" {
		t.Fatalf("unexpected map: %v", got)
	}
}

func TestDelegationsSlugsDeduplicates(t *testing.T) {
	d := DelegationsData{
		ActiveDelegations:    []Delegation{{DaoSlug: "seamless"}, {DaoSlug: "arbitrum"}},
		AvailableDelegations: []Delegation{{DaoSlug: "seamless"}, {DaoSlug: ""}, {DaoSlug: "gloom"}},
	}
	got := d.Slugs()
	want := []string{"seamless", "arbitrum", "gloom"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityUrgent.Rank() < PriorityImportant.Rank() && PriorityImportant.Rank() < PriorityFYI.Rank()) {
		t.Fatal("unexpected priority ordering")
	}
	if Priority("URGENT").Rank() != 0 {
		t.Fatal("rank should ignore case")
	}
	if Priority("other").Rank() <= PriorityFYI.Rank() {
		t.Fatal("unknown priority should sort last")
	}
}
