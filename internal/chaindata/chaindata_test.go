package chaindata

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/tabula-labs/tabula/internal/domain"
	"github.com/tabula-labs/tabula/internal/wallet"
)

var holder = common.HexToAddress("0x00000000000000000000000000000000000000a1")

// fakeCaller answers balanceOf from a token -> balance table.
type fakeCaller struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
	fail     map[common.Address]bool
	owners   []common.Address
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[*msg.To] {
		return nil, errors.New("execution reverted")
	}
	args, err := wallet.ERC20.Methods["balanceOf"].Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}
	f.owners = append(f.owners, args[0].(common.Address))
	balance := f.balances[*msg.To]
	if balance == nil {
		balance = big.NewInt(0)
	}
	return wallet.ERC20.Methods["balanceOf"].Outputs.Pack(balance)
}

func TestBalanceReaderSkipsZeroAndFailedTokens(t *testing.T) {
	tokens := DefaultTokens()
	seam := tokens[ChainBase][0].Address
	icp := tokens[ChainBase][1].Address
	gloom := tokens[ChainBase][2].Address
	arb := tokens[ChainArbitrum][0].Address

	base := &fakeCaller{
		balances: map[common.Address]*big.Int{seam: big.NewInt(500), icp: big.NewInt(0), gloom: big.NewInt(7)},
		fail:     map[common.Address]bool{gloom: true},
	}
	arbitrum := &fakeCaller{balances: map[common.Address]*big.Int{arb: big.NewInt(9)}}

	r := NewBalanceReader(map[string]ethereum.ContractCaller{
		ChainBase:     base,
		ChainArbitrum: arbitrum,
	}, tokens, nil)

	got, err := r.Holdings(context.Background(), holder)
	if err != nil {
		t.Fatalf("Holdings failed: %v", err)
	}

	want := []domain.TokenHolding{
		{TokenAddress: arb.Hex(), ChainID: ChainArbitrum, Balance: "9"},
		{TokenAddress: seam.Hex(), ChainID: ChainBase, Balance: "500"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("holdings mismatch (-want +got):\n%s", diff)
	}
	for _, owner := range base.owners {
		if owner != holder {
			t.Fatalf("balanceOf called for %s, want %s", owner.Hex(), holder.Hex())
		}
	}
}

func TestBalanceReaderSkipsChainsWithoutRPC(t *testing.T) {
	r := NewBalanceReader(map[string]ethereum.ContractCaller{}, nil, nil)
	got, err := r.Holdings(context.Background(), holder)
	if err != nil {
		t.Fatalf("Holdings failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no holdings, got %v", got)
	}
}

func TestPortfolioClientNormalizes(t *testing.T) {
	var gotPath, gotChains string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotChains = r.URL.Query().Get("chains")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tokens":[
			{"token_address":"0x1c7a460413dd4e964f96d8dfc56e7223ce88cd85","chain_id":8453,"balance":"1000"},
			{"token_address":"0x912CE59144191C1204E64559FE8253a0e49E6548","chain_id":"eip155:42161","balance":"0"},
			{"token_address":"0x912CE59144191C1204E64559FE8253a0e49E6548","chain_id":"1","balance":"5"},
			{"token_address":"not-an-address","chain_id":"8453","balance":"5"},
			{"token_address":"0xbb5D04c40Fa063FAF213c4E0B8086655164269Ef","chain_id":"8453","balance":"12"}
		]}`))
	}))
	defer srv.Close()

	c := NewPortfolioClient(srv.URL+"/", []string{ChainBase, ChainArbitrum}, srv.Client(), nil)
	got, err := c.Holdings(context.Background(), holder)
	if err != nil {
		t.Fatalf("Holdings failed: %v", err)
	}

	if gotPath != "/portfolio/"+holder.Hex() {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotChains != ChainBase+","+ChainArbitrum {
		t.Fatalf("unexpected chains query %q", gotChains)
	}
	want := []domain.TokenHolding{
		{TokenAddress: "0x1C7a460413dD4e964f96D8dFC56E7223cE88CD85", ChainID: ChainBase, Balance: "1000"},
		{TokenAddress: "0xbb5D04c40Fa063FAF213c4E0B8086655164269Ef", ChainID: ChainBase, Balance: "12"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("holdings mismatch (-want +got):\n%s", diff)
	}
}

func TestPortfolioClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewPortfolioClient(srv.URL, nil, srv.Client(), nil)
	if _, err := c.Holdings(context.Background(), holder); err == nil {
		t.Fatal("expected error for 429")
	}
}

func TestNormalizeChainID(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"8453": ChainBase, "eip155:42161": ChainArbitrum, " 1 ": "eip155:1"} {
		got, ok := NormalizeChainID(in)
		if !ok || got != want {
			t.Errorf("NormalizeChainID(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	for _, in := range []string{"", "0", "base", "eip155:", "cosmos:hub"} {
		if _, ok := NormalizeChainID(in); ok {
			t.Errorf("NormalizeChainID(%q) should fail", in)
		}
	}
}
