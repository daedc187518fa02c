package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tabula-labs/tabula/internal/chat"
	"github.com/tabula-labs/tabula/internal/command"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSendUnknownPrintsHelp(t *testing.T) {
	out, err := run(t, "send", "what", "can", "you", "do")
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if strings.TrimSpace(out) != strings.TrimSpace(command.HelpText) {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSendDelegateWithoutWalletFails(t *testing.T) {
	out, err := run(t, "send", "--format", "json", "delegate", "3", "SEAM", "to", "Seamless", "Protocol")
	if err == nil || !strings.Contains(err.Error(), "precondition") {
		t.Fatalf("expected precondition failure, got %v", err)
	}

	var msgs []chat.Message
	if jerr := json.Unmarshal([]byte(out), &msgs); jerr != nil {
		t.Fatalf("output is not JSON: %v\n%s", jerr, out)
	}
	if len(msgs) != 2 || msgs[1].Content != "Please connect your wallet first." {
		t.Fatalf("unexpected messages %+v", msgs)
	}
}

func TestHoldingsRejectsBadAddress(t *testing.T) {
	if _, err := run(t, "holdings", "not-an-address"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDelegationsPrintsGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"active_delegations":[{"dao_name":"Seamless","dao_slug":"seamless","token_amount":"10"}],"potential_daos":[]}`))
	}))
	defer srv.Close()
	t.Setenv("BACKEND_URL", srv.URL)

	out, err := run(t, "delegations", "0x00000000000000000000000000000000000000a1")
	if err != nil {
		t.Fatalf("delegations failed: %v", err)
	}
	for _, want := range []string{"Active (1)", "seamless", "Available (0)", "Recommended (0)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestUpdatesNeedsSlugsOrAddress(t *testing.T) {
	if _, err := run(t, "updates"); err == nil {
		t.Fatal("expected error without slugs")
	}
}
