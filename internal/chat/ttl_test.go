package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tabula-labs/tabula/internal/wallet"
	"github.com/tabula-labs/tabula/internal/wallet/wallettest"
)

func TestSweepDropsIdleSessions(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	idle := r.Get("user-1", "tab-1")
	fresh := r.Get("user-1", "tab-2")
	busy := r.Get("user-2", "tab-1")

	signer := wallettest.New(common.HexToAddress("0x00000000000000000000000000000000000000a1"))
	idle.SetSigner(signer)
	busy.SetSigner(signer)

	idle.mu.Lock()
	idle.lastActive = time.Now().Add(-2 * time.Hour)
	idle.mu.Unlock()
	if !busy.begin() {
		t.Fatal("begin failed on idle session")
	}
	busy.mu.Lock()
	busy.lastActive = time.Now().Add(-2 * time.Hour)
	busy.mu.Unlock()
	defer busy.end()

	var cleaned []*Session
	var released []wallet.Signer
	n := sweepOnce(r, time.Hour, func(s *Session, w wallet.Signer) {
		cleaned = append(cleaned, s)
		released = append(released, w)
	})

	if n != 1 || len(cleaned) != 1 || cleaned[0] != idle {
		t.Fatalf("expected only the idle session to be dropped, got %d", n)
	}
	if released[0] != signer || idle.Signer() != nil {
		t.Fatal("idle session signer was not detached")
	}
	if _, ok := r.Lookup("user-1", "tab-1"); ok {
		t.Fatal("idle session still registered")
	}
	if _, ok := r.Lookup("user-1", "tab-2"); !ok || fresh.Busy() {
		t.Fatal("fresh session should remain")
	}
	if _, ok := r.Lookup("user-2", "tab-1"); !ok || busy.Signer() != signer {
		t.Fatal("busy session should remain with its signer")
	}
}

func TestBusyNeverRejectsSubmit(t *testing.T) {
	s := NewSession("user-1", "tab-1", nil, nil, nil)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				_ = s.Busy()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if _, err := s.Submit(context.Background(), "hello"); err != nil {
			close(stop)
			wg.Wait()
			t.Fatalf("submit %d failed: %v", i, err)
		}
	}
	close(stop)
	wg.Wait()
}

func TestSwapSignerRejectedWhileInFlight(t *testing.T) {
	s := NewSession("user-1", "tab-1", nil, nil, nil)
	first := wallettest.New(common.HexToAddress("0x00000000000000000000000000000000000000a1"))
	s.SetSigner(first)

	if !s.begin() {
		t.Fatal("begin failed")
	}
	if _, err := s.SwapSigner(nil); err != ErrBusy {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if s.Signer() != first {
		t.Fatal("signer changed during command")
	}
	s.end()

	prev, err := s.SwapSigner(nil)
	if err != nil || prev != first || s.Signer() != nil {
		t.Fatalf("swap after command: prev=%v err=%v", prev, err)
	}
}

func TestGetTouchesSession(t *testing.T) {
	r := NewRegistry(nil, nil, nil)
	s := r.Get("user-1", "tab-1")
	s.mu.Lock()
	s.lastActive = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	r.Get("user-1", "tab-1")
	if time.Since(s.LastActive()) > time.Minute {
		t.Fatal("Get did not refresh LastActive")
	}
}
