package registry

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"testnet-faucet/internal/config"
)

func TestPendingSetAcquireRelease(t *testing.T) {
	set := NewPendingSet()

	if !set.TryAcquire("alice") {
		t.Fatal("first acquire should succeed")
	}
	if set.TryAcquire("alice") {
		t.Fatal("second acquire for the same user should fail")
	}
	if !set.TryAcquire("bob") {
		t.Fatal("acquire for a different user should succeed")
	}

	set.Release("alice")
	if !set.TryAcquire("alice") {
		t.Fatal("acquire after release should succeed")
	}
	if set.Len() != 2 {
		t.Fatalf("expected 2 held locks, got %d", set.Len())
	}
}

func TestPendingSetConcurrent(t *testing.T) {
	set := NewPendingSet()

	const goroutines = 64
	var wg sync.WaitGroup
	acquired := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			acquired <- set.TryAcquire("alice")
		}()
	}
	wg.Wait()
	close(acquired)

	wins := 0
	for ok := range acquired {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one goroutine should win the lock, got %d", wins)
	}
}

func TestEtherToWei(t *testing.T) {
	if got := EtherToWei(1); got.Cmp(big.NewInt(1_000_000_000_000_000_000)) != 0 {
		t.Fatalf("1 ether should be 1e18 wei, got %s", got)
	}
	if got := EtherToWei(0.5); got.Cmp(big.NewInt(500_000_000_000_000_000)) != 0 {
		t.Fatalf("0.5 ether should be 5e17 wei, got %s", got)
	}
	if got := EtherToWei(0); got.Sign() != 0 {
		t.Fatalf("0 ether should be 0 wei, got %s", got)
	}
}

func TestWeiToEther(t *testing.T) {
	ether := WeiToEther(big.NewInt(1_500_000_000_000_000_000))
	if ether.String() != "1.5" {
		t.Fatalf("expected 1.5, got %s", ether)
	}
	if !WeiToEther(nil).IsZero() {
		t.Fatal("nil wei should read as zero")
	}
}

func TestExplorerLink(t *testing.T) {
	hash := common.HexToHash("0xabc")

	withFormat := &Network{ExplorerTxURL: "https://explorer.test/tx/%s"}
	if got := withFormat.ExplorerLink(hash); got != "https://explorer.test/tx/"+hash.Hex() {
		t.Fatalf("unexpected link: %s", got)
	}

	withBase := &Network{ExplorerTxURL: "https://explorer.test/tx/"}
	if got := withBase.ExplorerLink(hash); got != "https://explorer.test/tx/"+hash.Hex() {
		t.Fatalf("unexpected link: %s", got)
	}

	bare := &Network{}
	if got := bare.ExplorerLink(hash); got != hash.Hex() {
		t.Fatalf("unexpected link: %s", got)
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := New()
	reg.Add(NewNetwork("holesky", config.NetworkConfig{TargetAmount: 1}, nil))
	reg.Add(NewNetwork("ephemery", config.NetworkConfig{TargetAmount: 1}, nil))

	if _, ok := reg.Get("holesky"); !ok {
		t.Fatal("holesky should be registered")
	}
	if _, ok := reg.Get("mainnet"); ok {
		t.Fatal("mainnet should not be registered")
	}

	names := reg.Names()
	if len(names) != 2 || names[0] != "ephemery" || names[1] != "holesky" {
		t.Fatalf("unexpected names: %v", names)
	}
}
