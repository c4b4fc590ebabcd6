// cliparse/cliparse_test.go
package cliparse

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/indexer"
)

func TestParseFlags_EnvVars(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("API_KEY_SALT", "test-salt")
	t.Setenv("SUPPORTED_CHAINS", "11155111")
	t.Setenv("NATIVE_BROWSER", "true")

	cfg, err := ParseFlags([]string{})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "postgres" {
		t.Errorf("expected postgres, got %s", cfg.DatabaseType)
	}
	if !slices.Equal(cfg.SupportedChains, []uint64{11155111}) {
		t.Errorf("expected [11155111], got %v", cfg.SupportedChains)
	}
	if !cfg.NativeBrowser {
		t.Error("expected NATIVE_BROWSER to be applied")
	}
}

func TestParseFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("NATIVE_WALLET", "true")

	cfg, err := ParseFlags([]string{"-p", "8080", "-d", "file:test.db", "-api-salt", "s1", "-native-wallet=false"})
	if err != nil {
		t.Fatal(err)
	}

	// CLI should override env
	if cfg.Port != 8080 {
		t.Errorf("CLI should override env: expected 8080, got %d", cfg.Port)
	}
	if cfg.NativeWallet {
		t.Error("CLI should override env: expected native wallet off")
	}
}

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := ParseFlags([]string{"-api-salt", "s1"})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Port != 3318 {
		t.Errorf("expected default port 3318, got %d", cfg.Port)
	}
	if cfg.DatabaseType != "sqlite" || cfg.DatabaseURL != "votechain.db" {
		t.Errorf("expected sqlite votechain.db, got %s %s", cfg.DatabaseType, cfg.DatabaseURL)
	}
	if cfg.ContractAddress != contract.DefaultAddress {
		t.Errorf("expected default contract, got %s", cfg.ContractAddress.Hex())
	}
	if !slices.Equal(cfg.SupportedChains, DefaultChains) {
		t.Errorf("expected default chains, got %v", cfg.SupportedChains)
	}
	if cfg.IndexerURL != indexer.DefaultURL || cfg.IndexerBackend != BackendGraphQL {
		t.Errorf("unexpected indexer %s %s", cfg.IndexerBackend, cfg.IndexerURL)
	}
	if cfg.PairingTimeout != 2*time.Minute {
		t.Errorf("expected 2m pairing timeout, got %s", cfg.PairingTimeout)
	}
	if cfg.PrintOperatorKey {
		t.Error("operator key should not be printed by default")
	}

	cfg, err = ParseFlags([]string{"-api-salt", "s1", "-print-key"})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.PrintOperatorKey {
		t.Error("expected -print-key to be applied")
	}
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing salt", []string{}},
		{"postgres without url", []string{"-api-salt", "s", "-t", "postgres"}},
		{"bad contract", []string{"-api-salt", "s", "-contract", "0x123"}},
		{"bad chains", []string{"-api-salt", "s", "-chains", "1,abc"}},
		{"zero chain", []string{"-api-salt", "s", "-chains", "0"}},
		{"bad backend", []string{"-api-salt", "s", "-indexer-backend", "rest"}},
		{"bad timeout", []string{"-api-salt", "s", "-pairing-timeout", "soon"}},
		{"missing networks file", []string{"-api-salt", "s", "-networks", "/nonexistent/networks.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("API_KEY_SALT", "")
			if _, err := ParseFlags(tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseFlags_NetworksFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	data := `networks:
  - chain_id: 1
    name: Ethereum Mainnet
    explorer_url: https://etherscan.io
  - chain_id: 17000
    name: Holesky
    rpc_url: https://holesky.example
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := ParseFlags([]string{"-api-salt", "s", "-networks", path})
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(cfg.SupportedChains, []uint64{1, 17000}) {
		t.Errorf("expected chains from registry, got %v", cfg.SupportedChains)
	}
	if got := cfg.NetworkName(17000); got != "Holesky" {
		t.Errorf("expected Holesky, got %s", got)
	}
	if got := cfg.NetworkName(42); got != "Chain 42" {
		t.Errorf("expected generic name, got %s", got)
	}
}

func TestLoadNetworks_Duplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "networks.yaml")
	data := "networks:\n  - chain_id: 1\n    name: a\n  - chain_id: 1\n    name: b\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadNetworks(path); err == nil {
		t.Error("expected duplicate chain error")
	}
}

func TestParseFlags_DotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	data := "PAIRING_PROJECT_ID=from-dotenv\nCONTRACT_ADDRESS=" + common.HexToAddress("0x01").Hex() + "\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("PAIRING_PROJECT_ID")
		os.Unsetenv("CONTRACT_ADDRESS")
	})

	cfg, err := ParseFlags([]string{"-api-salt", "s", "-env", path})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.PairingProjectID != "from-dotenv" {
		t.Errorf("expected project id from .env, got %q", cfg.PairingProjectID)
	}
	if cfg.ContractAddress != common.HexToAddress("0x01") {
		t.Errorf("expected contract from .env, got %s", cfg.ContractAddress.Hex())
	}
}
