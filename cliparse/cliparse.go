package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danielhkuo/votechain/contract"
	"github.com/danielhkuo/votechain/indexer"
)

// Indexer backends
const (
	BackendGraphQL = "graphql"
	BackendSQL     = "sql"
)

// DefaultChains are Ethereum mainnet and Sepolia.
var DefaultChains = []uint64{1, 11155111}

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	APIKeySalt   string

	ContractAddress common.Address
	SupportedChains []uint64
	Networks        []Network

	IndexerURL     string
	IndexerBackend string

	WalletRPCURL     string
	NativeBrowser    bool
	NativeWallet     bool
	PairingRelayURL  string
	PairingProjectID string
	PairingTimeout   time.Duration

	// PrintOperatorKey writes the operator key to stderr at startup.
	PrintOperatorKey bool
}

// Network is one entry of the networks file.
type Network struct {
	ChainID     uint64 `yaml:"chain_id" json:"chain_id"`
	Name        string `yaml:"name" json:"name"`
	RPCURL      string `yaml:"rpc_url,omitempty" json:"rpc_url,omitempty"`
	ExplorerURL string `yaml:"explorer_url,omitempty" json:"explorer_url,omitempty"`
}

type networksFile struct {
	Networks []Network `yaml:"networks"`
}

// LoadNetworks reads a YAML network registry.
func LoadNetworks(path string) ([]Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load networks %q: %w", path, err)
	}

	var f networksFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse networks %q: %w", path, err)
	}
	seen := make(map[uint64]bool, len(f.Networks))
	for _, n := range f.Networks {
		if n.ChainID == 0 {
			return nil, fmt.Errorf("parse networks %q: entry %q has no chain_id", path, n.Name)
		}
		if seen[n.ChainID] {
			return nil, fmt.Errorf("parse networks %q: chain %d listed twice", path, n.ChainID)
		}
		seen[n.ChainID] = true
	}
	return f.Networks, nil
}

// ParseChains parses a comma-separated list of chain ids.
func ParseChains(s string) ([]uint64, error) {
	var out []uint64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("invalid chain id %q", part)
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, errors.New("no chain ids given")
	}
	return out, nil
}

// ParseFlags reads flags, then environment variables (including a .env
// file), then defaults.
func ParseFlags(args []string) (Config, error) {
	var (
		cfg          Config
		contractAddr string
		chains       string
		networksPath string
		envFile      string
		pairTimeout  string
	)

	flags := flag.NewFlagSet("votechain", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	flags.IntVar(&cfg.Port, "p", 0, "Server port")
	flags.StringVar(&cfg.DatabaseURL, "d", "", "Database URL or sqlite file")
	flags.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	flags.StringVar(&envFile, "env", ".env", "Optional .env file")

	// Chain
	flags.StringVar(&contractAddr, "contract", "", "VoteChain contract address")
	flags.StringVar(&chains, "chains", "", "Supported chain ids, comma separated")
	flags.StringVar(&networksPath, "networks", "", "YAML network registry")

	// Indexer
	flags.StringVar(&cfg.IndexerURL, "indexer", "", "Subgraph GraphQL endpoint")
	flags.StringVar(&cfg.IndexerBackend, "indexer-backend", "", "Indexer backend (graphql or sql)")

	// Wallet
	flags.StringVar(&cfg.WalletRPCURL, "wallet-rpc", "", "Extension wallet JSON-RPC endpoint")
	flags.BoolVar(&cfg.NativeBrowser, "native-browser", false, "Host is the wallet-native browser")
	flags.BoolVar(&cfg.NativeWallet, "native-wallet", false, "Native browser wallet is enabled")
	flags.StringVar(&cfg.PairingRelayURL, "pairing-relay", "", "WebSocket pairing relay")
	flags.StringVar(&cfg.PairingProjectID, "pairing-project", "", "Pairing project id (prefer env)")
	flags.StringVar(&pairTimeout, "pairing-timeout", "", "Pairing handshake timeout")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.APIKeySalt, "api-salt", "", "API key salt (prefer env)")
	flags.BoolVar(&cfg.PrintOperatorKey, "print-key", false, "Print the operator key to stderr")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// .env never overrides variables that are already set
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		if cfg.DatabaseType != "sqlite" {
			return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
		}
		cfg.DatabaseURL = "votechain.db"
	}

	if contractAddr == "" {
		contractAddr = os.Getenv("CONTRACT_ADDRESS")
	}
	if contractAddr == "" {
		cfg.ContractAddress = contract.DefaultAddress
	} else {
		if !common.IsHexAddress(contractAddr) {
			return Config{}, fmt.Errorf("invalid contract address %q", contractAddr)
		}
		cfg.ContractAddress = common.HexToAddress(contractAddr)
	}

	if networksPath == "" {
		networksPath = os.Getenv("NETWORKS_FILE")
	}
	if networksPath != "" {
		networks, err := LoadNetworks(networksPath)
		if err != nil {
			return Config{}, err
		}
		cfg.Networks = networks
	}

	if chains == "" {
		chains = os.Getenv("SUPPORTED_CHAINS")
	}
	switch {
	case chains != "":
		ids, err := ParseChains(chains)
		if err != nil {
			return Config{}, err
		}
		cfg.SupportedChains = ids
	case len(cfg.Networks) > 0:
		for _, n := range cfg.Networks {
			cfg.SupportedChains = append(cfg.SupportedChains, n.ChainID)
		}
	default:
		cfg.SupportedChains = append([]uint64(nil), DefaultChains...)
	}

	if cfg.IndexerURL == "" {
		cfg.IndexerURL = os.Getenv("INDEXER_URL")
	}
	if cfg.IndexerURL == "" {
		cfg.IndexerURL = indexer.DefaultURL
	}
	if cfg.IndexerBackend == "" {
		cfg.IndexerBackend = os.Getenv("INDEXER_BACKEND")
	}
	switch cfg.IndexerBackend {
	case "":
		cfg.IndexerBackend = BackendGraphQL
	case BackendGraphQL, BackendSQL:
	default:
		return Config{}, fmt.Errorf("unknown indexer backend %q (use graphql or sql)", cfg.IndexerBackend)
	}

	if cfg.WalletRPCURL == "" {
		cfg.WalletRPCURL = os.Getenv("WALLET_RPC_URL")
	}
	if !set["native-browser"] {
		cfg.NativeBrowser = envBool("NATIVE_BROWSER")
	}
	if !set["native-wallet"] {
		cfg.NativeWallet = envBool("NATIVE_WALLET")
	}
	if cfg.PairingRelayURL == "" {
		cfg.PairingRelayURL = os.Getenv("PAIRING_RELAY_URL")
	}
	if cfg.PairingProjectID == "" {
		cfg.PairingProjectID = os.Getenv("PAIRING_PROJECT_ID")
	}
	if pairTimeout == "" {
		pairTimeout = os.Getenv("PAIRING_TIMEOUT")
	}
	cfg.PairingTimeout = 2 * time.Minute
	if pairTimeout != "" {
		d, err := time.ParseDuration(pairTimeout)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid pairing timeout %q", pairTimeout)
		}
		cfg.PairingTimeout = d
	}

	// Secrets - MUST be provided
	if cfg.APIKeySalt == "" {
		cfg.APIKeySalt = os.Getenv("API_KEY_SALT")
	}
	if cfg.APIKeySalt == "" {
		return Config{}, errors.New("API_KEY_SALT required")
	}

	return cfg, nil
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// NetworkName returns the registry name of a chain, or a generic label.
func (c Config) NetworkName(chainID uint64) string {
	for _, n := range c.Networks {
		if n.ChainID == chainID {
			return n.Name
		}
	}
	switch chainID {
	case 1:
		return "Ethereum Mainnet"
	case 11155111:
		return "Sepolia"
	}
	return "Chain " + strconv.FormatUint(chainID, 10)
}
