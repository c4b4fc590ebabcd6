// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Values are resolved in order: CLI flag, environment variable, .env file,
default. The .env file never overrides variables already in the
environment.

# CLI Flags and Environment Variables

	-p                 PORT                Server port (default 3318)
	-d                 DATABASE_URL        Database URL (default votechain.db for sqlite)
	-t                 DATABASE_TYPE       sqlite or postgres (default sqlite)
	-api-salt          API_KEY_SALT        API key salt (required)
	-contract          CONTRACT_ADDRESS    VoteChain contract address
	-chains            SUPPORTED_CHAINS    Comma separated chain ids (default 1,11155111)
	-networks          NETWORKS_FILE       YAML network registry
	-indexer           INDEXER_URL         Subgraph endpoint
	-indexer-backend   INDEXER_BACKEND     graphql or sql (default graphql)
	-wallet-rpc        WALLET_RPC_URL      Extension wallet JSON-RPC endpoint
	-native-browser    NATIVE_BROWSER      Host is the wallet-native browser
	-native-wallet     NATIVE_WALLET       Native browser wallet is enabled
	-pairing-relay     PAIRING_RELAY_URL   WebSocket pairing relay
	-pairing-project   PAIRING_PROJECT_ID  Pairing project id
	-pairing-timeout   PAIRING_TIMEOUT     Pairing handshake timeout (default 2m)
	-env                                   .env file (default .env)
	-print-key                             Print the operator key to stderr

# Network Registry

The networks file lists the chains the service accepts:

	networks:
	  - chain_id: 11155111
	    name: Sepolia
	    explorer_url: https://sepolia.etherscan.io

When -chains and SUPPORTED_CHAINS are both empty, the registry's chain ids
become the supported chains.

# Validation

ParseFlags returns an error if API_KEY_SALT is missing, if postgres is
selected without a URL, or if any address, chain id, backend or duration
fails to parse.
*/
package cliparse
