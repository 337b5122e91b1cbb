package chains

// ChainConfig describes one supported chain and its RPC endpoints
type ChainConfig struct {
	// ChainID is the EVM chain id
	ChainID uint64 `mapstructure:"ChainID"`

	// Name is the human readable chain name used in logs
	Name string `mapstructure:"Name"`

	// RPCURL is the public JSON-RPC endpoint
	RPCURL string `mapstructure:"RPCURL"`

	// PrivateRPCURL is the private relay endpoint, empty when the chain has none
	PrivateRPCURL string `mapstructure:"PrivateRPCURL"`

	// RelayKind is the private relay visibility model: "none", "aggregated" or "local_broadcast"
	RelayKind string `mapstructure:"RelayKind"`

	// Enabled toggles the chain without removing its configuration
	Enabled bool `mapstructure:"Enabled"`
}

// Config for the chain registry
type Config struct {
	// Chains is the set of supported chains
	Chains []ChainConfig `mapstructure:"Chains"`
}
