package config

// DefaultValues is the default configuration
const DefaultValues = `
[Log]
Environment = "development" # "production" or "development"
Level = "info"
Outputs = ["stderr"]

[Server]
Host = "0.0.0.0"
Port = 8545
ReadTimeout = "60s"
WriteTimeout = "60s"
MaxRequestsPerIPAndSecond = 500
EnableHttpLog = true
BatchRequestsEnabled = false
BatchRequestsLimit = 20

[DB]
User = "wallet_user"
Password = "wallet_password"
Name = "wallet_db"
Host = "wallet-db"
Port = "5432"
EnableLog = false
MaxConns = 200

[Sender]
SubmitTimeout = "10m"

[Monitor]
InitialWaitInterval = "3s"
ReceiptCheckInterval = "3s"
RPCReadTimeout = "10s"
FiatOnRampCheckInterval = "30s"
FiatOnRampStaleAfter = "20m"

[Chains]

[[Chains.Chains]]
ChainID = 1
Name = "mainnet"
RPCURL = "http://localhost:8545"
PrivateRPCURL = ""
RelayKind = "none"
Enabled = true

[Signer]
KeystorePath = "/var/lib/tx-manager/keystore"
Password = ""

[Metrics]
Host = "0.0.0.0"
Port = 9091
Enabled = false
ProfilingHost = "0.0.0.0"
ProfilingPort = 6060
ProfilingEnabled = false
`
