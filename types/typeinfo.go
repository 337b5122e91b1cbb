package types

// TypeInfo classifies what a transaction does from the user's point of view. It is a closed
// set: only the variants defined in this file implement it, so switches over the concrete
// types can be treated as exhaustive.
type TypeInfo interface {
	// Kind returns the stable string tag used to persist and transport the variant
	Kind() string
	isTypeInfo()
}

// The stable tags for each TypeInfo variant
const (
	TypeKindSwap               = "swap"
	TypeKindBridge             = "bridge"
	TypeKindApprove            = "approve"
	TypeKindSend               = "send"
	TypeKindReceive            = "receive"
	TypeKindWrap               = "wrap"
	TypeKindLiquidityIncrease  = "liquidity_increase"
	TypeKindLiquidityDecrease  = "liquidity_decrease"
	TypeKindCollectFees        = "collect_fees"
	TypeKindFiatPurchase       = "fiat_purchase"
	TypeKindFiatSale           = "fiat_sale"
	TypeKindWalletConnect      = "wallet_connect"
)

// SwapTypeInfo describes a token swap
type SwapTypeInfo struct {
	InputCurrencyID  string `json:"inputCurrencyId"`
	OutputCurrencyID string `json:"outputCurrencyId"`
	InputAmountRaw   string `json:"inputAmountRaw"`
	OutputAmountRaw  string `json:"outputAmountRaw"`
	SlippageBps      uint32 `json:"slippageBps,omitempty"`
}

func (SwapTypeInfo) Kind() string { return TypeKindSwap }
func (SwapTypeInfo) isTypeInfo()  {}

// BridgeTypeInfo describes a cross-chain transfer
type BridgeTypeInfo struct {
	SourceCurrencyID string `json:"sourceCurrencyId"`
	TargetCurrencyID string `json:"targetCurrencyId"`
	SourceChainID    uint64 `json:"sourceChainId"`
	TargetChainID    uint64 `json:"targetChainId"`
	AmountRaw        string `json:"amountRaw"`
}

func (BridgeTypeInfo) Kind() string { return TypeKindBridge }
func (BridgeTypeInfo) isTypeInfo()  {}

// ApproveTypeInfo describes an ERC-20 allowance grant
type ApproveTypeInfo struct {
	TokenAddress   string `json:"tokenAddress"`
	Spender        string `json:"spender"`
	ApprovalAmount string `json:"approvalAmount,omitempty"`
}

func (ApproveTypeInfo) Kind() string { return TypeKindApprove }
func (ApproveTypeInfo) isTypeInfo()  {}

// SendTypeInfo describes an outgoing transfer
type SendTypeInfo struct {
	CurrencyID string `json:"currencyId"`
	Recipient  string `json:"recipient"`
	AmountRaw  string `json:"amountRaw"`
}

func (SendTypeInfo) Kind() string { return TypeKindSend }
func (SendTypeInfo) isTypeInfo()  {}

// ReceiveTypeInfo describes an incoming transfer (remote-sourced records only)
type ReceiveTypeInfo struct {
	CurrencyID string `json:"currencyId"`
	Sender     string `json:"sender"`
	AmountRaw  string `json:"amountRaw"`
}

func (ReceiveTypeInfo) Kind() string { return TypeKindReceive }
func (ReceiveTypeInfo) isTypeInfo()  {}

// WrapTypeInfo describes a native currency wrap or unwrap
type WrapTypeInfo struct {
	Unwrap    bool   `json:"unwrap"`
	AmountRaw string `json:"amountRaw"`
}

func (WrapTypeInfo) Kind() string { return TypeKindWrap }
func (WrapTypeInfo) isTypeInfo()  {}

// LiquidityTypeInfo describes adding or removing pool liquidity. Increase selects between
// the liquidity_increase and liquidity_decrease tags.
type LiquidityTypeInfo struct {
	Increase    bool   `json:"-"`
	PoolID      string `json:"poolId"`
	Currency0ID string `json:"currency0Id"`
	Currency1ID string `json:"currency1Id"`
	Amount0Raw  string `json:"amount0Raw"`
	Amount1Raw  string `json:"amount1Raw"`
}

func (l LiquidityTypeInfo) Kind() string {
	if l.Increase {
		return TypeKindLiquidityIncrease
	}
	return TypeKindLiquidityDecrease
}
func (LiquidityTypeInfo) isTypeInfo() {}

// CollectFeesTypeInfo describes collecting accrued pool fees
type CollectFeesTypeInfo struct {
	PoolID      string `json:"poolId"`
	Currency0ID string `json:"currency0Id"`
	Currency1ID string `json:"currency1Id"`
}

func (CollectFeesTypeInfo) Kind() string { return TypeKindCollectFees }
func (CollectFeesTypeInfo) isTypeInfo()  {}

// FiatPurchaseTypeInfo describes an on-ramp purchase through a third-party provider.
// Sale selects between the fiat_purchase and fiat_sale tags.
type FiatPurchaseTypeInfo struct {
	Sale              bool   `json:"-"`
	ProviderID        string `json:"providerId"`
	ExternalSessionID string `json:"externalSessionId"`
	FiatCurrency      string `json:"fiatCurrency"`
	FiatAmount        string `json:"fiatAmount"`
	CryptoCurrencyID  string `json:"cryptoCurrencyId"`
}

func (f FiatPurchaseTypeInfo) Kind() string {
	if f.Sale {
		return TypeKindFiatSale
	}
	return TypeKindFiatPurchase
}
func (FiatPurchaseTypeInfo) isTypeInfo() {}

// WalletConnectTypeInfo describes a transaction confirmed through a connected dapp. The dapp
// metadata only exists locally; remote parsing cannot recover this provenance.
type WalletConnectTypeInfo struct {
	DappName    string `json:"dappName"`
	DappURL     string `json:"dappUrl"`
	DappIconURL string `json:"dappIconUrl,omitempty"`
	Method      string `json:"method"`
}

func (WalletConnectTypeInfo) Kind() string { return TypeKindWalletConnect }
func (WalletConnectTypeInfo) isTypeInfo()  {}
