package types

// Routing tags how a transaction reaches the chain. Classic transactions are tracked by
// transaction hash, UniswapX orders are tracked by order hash until they settle.
type Routing string

const (
	// RoutingClassic is a plain on-chain transaction
	RoutingClassic Routing = "classic"
	// RoutingBridge is a cross-chain bridge transaction
	RoutingBridge Routing = "bridge"
	// RoutingDutchV2 is a UniswapX Dutch auction order (v2)
	RoutingDutchV2 Routing = "dutch_v2"
	// RoutingDutchV3 is a UniswapX Dutch auction order (v3)
	RoutingDutchV3 Routing = "dutch_v3"
	// RoutingPriority is a UniswapX priority order
	RoutingPriority Routing = "priority"
	// RoutingLimit is a UniswapX limit order
	RoutingLimit Routing = "limit"
)

// IsUniswapX returns true for routings whose records are tracked by order hash
func (r Routing) IsUniswapX() bool {
	switch r {
	case RoutingDutchV2, RoutingDutchV3, RoutingPriority, RoutingLimit:
		return true
	}
	return false
}
