package orders

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/dexwallet/tx-manager/hex"
	"github.com/dexwallet/tx-manager/log"
	"github.com/dexwallet/tx-manager/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/hermeznetwork/tracerr"
)

// Permit2Address is the canonical permit2 deployment, identical on every supported chain
const Permit2Address = "0x000000000022d473030f116ddee9f6b43ac78ba3"

const invalidateNoncesABI = `[{"inputs":[{"internalType":"uint256","name":"wordPos","type":"uint256"},{"internalType":"uint256","name":"mask","type":"uint256"}],"name":"invalidateUnorderedNonces","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

// nonceWordIndex is the index of the 32 byte word carrying the permit2 nonce inside each
// routing's ABI encoded order payload. Dutch and limit orders lead with the OrderInfo
// struct (reactor, swapper, nonce, ...) behind the outer tuple offset word; v3 and
// priority orders insert a cosigner word ahead of it.
var nonceWordIndex = map[types.Routing]int{
	types.RoutingDutchV2:  3,
	types.RoutingDutchV3:  4,
	types.RoutingLimit:    3,
	types.RoutingPriority: 4,
}

// Permit2Builder builds invalidateUnorderedNonces transactions. Orders whose nonces share
// a 256-bit nonce word collapse into one transaction with the bit mask of every order set.
type Permit2Builder struct {
	contract abi.ABI
}

// NewPermit2Builder creates the default cancellation builder
func NewPermit2Builder() (*Permit2Builder, error) {
	contract, err := abi.JSON(strings.NewReader(invalidateNoncesABI))
	if err != nil {
		return nil, tracerr.Wrap(err)
	}
	return &Permit2Builder{contract: contract}, nil
}

// BuildBatchCancellation decodes every candidate's nonce, groups them by nonce word and
// returns one invalidation request per word. Candidates whose payloads cannot be decoded
// are skipped with a log line rather than sinking the whole batch.
func (b *Permit2Builder) BuildBatchCancellation(candidates []types.CancellationCandidate, chainID uint64, from string) ([]types.TxRequest, error) {
	masks := map[string]*big.Int{}
	words := []*big.Int{}

	for _, candidate := range candidates {
		nonce, err := DecodeOrderNonce(candidate.EncodedOrder, candidate.Routing)
		if err != nil {
			log.Errorf("error decoding nonce of order %s, skipping it, error: %v", candidate.OrderHash, err)
			continue
		}

		word := new(big.Int).Rsh(nonce, 8)
		bit := new(big.Int).Lsh(big.NewInt(1), uint(nonce.Uint64()&0xff))

		key := word.String()
		if mask, found := masks[key]; found {
			mask.Or(mask, bit)
		} else {
			masks[key] = bit
			words = append(words, word)
		}
	}

	requests := make([]types.TxRequest, 0, len(words))
	for _, word := range words {
		data, err := b.contract.Pack("invalidateUnorderedNonces", word, masks[word.String()])
		if err != nil {
			return nil, tracerr.Wrap(err)
		}
		requests = append(requests, types.TxRequest{
			ChainID: chainID,
			To:      Permit2Address,
			Data:    hex.EncodeToHex(data),
		})
	}
	return requests, nil
}

// DecodeOrderNonce extracts the permit2 nonce from an ABI encoded order payload. The word
// position depends on the order layout, selected by routing.
func DecodeOrderNonce(encodedOrder string, routing types.Routing) (*big.Int, error) {
	index, supported := nonceWordIndex[routing]
	if !supported {
		return nil, tracerr.Wrap(fmt.Errorf("routing %s has no nonce decoder", routing))
	}

	payload, err := hex.DecodeHex(encodedOrder)
	if err != nil {
		return nil, tracerr.Wrap(fmt.Errorf("order payload is not valid hex: %w", err))
	}

	offset := index * 32
	if len(payload) < offset+32 {
		return nil, tracerr.Wrap(fmt.Errorf("order payload too short: %d bytes, nonce at word %d", len(payload), index))
	}
	return new(big.Int).SetBytes(payload[offset : offset+32]), nil
}
