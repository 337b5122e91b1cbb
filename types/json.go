package types

import (
	"encoding/json"
	"fmt"
)

// typeInfoEnvelope is the persisted wire form of a TypeInfo variant
type typeInfoEnvelope struct {
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalTypeInfo serializes a TypeInfo variant into its tagged envelope form
func MarshalTypeInfo(info TypeInfo) ([]byte, error) {
	if info == nil {
		return []byte("null"), nil
	}
	payload, err := json.Marshal(info)
	if err != nil {
		return nil, err
	}
	return json.Marshal(typeInfoEnvelope{Kind: info.Kind(), Payload: payload})
}

// UnmarshalTypeInfo deserializes a tagged envelope back into the concrete variant
func UnmarshalTypeInfo(data []byte) (TypeInfo, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var env typeInfoEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}

	var info TypeInfo
	switch env.Kind {
	case TypeKindSwap:
		v := SwapTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	case TypeKindBridge:
		v := BridgeTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	case TypeKindApprove:
		v := ApproveTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	case TypeKindSend:
		v := SendTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	case TypeKindReceive:
		v := ReceiveTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	case TypeKindWrap:
		v := WrapTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	case TypeKindLiquidityIncrease, TypeKindLiquidityDecrease:
		v := LiquidityTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		v.Increase = env.Kind == TypeKindLiquidityIncrease
		info = v
	case TypeKindCollectFees:
		v := CollectFeesTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	case TypeKindFiatPurchase, TypeKindFiatSale:
		v := FiatPurchaseTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		v.Sale = env.Kind == TypeKindFiatSale
		info = v
	case TypeKindWalletConnect:
		v := WalletConnectTypeInfo{}
		if err := json.Unmarshal(env.Payload, &v); err != nil {
			return nil, err
		}
		info = v
	default:
		return nil, fmt.Errorf("unknown type info kind %q", env.Kind)
	}

	return info, nil
}

// MarshalJSON includes the TypeInfo envelope in the serialized record
func (t TransactionDetails) MarshalJSON() ([]byte, error) {
	type alias TransactionDetails
	infoJSON, err := MarshalTypeInfo(t.TypeInfo)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		TypeInfo json.RawMessage `json:"typeInfo,omitempty"`
	}{alias(t), infoJSON})
}

// UnmarshalJSON restores the TypeInfo variant from its envelope
func (t *TransactionDetails) UnmarshalJSON(data []byte) error {
	type alias TransactionDetails
	aux := struct {
		*alias
		TypeInfo json.RawMessage `json:"typeInfo,omitempty"`
	}{alias: (*alias)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	info, err := UnmarshalTypeInfo(aux.TypeInfo)
	if err != nil {
		return err
	}
	t.TypeInfo = info
	return nil
}
