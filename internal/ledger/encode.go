package ledger

import (
	"encoding/base64"
	"strconv"

	"github.com/suilocker/suilocker/internal/txb"
)

// EncodeCall maps a builder's typed transaction onto the JSON-RPC move
// call shape. Option arguments become nil (None) or a one-element array
// (Some), so "leave unchanged" and "set to empty" stay distinct on the
// wire.
func EncodeCall(tx *txb.Transaction) *MoveCall {
	args := make([]any, len(tx.Args))
	for i, a := range tx.Args {
		args[i] = encodeArg(a)
	}
	return &MoveCall{
		Package:  tx.Package,
		Module:   tx.Module,
		Function: tx.Function,
		Args:     args,
	}
}

func encodeArg(a txb.Arg) any {
	switch a.Kind {
	case txb.KindPure:
		return a.Str
	case txb.KindOptString:
		if a.OptStr == nil {
			return nil
		}
		return []any{*a.OptStr}
	case txb.KindStrVector:
		return a.Vec
	case txb.KindOptStrVector:
		if a.OptVec == nil {
			return nil
		}
		return []any{*a.OptVec}
	case txb.KindObject:
		return map[string]string{"object": a.Str}
	case txb.KindU64:
		// u64 travels as a decimal string to survive JSON number limits.
		return strconv.FormatUint(a.U64, 10)
	case txb.KindOptU64:
		if a.OptU64 == nil {
			return nil
		}
		return []any{strconv.FormatUint(*a.OptU64, 10)}
	case txb.KindBool:
		return a.Bool
	case txb.KindBytes:
		return base64.StdEncoding.EncodeToString(a.Bytes)
	default:
		return nil
	}
}
