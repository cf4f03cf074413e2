package simulate

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/types"
)

// DefaultHeadroomBps is the default 1.03x multiplier spec §4.3 applies
// to a returned gas estimate before it is used ("Multiplies returned
// gas by a configurable headroom factor (default 1.03)").
const DefaultHeadroomBps = 300

// RPCSimulator is the live-node implementation of C3: it estimates gas
// for an assembled calldata payload over the shared public RPC client
// and classifies the result per spec §4.3.
type RPCSimulator struct {
	client      *eth.Client
	headroomBps int64
	knownABIs   []gethabi.ABI
}

// NewRPCSimulator constructs a simulator with the given gas headroom
// (basis points added on top of the raw estimate) and the set of
// contract ABIs used to decode revert data (arb, orderbook, router).
func NewRPCSimulator(client *eth.Client, headroomBps int64, knownABIs []gethabi.ABI) *RPCSimulator {
	if headroomBps == 0 {
		headroomBps = DefaultHeadroomBps
	}
	return &RPCSimulator{client: client, headroomBps: headroomBps, knownABIs: knownABIs}
}

// RawCall is the minimal shape the simulator needs from an assembled
// transaction: destination, calldata, value, and the sender the gas
// estimate should be attributed to.
type RawCall struct {
	From  common.Address
	To    *common.Address
	Data  []byte
	Value *big.Int
}

// EstimateGas probes feasibility of call and returns the headroom-padded
// gas limit on success, or a classified SimError on failure.
func (s *RPCSimulator) EstimateGas(ctx context.Context, call RawCall) (uint64, *SimError) {
	msg := ethereum.CallMsg{
		From:  call.From,
		To:    call.To,
		Data:  call.Data,
		Value: call.Value,
	}

	gas, err := s.client.EstimateGas(ctx, msg)
	if err != nil {
		simErr := classify(err)
		if simErr.NodeError && simErr.Reason == types.FailNoOpportunity {
			s.enrichWithRevertData(ctx, msg, simErr)
		}
		return 0, simErr
	}

	padded := new(big.Int).Mul(big.NewInt(int64(gas)), big.NewInt(10000+s.headroomBps))
	padded.Div(padded, big.NewInt(10000))
	return padded.Uint64(), nil
}

// enrichWithRevertData replays the call via eth_call to recover revert
// data, then attempts to decode it against every known contract ABI —
// spec §7 "decoded revert args (when data is hex and matches one of the
// known ABIs)".
func (s *RPCSimulator) enrichWithRevertData(ctx context.Context, msg ethereum.CallMsg, simErr *SimError) {
	data, callErr := s.client.CallContract(ctx, msg, nil)
	if callErr != nil {
		return
	}
	for _, a := range s.knownABIs {
		if method, args, ok := tryDecodeRevert(a, data); ok {
			if simErr.Snapshot == nil {
				simErr.Snapshot = &types.ErrorSnapshot{}
			}
			simErr.Snapshot.Details = method
			simErr.Snapshot.DecodedArgs = args
			return
		}
	}
}

// tryDecodeRevert attempts to unpack raw revert data as a custom error
// defined on the given ABI, returning the matched error name and its
// decoded arguments.
func tryDecodeRevert(a gethabi.ABI, data []byte) (string, map[string]any, bool) {
	if len(data) < 4 {
		return "", nil, false
	}
	selector := data[:4]
	for name, errDef := range a.Errors {
		if string(errDef.ID[:4]) != string(selector) {
			continue
		}
		values := make(map[string]any)
		if err := errDef.Inputs.UnpackIntoMap(values, data[4:]); err != nil {
			return name, nil, true
		}
		return name, values, true
	}
	return "", nil, false
}
