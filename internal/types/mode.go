package types

// Mode is the tagged variant replacing the source's overloaded integer
// 0..3 "mode" parameter (spec §9: "a tagged variant Mode = Bundle |
// Single | Double | Triple with explicit orders-expansion per
// variant").
type Mode int

const (
	ModeBundle Mode = iota // 0: every take-order in the bundle
	ModeSingle              // 1: [TO0]
	ModeDouble              // 2: [TO0, TO0]
	ModeTriple              // 3: [TO0, TO0, TO0]
)

// MaxRetries is R in spec §4.6/§5: the number of duplication modes the
// parallel retries fan-out explores (Single, Double, Triple).
const MaxRetries = 3

// Expand returns the take-order slice to embed in takeOrdersConfig.orders
// for this mode, applying the duplication-as-dust-amplifier rule from
// spec §4.4.5.
func (m Mode) Expand(bp *BundledPair) []*TakeOrder {
	switch m {
	case ModeBundle:
		return bp.TakeOrders
	case ModeSingle:
		return []*TakeOrder{bp.TakeOrders[0]}
	case ModeDouble:
		return []*TakeOrder{bp.TakeOrders[0], bp.TakeOrders[0]}
	case ModeTriple:
		return []*TakeOrder{bp.TakeOrders[0], bp.TakeOrders[0], bp.TakeOrders[0]}
	default:
		return bp.TakeOrders
	}
}

func (m Mode) String() string {
	switch m {
	case ModeBundle:
		return "bundle"
	case ModeSingle:
		return "single"
	case ModeDouble:
		return "double"
	case ModeTriple:
		return "triple"
	default:
		return "unknown"
	}
}

// RouteCodeVersion selects the router's calldata format per spec §6.
type RouteCodeVersion string

const (
	RouteCodeV3   RouteCodeVersion = "3"
	RouteCodeV3_1 RouteCodeVersion = "3.1"
	RouteCodeV3_2 RouteCodeVersion = "3.2"
	RouteCodeV4   RouteCodeVersion = "4"
)
