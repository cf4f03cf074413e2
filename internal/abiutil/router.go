package abiutil

import (
	"fmt"

	"github.com/rainclear/clearing-core/internal/types"
)

// EncodeRouteData wraps an opaque route-code payload (produced by the
// quote oracle's router client) with the version tag spec §6 requires
// ("The core must be able to select route-code format in {3, 3.1, 3.2,
// 4} by configuration"). The tag is a single leading byte so a
// downstream decoder — or a human reading routeVisual — can tell which
// encoding produced the route without re-deriving it from configuration.
//
// Grounded on the teacher's BuildSwapCalldata (internal/arbitrage/builder.go):
// same "parse ABI once, pack the args" shape, generalized from a single
// fixed router function to a version-selectable route payload.
func EncodeRouteData(version types.RouteCodeVersion, routeCode []byte) ([]byte, error) {
	tag, ok := versionTag[version]
	if !ok {
		return nil, fmt.Errorf("abiutil: unknown route-code version %q", version)
	}
	out := make([]byte, 0, len(routeCode)+1)
	out = append(out, tag)
	out = append(out, routeCode...)
	return out, nil
}

var versionTag = map[types.RouteCodeVersion]byte{
	types.RouteCodeV3:   0x03,
	types.RouteCodeV3_1: 0x31,
	types.RouteCodeV3_2: 0x32,
	types.RouteCodeV4:   0x04,
}
