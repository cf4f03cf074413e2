// Package orders loads the order set a round is bundled from. Spec §6
// names two sources, a flat file (orders_path) or a subgraph query
// (subgraph[]); the teacher has no order model of its own to ground
// this on, so LoadFromFile decodes types.Order's exported fields
// directly, the same way the teacher's cmd/ingest-mempool reads a
// checkpoint file with encoding/json rather than a bespoke format.
package orders

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rainclear/clearing-core/internal/types"
)

// LoadFromFile reads a JSON array of order records from path. Each
// element decodes into a types.Order; common.Address and common.Hash
// fields accept their usual 0x-prefixed hex string representation,
// Evaluable accepts a base64 string (encoding/json's default []byte
// handling).
func LoadFromFile(path string) ([]*types.Order, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("orders: read %s: %w", path, err)
	}

	var out []*types.Order
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("orders: decode %s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("orders: %s contains no orders", path)
	}
	return out, nil
}
