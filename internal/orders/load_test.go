package orders

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleOrders = `[
  {
    "ID": "0x0000000000000000000000000000000000000000000000000000000000000001",
    "Owner": "0x0000000000000000000000000000000000000001",
    "OrderbookAddr": "0x0000000000000000000000000000000000000002",
    "Inputs": [{"Token": "0x0000000000000000000000000000000000000003", "Decimals": 18, "VaultID": 1}],
    "Outputs": [{"Token": "0x0000000000000000000000000000000000000004", "Decimals": 6, "VaultID": 2}],
    "Evaluable": ""
  }
]`

func TestLoadFromFileDecodesOrders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")
	if err := os.WriteFile(path, []byte(sampleOrders), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 order, got %d", len(out))
	}
	if out[0].Inputs[0].Decimals != 18 {
		t.Fatalf("expected decimals 18, got %d", out[0].Inputs[0].Decimals)
	}
}

func TestLoadFromFileRejectsEmptyList(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "orders.json")
	if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected error for empty order list")
	}
}

func TestLoadFromFileMissingFile(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/orders.json"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
