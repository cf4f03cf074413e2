// Command simulate forks chain state at one block and replays a single
// historical transaction against that fork, for sanity-checking
// internal/simulate's ExecuteTransaction gas/log output against the
// real receipt. Adapted from the teacher's own cmd/simulate/main.go;
// only the package it drives against changed (internal/simulator ->
// internal/simulate) and the RPC source, which this module never
// hardcodes to a single ALCHEMY_URL the way the teacher's zero-arg
// eth.NewClient did.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/rainclear/clearing-core/internal/eth"
	"github.com/rainclear/clearing-core/internal/simulate"
)

func main() {
	rpc := flag.String("rpc", "", "RPC endpoint")
	blockNum := flag.Int64("block", 0, "block number to fork from")
	txHash := flag.String("tx", "", "transaction hash to simulate")
	flag.Parse()

	if *blockNum == 0 || *rpc == "" {
		log.Fatal("usage: simulate --rpc <url> --block <number> --tx <hash>")
	}

	client, err := eth.NewClient([]string{*rpc})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	fmt.Printf("forking state at block %d...\n", *blockNum-1)
	fork, err := simulate.NewStateFork(client, big.NewInt(*blockNum-1))
	if err != nil {
		log.Fatal(err)
	}

	if *txHash == "" {
		fmt.Printf("no tx specified, testing balance fetch only\n")
		vitalik := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
		bal, _ := fork.GetBalance(vitalik)
		fmt.Printf("balance: %s wei\n", bal.String())
		return
	}

	fmt.Printf("fetching transaction %s...\n", *txHash)
	block, err := client.BlockByNumber(ctx, big.NewInt(*blockNum))
	if err != nil {
		log.Fatal(err)
	}

	hash := common.HexToHash(*txHash)
	var targetTx *types.Transaction
	var txIndex int
	for i, tx := range block.Transactions() {
		if tx.Hash() == hash {
			targetTx = tx
			txIndex = i
			break
		}
	}

	if targetTx == nil {
		fmt.Printf("transaction %s not found in block %d\n", *txHash, *blockNum)
		fmt.Println("\navailable transactions in this block (first 3):")
		for i, tx := range block.Transactions() {
			if i >= 3 {
				break
			}
			fmt.Printf("  %s\n", tx.Hash().Hex())
		}
		return
	}

	fmt.Printf("found tx at index %d from %s\n", txIndex, targetTx.To().Hex())

	executor := simulate.NewForkExecutor(fork)
	if txIndex > 0 {
		fmt.Printf("applying %d prior transactions to build state...\n", txIndex)
		for i := 0; i < txIndex; i++ {
			priorTx := block.Transactions()[i]
			if _, err := executor.ExecuteTransaction(priorTx, block); err != nil {
				log.Fatalf("failed to apply prior tx %d: %v", i, err)
			}
		}
		fmt.Println("state built successfully")
	}

	fmt.Printf("\ntransaction details:\n")
	fmt.Printf("  type: %d\n", targetTx.Type())
	fmt.Printf("  gas limit: %d\n", targetTx.Gas())
	fmt.Printf("  data size: %d bytes\n", len(targetTx.Data()))
	fmt.Printf("  value: %s wei\n", targetTx.Value().String())
	fmt.Printf("  access list: %d entries\n", len(targetTx.AccessList()))
	if targetTx.Type() == types.DynamicFeeTxType {
		fmt.Printf("  gas fee cap: %s\n", targetTx.GasFeeCap())
		fmt.Printf("  gas tip cap: %s\n", targetTx.GasTipCap())
	}
	fmt.Println()

	result, err := executor.ExecuteTransaction(targetTx, block)
	if err != nil {
		log.Fatal(err)
	}

	receipt, err := client.TransactionReceipt(ctx, targetTx.Hash())
	if err != nil {
		log.Printf("warning: could not fetch receipt: %v", err)
	}

	fmt.Printf("\n=== simulation result ===\n")
	fmt.Printf("success: %v\n", result.Success)
	fmt.Printf("gas used: %d\n", result.GasUsed)
	if receipt != nil {
		fmt.Printf("gas used (actual): %d\n", receipt.GasUsed)
		fmt.Printf("receipt status: %d\n", receipt.Status)
		fmt.Printf("receipt logs: %d\n", len(receipt.Logs))
		fmt.Printf("cumulative gas: %d\n", receipt.CumulativeGasUsed)
		diff := int64(result.GasUsed) - int64(receipt.GasUsed)
		if diff == 0 {
			fmt.Printf("gas used matches receipt exactly\n")
		} else {
			fmt.Printf("gas used differs by %.2f%%\n", float64(diff)/float64(receipt.GasUsed)*100)
		}
	}
	fmt.Printf("logs: %d events emitted\n", len(result.Logs))
	if !result.Success {
		fmt.Printf("revert reason: %s\n", result.RevertReason)
	}
}
