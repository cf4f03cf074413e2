package storage

import (
	"fmt"
	"math/big"

	"github.com/rainclear/clearing-core/internal/types"
)

// SaveRound persists a RoundReport and its pair reports, following the
// same INSERT OR REPLACE / per-row Exec technique as CacheDB's account
// and storage writers.
func (c *CacheDB) SaveRound(report *types.RoundReport) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO round_reports (round_index, started_at, ended_at, halt_reason) VALUES (?, ?, ?, ?)",
		report.RoundIndex, report.StartedAt, report.EndedAt, string(report.HaltReason),
	); err != nil {
		return fmt.Errorf("insert round_reports: %w", err)
	}

	stmt, err := tx.Prepare(
		"INSERT INTO pair_reports (round_index, token_pair, status, halt_reason, tx_url, cleared_amount, income, net_profit, gas_cost) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("prepare pair_reports insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range report.Pairs {
		if _, err := stmt.Exec(
			report.RoundIndex,
			p.TokenPair,
			string(p.Status),
			string(p.HaltReason),
			p.TxURL,
			bigString(p.ClearedAmount),
			bigString(p.Income),
			bigString(p.NetProfit),
			bigString(p.GasCost),
		); err != nil {
			return fmt.Errorf("insert pair_reports: %w", err)
		}
	}

	return tx.Commit()
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
