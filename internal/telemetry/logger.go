// Package telemetry wires structured logging and per-pair span
// attributes through the clearing core the way luoyeETH-liquidityScope
// wires zap through its indexer: a *zap.Logger built once from a level
// string and passed explicitly into every constructor, never a package
// singleton. A nil logger is replaced with zap.NewNop() at the
// construction boundary so callers that don't care about logging don't
// need to special-case it.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger at the given level ("debug", "info", "warn",
// "error"), ISO8601 timestamps under the "ts" key. Grounded on
// cmd/indexer/main.go's newLogger.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// orNop guards every constructor that accepts a *zap.Logger, matching
// indexer.NewRunner's "if logger == nil { logger = zap.NewNop() }".
func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// PairSpan accumulates the attribute-keyed fields spec §6 requires a
// pair report to emit (tokenPair, haltReason, clearedAmount, income,
// netProfit, ...) and flushes them as a single structured log line per
// pair, rather than scattering ad hoc Info calls through the pair
// processor.
type PairSpan struct {
	logger *zap.Logger
	name   string
	fields []zap.Field
}

// NewPairSpan opens a span for one pair-processor pass.
func NewPairSpan(logger *zap.Logger, tokenPair string) *PairSpan {
	return &PairSpan{logger: orNop(logger), name: tokenPair}
}

// Set appends an attribute to the span. Values are passed to zap.Any so
// callers can attach *big.Int, common.Hash, or any loggable type
// without per-type helpers.
func (s *PairSpan) Set(key string, value any) *PairSpan {
	s.fields = append(s.fields, zap.Any(key, value))
	return s
}

// Done flushes the span as a single Info line tagged with the pair
// name, at the given outcome label (the pair processor passes e.g.
// "found-opportunity", "no-opportunity", "empty-vault", "tx-failed").
func (s *PairSpan) Done(outcome string) {
	fields := append([]zap.Field{zap.String("pair", s.name), zap.String("outcome", outcome)}, s.fields...)
	s.logger.Info("pair processed", fields...)
}
