// Package infra contains infrastructure adapters for the trading context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kuoyehs/saga-dex-project/business/trading/domain"
)

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{
		out: os.Stdout,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Saga DEX Client Started")
	fmt.Fprintln(r.out, "=======================")
	return nil
}

// Report outputs a settled operation to the console.
func (r *ConsoleReporter) Report(op *domain.Operation) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "OPERATION #%d  %s  [%s]\n", op.ID, op.Kind.String(), op.Status.String())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "Pair:       %s\n", op.Pair.String())
	fmt.Fprintf(r.out, "Started:    %s\n", op.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Duration:   %s\n", op.Duration().Round(time.Millisecond))
	if op.AmountIn.IsPositive() {
		fmt.Fprintf(r.out, "Amount In:  %s\n", op.AmountIn.String())
	}
	if op.Quote != nil {
		fmt.Fprintf(r.out, "Expected:   %s (min %s)\n", op.Quote.AmountOut.String(), op.Quote.MinOut.String())
	}
	for _, step := range op.Steps {
		fmt.Fprintf(r.out, "  %s  %s  %s\n", step.At.Format("15:04:05"), step.Name, step.TxHash.Hex())
	}
	if op.Err != nil {
		fmt.Fprintf(r.out, "Error:      %v\n", op.Err)
	}
	if op.Status == domain.StatusUnresolved {
		fmt.Fprintf(r.out, "Note:       outcome unknown, check tx %s on the explorer\n", op.TxHash.Hex())
	}
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Saga DEX Client Stopped")
	return nil
}
