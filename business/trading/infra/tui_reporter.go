package infra

import (
	"context"

	"github.com/kuoyehs/saga-dex-project/business/trading/domain"
	"github.com/kuoyehs/saga-dex-project/pkg/ui"
)

// TUIReporter implements Reporter by pushing settled operations into
// the Bubble Tea program.
type TUIReporter struct{}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{}
}

// Start initializes the TUI reporter.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// Report pushes a settled operation to the UI.
func (r *TUIReporter) Report(op *domain.Operation) {
	ui.Send(ui.OperationMsg{Operation: op})
}

// Stop gracefully shuts down the TUI reporter.
func (r *TUIReporter) Stop() error {
	return nil
}
