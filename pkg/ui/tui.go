// Package ui provides the Bubble Tea TUI for the exchange client.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	marketApp "github.com/kuoyehs/saga-dex-project/business/market/app"
	marketDomain "github.com/kuoyehs/saga-dex-project/business/market/domain"
	tradingDomain "github.com/kuoyehs/saga-dex-project/business/trading/domain"
	walletDomain "github.com/kuoyehs/saga-dex-project/business/wallet/domain"
)

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// View selects the main dashboard pane.
type View string

const (
	ViewBalances View = "balances"
	ViewPools    View = "pools"
	ViewHistory  View = "history"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	keys KeyMap

	// Phase state
	phase        Phase
	welcomeStart time.Time
	view         View

	// State
	ready    bool
	quitting bool
	width    int
	height   int

	sessionState walletDomain.SessionState
	session      *walletDomain.Session
	snapshot     *marketDomain.Snapshot
	pools        []marketApp.PoolEntry
	poolStats    marketApp.DirectoryStats
	poolsTable   table.Model
	history      []*tradingDomain.Operation
	logs         []string
	errors       []ErrorEntry

	// Busy indicator while an operation runs
	spinner  spinner.Model
	busy     bool
	busyText string

	// Swap form
	swapMode    bool
	pairs       []string
	swapPairIdx int
	swapReverse bool
	amountInput textinput.Model
	lastQuote   *marketDomain.Quote

	// Liquidity form
	liqMode     bool
	liqWithdraw bool
	liqPairIdx  int
	liqFocus    int // 0 = base input, 1 = quote input
	liqBase     textinput.Model
	liqQuote    textinput.Model
}

// New creates a new TUI model for the configured pairs.
func New(pairs []string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	amount := textinput.New()
	amount.Placeholder = "0.0"
	amount.CharLimit = 32
	amount.Width = 20

	liqBase := textinput.New()
	liqBase.Placeholder = "0.0"
	liqBase.CharLimit = 32
	liqBase.Width = 20

	liqQuote := textinput.New()
	liqQuote.Placeholder = "0.0"
	liqQuote.CharLimit = 32
	liqQuote.Width = 20

	columns := []table.Column{
		{Title: "Pair", Width: 14},
		{Title: "Reserve A", Width: 16},
		{Title: "Reserve B", Width: 16},
		{Title: "Liquidity", Width: 14},
		{Title: "Your Share", Width: 14},
	}
	poolsTable := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
	)

	return Model{
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: time.Now(),
		view:         ViewBalances,
		sessionState: walletDomain.StateDisconnected,
		spinner:      sp,
		pairs:        pairs,
		amountInput:  amount,
		liqBase:      liqBase,
		liqQuote:     liqQuote,
		poolsTable:   poolsTable,
		logs:         make([]string, 0, 5),
		errors:       make([]ErrorEntry, 0, 3),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

		// During welcome phase, any key skips ahead
		if m.phase == PhaseWelcome {
			m.phase = PhaseDashboard
			return m, tickCmd()
		}

		if m.swapMode {
			return m.updateSwapForm(msg)
		}
		if m.liqMode {
			return m.updateLiquidityForm(msg)
		}

		switch msg.String() {
		case "q":
			m.quitting = true
			return m, tea.Quit
		case "w":
			if OnConnect != nil {
				go OnConnect()
			}
			return m, nil
		case "r":
			if OnRefresh != nil {
				go OnRefresh()
			}
			return m, nil
		case "s":
			if m.sessionState == walletDomain.StateConnected {
				m.swapMode = true
				m.lastQuote = nil
				m.amountInput.SetValue("")
				m.amountInput.Focus()
				return m, textinput.Blink
			}
			m.logs = addLog(m.logs, "warn", "connect a wallet before swapping")
			return m, nil
		case "l":
			if m.sessionState == walletDomain.StateConnected {
				m.liqMode = true
				m.liqWithdraw = false
				m.liqFocus = 0
				m.liqBase.SetValue("")
				m.liqQuote.SetValue("")
				m.liqBase.Focus()
				m.liqQuote.Blur()
				return m, textinput.Blink
			}
			m.logs = addLog(m.logs, "warn", "connect a wallet before managing liquidity")
			return m, nil
		case "p":
			m.view = ViewPools
			if OnListPools != nil {
				go OnListPools()
			}
			return m, nil
		case "b":
			m.view = ViewBalances
			return m, nil
		case "h":
			m.view = ViewHistory
			return m, nil
		}

		if m.view == ViewPools {
			var cmd tea.Cmd
			m.poolsTable, cmd = m.poolsTable.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseDashboard
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SessionMsg:
		m.sessionState = msg.State
		m.session = msg.Session
		if msg.State == walletDomain.StateConnected && OnRefresh != nil {
			go OnRefresh()
		}

	case SnapshotMsg:
		m.snapshot = msg.Snapshot

	case PoolsMsg:
		m.pools = msg.Pools
		m.poolStats = msg.Stats
		rows := make([]table.Row, 0, len(msg.Pools))
		for _, entry := range msg.Pools {
			share := "-"
			if entry.Position.HasStake() {
				share = entry.Position.Liquidity.String()
			}
			rows = append(rows, table.Row{
				entry.Pool.Pair.String(),
				entry.Pool.ReserveBase.String(),
				entry.Pool.ReserveQuote.String(),
				entry.Pool.TotalLiquidity.String(),
				share,
			})
		}
		m.poolsTable.SetRows(rows)

	case QuoteMsg:
		m.lastQuote = msg.Quote

	case OperationStartedMsg:
		m.busy = true
		m.busyText = msg.Description

	case OperationMsg:
		m.busy = false
		m.busyText = ""
		if msg.Operation != nil {
			m.history = append(m.history, msg.Operation)
			level := "info"
			if msg.Operation.Err != nil {
				level = "error"
			}
			m.logs = addLog(m.logs, level, fmt.Sprintf("%s %s",
				msg.Operation.Kind.String(), msg.Operation.Status.String()))
		}

	case ErrorMsg:
		m.busy = false
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

// updateSwapForm handles keys while the swap form is open.
func (m Model) updateSwapForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.swapMode = false
		m.amountInput.Blur()
		return m, nil
	case "left":
		if m.swapPairIdx > 0 {
			m.swapPairIdx--
		} else {
			m.swapPairIdx = len(m.pairs) - 1
		}
		m.lastQuote = nil
		return m, nil
	case "right":
		m.swapPairIdx = (m.swapPairIdx + 1) % len(m.pairs)
		m.lastQuote = nil
		return m, nil
	case "tab":
		m.swapReverse = !m.swapReverse
		m.lastQuote = nil
		return m, nil
	case "ctrl+g":
		if OnQuote != nil {
			pair := m.pairs[m.swapPairIdx]
			amount := m.amountInput.Value()
			reverse := m.swapReverse
			go OnQuote(pair, reverse, amount)
		}
		return m, nil
	case "enter":
		if OnSwap != nil {
			pair := m.pairs[m.swapPairIdx]
			amount := m.amountInput.Value()
			reverse := m.swapReverse
			go OnSwap(pair, reverse, amount)
		}
		m.swapMode = false
		m.amountInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.amountInput, cmd = m.amountInput.Update(msg)
	return m, cmd
}

// updateLiquidityForm handles keys while the liquidity form is open.
func (m Model) updateLiquidityForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.liqMode = false
		m.liqBase.Blur()
		m.liqQuote.Blur()
		return m, nil
	case "left":
		if m.liqPairIdx > 0 {
			m.liqPairIdx--
		} else {
			m.liqPairIdx = len(m.pairs) - 1
		}
		return m, nil
	case "right":
		m.liqPairIdx = (m.liqPairIdx + 1) % len(m.pairs)
		return m, nil
	case "tab":
		m.liqWithdraw = !m.liqWithdraw
		m.liqFocus = 0
		m.liqBase.Focus()
		m.liqQuote.Blur()
		return m, nil
	case "up", "down":
		// Withdraw takes a single share amount, nothing to switch to.
		if m.liqWithdraw {
			return m, nil
		}
		if m.liqFocus == 0 {
			m.liqFocus = 1
			m.liqBase.Blur()
			m.liqQuote.Focus()
		} else {
			m.liqFocus = 0
			m.liqQuote.Blur()
			m.liqBase.Focus()
		}
		return m, textinput.Blink
	case "enter":
		pair := m.pairs[m.liqPairIdx]
		if m.liqWithdraw {
			if OnRemoveLiquidity != nil {
				liquidity := m.liqBase.Value()
				go OnRemoveLiquidity(pair, liquidity)
			}
		} else if OnAddLiquidity != nil {
			amountBase := m.liqBase.Value()
			amountQuote := m.liqQuote.Value()
			go OnAddLiquidity(pair, amountBase, amountQuote)
		}
		m.liqMode = false
		m.liqBase.Blur()
		m.liqQuote.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	if m.liqWithdraw || m.liqFocus == 0 {
		m.liqBase, cmd = m.liqBase.Update(msg)
	} else {
		m.liqQuote, cmd = m.liqQuote.Update(msg)
	}
	return m, cmd
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	if m.phase == PhaseWelcome {
		return m.renderWelcome()
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if m.swapMode {
		b.WriteString(m.renderSwapForm())
	} else if m.liqMode {
		b.WriteString(m.renderLiquidityForm())
	} else {
		switch m.view {
		case ViewPools:
			b.WriteString(m.renderPools())
		case ViewHistory:
			b.WriteString(m.renderHistory())
		default:
			b.WriteString(m.renderBalances())
		}
	}

	if m.busy {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(StatusPending.Render(m.busyText))
	}

	if len(m.logs) > 0 {
		b.WriteString("\n")
		b.WriteString(BoxStyle.Render(strings.Join(m.logs, "\n")))
	}

	b.WriteString("\n")
	b.WriteString(HelpStyle.Render("w connect | s swap | l liquidity | p pools | b balances | h history | r refresh | q quit"))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderWelcome() string {
	title := TitleStyle.Render(" SAGA DEX ")
	sub := MutedValue.Render("token swaps and liquidity on the Qubit chainlet")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, title, "", sub))
}

func (m Model) renderHeader() string {
	var status string
	switch m.sessionState {
	case walletDomain.StateConnected:
		account := ""
		if m.session != nil {
			account = m.session.ShortAccount()
		}
		status = StatusConnected.Render("connected " + account)
	case walletDomain.StateConnecting:
		status = StatusPending.Render("connecting...")
	case walletDomain.StateNotDetected:
		status = StatusDisconnected.Render("no wallet detected")
	default:
		status = StatusDisconnected.Render("disconnected")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		TitleStyle.Render(" SAGA DEX "),
		HeaderStyle.Render(status),
	)
}

func (m Model) renderBalances() string {
	if m.snapshot == nil {
		return BoxStyle.Render(MutedValue.Render("no snapshot yet, press r to refresh"))
	}

	var rows []string
	rows = append(rows, HeaderStyle.Render("BALANCES"))
	for _, balance := range m.snapshot.Balances {
		display := balance.Display()
		style := PositiveValue
		if !balance.Known {
			style = MutedValue
		}
		rows = append(rows, fmt.Sprintf("  %-8s %s",
			balance.Token.Symbol(), style.Render(display)))
	}
	var positions []string
	for _, pairName := range m.pairs {
		position, ok := m.snapshot.PositionFor(pairName)
		if !ok || !position.HasStake() {
			continue
		}
		positions = append(positions, fmt.Sprintf("  %-14s %s",
			pairName, PositiveValue.Render(position.Liquidity.String())))
	}
	if len(positions) > 0 {
		rows = append(rows, "")
		rows = append(rows, HeaderStyle.Render("YOUR LIQUIDITY"))
		rows = append(rows, positions...)
	}

	rows = append(rows, "")
	rows = append(rows, MutedValue.Render(
		fmt.Sprintf("snapshot age: %s", m.snapshot.Age().Round(time.Second))))

	return BoxStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) renderPools() string {
	var rows []string
	rows = append(rows, HeaderStyle.Render("POOLS"))
	rows = append(rows, m.poolsTable.View())
	rows = append(rows, "")
	rows = append(rows, MutedValue.Render(fmt.Sprintf(
		"%d active pools | %d yours | ~$%s value locked (indicative)",
		m.poolStats.PoolCount, m.poolStats.OwnedCount,
		m.poolStats.ValueLockedUSD.StringFixed(2))))

	return BoxStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) renderHistory() string {
	var rows []string
	rows = append(rows, HeaderStyle.Render("OPERATIONS"))
	if len(m.history) == 0 {
		rows = append(rows, MutedValue.Render("  nothing yet"))
	}
	for _, op := range m.history {
		style := PositiveValue
		if op.Status != tradingDomain.StatusConfirmed {
			style = NegativeValue
		}
		line := fmt.Sprintf("  #%d %-17s %-11s %s",
			op.ID, op.Kind.String(), style.Render(op.Status.String()), op.Pair.String())
		rows = append(rows, line)
		if op.Err != nil {
			rows = append(rows, MutedValue.Render("      "+op.Err.Error()))
		}
	}

	return BoxStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) renderSwapForm() string {
	pair := ""
	if len(m.pairs) > 0 {
		pair = m.pairs[m.swapPairIdx]
	}
	direction := "base -> quote"
	if m.swapReverse {
		direction = "quote -> base"
	}

	var rows []string
	rows = append(rows, HeaderStyle.Render("SWAP"))
	rows = append(rows, fmt.Sprintf("  pair:      %s  (left/right to change)", pair))
	rows = append(rows, fmt.Sprintf("  direction: %s  (tab to flip)", direction))
	rows = append(rows, fmt.Sprintf("  amount:    %s", m.amountInput.View()))
	if m.lastQuote != nil {
		rows = append(rows, "")
		rows = append(rows, PositiveValue.Render(fmt.Sprintf(
			"  expected: %s  (min %s)",
			m.lastQuote.AmountOut.String(), m.lastQuote.MinOut.String())))
	}
	rows = append(rows, "")
	rows = append(rows, HelpStyle.Render("ctrl+g quote | enter submit | esc cancel"))

	return BoxStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) renderLiquidityForm() string {
	pair := ""
	if len(m.pairs) > 0 {
		pair = m.pairs[m.liqPairIdx]
	}

	var rows []string
	if m.liqWithdraw {
		rows = append(rows, HeaderStyle.Render("REMOVE LIQUIDITY"))
		rows = append(rows, fmt.Sprintf("  pair:      %s  (left/right to change)", pair))
		rows = append(rows, fmt.Sprintf("  liquidity: %s", m.liqBase.View()))
		if entry, ok := m.poolEntryFor(pair); ok && entry.Position.HasStake() {
			rows = append(rows, MutedValue.Render(
				fmt.Sprintf("  your share: %s", entry.Position.Liquidity.String())))
		}
	} else {
		rows = append(rows, HeaderStyle.Render("ADD LIQUIDITY"))
		rows = append(rows, fmt.Sprintf("  pair:   %s  (left/right to change)", pair))
		rows = append(rows, fmt.Sprintf("  base:   %s", m.liqBase.View()))
		rows = append(rows, fmt.Sprintf("  quote:  %s", m.liqQuote.View()))
	}
	rows = append(rows, "")
	rows = append(rows, HelpStyle.Render("tab deposit/withdraw | up/down field | enter submit | esc cancel"))

	return BoxStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) poolEntryFor(pairName string) (marketApp.PoolEntry, bool) {
	for _, entry := range m.pools {
		if entry.Pool.Pair.String() == pairName {
			return entry, true
		}
	}
	return marketApp.PoolEntry{}, false
}

// Program is the global Bubble Tea program, set by main so infra
// adapters can push messages into the UI.
var Program *tea.Program

// Callbacks wired by main. They run on their own goroutines, never on
// the UI loop.
var (
	// OnConnect is called when the user asks to connect the wallet.
	OnConnect func()

	// OnRefresh is called when the user asks for a snapshot refresh.
	OnRefresh func()

	// OnListPools is called when the pools view is opened.
	OnListPools func()

	// OnQuote is called for a display-only quote preview.
	OnQuote func(pair string, reverse bool, amount string)

	// OnSwap is called when the swap form is submitted.
	OnSwap func(pair string, reverse bool, amount string)

	// OnAddLiquidity is called when the liquidity form submits a deposit.
	OnAddLiquidity func(pair, amountBase, amountQuote string)

	// OnRemoveLiquidity is called when the liquidity form submits a withdrawal.
	OnRemoveLiquidity func(pair, liquidity string)
)

// Send delivers a message to the running program, dropping it when the
// TUI is not active.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
