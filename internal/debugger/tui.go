package debugger

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rmay/cuel/pkg/disasm"
)

// TUI is the terminal interface for cueldbg: a disassembly window
// centered on the current IP, the two stacks, a scrolling output log of
// everything the program has written, and a command input line.
type TUI struct {
	Debugger *Debugger
	App      *tview.Application

	MainLayout      *tview.Flex
	DisassemblyView *tview.TextView
	DataStackView   *tview.TextView
	CallStackView   *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField
}

func NewTUI(d *Debugger) *TUI {
	t := &TUI{
		Debugger: d,
		App:      tview.NewApplication(),
	}
	t.initializeViews()
	t.buildLayout()
	t.setupKeyBindings()
	return t
}

func (t *TUI) initializeViews() {
	t.DisassemblyView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.DataStackView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.DataStackView.SetBorder(true).SetTitle(" Data Stack ")

	t.CallStackView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.CallStackView.SetBorder(true).SetTitle(" Call Stack ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true).SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	stacks := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.DataStackView, 0, 1, false).
		AddItem(t.CallStackView, 0, 1, false)

	top := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.DisassemblyView, 0, 2, false).
		AddItem(stacks, 0, 1, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(top, 0, 3, false).
		AddItem(t.OutputView, 8, 0, false).
		AddItem(t.CommandInput, 3, 0, true)
}

func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF5:
			t.run("continue")
			return nil
		case tcell.KeyF11:
			t.run("step")
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		}
		return event
	})
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := t.CommandInput.GetText()
	if cmd != "" {
		t.run(cmd)
		t.CommandInput.SetText("")
	}
}

func (t *TUI) run(cmd string) {
	if err := t.Debugger.ExecuteCommand(cmd); err != nil {
		t.Debugger.Printf("error: %v\n", err)
	}
	t.RefreshAll()
	if !t.Debugger.Running {
		t.App.Stop()
	}
}

func (t *TUI) RefreshAll() {
	t.updateDisassembly()
	t.updateStacks()
	t.updateOutput()
	t.App.Draw()
}

func (t *TUI) updateDisassembly() {
	t.DisassemblyView.Clear()
	words := t.Debugger.VM.Words()
	ip := t.Debugger.VM.IP()
	ctx := int64(t.Debugger.Config.Debugger.DisasmContext)
	lo, hi := ip-ctx, ip+ctx
	if lo < 0 {
		lo = 0
	}
	if hi >= int64(len(words)) {
		hi = int64(len(words)) - 1
	}
	var lines []string
	for i := lo; i <= hi; i++ {
		marker, color := "  ", "white"
		if i == ip {
			marker, color = "->", "yellow"
		}
		if t.Debugger.Breakpoints.Has(i) {
			marker = "* "
		}
		lines = append(lines, fmt.Sprintf("[%s]%s %s[white]", color, marker, disasm.Line(uint32(i), words[i], false)))
	}
	t.DisassemblyView.SetText(strings.Join(lines, "\n"))
}

func (t *TUI) updateStacks() {
	t.DataStackView.SetText(fmt.Sprintf("%v", t.Debugger.VM.DataStack()))
	t.CallStackView.SetText(fmt.Sprintf("%v", t.Debugger.VM.CallStack()))
}

func (t *TUI) updateOutput() {
	t.OutputView.SetText(t.Debugger.Output.String())
	t.OutputView.ScrollToEnd()
}

func (t *TUI) Run() error {
	t.Debugger.Running = true
	t.RefreshAll()
	t.Debugger.Println("cueldbg — F5 continue, F11 step, type 'help' for commands")
	t.updateOutput()
	return t.App.SetRoot(t.MainLayout, true).SetFocus(t.CommandInput).Run()
}
