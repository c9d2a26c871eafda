package tui

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sustainet/sustainet/internal/errors"
	"github.com/sustainet/sustainet/internal/event"
	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/session"
	"github.com/sustainet/sustainet/internal/trust"
	"github.com/sustainet/sustainet/internal/tui/styles"
	"github.com/sustainet/sustainet/internal/turn"
	"github.com/sustainet/sustainet/internal/util"
)

// focusArea is the part of the draft form that receives key presses.
type focusArea int

const (
	focusAction focusArea = iota
	focusPlatform
	focusTools
	focusTitle
	focusContent
	focusCount
)

func (f focusArea) String() string {
	switch f {
	case focusAction:
		return "action"
	case focusPlatform:
		return "target_platform"
	case focusTools:
		return "tools_used"
	case focusTitle:
		return "title"
	case focusContent:
		return "content"
	default:
		return "unknown"
	}
}

// Options tune the model's presentation.
type Options struct {
	// ReactionLines limits how many simulated reactions are shown per round
	ReactionLines int
}

// Model is the bubbletea model of a game screen. Game state is read from
// the session on every render; the model keeps only the draft form, focus
// and status line.
type Model struct {
	ctx     context.Context
	session *session.Session
	events  <-chan tea.Msg
	opts    Options

	width  int
	height int
	focus  focusArea

	actions       []game.ActionKind
	actionIdx     int
	platformIdx   int
	toolCursor    int
	toolsSelected map[string]bool

	title   textinput.Model
	content textarea.Model
	board   viewport.Model
	spinner spinner.Model

	busy       string // label of the running operation; empty when idle
	status     string
	statusErr  bool
	fieldErrs  map[string]string
	showReview bool
	quitting   bool
	gen        int // incremented by each restart
}

// NewModel creates the model for s. events carries busEventMsg values
// forwarded from the session's bus; it may be nil.
func NewModel(ctx context.Context, s *session.Session, events <-chan tea.Msg, opts Options) Model {
	if opts.ReactionLines <= 0 {
		opts.ReactionLines = 8
	}

	title := textinput.New()
	title.Prompt = ""
	title.Placeholder = "Headline of your article"
	title.CharLimit = 200

	content := textarea.New()
	content.Placeholder = "Write your response to the story..."
	content.ShowLineNumbers = false
	content.CharLimit = 4000
	content.SetHeight(6)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Primary

	board := viewport.New(0, 0)
	board.MouseWheelEnabled = true

	return Model{
		ctx:           ctx,
		session:       s,
		events:        events,
		opts:          opts,
		actions:       game.ActionKinds(),
		toolsSelected: map[string]bool{},
		title:         title,
		content:       content,
		board:         board,
		spinner:       sp,
		busy:          "Opening a new game",
		fieldErrs:     map[string]string{},
	}
}

// Init starts the game and begins listening for session events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		startCmd(m.ctx, m.session, m.gen),
		waitEventMsg(m.events),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.refreshBoard()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case startedMsg:
		if msg.gen != m.gen {
			break
		}
		m.busy = ""
		m.showReview = false
		if msg.err != nil {
			m.setError(msg.err)
		} else {
			m.resetDraft()
			m.setStatus(fmt.Sprintf("Round %d: the AI published a story. Your move.", msg.snapshot.RoundNumber))
		}
		m.refreshBoard()

	case submittedMsg:
		if msg.gen != m.gen {
			break
		}
		m.busy = ""
		if msg.err != nil {
			m.setError(msg.err)
			break
		}
		m.resetDraft()
		m.setStatus(roundStatus(msg.result))
		m.refreshBoard()

	case advancedMsg:
		if msg.gen != m.gen {
			break
		}
		m.busy = ""
		if msg.err != nil {
			m.setError(msg.err)
			break
		}
		m.setStatus(roundStatus(msg.result))
		m.refreshBoard()

	case polishedMsg:
		if msg.gen != m.gen {
			break
		}
		m.busy = ""
		if msg.err != nil {
			m.setError(msg.err)
			break
		}
		m.content.SetValue(msg.content)
		m.setStatus("Draft polished. Review it before submitting.")

	case busEventMsg:
		m.handleEvent(msg.event)
		cmds = append(cmds, waitEventMsg(m.events))

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

// handleEvent reflects a session event in the status line and board.
func (m *Model) handleEvent(e event.Event) {
	switch ev := e.(type) {
	case event.PhaseChangedEvent:
		if ev.Holder == game.ActorAI && ev.To == string(turn.PhaseSubmitting) {
			m.busy = "The AI is responding"
		}
	case event.AdvanceScheduledEvent:
		m.setStatus(fmt.Sprintf("The AI answers round %d in %s.", ev.NextRound, ev.Delay))
	case event.RoundResolvedEvent:
		if ev.Snapshot.Actor == game.ActorAI {
			m.busy = ""
			m.setStatus(fmt.Sprintf("Round %d: the AI published a new story. Your move.", ev.Snapshot.RoundNumber))
			m.clampSelections()
		}
		m.refreshBoard()
	case event.SubmissionFailedEvent:
		if ev.Actor == game.ActorAI {
			m.busy = ""
			m.status = ev.Message + " (ctrl+n retries the AI turn)"
			m.statusErr = true
		}
	case event.SessionEndedEvent:
		m.busy = ""
		m.showReview = true
		m.setStatus("Game over. ctrl+r starts a new game.")
		m.refreshBoard()
	}
}

// handleKey routes key presses to global bindings, then to the focused
// form element.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		return m, m.cycleFocus(1)
	case "shift+tab":
		return m, m.cycleFocus(-1)
	case "ctrl+s":
		return m.submit()
	case "ctrl+p":
		return m.polish()
	case "ctrl+n":
		return m.advance()
	case "ctrl+r":
		return m.restart()
	case "ctrl+t":
		m.showReview = !m.showReview
		m.refreshBoard()
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.board, cmd = m.board.Update(msg)
		return m, cmd
	}

	switch m.focus {
	case focusTitle:
		if msg.Type == tea.KeyEnter {
			return m, m.setFocus(focusContent)
		}
		var cmd tea.Cmd
		m.title, cmd = m.title.Update(msg)
		return m, cmd
	case focusContent:
		var cmd tea.Cmd
		m.content, cmd = m.content.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "left", "h":
		m.moveSelection(-1)
	case "right", "l":
		m.moveSelection(1)
	case " ", "enter":
		if m.focus == focusTools {
			m.toggleTool()
		}
	}
	return m, nil
}

// submit sends the draft as the player's turn.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		m.setWarning("Please wait: " + m.busy)
		return m, nil
	}
	kind := m.action()
	draft := m.draft()
	m.fieldErrs = map[string]string{}
	m.busy = "Submitting your " + string(kind)
	return m, submitCmd(m.ctx, m.session, m.gen, kind, draft)
}

// polish asks the rewrite service to improve the draft content.
func (m Model) polish() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		m.setWarning("Please wait: " + m.busy)
		return m, nil
	}
	if !m.action().RequiresDraft() {
		m.setWarning("Nothing to polish when ignoring the story.")
		return m, nil
	}
	m.busy = "Polishing your draft"
	return m, polishCmd(m.ctx, m.session, m.gen, m.content.Value(), m.platform())
}

// advance requests the opponent's turn now.
func (m Model) advance() (tea.Model, tea.Cmd) {
	if m.busy != "" {
		m.setWarning("Please wait: " + m.busy)
		return m, nil
	}
	m.busy = "The AI is responding"
	return m, advanceCmd(m.ctx, m.session, m.gen)
}

// restart opens a new game, discarding the current one. It is allowed while
// busy: the session pre-empts a submission in flight, and results of the
// discarded game are ignored when they arrive.
func (m Model) restart() (tea.Model, tea.Cmd) {
	m.gen++
	m.busy = "Opening a new game"
	m.fieldErrs = map[string]string{}
	return m, startCmd(m.ctx, m.session, m.gen)
}

// -----------------------------------------------------------------------------
// Draft form
// -----------------------------------------------------------------------------

func (m Model) action() game.ActionKind {
	return m.actions[m.actionIdx]
}

func (m Model) platforms() []string {
	snap, ok := m.session.Snapshot()
	if !ok {
		return nil
	}
	return snap.PlatformNames()
}

func (m Model) platform() string {
	names := m.platforms()
	if len(names) == 0 {
		return ""
	}
	return names[min(m.platformIdx, len(names)-1)]
}

func (m Model) tools() []game.Tool {
	return m.session.AvailableTools()
}

// selectedTools returns the selected tools in catalogue order, dropping any
// that are no longer available.
func (m Model) selectedTools() []string {
	var out []string
	for _, t := range m.tools() {
		if m.toolsSelected[t.Name] {
			out = append(out, t.Name)
		}
	}
	return out
}

func (m Model) draft() session.Draft {
	return session.Draft{
		Title:          m.title.Value(),
		Content:        m.content.Value(),
		TargetPlatform: m.platform(),
		ToolsUsed:      m.selectedTools(),
	}
}

// formFocusable reports whether f accepts focus for the selected action.
func (m Model) formFocusable(f focusArea) bool {
	if f == focusAction {
		return true
	}
	return m.action().RequiresDraft()
}

func (m *Model) cycleFocus(step int) tea.Cmd {
	next := m.focus
	for range focusCount {
		next = (next + focusArea(step) + focusCount) % focusCount
		if m.formFocusable(next) {
			break
		}
	}
	return m.setFocus(next)
}

func (m *Model) setFocus(f focusArea) tea.Cmd {
	m.focus = f
	m.title.Blur()
	m.content.Blur()
	switch f {
	case focusTitle:
		return m.title.Focus()
	case focusContent:
		return m.content.Focus()
	}
	return nil
}

func (m *Model) moveSelection(step int) {
	switch m.focus {
	case focusAction:
		m.actionIdx = wrapIndex(m.actionIdx+step, len(m.actions))
	case focusPlatform:
		m.platformIdx = wrapIndex(m.platformIdx+step, len(m.platforms()))
	case focusTools:
		m.toolCursor = wrapIndex(m.toolCursor+step, len(m.tools()))
	}
}

func (m *Model) toggleTool() {
	tools := m.tools()
	if len(tools) == 0 {
		return
	}
	name := tools[min(m.toolCursor, len(tools)-1)].Name
	m.toolsSelected[name] = !m.toolsSelected[name]
}

// clampSelections keeps the cursors inside the lists after a new round.
func (m *Model) clampSelections() {
	if n := len(m.platforms()); m.platformIdx >= n {
		m.platformIdx = max(0, n-1)
	}
	if n := len(m.tools()); m.toolCursor >= n {
		m.toolCursor = max(0, n-1)
	}
}

func (m *Model) resetDraft() {
	m.title.Reset()
	m.content.Reset()
	m.toolsSelected = map[string]bool{}
	m.fieldErrs = map[string]string{}
	m.clampSelections()
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	return ((i % n) + n) % n
}

// -----------------------------------------------------------------------------
// Status line
// -----------------------------------------------------------------------------

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setWarning(s string) {
	m.status = s
	m.statusErr = true
}

func (m *Model) setError(err error) {
	m.statusErr = true
	m.fieldErrs = map[string]string{}

	var verr *errors.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			if _, seen := m.fieldErrs[f.Field]; !seen {
				m.fieldErrs[f.Field] = f.Message
			}
		}
		m.status = "Fix the highlighted fields and submit again."
		return
	}
	m.status = errors.UserMessage(err)
}

// roundStatus summarizes a committed turn.
func roundStatus(res session.Result) string {
	if res.Outcome != nil {
		return "Game over."
	}
	gained := slices.IndexFunc(res.Deltas, func(d trust.Delta) bool { return d.Player != 0 || d.AI != 0 })
	if gained < 0 {
		return fmt.Sprintf("Round %d resolved: trust unchanged.", res.Snapshot.RoundNumber)
	}
	d := res.Deltas[gained]
	return fmt.Sprintf("Round %d resolved: %s you %s, AI %s.",
		res.Snapshot.RoundNumber, d.Platform, util.Signed(d.Player), util.Signed(d.AI))
}
