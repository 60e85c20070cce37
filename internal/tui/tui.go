package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HDumarBalmaceda/proyecto-informe/internal/search"
	"github.com/HDumarBalmaceda/proyecto-informe/internal/store"
)

const debounceDelay = 200 * time.Millisecond

// message types

type searchResultMsg struct {
	query    string
	category string
	results  []search.Result
	err      error
}

type categoriesMsg struct {
	categories []string
}

type debounceTickMsg struct {
	query string
}

// model

type model struct {
	db          *store.DB
	run         *store.Run
	searchOpts  search.Options
	query       string
	categories  []string // categories present in the run, for cycling
	catIndex    int      // -1 = searchOpts.Category as given
	results     []search.Result
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // "chat:seq" to avoid duplicate renders
	width       int
	height      int
	ready       bool
	quitting    bool
	picked      *search.Result
}

func initialModel(db *store.DB, run *store.Run, opts search.Options) model {
	ti := textinput.New()
	ti.Placeholder = "Filter records..."
	ti.Focus()
	ti.SetValue(opts.Query)
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256

	opts.RunID = run.ID
	if opts.Limit <= 0 {
		opts.Limit = 500
	}

	return model{
		db:          db,
		run:         run,
		searchOpts:  opts,
		query:       opts.Query,
		catIndex:    -1,
		filterInput: ti,
		preview:     viewport.New(0, 0),
	}
}

// Run starts the record browser for one stored run and blocks until it
// exits. The record picked with Enter is copied to the clipboard.
func Run(db *store.DB, run *store.Run, opts search.Options) error {
	m := initialModel(db, run, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.picked != nil {
		return copyRecord(fm.picked.RecordRow)
	}
	return nil
}

// recordSummary is the one-line form of a record put on the clipboard.
func recordSummary(r store.RecordRow) string {
	s := fmt.Sprintf("%s:%d %s [%s]", r.Chat, r.Line, r.Timestamp.Format("2006-01-02"), r.Category)
	if r.MediaPath != "" {
		s += " " + r.MediaPath
	}
	if r.Text != "" {
		s += " " + strings.Join(strings.Fields(r.Text), " ")
	}
	return s
}

func copyRecord(r store.RecordRow) error {
	summary := recordSummary(r)
	if err := clipboard.WriteAll(summary); err != nil {
		fmt.Printf("%s\n", summary)
		return nil
	}
	fmt.Printf("Copied to clipboard: %s\n", summary)
	return nil
}

// Init triggers the initial load.
func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadCategories(), m.doSearch(m.query))
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		cmds = append(cmds, m.loadCurrentPreview())
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if len(m.results) > 0 && m.cursor < len(m.results) {
				r := m.results[m.cursor]
				m.picked = &r
				m.quitting = true
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Category):
			if len(m.categories) > 0 {
				m.catIndex++
				if m.catIndex >= len(m.categories) {
					m.catIndex = -1
				}
				return m, m.doSearch(m.query)
			}
			return m, nil

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.results)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}

		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		if q := m.filterInput.Value(); q != m.query {
			m.query = q
			cmds = append(cmds, m.scheduleDebouncedSearch(q))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if !m.ready || len(m.results) == 0 {
			return m, nil
		}

		region, itemIdx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			maxOffset := len(m.results) - m.panelHeight()/linesPerItem
			if maxOffset < 0 {
				maxOffset = 0
			}
			if m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if itemIdx >= 0 && itemIdx < len(m.results) && m.cursor != itemIdx {
				m.cursor = itemIdx
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			return m, vpCmd
		}
		return m, nil

	case categoriesMsg:
		m.categories = msg.categories
		return m, nil

	case debounceTickMsg:
		if msg.query == m.query {
			cmds = append(cmds, m.doSearch(msg.query))
		}
		return m, tea.Batch(cmds...)

	case searchResultMsg:
		if msg.query != m.query || msg.category != m.activeCategory() {
			return m, nil
		}
		m.cursor = 0
		m.listOffset = 0
		m.previewKey = ""
		if msg.err != nil {
			m.results = nil
			m.preview.SetContent("Error: " + msg.err.Error())
			return m, nil
		}
		m.results = msg.results
		if len(m.results) > 0 {
			cmds = append(cmds, m.loadCurrentPreview())
		} else {
			m.preview.SetContent("")
		}
		return m, tea.Batch(cmds...)

	case previewRenderedMsg:
		if msg.key == m.previewKey {
			return m, nil
		}
		if len(m.results) > 0 && m.cursor < len(m.results) {
			if msg.key != previewCacheKey(m.results[m.cursor].RecordRow) {
				return m, nil // stale
			}
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			if msg.hitLine > 0 {
				m.preview.SetYOffset(msg.hitLine)
			} else {
				m.preview.GotoTop()
			}
		}
		m.previewKey = msg.key
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()
	if c := m.activeCategory(); c != "" {
		inputRow += "  " + styleTitle.Render("["+c+"]")
	}

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)
	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

// activeCategory is the category filter currently applied.
func (m model) activeCategory() string {
	if m.catIndex >= 0 && m.catIndex < len(m.categories) {
		return m.categories[m.catIndex]
	}
	return m.searchOpts.Category
}

// helper methods

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// input row (1) + status bar (1) + borders (4)
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	pH := m.panelHeight()
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + pH - 1

	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	listBoxRight := lw + 1

	if x >= 1 && x <= lw {
		return regionList, m.listOffset + relY/linesPerItem
	}
	if x > listBoxRight+1 {
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m model) statusBar() string {
	parts := []string{
		fmt.Sprintf("run %s", shortID(m.run.ID)),
		fmt.Sprintf("%d records", len(m.results)),
		"up/dn navigate",
		"tab category",
		"C-u/C-d preview",
		"Enter copy",
		"Esc quit",
	}
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m model) doSearch(query string) tea.Cmd {
	db := m.db
	opts := m.searchOpts
	opts.Query = query
	opts.Category = m.activeCategory()
	return func() tea.Msg {
		results, err := search.Search(db, opts)
		return searchResultMsg{query: query, category: opts.Category, results: results, err: err}
	}
}

// loadCategories collects the distinct categories of the run, sorted by name.
func (m model) loadCategories() tea.Cmd {
	db := m.db
	runID := m.run.ID
	return func() tea.Msg {
		recs, err := db.GetRecords(runID)
		if err != nil {
			return categoriesMsg{}
		}
		seen := make(map[string]bool)
		var cats []string
		for _, r := range recs {
			if !seen[r.Category] {
				seen[r.Category] = true
				cats = append(cats, r.Category)
			}
		}
		sort.Strings(cats)
		return categoriesMsg{categories: cats}
	}
}

func (m model) scheduleDebouncedSearch(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

func (m model) loadCurrentPreview() tea.Cmd {
	if len(m.results) == 0 || m.cursor >= len(m.results) {
		return nil
	}
	r := m.results[m.cursor].RecordRow
	if previewCacheKey(r) == m.previewKey {
		return nil
	}
	return loadPreviewCmd(m.db, r, m.query, m.previewWidth())
}

func previewCacheKey(r store.RecordRow) string {
	return fmt.Sprintf("%s:%d", r.Chat, r.Seq)
}
