package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/texbake/pkg/shader"
)

// List styles
var (
	listDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// interactive reports whether output goes to a terminal a picker can drive.
func interactive() bool {
	if f, ok := out.(*os.File); !ok || f != os.Stdout {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}

// =============================================================================
// MaterialListModel - Interactive material selection
// =============================================================================

// MaterialListModel is the bubbletea model for picking one scene material.
type MaterialListModel struct {
	Materials []*shader.Material
	Cursor    int
	Selected  *shader.Material
	Height    int
	Offset    int
}

// NewMaterialListModel creates a new material list model.
func NewMaterialListModel(mats []*shader.Material) MaterialListModel {
	return MaterialListModel{
		Materials: mats,
		Height:    15,
	}
}

func (m MaterialListModel) Init() tea.Cmd {
	return nil
}

func (m MaterialListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Materials)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Materials) == 0 {
				return m, nil
			}
			m.Selected = m.Materials[m.Cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m MaterialListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select Material"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Materials))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		mat := m.Materials[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		textures := 0
		for _, n := range mat.Graph.Nodes() {
			if n.Kind == shader.KindImageTexture {
				textures++
			}
		}
		rows = append(rows, []string{
			cursor,
			mat.Name,
			strconv.Itoa(mat.Graph.NodeCount()),
			strconv.Itoa(len(mat.Graph.Links())),
			strconv.Itoa(textures),
		})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Material", "Nodes", "Links", "Textures").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			base := lipgloss.NewStyle()
			if col > 1 {
				base = base.Foreground(colorDim)
			}
			if m.Offset+row == m.Cursor {
				if col == 1 {
					return base.Foreground(colorGreen).Bold(true)
				}
				return base.Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Materials))))

	return b.String()
}

// pickMaterial runs the material picker. It returns nil when the user quits
// without choosing.
func pickMaterial(mats []*shader.Material) (*shader.Material, error) {
	p := tea.NewProgram(NewMaterialListModel(mats))
	finalModel, err := p.Run()
	if err != nil {
		return nil, err
	}
	fm, ok := finalModel.(MaterialListModel)
	if !ok {
		return nil, nil
	}
	return fm.Selected, nil
}
