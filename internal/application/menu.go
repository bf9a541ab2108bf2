// Package application holds the interactive courier picker of the billing client.
package application

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// ErrCancelled is returned by PickCourier when the user quits without choosing.
var ErrCancelled = errors.New("no courier selected")

/* ----------------------------------------
	MENU
---------------------------------------- */

type MenuItem struct {
	Label  string
	Action func() tea.Cmd
}

type Menu struct {
	Title string
	Items []MenuItem
}

// chosenMsg reports the courier picked from the menu.
type chosenMsg string

func buildCourierMenu(couriers []string) *Menu {
	items := make([]MenuItem, 0, len(couriers)+1)
	for _, key := range couriers {
		items = append(items, MenuItem{
			Label: key,
			Action: func() tea.Cmd {
				return func() tea.Msg { return chosenMsg(key) }
			},
		})
	}
	items = append(items, MenuItem{
		Label:  "Quit",
		Action: func() tea.Cmd { return tea.Quit },
	})

	return &Menu{Title: "Select courier", Items: items}
}

/* ----------------------------------------
	MODEL
---------------------------------------- */

// Model is the bubbletea model of the courier picker.
type Model struct {
	menu   *Menu
	cursor int
	chosen string
}

func NewPicker(couriers []string) Model {
	return Model{menu: buildCourierMenu(couriers)}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case chosenMsg:
		m.chosen = string(msg)
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.menu.Items)-1 {
				m.cursor++
			}
		case "enter", " ":
			if action := m.menu.Items[m.cursor].Action; action != nil {
				return m, action()
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", m.menu.Title)
	for i, item := range m.menu.Items {
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}
		fmt.Fprintf(&b, "%s %s\n", cursor, item.Label)
	}
	b.WriteString("\nup/down: move  enter: select  q: quit\n")
	return b.String()
}

// Chosen returns the picked courier, if any.
func (m Model) Chosen() (string, bool) {
	return m.chosen, m.chosen != ""
}

// PickCourier runs the picker on the terminal and returns the chosen courier.
func PickCourier(couriers []string, opts ...tea.ProgramOption) (string, error) {
	if len(couriers) == 0 {
		return "", errors.New("no couriers configured")
	}

	final, err := tea.NewProgram(NewPicker(couriers), opts...).Run()
	if err != nil {
		return "", fmt.Errorf("courier picker: %w", err)
	}

	m, ok := final.(Model)
	if !ok {
		return "", fmt.Errorf("courier picker: unexpected model %T", final)
	}
	courier, ok := m.Chosen()
	if !ok {
		return "", ErrCancelled
	}
	return courier, nil
}
