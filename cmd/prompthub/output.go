package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	errRunFailed    = errors.New("workflow run failed")
	errRunCancelled = errors.New("workflow run cancelled")
)

const (
	colorGreen = "2"
	colorRed   = "1"
	colorAmber = "3"
	colorGray  = "8"
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, errRunCancelled), errors.Is(err, context.Canceled):
		return 130
	case errors.Is(err, errRunFailed):
		return 2
	default:
		return 1
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// styles renders against the command's writer so colors are dropped when
// output is not a terminal.
type styles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	fail   lipgloss.Style
	warn   lipgloss.Style
	muted  lipgloss.Style
}

func (a *app) styles() styles {
	r := lipgloss.NewRenderer(a.out)
	return styles{
		header: r.NewStyle().Bold(true),
		ok:     r.NewStyle().Foreground(lipgloss.Color(colorGreen)),
		fail:   r.NewStyle().Foreground(lipgloss.Color(colorRed)),
		warn:   r.NewStyle().Foreground(lipgloss.Color(colorAmber)),
		muted:  r.NewStyle().Foreground(lipgloss.Color(colorGray)),
	}
}

func (a *app) table(headers []string, rows [][]string) {
	st := a.styles()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return st.header.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	a.println(t.Render())
}

func truncate(s string, n int) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n-3]) + "..."
}
