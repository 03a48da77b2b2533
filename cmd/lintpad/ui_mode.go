package main

import (
	"fmt"
	"os"
	"strings"
)

// uiMode is the --ui setting of watch.
type uiMode uint8

const (
	uiAuto uiMode = iota
	uiOn
	uiOff
)

func parseUIMode(value string) (uiMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return uiAuto, nil
	case "on", "tui":
		return uiOn, nil
	case "off", "plain":
		return uiOff, nil
	}
	return uiAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
}

func (m uiMode) String() string {
	switch m {
	case uiOn:
		return "on"
	case uiOff:
		return "off"
	default:
		return "auto"
	}
}

// interactive reports whether watch runs the full-screen view. In auto mode
// the view needs stdin and stdout on a terminal that can redraw, since it
// reads keys.
func (m uiMode) interactive(in, out *os.File, termName string) bool {
	switch m {
	case uiOn:
		return true
	case uiOff:
		return false
	}
	return termName != "dumb" && isTerminal(out) && isTerminal(in)
}
