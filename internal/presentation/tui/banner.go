package tui

import (
	"fmt"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner with the running version.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Using a subtle gradient-like color scheme (Indigo/Violet)
	s1 := termenv.String(`  __  __                        _   _       `).Foreground(p.Color("#818cf8"))
	s2 := termenv.String(` |  \/  | __ _  __ _ _   _  ___| |_| |_ ___ `).Foreground(p.Color("#a78bfa"))
	s3 := termenv.String(" | |\\/| |/ _` |/ _` | | | |/ _ \\ __| __/ _ \\").Foreground(p.Color("#c084fc"))
	s4 := termenv.String(` | |  | | (_| | (_| | |_| |  __/ |_| ||  __/`).Foreground(p.Color("#e879f9"))
	s5 := termenv.String(` |_|  |_|\__,_|\__, |\__,_|\___|\__|\__\___|`).Foreground(p.Color("#f472b6"))
	s6 := termenv.String(`                  |_|                       `).Foreground(p.Color("#fb7185"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	if v := strings.TrimSpace(version); v != "" {
		fmt.Println(termenv.String("  " + v).Foreground(p.Color("#94a3b8")).Italic())
	}
	fmt.Println()
}
