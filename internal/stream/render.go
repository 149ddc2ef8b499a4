package stream

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// ColorMode says how a Color was specified.
type ColorMode uint8

const (
	ColorNone ColorMode = iota
	ColorIndexed
	ColorRGB
)

// Color is an SGR foreground or background colour.
type Color struct {
	Mode    ColorMode
	Index   uint8
	R, G, B uint8
}

// Style is the SGR state attached to a run of text.
type Style struct {
	Bold      bool
	Faint     bool
	Italic    bool
	Underline bool
	Reverse   bool
	Strike    bool
	FG        Color
	BG        Color
}

// Plain reports whether the style has no attributes.
func (s Style) Plain() bool {
	return s == Style{}
}

// Segment is a run of text sharing one style.
type Segment struct {
	Text  string
	Style Style
}

// Line is one rendered output line.
type Line []Segment

// Parse interprets s as terminal output. SGR sequences become segment
// styles, other escape sequences are dropped, and a carriage return
// discards what was written earlier on the same line.
func Parse(s string) []Line {
	var (
		lines []Line
		cur   Line
		style Style
		text  strings.Builder
		state byte
	)
	flush := func() {
		if text.Len() > 0 {
			cur = append(cur, Segment{Text: text.String(), Style: style})
			text.Reset()
		}
	}

	p := ansi.NewParser()
	for len(s) > 0 {
		seq, _, n, newState := ansi.DecodeSequence(s, state, p)
		state = newState
		if n <= 0 {
			n = 1
		}
		s = s[n:]

		switch {
		case seq == "\n":
			flush()
			lines = append(lines, cur)
			cur = nil
		case seq == "\r":
			if strings.HasPrefix(s, "\n") {
				continue
			}
			text.Reset()
			cur = nil
		case ansi.HasCsiPrefix(seq):
			if isSGR(ansi.Cmd(p.Command())) {
				flush()
				style = applySGR(style, p.Params())
			}
		case seq == "", ansi.HasEscPrefix(seq), isControl(seq[0]):
		default:
			text.WriteString(seq)
		}
	}
	flush()
	if len(cur) > 0 || len(lines) == 0 {
		lines = append(lines, cur)
	}
	return lines
}

func isSGR(cmd ansi.Cmd) bool {
	return cmd.Final() == 'm' && cmd.Prefix() == 0 && cmd.Intermediate() == 0
}

// isControl reports C0, DEL and C1 bytes, which also start 8-bit string
// sequences. Tabs are kept.
func isControl(c byte) bool {
	return c != '\t' && (c < 0x20 || (c >= 0x7f && c < 0xc0))
}

func applySGR(st Style, params ansi.Params) Style {
	if len(params) == 0 {
		return Style{}
	}
	// Colon sub-parameters and semicolon lists are read the same way
	codes := make([]int, 0, len(params))
	params.ForEach(0, func(_, param int, _ bool) {
		codes = append(codes, param)
	})
	for k := 0; k < len(codes); k++ {
		switch code := codes[k]; {
		case code == 0:
			st = Style{}
		case code == 1:
			st.Bold = true
		case code == 2:
			st.Faint = true
		case code == 3:
			st.Italic = true
		case code == 4:
			st.Underline = true
		case code == 7:
			st.Reverse = true
		case code == 9:
			st.Strike = true
		case code == 22:
			st.Bold, st.Faint = false, false
		case code == 23:
			st.Italic = false
		case code == 24:
			st.Underline = false
		case code == 27:
			st.Reverse = false
		case code == 29:
			st.Strike = false
		case code >= 30 && code <= 37:
			st.FG = Color{Mode: ColorIndexed, Index: uint8(code - 30)}
		case code == 39:
			st.FG = Color{}
		case code >= 40 && code <= 47:
			st.BG = Color{Mode: ColorIndexed, Index: uint8(code - 40)}
		case code == 49:
			st.BG = Color{}
		case code >= 90 && code <= 97:
			st.FG = Color{Mode: ColorIndexed, Index: uint8(code - 90 + 8)}
		case code >= 100 && code <= 107:
			st.BG = Color{Mode: ColorIndexed, Index: uint8(code - 100 + 8)}
		case code == 38 || code == 48:
			col, used := extendedColor(codes[k+1:])
			k += used
			if code == 38 {
				st.FG = col
			} else {
				st.BG = col
			}
		}
	}
	return st
}

// extendedColor reads the 5;n or 2;r;g;b tail of a 38 or 48 code and
// returns how many codes it used.
func extendedColor(rest []int) (Color, int) {
	if len(rest) == 0 {
		return Color{}, 0
	}
	num := func(i int) uint8 {
		if i >= len(rest) {
			return 0
		}
		return uint8(max(0, min(rest[i], 255)))
	}
	switch rest[0] {
	case 5:
		return Color{Mode: ColorIndexed, Index: num(1)}, min(2, len(rest))
	case 2:
		return Color{Mode: ColorRGB, R: num(1), G: num(2), B: num(3)}, min(4, len(rest))
	default:
		return Color{}, 1
	}
}

// Hex returns the colour as #rrggbb using the xterm palette for indexed
// colours.
func (c Color) Hex() string {
	switch c.Mode {
	case ColorRGB:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	case ColorIndexed:
		r, g, b := xtermRGB(c.Index)
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	default:
		return ""
	}
}

var basePalette = [16][3]uint8{
	{0, 0, 0}, {205, 49, 49}, {13, 188, 121}, {229, 229, 16},
	{36, 114, 200}, {188, 63, 188}, {17, 168, 205}, {229, 229, 229},
	{102, 102, 102}, {241, 76, 76}, {35, 209, 139}, {245, 245, 67},
	{59, 142, 234}, {214, 112, 214}, {41, 184, 219}, {255, 255, 255},
}

func xtermRGB(i uint8) (uint8, uint8, uint8) {
	switch {
	case i < 16:
		p := basePalette[i]
		return p[0], p[1], p[2]
	case i < 232:
		n := int(i) - 16
		level := func(v int) uint8 {
			if v == 0 {
				return 0
			}
			return uint8(55 + v*40)
		}
		return level(n / 36), level((n / 6) % 6), level(n % 6)
	default:
		v := uint8(8 + (int(i)-232)*10)
		return v, v, v
	}
}

func (c Color) terminal() (lipgloss.TerminalColor, bool) {
	switch c.Mode {
	case ColorIndexed:
		return lipgloss.Color(strconv.Itoa(int(c.Index))), true
	case ColorRGB:
		return lipgloss.Color(c.Hex()), true
	default:
		return nil, false
	}
}

func (s Style) toLipgloss() lipgloss.Style {
	ls := lipgloss.NewStyle().
		Bold(s.Bold).
		Faint(s.Faint).
		Italic(s.Italic).
		Underline(s.Underline).
		Reverse(s.Reverse).
		Strikethrough(s.Strike)
	if fg, ok := s.FG.terminal(); ok {
		ls = ls.Foreground(fg)
	}
	if bg, ok := s.BG.terminal(); ok {
		ls = ls.Background(bg)
	}
	return ls
}

// Render re-emits output as styled terminal text for the run view.
func Render(s string) string {
	lines := Parse(s)
	out := make([]string, len(lines))
	for i, line := range lines {
		var b strings.Builder
		for _, seg := range line {
			if seg.Style.Plain() {
				b.WriteString(seg.Text)
				continue
			}
			b.WriteString(seg.Style.toLipgloss().Render(seg.Text))
		}
		out[i] = b.String()
	}
	return strings.Join(out, "\n")
}

// Plain returns output with every escape sequence removed and carriage
// returns applied.
func Plain(s string) string {
	lines := Parse(s)
	out := make([]string, len(lines))
	for i, line := range lines {
		var b strings.Builder
		for _, seg := range line {
			b.WriteString(seg.Text)
		}
		out[i] = b.String()
	}
	return strings.Join(out, "\n")
}

// HTML renders output as escaped markup with inline styles.
func HTML(s string) string {
	lines := Parse(s)
	out := make([]string, len(lines))
	for i, line := range lines {
		var b strings.Builder
		for _, seg := range line {
			text := html.EscapeString(seg.Text)
			css := seg.Style.css()
			if css == "" {
				b.WriteString(text)
				continue
			}
			fmt.Fprintf(&b, `<span style="%s">%s</span>`, css, text)
		}
		out[i] = b.String()
	}
	return strings.Join(out, "\n")
}

func (s Style) css() string {
	var parts []string
	fg, bg := s.FG, s.BG
	if s.Reverse {
		fg, bg = bg, fg
		if fg.Mode == ColorNone {
			fg = Color{Mode: ColorIndexed, Index: 0}
		}
		if bg.Mode == ColorNone {
			bg = Color{Mode: ColorIndexed, Index: 7}
		}
	}
	if h := fg.Hex(); h != "" {
		parts = append(parts, "color:"+h)
	}
	if h := bg.Hex(); h != "" {
		parts = append(parts, "background-color:"+h)
	}
	if s.Bold {
		parts = append(parts, "font-weight:bold")
	}
	if s.Faint {
		parts = append(parts, "opacity:0.7")
	}
	if s.Italic {
		parts = append(parts, "font-style:italic")
	}
	var deco []string
	if s.Underline {
		deco = append(deco, "underline")
	}
	if s.Strike {
		deco = append(deco, "line-through")
	}
	if len(deco) > 0 {
		parts = append(parts, "text-decoration:"+strings.Join(deco, " "))
	}
	return strings.Join(parts, ";")
}
