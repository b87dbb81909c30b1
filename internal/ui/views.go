package ui

import (
	"encoding/base64"
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"trialscope/internal/freq"
)

func overlay(base, overlay string) string {
	// Draw overlay on top of base by replacing lines where overlay has content.
	bLines := strings.Split(base, "\n")
	oLines := strings.Split(overlay, "\n")
	maxLen := max(len(bLines), len(oLines))
	for len(bLines) < maxLen {
		bLines = append(bLines, "")
	}
	for len(oLines) < maxLen {
		oLines = append(oLines, "")
	}
	out := make([]string, maxLen)
	for i := 0; i < maxLen; i++ {
		// whitespace-only overlay lines are transparent
		if strings.TrimSpace(oLines[i]) != "" {
			out[i] = oLines[i]
		} else {
			out[i] = bLines[i]
		}
	}
	return strings.Join(out, "\n")
}

// copyToClipboard tries to copy text using OSC52 (works in many terminals).
func copyToClipboard(s string) {
	s = stripANSI(s)
	enc := base64.StdEncoding.EncodeToString([]byte(s))
	payload := fmt.Sprintf("\x1b]52;c;%s\x07", enc)
	// Best-effort: write to /dev/tty to avoid clobbering the app's stdout buffer
	if f, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0); err == nil {
		defer f.Close()
		_, _ = f.WriteString(payload)
		return
	}
	fmt.Fprint(os.Stdout, payload)
}

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// colorBar returns a bar with simple red intensity for larger ratios.
func colorBar(width int, val, max float64) string {
	if width <= 0 {
		return ""
	}
	r := 0.0
	if max > 0 {
		r = val / max
	}
	color := 226 - int(r*30) // yellow->red
	if color < 196 {
		color = 196
	}
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[0m", color, strings.Repeat("▇", width))
}

// renderValuesList paints the value table with a fixed 50/50 split between
// label and bar. The selected item is prefixed with "> ", picked ones are
// marked with "*".
func renderValuesList(items []freq.ValueShare, picked map[string]bool, width, sel int) string {
	if len(items) == 0 {
		return "No values"
	}
	if width < 20 {
		width = 20
	}
	// selection prefix and pick marker
	usable := max(10, width-3)
	labelW := usable / 2
	barW := usable - labelW
	maxc := 1
	for _, it := range items {
		maxc = max(maxc, it.Frequency)
	}
	var b strings.Builder
	for i, it := range items {
		prefix := "  "
		if i == sel {
			prefix = "> "
		}
		mark := " "
		if picked[it.Value] {
			mark = "*"
		}
		label := padRight(truncateRunes(it.Label, labelW), labelW)
		cnt := fmt.Sprintf("%d (%.1f%%)", it.Frequency, it.Percent)
		widthBar := max(0, barW-runeLen(cnt)-1)
		scaled := int(math.Round(float64(widthBar) * float64(it.Frequency) / float64(maxc)))
		bar := colorBar(scaled, float64(it.Frequency), float64(maxc))
		pad := strings.Repeat(" ", max(0, widthBar-scaled))
		b.WriteString(prefix + mark + label + bar + pad + " " + cnt)
		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func runeLen(s string) int { return len([]rune(s)) }

func padRight(s string, w int) string {
	rs := []rune(s)
	if len(rs) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(rs))
}

func truncateRunes(s string, w int) string {
	rs := []rune(s)
	if len(rs) <= w {
		return s
	}
	return string(rs[:w])
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func itoa(n int) string { return strconv.Itoa(n) }
