package dentalchart

import (
	"strconv"
	"strings"
)

// MirrorSVGPath flips the y coordinates of an SVG path around a drawing
// area of the given height (y' = height - y). Relative commands have their
// dy negated instead.
func MirrorSVGPath(d string, height float64) string {
	var b strings.Builder
	b.Grow(len(d))
	var cmd byte
	arg := 0
	for i := 0; i < len(d); {
		c := d[i]
		switch {
		case isPathCommand(c):
			cmd, arg = c, 0
			b.WriteByte(c)
			i++
		case isNumberStart(c):
			j := scanNumber(d, i)
			num := d[i:j]
			if isYArg(cmd, arg) {
				if v, err := strconv.ParseFloat(num, 64); err == nil {
					if cmd >= 'a' && cmd <= 'z' {
						v = -v
					} else {
						v = height - v
					}
					if i > 0 && isNumberEnd(d[i-1]) {
						b.WriteByte(' ')
					}
					num = strconv.FormatFloat(v, 'f', -1, 64)
				}
			}
			b.WriteString(num)
			arg++
			i = j
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func isPathCommand(c byte) bool {
	return strings.IndexByte("MmLlHhVvCcSsQqTtAaZz", c) >= 0
}

func isNumberStart(c byte) bool {
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}

func isNumberEnd(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.'
}

func scanNumber(s string, i int) int {
	j := i
	if s[j] == '-' || s[j] == '+' {
		j++
	}
	dot := false
	for j < len(s) {
		c := s[j]
		switch {
		case c >= '0' && c <= '9':
			j++
		case c == '.' && !dot:
			dot = true
			j++
		case (c == 'e' || c == 'E') && j+1 < len(s):
			j++
			if s[j] == '-' || s[j] == '+' {
				j++
			}
		default:
			return j
		}
	}
	return j
}

// isYArg reports whether argument n of a path command is a y coordinate.
func isYArg(cmd byte, n int) bool {
	switch cmd {
	case 'M', 'm', 'L', 'l', 'T', 't', 'C', 'c', 'S', 's', 'Q', 'q':
		return n%2 == 1
	case 'V', 'v':
		return true
	case 'A', 'a':
		return n%7 == 6
	}
	return false
}
