package hal

// lcdColumns is the width of the 16x2 character display.
const lcdColumns = 16

// hd44780Degree is the degree sign in the HD44780 A00 character ROM.
const hd44780Degree = 0xDF

// lcdLine encodes s for the HD44780 ROM, truncated and space padded to the
// display width. Runes outside printable ASCII become '?'.
func lcdLine(s string) []byte {
	out := make([]byte, 0, lcdColumns)
	for _, r := range s {
		if len(out) == lcdColumns {
			break
		}
		switch {
		case r == '°':
			out = append(out, hd44780Degree)
		case r >= 0x20 && r < 0x7F:
			out = append(out, byte(r))
		default:
			out = append(out, '?')
		}
	}
	for len(out) < lcdColumns {
		out = append(out, ' ')
	}
	return out
}
