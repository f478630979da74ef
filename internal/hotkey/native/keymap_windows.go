//go:build windows

package native

// platformKeys are Windows virtual-key codes.
var platformKeys = map[string]uint16{
	"backspace":    0x08,
	"insert":       0x2D,
	"home":         0x24,
	"end":          0x23,
	"pageup":       0x21,
	"pagedown":     0x22,
	"comma":        0xBC,
	"period":       0xBE,
	"minus":        0xBD,
	"equal":        0xBB,
	"slash":        0xBF,
	"backslash":    0xDC,
	"semicolon":    0xBA,
	"quote":        0xDE,
	"backquote":    0xC0,
	"bracketleft":  0xDB,
	"bracketright": 0xDD,
}
