//go:build darwin

package native

// platformKeys are macOS virtual key codes. Mac keyboards have no insert key.
var platformKeys = map[string]uint16{
	"backspace":    0x33,
	"home":         0x73,
	"end":          0x77,
	"pageup":       0x74,
	"pagedown":     0x79,
	"comma":        0x2B,
	"period":       0x2F,
	"minus":        0x1B,
	"equal":        0x18,
	"slash":        0x2C,
	"backslash":    0x2A,
	"semicolon":    0x29,
	"quote":        0x27,
	"backquote":    0x32,
	"bracketleft":  0x21,
	"bracketright": 0x1E,
}
