//go:build linux

package native

// platformKeys are X11 keysyms.
var platformKeys = map[string]uint16{
	"backspace":    0xff08,
	"insert":       0xff63,
	"home":         0xff50,
	"end":          0xff57,
	"pageup":       0xff55,
	"pagedown":     0xff56,
	"comma":        0x002c,
	"period":       0x002e,
	"minus":        0x002d,
	"equal":        0x003d,
	"slash":        0x002f,
	"backslash":    0x005c,
	"semicolon":    0x003b,
	"quote":        0x0027,
	"backquote":    0x0060,
	"bracketleft":  0x005b,
	"bracketright": 0x005d,
}
