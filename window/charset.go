package window

import "golang.org/x/text/encoding/charmap"

// decodeANSIChar converts the character code of a MsgChar sent to a
// non-Unicode window into a Unicode code point. Codes outside the single
// byte range are passed through.
func decodeANSIChar(code uintptr) uintptr {
	if code > 0xFF {
		return code
	}
	return uintptr(charmap.Windows1252.DecodeByte(byte(code)))
}
