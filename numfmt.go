package xlmap

import (
	"strconv"
	"strings"
)

// numFormat is the number format part of a cell style: a built-in format id
// or a custom format code.
type numFormat struct {
	id       int
	custom   string
	decimals *int
}

func (nf *numFormat) key() string {
	if nf.custom != "" {
		return "numfmt:" + nf.custom
	}
	return "numfmt:" + strconv.Itoa(nf.id)
}

// isDateFormat reports whether a number format displays a date or a time.
// Built-in ids follow ECMA-376 18.8.30, including the East Asian date ids.
func isDateFormat(id int, custom string) bool {
	if custom != "" {
		return isDateFormatCode(custom)
	}
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode looks for date or time tokens in the first section of a
// format code, ignoring quoted text, escaped characters and bracketed
// modifiers other than elapsed time.
func isDateFormatCode(code string) bool {
	if i := strings.IndexByte(code, ';'); i >= 0 {
		code = code[:i]
	}
	for i := 0; i < len(code); i++ {
		switch c := code[i]; c {
		case '"':
			if j := strings.IndexByte(code[i+1:], '"'); j >= 0 {
				i += j + 1
				continue
			}
			return false
		case '\\', '_', '*':
			i++
		case '[':
			j := strings.IndexByte(code[i:], ']')
			if j < 0 {
				return false
			}
			switch strings.ToLower(code[i+1 : i+j]) {
			case "h", "hh", "m", "mm", "s", "ss":
				return true
			}
			i += j
		case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
			return true
		}
	}
	return false
}
