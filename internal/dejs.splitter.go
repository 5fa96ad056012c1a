package internal

import (
	"strings"
)

// SplitOutside splits expr on every occurrence of sep that is not inside a
// single-quoted string, a double-quoted string or a /* */ block comment.
// Inside quotes a backslash escapes the following character, so an escaped
// quote does not terminate the string.
//
// The separator text is dropped. When sep never matched outside the excluded
// regions the result is (nil, false) and the caller treats expr as ordinary
// code.
func SplitOutside(expr, sep string) ([]string, bool) {
	if sep == "" || !strings.Contains(expr, sep) {
		return nil, false
	}

	var (
		segments  []string
		sb        strings.Builder
		inSingle  bool
		inDouble  bool
		inComment bool
		escaped   bool
		matched   bool
	)

	for i := 0; i < len(expr); {
		ch := expr[i]

		switch {
		case escaped:
			escaped = false
			sb.WriteByte(ch)
			i++
			continue

		case inSingle || inDouble:
			if ch == CharBackslash {
				escaped = true
			} else if (inSingle && ch == CharSingleQuote) || (inDouble && ch == CharDoubleQuote) {
				inSingle, inDouble = false, false
			}
			sb.WriteByte(ch)
			i++
			continue

		case inComment:
			if strings.HasPrefix(expr[i:], StrCommentClose) {
				inComment = false
				sb.WriteString(StrCommentClose)
				i += len(StrCommentClose)
				continue
			}
			sb.WriteByte(ch)
			i++
			continue
		}

		if strings.HasPrefix(expr[i:], sep) {
			segments = append(segments, sb.String())
			sb.Reset()
			matched = true
			i += len(sep)
			continue
		}

		switch {
		case ch == CharSingleQuote:
			inSingle = true
		case ch == CharDoubleQuote:
			inDouble = true
		case strings.HasPrefix(expr[i:], StrCommentOpen):
			inComment = true
			sb.WriteString(StrCommentOpen)
			i += len(StrCommentOpen)
			continue
		}
		sb.WriteByte(ch)
		i++
	}

	if !matched {
		return nil, false
	}
	return append(segments, sb.String()), true
}
