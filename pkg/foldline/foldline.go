// Package foldline implements the RFC 5545 / RFC 6350 line unfolding and
// folding algorithm shared by the iCalendar and vCard codecs. Both RFCs
// define the same content-line folding rule: a line may be split across
// multiple physical lines by inserting a CRLF followed by a single space
// or tab, and the unfolder must remove exactly that marker, operating on
// octets rather than decoded runes so a fold can never split the middle
// of a multi-byte UTF-8 sequence on the unfold side (the encoder is the
// one that must avoid creating such a split).
package foldline

// Unfold removes all fold markers from raw content-line bytes and splits
// the remainder into logical lines (without trailing CRLF/LF). Unfolding
// is purely octet-oriented: a fold marker is CRLF-or-LF followed by
// exactly one SP (0x20) or HTAB (0x09), and only that marker is removed —
// any further leading whitespace on the continuation line is content.
func Unfold(data []byte) []string {
	var lines []string
	var cur []byte
	n := len(data)
	i := 0
	for i < n {
		c := data[i]
		if c == '\r' || c == '\n' {
			if c == '\r' && i+1 < n && data[i+1] == '\n' {
				i++
			}
			i++
			if i < n && (data[i] == ' ' || data[i] == '\t') {
				// fold marker: swallow it, continue accumulating onto cur
				i++
				continue
			}
			lines = append(lines, string(cur))
			cur = cur[:0]
			continue
		}
		cur = append(cur, c)
		i++
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// MaxOctets is the maximum number of octets (including the leading CRLF+SP
// fold marker for continuation lines) RFC 5545 recommends per physical
// line.
const MaxOctets = 75

// Fold splits a single logical line into RFC-compliant folded physical
// lines joined by CRLF+SP, never breaking a UTF-8 multi-byte sequence:
// when the candidate break point lands on a continuation byte
// (0b10xxxxxx) the break retreats to the start of that sequence.
func Fold(line string) string {
	b := []byte(line)
	if len(b) <= MaxOctets {
		return line
	}
	var out []byte
	start := 0
	limit := MaxOctets
	for start < len(b) {
		end := start + limit
		if end >= len(b) {
			out = append(out, b[start:]...)
			break
		}
		end = safeBreak(b, end)
		out = append(out, b[start:end]...)
		out = append(out, '\r', '\n', ' ')
		start = end
		// continuation lines have one octet already spent on the
		// leading space, so the next chunk may carry MaxOctets-1
		// content octets before the next break.
		limit = MaxOctets - 1
	}
	return string(out)
}

// safeBreak walks backward from pos until it is not in the middle of a
// UTF-8 multi-byte sequence.
func safeBreak(b []byte, pos int) int {
	if pos <= 0 || pos >= len(b) {
		return pos
	}
	// If b[pos] is a continuation byte, the break would land inside a
	// sequence; retreat until we are at a sequence boundary.
	for pos > 0 && isContinuation(b[pos]) {
		pos--
	}
	return pos
}

func isContinuation(c byte) bool {
	return c&0xC0 == 0x80
}
