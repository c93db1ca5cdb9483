package services

import "strings"

// MaxChunkChars bounds the length of one text fragment sent to the engine.
// The model degrades on long inputs, so text is synthesized fragment by
// fragment and stitched back together.
const MaxChunkChars = 256

// SplitText breaks text into ordered fragments of at most maxChars runes.
// Splits prefer sentence boundaries, then plain word boundaries; a single
// word longer than maxChars is emitted as its own fragment rather than
// split mid-word.
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = MaxChunkChars
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
		curLen = 0
	}

	for _, sentence := range splitSentences(text) {
		for _, piece := range splitLong(sentence, maxChars) {
			n := len([]rune(piece))
			if curLen > 0 && curLen+1+n > maxChars {
				flush()
			}
			if curLen > 0 {
				cur.WriteByte(' ')
				curLen++
			}
			cur.WriteString(piece)
			curLen += n
		}
	}
	flush()
	return chunks
}

// splitSentences cuts text after terminal punctuation or newlines, keeping
// the punctuation attached to the preceding sentence.
func splitSentences(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		switch r {
		case '.', '!', '?', '\n':
			if s := strings.TrimSpace(cur.String()); s != "" {
				out = append(out, s)
			}
			cur.Reset()
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// splitLong breaks an over-long sentence on spaces so every returned piece
// fits maxChars (except unbreakable words).
func splitLong(sentence string, maxChars int) []string {
	if len([]rune(sentence)) <= maxChars {
		return []string{sentence}
	}

	var pieces []string
	var cur strings.Builder
	curLen := 0
	for _, word := range strings.Fields(sentence) {
		n := len([]rune(word))
		if curLen > 0 && curLen+1+n > maxChars {
			pieces = append(pieces, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteByte(' ')
			curLen++
		}
		cur.WriteString(word)
		curLen += n
	}
	if cur.Len() > 0 {
		pieces = append(pieces, cur.String())
	}
	return pieces
}
