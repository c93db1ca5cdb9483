package services

import (
	"strings"
	"testing"
)

func TestSplitTextEmpty(t *testing.T) {
	if chunks := SplitText("   ", MaxChunkChars); chunks != nil {
		t.Fatalf("expected no chunks for blank input, got %v", chunks)
	}
}

func TestSplitTextShort(t *testing.T) {
	chunks := SplitText("Xin chào thế giới.", MaxChunkChars)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "Xin chào thế giới." {
		t.Errorf("chunk altered: %q", chunks[0])
	}
}

func TestSplitTextMergesShortSentences(t *testing.T) {
	chunks := SplitText("One. Two. Three.", MaxChunkChars)
	if len(chunks) != 1 {
		t.Fatalf("short sentences should merge into one chunk, got %d", len(chunks))
	}
}

func TestSplitTextBounds(t *testing.T) {
	// Three ~200-char sentences: no two fit in one 256-char chunk.
	sentence := strings.Repeat("word ", 40) + "end."
	text := sentence + " " + sentence + " " + sentence

	chunks := SplitText(text, MaxChunkChars)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %v", len(chunks), chunks)
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > MaxChunkChars {
			t.Errorf("chunk %d has %d chars, exceeds %d", i, n, MaxChunkChars)
		}
	}

	// Order preserved and nothing lost but separators.
	joined := strings.Join(chunks, " ")
	if joined != text {
		t.Errorf("reassembled text differs:\n got %q\nwant %q", joined, text)
	}
}

func TestSplitTextLongSentence(t *testing.T) {
	// A single 600-char sentence must be split on word boundaries.
	text := strings.Repeat("lorem ipsum ", 50)

	chunks := SplitText(text, MaxChunkChars)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len([]rune(c)); n > MaxChunkChars {
			t.Errorf("chunk %d has %d chars, exceeds %d", i, n, MaxChunkChars)
		}
	}
}

func TestSplitTextUnbreakableWord(t *testing.T) {
	word := strings.Repeat("a", 300)
	chunks := SplitText(word, MaxChunkChars)
	if len(chunks) != 1 {
		t.Fatalf("unbreakable word should be one chunk, got %d", len(chunks))
	}
	if chunks[0] != word {
		t.Error("unbreakable word altered")
	}
}
