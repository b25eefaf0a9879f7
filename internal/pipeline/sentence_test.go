package pipeline

import "testing"

func TestSentenceBufferExtractOnSentenceEnder(t *testing.T) {
	var b sentenceBuffer
	b.Feed("Xin chào bạn.")
	chunk, ok := b.Extract()
	if !ok {
		t.Fatal("expected a complete sentence")
	}
	if chunk != "Xin chào bạn." {
		t.Errorf("chunk = %q", chunk)
	}
	if len(b.runes) != 0 {
		t.Errorf("expected buffer drained, got %d runes left", len(b.runes))
	}
}

func TestSentenceBufferNoExtractBelowMinLength(t *testing.T) {
	var b sentenceBuffer
	b.Feed(".")
	if _, ok := b.Extract(); ok {
		t.Error("a lone ender with nothing before it should not yield a sentence")
	}
}

func TestSentenceBufferExtractMultipleSentencesAcrossCalls(t *testing.T) {
	var b sentenceBuffer
	b.Feed("Câu một. Câu hai!")

	first, ok := b.Extract()
	if !ok || first != "Câu một." {
		t.Fatalf("first chunk = %q, ok=%v", first, ok)
	}
	second, ok := b.Extract()
	if !ok || second != "Câu hai!" {
		t.Fatalf("second chunk = %q, ok=%v", second, ok)
	}
	if _, ok := b.Extract(); ok {
		t.Error("expected no more sentences")
	}
}

func TestSentenceBufferSoftCutPastHardLimit(t *testing.T) {
	var b sentenceBuffer
	// No sentence-ending punctuation anywhere, long enough to force a soft cut.
	text := ""
	for i := 0; i < 120; i++ {
		text += "a"
		if i%5 == 0 {
			text += " "
		}
	}
	b.Feed(text)
	chunk, ok := b.Extract()
	if !ok {
		t.Fatal("expected a soft-cut chunk past the hard limit")
	}
	if len(chunk) < chunkMinChars {
		t.Errorf("soft-cut chunk too short: %d chars", len(chunk))
	}
	if len(chunk) > chunkHardLimit {
		t.Errorf("soft-cut chunk too long: %d chars", len(chunk))
	}
}

func TestSentenceBufferFlushDrainsResidual(t *testing.T) {
	var b sentenceBuffer
	b.Feed("còn dở")
	chunk, ok := b.Flush()
	if !ok || chunk != "còn dở" {
		t.Fatalf("Flush() = %q, ok=%v", chunk, ok)
	}
	if _, ok := b.Flush(); ok {
		t.Error("second Flush() on an empty buffer should report false")
	}
}

func TestSentenceBufferFlushEmptyIsFalse(t *testing.T) {
	var b sentenceBuffer
	if _, ok := b.Flush(); ok {
		t.Error("Flush() on a never-fed buffer should report false")
	}
}
