package security

import "testing"

// TestSanitize_PlainTextPassesThrough はプレーンテキストがそのまま通過することを検証する。
func TestSanitize_PlainTextPassesThrough(t *testing.T) {
	s := NewInputSanitizer()

	got := s.Sanitize("デザインレビューの準備")
	if got != "デザインレビューの準備" {
		t.Errorf("Sanitize = %q, want %q", got, "デザインレビューの準備")
	}
}

// TestSanitize_StripsHTMLTags はHTMLタグが除去されることを検証する。
func TestSanitize_StripsHTMLTags(t *testing.T) {
	s := NewInputSanitizer()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"scriptタグ", `<script>alert("x")</script>fix bug`, "fix bug"},
		{"imgのonerror", `<img src=x onerror=alert(1)>title`, "title"},
		{"通常のマークアップ", `<b>bold</b> text`, "bold text"},
		{"aタグ", `<a href="https://example.com">link</a>`, "link"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := s.Sanitize(tc.input)
			if got != tc.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

// TestSanitize_TrimsWhitespace は前後の空白が除去されることを検証する。
func TestSanitize_TrimsWhitespace(t *testing.T) {
	s := NewInputSanitizer()

	got := s.Sanitize("  padded title  ")
	if got != "padded title" {
		t.Errorf("Sanitize = %q, want %q", got, "padded title")
	}
}

// TestSanitize_EmptyInput_ReturnsEmpty は空入力に空文字列を返すことを検証する。
func TestSanitize_EmptyInput_ReturnsEmpty(t *testing.T) {
	s := NewInputSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want \"\"", got)
	}
}

// TestSanitize_Idempotent は同一入力に対する二重適用が同一出力になることを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewInputSanitizer()

	input := `<p>update <em>docs</em></p>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize is not idempotent: once=%q twice=%q", once, twice)
	}
}
