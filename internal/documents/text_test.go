package documents

import (
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   string
	}{
		{
			name:   "simple Tj",
			stream: "BT /F1 12 Tf 72 712 Td (Executive Summary) Tj ET",
			want:   "Executive Summary",
		},
		{
			name:   "TJ array with kerning",
			stream: "BT /F1 12 Tf [(APP) 20 (ENDIX) -300 (A)] TJ ET",
			want:   "APPENDIX A",
		},
		{
			name:   "hex string",
			stream: "BT <48656C6C6F> Tj ET",
			want:   "Hello",
		},
		{
			name:   "escapes and nested parens",
			stream: `BT (Site \(north\) \\ parcel) Tj ET`,
			want:   `Site (north) \ parcel`,
		},
		{
			name:   "octal escape",
			stream: `BT (caf\351) Tj ET`,
			want:   "café",
		},
		{
			name:   "line break operators",
			stream: "BT (Line one) Tj T* (Line two) Tj 0 -14 Td (Line three) Tj ET",
			want:   "Line one\nLine two\nLine three",
		},
		{
			name:   "quote operator starts a new line",
			stream: "BT (First) Tj (Second) ' ET",
			want:   "First\nSecond",
		},
		{
			name:   "graphics only",
			stream: "q 1 0 0 1 0 0 cm 0 0 612 792 re f Q",
			want:   "",
		},
		{
			name:   "comments ignored",
			stream: "% (not text) Tj\nBT (Real) Tj ET",
			want:   "Real",
		},
		{
			name:   "dictionary operands",
			stream: "/Span << /MCID 0 >> BDC BT (Tagged) Tj ET EMC",
			want:   "Tagged",
		},
		{
			name:   "inline image skipped",
			stream: "BI /W 2 /H 2 /BPC 8 /CS /G ID \x00\xff(Tj)\x01 EI BT (After) Tj ET",
			want:   "After",
		},
		{
			name:   "unterminated string",
			stream: "BT (dangling",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractText([]byte(tt.stream))
			if got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractText_ControlCodesDropped(t *testing.T) {
	got := ExtractText([]byte("BT <0041004200430044> Tj ET"))
	if got != "ABCD" {
		t.Errorf("ExtractText() = %q, want %q", got, "ABCD")
	}
}

func TestExtractText_LargeStream(t *testing.T) {
	var b strings.Builder
	b.WriteString("BT /F1 10 Tf\n")
	for i := 0; i < 500; i++ {
		b.WriteString("(word) Tj T*\n")
	}
	b.WriteString("ET")

	got := ExtractText([]byte(b.String()))
	if lines := strings.Count(got, "word"); lines != 500 {
		t.Errorf("Expected 500 words, got %d", lines)
	}
}
