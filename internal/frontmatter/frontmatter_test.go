package frontmatter

import (
	"errors"
	"strings"
	"testing"
)

const sample = `---
id: S30
title: Login form
kind: story
status: in-progress
updated: 2026-08-20
---
Body text.

More body.
`

func TestSplit(t *testing.T) {
	front, body, err := Split([]byte(sample))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if !strings.Contains(string(front), "id: S30") {
		t.Errorf("front missing id line: %q", front)
	}
	if strings.Contains(string(front), "---") {
		t.Errorf("front should exclude delimiters: %q", front)
	}
	if !strings.HasPrefix(string(body), "Body text.") {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestSplitErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"empty file", "", ErrNoFrontmatter},
		{"no opening delimiter", "id: S30\n", ErrNoFrontmatter},
		{"body only", "just some markdown\n", ErrNoFrontmatter},
		{"unterminated block", "---\nid: S30\n", ErrUnterminated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Split([]byte(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Split() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestField(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		want   string
		wantOK bool
	}{
		{"status field", "status", "in-progress", true},
		{"updated field", "updated", "2026-08-20", true},
		{"missing field", "priority", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Field([]byte(sample), tt.key)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Field(%q) = (%q, %v), want (%q, %v)", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFieldOnlySearchesBlock(t *testing.T) {
	data := "---\nid: S30\n---\nstatus: completed\n"
	if _, ok := Field([]byte(data), "status"); ok {
		t.Error("Field should not match lines in the body")
	}
}

func TestRewrite(t *testing.T) {
	out, err := Rewrite([]byte(sample), "status", "in-progress", "completed")
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if !strings.Contains(string(out), "status: completed") {
		t.Errorf("rewritten content missing new value:\n%s", out)
	}
	if strings.Contains(string(out), "in-progress") {
		t.Errorf("old value survived rewrite:\n%s", out)
	}
	// Everything else is untouched.
	if !strings.Contains(string(out), "Body text.\n\nMore body.") {
		t.Errorf("body was altered:\n%s", out)
	}
}

func TestRewriteNoMatch(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		oldValue string
	}{
		{"stale old value", "status", "blocked"},
		{"missing key", "assignee", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rewrite([]byte(sample), tt.key, tt.oldValue, "x")
			if !errors.Is(err, ErrNoMatch) {
				t.Errorf("Rewrite() error = %v, want ErrNoMatch", err)
			}
		})
	}
}

func TestRewriteIgnoresBodyLines(t *testing.T) {
	data := "---\nstatus: ready\n---\nstatus: ready\n"
	out, err := Rewrite([]byte(data), "status", "ready", "completed")
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if !strings.Contains(string(out), "---\nstatus: completed\n---\nstatus: ready\n") {
		t.Errorf("body line should be untouched:\n%s", out)
	}
}

func TestRewritePreservesCRLF(t *testing.T) {
	data := "---\r\nstatus: ready\r\n---\r\nbody\r\n"
	out, err := Rewrite([]byte(data), "status", "ready", "completed")
	if err != nil {
		t.Fatalf("Rewrite failed: %v", err)
	}
	if !strings.Contains(string(out), "status: completed\r\n") {
		t.Errorf("CRLF line ending lost:\n%q", out)
	}
}
