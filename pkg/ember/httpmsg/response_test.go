package httpmsg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yourusername/ember/pkg/ember/buffer"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestMakeResponse200MatchesContentLengthPlusFile(t *testing.T) {
	dir := t.TempDir()
	body := "seventeen bytes!!"
	writeFile(t, dir, "index.html", body)

	var r Response
	Init(&r, dir, "/index.html", true, -1)
	defer r.UnmapFile()

	buf := buffer.New()
	r.MakeResponse(buf)

	if r.Code != 200 {
		t.Fatalf("code = %d, want 200", r.Code)
	}
	header := string(buf.Peek())
	if !strings.HasPrefix(header, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("header = %q", header)
	}
	if !strings.Contains(header, "Content-Length: "+itoa(len(body))+"\r\n") {
		t.Fatalf("missing content-length in %q", header)
	}
	if r.FileLen() != int64(len(body)) {
		t.Fatalf("FileLen = %d, want %d", r.FileLen(), len(body))
	}
	if string(r.File()) != body {
		t.Fatalf("mapped file = %q, want %q", r.File(), body)
	}
	total := len(header) + len(r.File())
	if total != len(header)+int(r.FileLen()) {
		t.Fatalf("total length mismatch")
	}
}

func TestMakeResponseMissingFileIs404(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "404.html", "not found page")

	var r Response
	Init(&r, dir, "/does-not-exist.html", false, -1)
	defer r.UnmapFile()

	buf := buffer.New()
	r.MakeResponse(buf)

	if r.Code != 404 {
		t.Fatalf("code = %d, want 404", r.Code)
	}
	if r.Path != "/404.html" {
		t.Fatalf("path = %q, want /404.html", r.Path)
	}
	if string(r.File()) != "not found page" {
		t.Fatalf("expected mapped 404 page body, got %q", r.File())
	}
	if strings.Contains(string(buf.Peek()), "keep-alive") {
		t.Fatalf("expected Connection: close for a non-keep-alive response")
	}
}

func TestMakeResponseUnreadableFileIs403(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "secret.html", "shh")
	if err := os.Chmod(filepath.Join(dir, "secret.html"), 0o600); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	writeFile(t, dir, "403.html", "forbidden page")

	var r Response
	Init(&r, dir, "/secret.html", false, -1)
	defer r.UnmapFile()

	buf := buffer.New()
	r.MakeResponse(buf)

	if r.Code != 403 {
		t.Fatalf("code = %d, want 403", r.Code)
	}
}

func TestUnmapFileIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "x")
	var r Response
	Init(&r, dir, "/a.html", false, -1)
	r.MakeResponse(buffer.New())
	r.UnmapFile()
	r.UnmapFile() // must not panic
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}
