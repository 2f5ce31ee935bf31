package httpmsg

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/yourusername/ember/internal/mimetypes"
	"github.com/yourusername/ember/pkg/ember/buffer"
)

var codeStatus = map[int]string{
	200: "OK",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Server Error",
}

var codePath = map[int]string{
	400: "/400.html",
	403: "/403.html",
	404: "/404.html",
	500: "/500.html",
}

// Response builds a status line, headers, and body for one request, and
// owns the memory mapping (if any) backing that body.
type Response struct {
	Code      int
	KeepAlive bool
	Path      string
	SrcDir    string

	mapped   []byte
	fileSize int64
}

// Init (re)initializes r, releasing any previous mapping. code == -1
// means "decide based on the file's stat result" as MakeResponse runs.
func Init(r *Response, srcDir, path string, keepAlive bool, code int) {
	r.UnmapFile()
	r.SrcDir = srcDir
	r.Path = path
	r.KeepAlive = keepAlive
	r.Code = code
	r.fileSize = 0
}

// File returns the mapped file body, or nil if the response has no
// mapped body (e.g. an inline error page).
func (r *Response) File() []byte { return r.mapped }

// FileLen returns the size of the mapped file body.
func (r *Response) FileLen() int64 { return r.fileSize }

// UnmapFile releases the mapping if any. Idempotent.
func (r *Response) UnmapFile() {
	if r.mapped != nil {
		_ = unix.Munmap(r.mapped)
		r.mapped = nil
	}
}

// MakeResponse stats the resolved path, substitutes the mapped error
// page for 400/403/404/500, writes the status line and headers into buf,
// and mmaps the file body (or writes an inline error page if the file
// can't be opened/mapped). A code that Init already set to one of those
// error codes is kept whatever the path resolves to.
func (r *Response) MakeResponse(buf *buffer.Buffer) {
	full := r.SrcDir + r.Path
	info, err := os.Stat(full)
	if _, isErrCode := codePath[r.Code]; !isErrCode {
		switch {
		case err != nil || info.IsDir():
			r.Code = 404
		case info.Mode().Perm()&0o004 == 0:
			r.Code = 403
		case r.Code == -1:
			r.Code = 200
		}
	}

	if p, ok := codePath[r.Code]; ok {
		r.Path = p
		full = r.SrcDir + r.Path
		if info2, err2 := os.Stat(full); err2 == nil {
			info = info2
		}
	}

	r.addStateLine(buf)
	r.addHeader(buf)
	r.addContent(buf, full)
}

func (r *Response) addStateLine(buf *buffer.Buffer) {
	status, ok := codeStatus[r.Code]
	if !ok {
		r.Code = 400
		status = "Bad Request"
	}
	buf.AppendString("HTTP/1.1 " + strconv.Itoa(r.Code) + " " + status + "\r\n")
}

func (r *Response) addHeader(buf *buffer.Buffer) {
	buf.AppendString("Connection: ")
	if r.KeepAlive {
		buf.AppendString("keep-alive\r\n")
		buf.AppendString("keep-alive: max=6, timeout=120\r\n")
	} else {
		buf.AppendString("close\r\n")
	}
	buf.AppendString("Content-Type: " + mimetypes.Lookup(r.Path) + "\r\n")
}

func (r *Response) addContent(buf *buffer.Buffer, full string) {
	f, err := os.Open(full)
	if err != nil {
		r.errorContent(buf, "File Not Found: "+r.Path)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		r.errorContent(buf, "File Not Found: "+r.Path)
		return
	}

	buf.AppendString("Content-Length: " + strconv.FormatInt(info.Size(), 10) + "\r\n\r\n")

	if info.Size() == 0 {
		r.mapped = nil
		r.fileSize = 0
		return
	}

	mapped, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		r.errorContent(buf, "File Mapping Failed: "+r.Path)
		return
	}
	r.mapped = mapped
	r.fileSize = info.Size()
}

// errorContent writes an inline HTML error body (headers + body
// together) and forces Connection: close, matching the reference.
func (r *Response) errorContent(buf *buffer.Buffer, message string) {
	status := codeStatus[r.Code]
	body := fmt.Sprintf(
		"<html><title>Error</title><body bgcolor=\"ffffff\">%d : %s\n<p>%s</p><hr><em>ember</em></body></html>",
		r.Code, status, message,
	)
	buf.AppendString("HTTP/1.1 " + strconv.Itoa(r.Code) + " " + status + "\r\n")
	buf.AppendString("Content-type: text/html\r\n")
	buf.AppendString("Content-length: " + strconv.Itoa(len(body)) + "\r\n")
	buf.AppendString("Connection: close\r\n\r\n")
	buf.AppendString(body)
}
