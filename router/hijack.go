package router

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

var ErrNotHijackable = errors.New("response writer does not support hijacking")

// HijackSource adapts a net/http upgrade request to UpgradeSource.
type HijackSource struct {
	w     http.ResponseWriter
	r     *http.Request
	taken bool
}

func NewHijackSource(w http.ResponseWriter, r *http.Request) *HijackSource {
	return &HijackSource{w: w, r: r}
}

func (h *HijackSource) Path() string {
	return h.r.RequestURI
}

// TakeRawConnection hijacks the connection. The returned bytes are the request
// head as received, followed by whatever the server had buffered past it.
func (h *HijackSource) TakeRawConnection() (net.Conn, []byte, error) {
	if h.taken {
		return nil, nil, errors.New("connection already taken")
	}
	hj, ok := h.w.(http.Hijacker)
	if !ok {
		return nil, nil, ErrNotHijackable
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		return nil, nil, fmt.Errorf("hijack: %w", err)
	}
	h.taken = true
	conn.SetDeadline(time.Time{})

	head := requestHead(h.r)
	if rw != nil && rw.Reader.Buffered() > 0 {
		buffered, _ := rw.Reader.Peek(rw.Reader.Buffered())
		head = append(head, buffered...)
	}
	return conn, head, nil
}

func requestHead(r *http.Request) []byte {
	var b bytes.Buffer
	uri := r.RequestURI
	if uri == "" {
		uri = r.URL.RequestURI()
	}
	fmt.Fprintf(&b, "%s %s %s\r\n", r.Method, uri, r.Proto)
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	r.Header.Write(&b)
	b.WriteString("\r\n")
	return b.Bytes()
}
