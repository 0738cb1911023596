package util

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"strings"

	"github.com/igor04091968/v2panel/database/model"
)

// Clients reach the panel through a TLS front on 443; the backend port is local only.
const publicPort = "443"

// LinkHost resolves the address and SNI a client should use. The SNI falls
// back to the public host when no server-name hint is configured.
func LinkHost(cfg *model.ServerConfig, host string) (string, string) {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	sni := cfg.ServerNameHint
	if sni == "" {
		sni = host
	}
	return host, sni
}

func VmessLink(cfg *model.ServerConfig, host string) (string, error) {
	addr, sni := LinkHost(cfg, host)
	obj := map[string]interface{}{
		"v":    "2",
		"ps":   remark(addr),
		"add":  addr,
		"port": publicPort,
		"id":   cfg.Secret,
		"aid":  "0",
		"scy":  "auto",
		"net":  "ws",
		"type": "none",
		"host": sni,
		"path": cfg.Path,
		"tls":  "tls",
		"sni":  sni,
	}
	jsonStr, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("vmess://%s", toBase64(jsonStr)), nil
}

// HTTPCustomPayload is the request template used by HTTP Custom style
// tunnelling apps, with [crlf] standing for a line break.
func HTTPCustomPayload(cfg *model.ServerConfig, host string) string {
	_, sni := LinkHost(cfg, host)
	return fmt.Sprintf("GET %s HTTP/1.1[crlf]Host: %s[crlf]Upgrade: websocket[crlf]Connection: Upgrade[crlf]User-Agent: okhttp/3.11[crlf][crlf]",
		cfg.Path, sni)
}

func remark(host string) string {
	label, _, _ := strings.Cut(host, ".")
	return "v2panel-" + label
}

func toBase64(d []byte) string {
	return base64.StdEncoding.EncodeToString(d)
}
