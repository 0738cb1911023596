package cmd

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loopback(context.Context, string) ([]string, error) {
	return []string{"127.0.0.1"}, nil
}

func TestCheckSNI(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	roots := srv.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs

	report, err := checkSNI(context.Background(), "example.com", listenerPort(t, srv), loopback, roots)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", report.Address)
	assert.True(t, report.Modern())
	assert.GreaterOrEqual(t, report.Version, uint16(tls.VersionTLS12))
	assert.False(t, report.NotAfter.IsZero())

	var out bytes.Buffer
	printSNIReport(&out, report)
	assert.Contains(t, out.String(), "example.com is suitable as serverNameHint")
}

func TestCheckSNICertificateMismatch(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	roots := srv.Client().Transport.(*http.Transport).TLSClientConfig.RootCAs

	_, err := checkSNI(context.Background(), "cdn.other.test", listenerPort(t, srv), loopback, roots)
	assert.Error(t, err)
}

func TestCheckSNIResolveFailure(t *testing.T) {
	lookup := func(context.Context, string) ([]string, error) {
		return nil, errors.New("no such host")
	}
	_, err := checkSNI(context.Background(), "missing.test", 443, lookup, nil)
	assert.ErrorContains(t, err, "resolve missing.test")
}

func TestSNICommandNeedsDomain(t *testing.T) {
	assert.Error(t, execute(t, func() error { return nil }, "sni"))
}

func listenerPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()
	return srv.Listener.Addr().(*net.TCPAddr).Port
}
