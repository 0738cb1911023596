package cmd

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

const sniTimeout = 10 * time.Second

type sniReport struct {
	Domain    string
	Address   string
	Version   uint16
	Cipher    uint16
	Subject   string
	Issuer    string
	NotBefore time.Time
	NotAfter  time.Time
}

// Modern reports whether the handshake negotiated TLS 1.2 or later.
func (r *sniReport) Modern() bool {
	return r.Version >= tls.VersionTLS12
}

type lookupFunc func(ctx context.Context, host string) ([]string, error)

// checkSNI resolves domain and completes a verified TLS handshake against the
// first address with domain as the server name.
func checkSNI(ctx context.Context, domain string, port int, lookup lookupFunc, roots *x509.CertPool) (*sniReport, error) {
	ctx, cancel := context.WithTimeout(ctx, sniTimeout)
	defer cancel()

	addrs, err := lookup(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", domain, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: no addresses", domain)
	}
	report := &sniReport{Domain: domain, Address: addrs[0]}

	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: sniTimeout},
		Config: &tls.Config{
			ServerName: domain,
			RootCAs:    roots,
		},
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addrs[0], strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("tls handshake with %s: %w", domain, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	report.Version = state.Version
	report.Cipher = state.CipherSuite
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		report.Subject = leaf.Subject.CommonName
		report.Issuer = leaf.Issuer.CommonName
		if len(leaf.Issuer.Organization) > 0 {
			report.Issuer = leaf.Issuer.Organization[0]
		}
		report.NotBefore = leaf.NotBefore
		report.NotAfter = leaf.NotAfter
	}
	return report, nil
}

func printSNIReport(w io.Writer, r *sniReport) {
	fmt.Fprintln(w, "SNI check for", r.Domain)
	fmt.Fprintln(w, "\tAddress:\t", r.Address)
	fmt.Fprintln(w, "\tSubject CN:\t", orNA(r.Subject))
	fmt.Fprintln(w, "\tIssuer:\t\t", orNA(r.Issuer))
	fmt.Fprintln(w, "\tValid:\t\t", r.NotBefore.Format(time.DateOnly), "-", r.NotAfter.Format(time.DateOnly))
	fmt.Fprintln(w, "\tTLS:\t\t", tls.VersionName(r.Version))
	fmt.Fprintln(w, "\tCipher:\t\t", tls.CipherSuiteName(r.Cipher))
	if r.Modern() {
		fmt.Fprintln(w, r.Domain, "is suitable as serverNameHint")
	} else {
		fmt.Fprintln(w, r.Domain, "only offers a legacy TLS version")
	}
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
