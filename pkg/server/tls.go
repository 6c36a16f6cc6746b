package server

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"

	"golang.org/x/crypto/acme/autocert"

	"github.com/antibyte/linebasic/pkg/configuration"
	"github.com/antibyte/linebasic/pkg/logger"
)

// TLSSettings is the [TLS] section.
type TLSSettings struct {
	Enabled       bool
	LetsEncrypt   bool
	Domain        string
	Email         string
	CacheDir      string
	CertFile      string
	KeyFile       string
	RedirectAddr  string // plain HTTP listener for ACME challenges and redirects
	ForceRedirect bool
}

// LoadTLSSettings reads the [TLS] section.
func LoadTLSSettings() TLSSettings {
	return TLSSettings{
		Enabled:       configuration.GetBool("TLS", "enable_tls", false),
		LetsEncrypt:   configuration.GetBool("TLS", "enable_letsencrypt", false),
		Domain:        strings.TrimSpace(configuration.GetString("TLS", "domain", "")),
		Email:         strings.TrimSpace(configuration.GetString("TLS", "letsencrypt_email", "")),
		CacheDir:      configuration.GetString("TLS", "cert_cache_dir", "./certs"),
		CertFile:      configuration.GetString("TLS", "cert_file", "./certs/server.crt"),
		KeyFile:       configuration.GetString("TLS", "key_file", "./certs/server.key"),
		RedirectAddr:  configuration.GetString("TLS", "http_addr", ":80"),
		ForceRedirect: configuration.GetBool("TLS", "force_https_redirect", false),
	}
}

// Validate checks that the settings can produce certificates.
func (ts TLSSettings) Validate() error {
	if !ts.Enabled {
		return nil
	}
	if ts.LetsEncrypt {
		if ts.Domain == "" {
			return fmt.Errorf("domain is required when Let's Encrypt is enabled")
		}
		if ts.Email == "" {
			return fmt.Errorf("letsencrypt_email is required when Let's Encrypt is enabled")
		}
		return nil
	}
	for _, f := range []string{ts.CertFile, ts.KeyFile} {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("TLS file %s: %w", f, err)
		}
	}
	return nil
}

// tlsSetup holds what ListenAndServe needs to serve HTTPS.
type tlsSetup struct {
	settings TLSSettings
	config   *tls.Config
	autocert *autocert.Manager
}

func newTLSSetup(ts TLSSettings) (*tlsSetup, error) {
	if err := ts.Validate(); err != nil {
		return nil, err
	}
	setup := &tlsSetup{settings: ts}
	if !ts.Enabled || !ts.LetsEncrypt {
		return setup, nil
	}

	if err := os.MkdirAll(ts.CacheDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create certificate cache directory: %w", err)
	}
	setup.autocert = &autocert.Manager{
		Cache:      autocert.DirCache(ts.CacheDir),
		Prompt:     autocert.AcceptTOS,
		Email:      ts.Email,
		HostPolicy: autocert.HostWhitelist(ts.Domain, "www."+ts.Domain),
	}
	setup.config = &tls.Config{
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			if hello.ServerName == "" {
				hello.ServerName = ts.Domain
			}
			cert, err := setup.autocert.GetCertificate(hello)
			if err != nil {
				logger.ServerWarn("Failed to get certificate for %s: %v", hello.ServerName, err)
			}
			return cert, err
		},
		NextProtos: []string{"h2", "http/1.1", "acme-tls/1"},
		MinVersion: tls.VersionTLS12,
	}
	logger.ServerInfo("Let's Encrypt enabled for %s", ts.Domain)
	return setup, nil
}

// redirectHandler answers plain HTTP: ACME challenges first, then an HTTPS
// redirect when forced. It returns nil when no plain listener is needed.
func (s *tlsSetup) redirectHandler(httpsAddr string) http.Handler {
	var fallback http.Handler
	if s.settings.ForceRedirect {
		_, port, _ := net.SplitHostPort(httpsAddr)
		fallback = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			target := "https://" + host
			if port != "" && port != "443" {
				target += ":" + port
			}
			http.Redirect(w, r, target+r.RequestURI, http.StatusMovedPermanently)
		})
	}
	if s.autocert != nil {
		return s.autocert.HTTPHandler(fallback)
	}
	return fallback
}
