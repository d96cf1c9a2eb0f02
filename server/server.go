// server/server.go
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dalemusser/authform/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/acme/autocert"
)

var errInsecureKey = errors.New("TLS key file is readable by group or others")

// WithShutdownSignals returns a context canceled on SIGINT or SIGTERM.
// The cancel func also stops signal delivery.
func WithShutdownSignals(parent context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			if logger != nil {
				logger.Info("shutdown signal received", zap.Any("signal", sig))
			}
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// ListenAndServeWithContext serves handler over plain HTTP, HTTPS with
// manual certificates, or HTTPS with Let's Encrypt (http-01) and blocks
// until ctx is canceled or a listener fails. In the HTTPS modes a second
// server on :80 redirects to HTTPS and answers ACME challenges.
func ListenAndServeWithContext(ctx context.Context, cfg *config.CoreConfig, handler http.Handler, logger *zap.Logger) error {
	if cfg == nil {
		return errors.New("server: cfg is nil")
	}
	if handler == nil {
		return errors.New("server: handler is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := newHTTPServer(cfg, handler, logger)

	if !cfg.HTTP.UseHTTPS {
		addr := ":" + strconv.Itoa(cfg.HTTP.HTTPPort)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen http %s: %w", addr, err)
		}
		logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		return run(ctx, cfg.HTTP.ShutdownTimeout, srv, ln, nil, logger)
	}

	var (
		tlsCfg     *tls.Config
		redirector = httpRedirectHandler()
	)
	if cfg.TLS.UseLetsEncrypt {
		m := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			HostPolicy: autocert.HostWhitelist(cfg.TLS.Domain),
			Cache:      autocert.DirCache(cfg.TLS.LetsEncryptCacheDir),
			Email:      cfg.TLS.LetsEncryptEmail,
		}
		redirector = m.HTTPHandler(redirector)
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, GetCertificate: m.GetCertificate}
		aux := newHTTPServer(cfg, redirector, logger)
		aux.Addr = ":80"
		go func() {
			if err := waitForCert(ctx, m, cfg.TLS.Domain, 60*time.Second); err != nil {
				logger.Warn("autocert pre-warm failed; first HTTPS hits may see TLS errors", zap.Error(err))
			}
		}()
		return serveTLS(ctx, cfg, srv, aux, tlsCfg, logger)
	}

	if err := validateTLSFiles(cfg.TLS.CertFile, cfg.TLS.KeyFile); err != nil {
		if !errors.Is(err, errInsecureKey) || cfg.IsProd() {
			return err
		}
		logger.Warn("TLS key file permissions would be rejected in prod", zap.Error(err))
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return fmt.Errorf("load TLS cert/key: %w", err)
	}
	tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, Certificates: []tls.Certificate{cert}}
	aux := newHTTPServer(cfg, redirector, logger)
	aux.Addr = ":80"
	return serveTLS(ctx, cfg, srv, aux, tlsCfg, logger)
}

func newHTTPServer(cfg *config.CoreConfig, h http.Handler, logger *zap.Logger) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ErrorLog:          stdLogger(logger),
	}
}

func stdLogger(logger *zap.Logger) *log.Logger {
	l, err := zap.NewStdLogAt(logger, zapcore.WarnLevel)
	if err != nil {
		return nil
	}
	return l
}

func serveTLS(ctx context.Context, cfg *config.CoreConfig, srv, aux *http.Server, tlsCfg *tls.Config, logger *zap.Logger) error {
	addr := ":" + strconv.Itoa(cfg.HTTP.HTTPSPort)
	base, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen https %s: %w", addr, err)
	}
	srv.TLSConfig = tlsCfg
	logger.Info("HTTPS server listening",
		zap.String("addr", addr),
		zap.Bool("lets_encrypt", cfg.TLS.UseLetsEncrypt),
		zap.String("domain", cfg.TLS.Domain))
	return run(ctx, cfg.HTTP.ShutdownTimeout, srv, tls.NewListener(base, tlsCfg), aux, logger)
}

// run serves srv on ln (and aux on its own address, if non-nil) until ctx
// is canceled or either server fails, then shuts both down within timeout.
func run(ctx context.Context, timeout time.Duration, srv *http.Server, ln net.Listener, aux *http.Server, logger *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	var auxErr chan error
	if aux != nil {
		auxErr = make(chan error, 1)
		go func() { auxErr <- aux.ListenAndServe() }()
		logger.Info("redirect server listening", zap.String("addr", aux.Addr))
	}

	shutdown := func() error {
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if aux != nil {
			_ = aux.Shutdown(sctx)
		}
		return srv.Shutdown(sctx)
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
		if err := shutdown(); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped gracefully")
		return nil
	case err := <-serveErr:
		_ = shutdown()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("primary server error: %w", err)
		}
		return nil
	case err := <-auxErr:
		_ = shutdown()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("redirect server error: %w", err)
		}
		return nil
	}
}

// httpRedirectHandler sends every request to the HTTPS origin with the same
// host and request URI. Hosts or URIs carrying control characters get a 400.
func httpRedirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqURI := r.URL.RequestURI()
		if !isValidHost(r.Host) || hasControlChars(reqURI) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "https://"+r.Host+reqURI, http.StatusMovedPermanently)
	})
}

func hasControlChars(s string) bool {
	for _, c := range s {
		if c < 0x20 || c == 0x7f {
			return true
		}
	}
	return false
}

func isValidHost(host string) bool {
	if host == "" || hasControlChars(host) || strings.ContainsAny(host, "/\\@ ") {
		return false
	}
	hostPart, portStr, err := net.SplitHostPort(host)
	if err != nil {
		hostPart = host
	} else if port, perr := strconv.Atoi(portStr); perr != nil || port <= 0 || port > 65535 {
		return false
	}
	if hostPart == "" {
		return false
	}
	if strings.HasPrefix(hostPart, "[") {
		inner := strings.TrimSuffix(strings.TrimPrefix(hostPart, "["), "]")
		if i := strings.IndexByte(inner, '%'); i >= 0 {
			inner = inner[:i]
		}
		return net.ParseIP(inner) != nil
	}
	return true
}

// validateTLSFiles checks that both files exist and are regular files. A
// key readable by group or others yields an error wrapping errInsecureKey.
func validateTLSFiles(certFile, keyFile string) error {
	if strings.TrimSpace(certFile) == "" || strings.TrimSpace(keyFile) == "" {
		return errors.New("manual TLS selected but cert_file / key_file not provided")
	}
	for _, f := range []struct{ kind, path string }{{"certificate", certFile}, {"key", keyFile}} {
		info, err := os.Stat(f.path)
		if err != nil {
			return fmt.Errorf("TLS %s file %s: %w", f.kind, f.path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("TLS %s path is a directory: %s", f.kind, f.path)
		}
		if f.kind == "key" && runtime.GOOS != "windows" && info.Mode().Perm()&0o077 != 0 {
			return fmt.Errorf("%w: %s has mode %o (want 0600)", errInsecureKey, f.path, info.Mode().Perm())
		}
	}
	return nil
}

// waitForCert polls autocert until it holds a certificate for host, the
// timeout passes, or ctx ends.
func waitForCert(ctx context.Context, m *autocert.Manager, host string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := m.GetCertificate(&tls.ClientHelloInfo{ServerName: host})
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timeout waiting for cert for %q: %w", host, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}
