package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caddyserver/certmagic"
	"go.uber.org/zap"
)

// CertManager serves HTTPS with certificates obtained through ACME for a
// fixed set of domains.
type CertManager struct {
	logger  *slog.Logger
	cfg     *certmagic.Config
	domains []string
	allowed map[string]struct{}
}

// NewCertManager creates a CertManager for domains. On-demand issuance is
// limited to the same names.
func NewCertManager(domains []string, email string, staging bool, logger *slog.Logger) *CertManager {
	certmagic.DefaultACME.Email = email
	certmagic.DefaultACME.Agreed = true
	if staging {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	// certmagic logs through zap.
	if zl, err := zap.NewProduction(); err == nil {
		certmagic.Default.Logger = zl.Named("certmagic")
	}

	cm := &CertManager{
		logger:  logger,
		cfg:     certmagic.NewDefault(),
		allowed: make(map[string]struct{}, len(domains)),
	}
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := cm.allowed[d]; !dup {
			cm.allowed[d] = struct{}{}
			cm.domains = append(cm.domains, d)
		}
	}
	cm.cfg.OnDemand = &certmagic.OnDemandConfig{DecisionFunc: cm.allowCert}
	return cm
}

// allowCert is the on-demand decision function.
func (cm *CertManager) allowCert(_ context.Context, name string) error {
	if _, ok := cm.allowed[strings.ToLower(name)]; !ok {
		return fmt.Errorf("unknown domain: %s", name)
	}
	return nil
}

// Domains returns the managed names.
func (cm *CertManager) Domains() []string {
	return cm.domains
}

// Serve obtains certificates for the configured domains and serves handler
// over TLS on the HTTPS port until ctx is cancelled.
func (cm *CertManager) Serve(ctx context.Context, handler http.Handler) error {
	if len(cm.domains) == 0 {
		return errors.New("tls: no domains configured")
	}
	cm.logger.Info("starting TLS server", "domains", cm.domains)

	if err := cm.cfg.ManageSync(ctx, cm.domains); err != nil {
		return fmt.Errorf("manage domains: %w", err)
	}

	ln, err := tls.Listen("tcp", fmt.Sprintf(":%d", certmagic.HTTPSPort), cm.cfg.TLSConfig())
	if err != nil {
		return fmt.Errorf("tls listen: %w", err)
	}

	srv := &http.Server{
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	cm.logger.Info("serving HTTPS", "port", certmagic.HTTPSPort)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
