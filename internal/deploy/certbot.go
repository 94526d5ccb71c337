package deploy

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// letsencryptLiveDir is where certbot keeps the active certificates.
var letsencryptLiveDir = "/etc/letsencrypt/live"

// renewCronLine is the crontab entry installed by SSLCron. Certbot only
// renews certificates close to expiry, so running twice daily is safe.
const renewCronLine = "0 3,15 * * * certbot renew --quiet --deploy-hook \"docker compose restart nginx\""

// SSLObtain runs certbot in standalone mode for the domain. Port 80 must be
// free because certbot binds it for the HTTP-01 challenge.
func SSLObtain(ctx context.Context, domain, email string) error {
	if domain == "" {
		return fmt.Errorf("domain is required")
	}
	if _, err := exec.LookPath("certbot"); err != nil {
		return fmt.Errorf("certbot is not installed: %w", err)
	}
	if isPortBusy(80) {
		return fmt.Errorf("port 80 is in use; stop the web server before obtaining a certificate")
	}
	res, err := CheckDNS(ctx, domain, "")
	if err != nil {
		return err
	}
	debug("[ssl] %s resolves to %v", domain, res.Resolved)

	args := []string{
		"certonly", "--standalone",
		"--non-interactive", "--agree-tos",
		"-d", domain,
	}
	if email != "" {
		args = append(args, "--email", email)
	} else {
		args = append(args, "--register-unsafely-without-email")
	}
	info("[ssl] requesting certificate for %s", domain)
	if err := RunCmd(ctx, Cmd{Path: "certbot", Args: args, Stream: true}); err != nil {
		return fmt.Errorf("certbot certonly: %w", err)
	}
	info("[ssl] certificate obtained for %s", domain)
	return nil
}

// SSLRenew runs a one-off renewal pass.
func SSLRenew(ctx context.Context) error {
	if _, err := exec.LookPath("certbot"); err != nil {
		return fmt.Errorf("certbot is not installed: %w", err)
	}
	return RunCmd(ctx, Cmd{Path: "certbot", Args: []string{"renew"}, Stream: true})
}

// CertStatus describes the on-disk state of a domain's certificate.
type CertStatus struct {
	Domain    string
	Path      string
	Present   bool
	NotAfter  time.Time
	DaysLeft  int
	ExpiresIn time.Duration
}

// SSLStatus inspects the live certificate for the domain without calling
// certbot.
func SSLStatus(domain string) (CertStatus, error) {
	st := CertStatus{Domain: domain}
	if domain == "" {
		return st, fmt.Errorf("domain is required")
	}
	st.Path = filepath.Join(letsencryptLiveDir, domain, "fullchain.pem")
	b, err := os.ReadFile(st.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("read certificate: %w", err)
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return st, fmt.Errorf("%s: no PEM data", st.Path)
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return st, fmt.Errorf("parse certificate: %w", err)
	}
	st.Present = true
	st.NotAfter = cert.NotAfter
	st.ExpiresIn = time.Until(cert.NotAfter)
	st.DaysLeft = int(st.ExpiresIn.Hours() / 24)
	return st, nil
}

// ReportSSLStatus logs the certificate state; expired or missing certs
// return an error.
func ReportSSLStatus(st CertStatus) error {
	if !st.Present {
		errl("[ssl] no certificate found for %s at %s", st.Domain, st.Path)
		return fmt.Errorf("no certificate for %s", st.Domain)
	}
	if st.ExpiresIn <= 0 {
		errl("[ssl] certificate for %s expired on %s", st.Domain, st.NotAfter.Format(time.RFC3339))
		return fmt.Errorf("certificate for %s is expired", st.Domain)
	}
	if st.DaysLeft < 14 {
		warn("[ssl] certificate for %s expires in %d days", st.Domain, st.DaysLeft)
	} else {
		info("[ssl] certificate for %s valid until %s (%d days)", st.Domain, st.NotAfter.Format("2006-01-02"), st.DaysLeft)
	}
	return nil
}

// SSLCron installs the renewal line into the user's crontab if not present.
func SSLCron(ctx context.Context) error {
	if _, err := exec.LookPath("crontab"); err != nil {
		return fmt.Errorf("crontab is not available: %w", err)
	}
	current, err := RunCmdOutput(ctx, Cmd{Path: "crontab", Args: []string{"-l"}})
	if err != nil {
		// No crontab yet is fine; anything else is reported below when we
		// try to write.
		current = ""
	}
	if strings.Contains(current, "certbot renew") {
		info("[ssl] renewal cron already installed")
		return nil
	}
	updated := strings.TrimRight(current, "\n")
	if updated != "" {
		updated += "\n"
	}
	updated += renewCronLine + "\n"

	tmp, err := os.CreateTemp("", "aicore-cron-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(updated); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := RunCmd(ctx, Cmd{Path: "crontab", Args: []string{tmp.Name()}}); err != nil {
		return fmt.Errorf("install crontab: %w", err)
	}
	info("[ssl] renewal cron installed")
	return nil
}
