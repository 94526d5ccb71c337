package deploy

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// composeCommand figures out how compose is invoked on this host: the
// `docker compose` plugin on modern installs, the standalone
// `docker-compose` binary on older ones.
func composeCommand() (string, []string, error) {
	if _, err := exec.LookPath("docker"); err == nil {
		if _, err := exec.Command("docker", "compose", "version").Output(); err == nil {
			return "docker", []string{"compose"}, nil
		}
	}
	if _, err := exec.LookPath("docker-compose"); err == nil {
		return "docker-compose", nil, nil
	}
	return "", nil, fmt.Errorf("neither 'docker compose' nor 'docker-compose' is available")
}

// ComposeOptions locates the compose project and the endpoint to probe
// after bringing it up.
type ComposeOptions struct {
	Dir       string
	File      string
	HealthURL string
	WaitFor   time.Duration
}

func (o ComposeOptions) args(sub ...string) []string {
	var args []string
	if o.File != "" {
		args = append(args, "-f", o.File)
	}
	return append(args, sub...)
}

func compose(ctx context.Context, opts ComposeOptions, stream bool, sub ...string) error {
	bin, base, err := composeCommand()
	if err != nil {
		return err
	}
	return RunCmd(ctx, Cmd{
		Path:   bin,
		Args:   append(base, opts.args(sub...)...),
		Dir:    opts.Dir,
		Stream: stream,
	})
}

// ComposeUp starts the stack detached and waits for the health endpoint.
func ComposeUp(ctx context.Context, opts ComposeOptions) error {
	info("[deploy] starting stack")
	if err := compose(ctx, opts, true, "up", "-d"); err != nil {
		return fmt.Errorf("compose up: %w", err)
	}
	if opts.HealthURL == "" {
		return nil
	}
	wait := opts.WaitFor
	if wait <= 0 {
		wait = 60 * time.Second
	}
	info("[deploy] waiting for %s", opts.HealthURL)
	if err := waitHTTP(opts.HealthURL, 200, wait); err != nil {
		return fmt.Errorf("stack did not become healthy: %w", err)
	}
	info("[deploy] stack is healthy")
	return nil
}

// ComposeDown stops and removes the stack.
func ComposeDown(ctx context.Context, opts ComposeOptions) error {
	info("[deploy] stopping stack")
	if err := compose(ctx, opts, true, "down"); err != nil {
		return fmt.Errorf("compose down: %w", err)
	}
	return nil
}

// ComposeRestart restarts the stack and re-checks health.
func ComposeRestart(ctx context.Context, opts ComposeOptions) error {
	info("[deploy] restarting stack")
	if err := compose(ctx, opts, true, "restart"); err != nil {
		return fmt.Errorf("compose restart: %w", err)
	}
	if opts.HealthURL != "" {
		wait := opts.WaitFor
		if wait <= 0 {
			wait = 60 * time.Second
		}
		if err := waitHTTP(opts.HealthURL, 200, wait); err != nil {
			return fmt.Errorf("stack did not become healthy after restart: %w", err)
		}
	}
	return nil
}

// ComposeStatus prints container states.
func ComposeStatus(ctx context.Context, opts ComposeOptions) error {
	return compose(ctx, opts, false, "ps")
}

// ComposeLogs tails service logs.
func ComposeLogs(ctx context.Context, opts ComposeOptions, follow bool, service string) error {
	sub := []string{"logs", "--tail", "100"}
	if follow {
		sub = append(sub, "-f")
	}
	if service != "" {
		sub = append(sub, service)
	}
	return compose(ctx, opts, true, sub...)
}
