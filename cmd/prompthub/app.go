package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"

	"github.com/JaimeStill/prompthub/internal/config"
	"github.com/JaimeStill/prompthub/internal/executions"
	"github.com/JaimeStill/prompthub/internal/infrastructure"
	"github.com/JaimeStill/prompthub/internal/prompts"
	"github.com/JaimeStill/prompthub/internal/versions"
	"github.com/JaimeStill/prompthub/internal/workflow"
	"github.com/JaimeStill/prompthub/internal/workspaces"
)

const envAuthor = "PROMPTHUB_AUTHOR"

// app holds the systems a command needs. Config and infrastructure are
// built on first use; the database and optional systems are only started
// by commands that touch them.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	asJSON bool
	author string

	cfg     *config.Config
	infra   *infrastructure.Infrastructure
	started bool
	ran     bool
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: in, out: out, errOut: errOut}
}

func (a *app) load() error {
	if a.infra != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	infra, err := infrastructure.New(cfg)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.infra = infra
	return nil
}

// start brings up the database, storage, and cache and waits for them.
func (a *app) start() error {
	if err := a.load(); err != nil {
		return err
	}
	if a.started {
		return nil
	}

	if err := a.infra.Start(); err != nil {
		return err
	}
	a.started = true

	return a.infra.Lifecycle.WaitForStartup()
}

func (a *app) close() {
	if a.infra == nil {
		return
	}

	if a.ran {
		if err := a.infra.PushMetrics(context.Background()); err != nil {
			a.infra.Logger.Warn("metrics push failed", "error", err)
		}
	}
	if err := a.infra.Lifecycle.Shutdown(a.cfg.ShutdownTimeoutDuration()); err != nil {
		a.infra.Logger.Error("shutdown failed", "error", err)
	}
}

func (a *app) signature() versions.Signature {
	name := a.author
	if name == "" {
		name = os.Getenv(envAuthor)
	}
	if name == "" {
		if u, err := user.Current(); err == nil {
			name = u.Username
		}
	}
	return versions.Signature{Name: name}
}

func (a *app) versions() (*versions.Store, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	return a.infra.Versions, nil
}

func (a *app) prompts() (prompts.System, error) {
	if err := a.start(); err != nil {
		return nil, err
	}
	return prompts.New(a.infra.Database.Connection(), a.infra.Logger, a.cfg.Pagination), nil
}

func (a *app) publisher() (*prompts.Publisher, error) {
	sys, err := a.prompts()
	if err != nil {
		return nil, err
	}
	return prompts.NewPublisher(sys, a.infra.Versions, a.infra.Logger), nil
}

func (a *app) workspaces() (workspaces.System, error) {
	if err := a.start(); err != nil {
		return nil, err
	}
	return workspaces.New(a.infra.Database.Connection(), a.infra.Logger, a.cfg.Pagination), nil
}

func (a *app) engine() (*workflow.Engine, error) {
	fallback, err := a.prompts()
	if err != nil {
		return nil, err
	}

	return workflow.New(a.cfg.Execution, workflow.Dependencies{
		Versions: a.infra.Versions,
		Fallback: fallback,
		Router:   a.infra.Router,
		Metrics:  a.infra.Metrics,
		Logger:   a.infra.Logger,
	}), nil
}

func (a *app) archive() (*executions.Archive, error) {
	if err := a.start(); err != nil {
		return nil, err
	}
	if a.infra.Storage == nil {
		return nil, fmt.Errorf("execution archive requires [storage] configuration")
	}
	return executions.New(a.infra.Storage, a.infra.Logger), nil
}
