// Copyright 2026 Bindu Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command bindu runs an A2A agent server.
//
// Usage:
//
//	bindu serve --name my-agent --author me
//	bindu version
//
// Configuration comes from the environment (and .env files); see
// pkg/config for the variable reference.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	bindu "github.com/getbindu/bindu-go"
	"github.com/getbindu/bindu-go/pkg/a2a"
	"github.com/getbindu/bindu-go/pkg/config"
	"github.com/getbindu/bindu-go/pkg/logger"
	"github.com/getbindu/bindu-go/pkg/server"
	"github.com/getbindu/bindu-go/pkg/worker"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the A2A agent server."`

	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("bindu version %s\n", bindu.Version)
	return nil
}

// ServeCmd starts the A2A server with the built-in echo handler. Real
// agents embed pkg/server directly and supply their own worker.Handler;
// this command exists for smoke-testing deployments.
type ServeCmd struct {
	Name        string `help:"Agent name." default:"echo-agent"`
	Author      string `help:"Agent author, used in the DID." default:"bindu"`
	Description string `help:"Agent description." default:"Echoes every message back."`
	Port        int    `help:"HTTP port override (0 keeps the configured value)." default:"0"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	manifest := a2a.AgentManifest{
		Name:        c.Name,
		Description: c.Description,
		Version:     bindu.Version,
		URL:         fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
		DID:         a2a.FormatDID(c.Author, c.Name, bindu.Version),
		Capabilities: a2a.AgentCapabilities{
			Streaming:         true,
			PushNotifications: true,
		},
		Skills: []a2a.AgentSkill{
			{
				ID:          "echo",
				Name:        "Echo",
				Description: "Returns the input text unchanged.",
				Tags:        []string{"demo"},
			},
		},
	}

	srv, err := server.New(*cfg, manifest, echoHandler())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return srv.Run(ctx)
}

func echoHandler() worker.Handler {
	return worker.HandlerFunc(func(ctx context.Context, req worker.Request) (*worker.Result, error) {
		return worker.Text(req.Input), nil
	})
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("bindu"),
		kong.Description("bindu - A2A agent server framework"),
		kong.UsageOnError(),
	)

	logger.Init(logger.ParseLevel(cli.LogLevel))

	err := ctx.Run(&cli)
	ctx.FatalIfErrorf(err)
}
