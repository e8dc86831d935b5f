// Command remotectl drives the git hosting admin API directly, using the same
// client the server reconciles with. It reads ROOT_URL or GITEA_BASE_URL and
// GITEA_ADMIN_TOKEN from ./.env or the environment.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/FernandoVinha/TheManager/internal/remote"
)

const usage = `usage: remotectl [-env FILE] [-o json|yaml] <group> <action> [flags]

groups:
  user    create | edit | delete | show | list
  repo    create | show | delete | fork
  collab  add | del
  pr      create | merge
  commits (no action)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, connect); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// connect builds the real HTTP client.
func connect(cfg remote.Config) (remoteAPI, error) {
	return remote.New(cfg)
}

func run(ctx context.Context, args []string, stdout io.Writer, dial func(remote.Config) (remoteAPI, error)) error {
	fs := flag.NewFlagSet("remotectl", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() { fmt.Fprint(stdout, usage) }

	var envFile, format string
	fs.StringVar(&envFile, "env", envFilename, "dotenv file holding the remote settings")
	fs.StringVar(&format, "o", "json", "output format: json or yaml")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return errors.New("missing command group")
	}

	cmd, cmdArgs, err := resolve(rest)
	if err != nil {
		return err
	}

	cfg, err := loadRemoteConfig(envFile)
	if err != nil {
		return err
	}
	client, err := dial(cfg)
	if err != nil {
		return err
	}

	result, err := cmd(ctx, client, cmdArgs)
	if err != nil {
		return err
	}
	return writeOutput(stdout, format, result)
}
