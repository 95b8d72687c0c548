// ABOUTME: Command-line client for an ADDoc knowledge base
// ABOUTME: Manages the login session and previews guarded navigation from the terminal

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/addoc-client/internal/app"
	"github.com/2389/addoc-client/internal/config"
	"github.com/2389/addoc-client/internal/logging"
)

const banner = `
              _     _
   __ _  __| | __| | ___   ___
  / _' |/ _' |/ _' |/ _ \ / __|
 | (_| | (_| | (_| | (_) | (__
  \__,_|\__,_|\__,_|\___/ \___|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cmd, args); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd string, args []string) error {
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.Setup(cfg.Logging, os.Stderr)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	c := &cli{app: a, out: os.Stdout, in: os.Stdin}

	switch cmd {
	case "login":
		err = c.login(ctx, args)
	case "logout":
		err = c.logout(ctx)
	case "me":
		err = c.me(ctx)
	case "status":
		err = c.status(ctx)
	case "open":
		err = c.open(ctx, args)
	case "routes":
		err = c.routes()
	case "activity":
		err = c.activity(ctx, args)
	case "heatmap":
		err = c.heatmap(ctx)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}

	if merr := a.WriteMetrics(os.Stderr); merr != nil {
		logger.Warn("failed to write metrics", "error", merr)
	}
	return err
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: addoc <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  login [-u <user>]        Log in (prompts for the password)")
	fmt.Println("      --password-stdin     Read the password from stdin")
	fmt.Println("  logout                   Log out and forget the stored token")
	fmt.Println("  me                       Show your profile")
	fmt.Println("  status                   Show server, session and token details")
	fmt.Println("  open <path>              Show where navigating to <path> lands")
	fmt.Println("  routes                   List the route table")
	fmt.Println("  activity [--limit N]     Show recent activity (default 10)")
	fmt.Println("  heatmap                  Show your contributions per day")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  ADDOC_CONFIG             Config file (default: ~/.config/addoc/config.yaml)")
	fmt.Println("  ADDOC_SERVER             Backend base URL (overrides server.base_url)")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  addoc login -u alice")
	fmt.Println("  addoc open /admin")
	fmt.Println("  echo \"$PW\" | addoc login -u alice --password-stdin")
	fmt.Println()
}
