// ABOUTME: Subcommand implementations for the addoc CLI
// ABOUTME: Each command drives the session manager and router of one App

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/addoc-client/internal/api"
	"github.com/2389/addoc-client/internal/app"
	"github.com/2389/addoc-client/internal/router"
	"github.com/2389/addoc-client/internal/session"
)

type cli struct {
	app *app.App
	out io.Writer
	in  io.Reader

	reader *bufio.Reader
}

func (c *cli) readLine() (string, error) {
	if c.reader == nil {
		c.reader = bufio.NewReader(c.in)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword reads without echo when stdin is a terminal.
func (c *cli) readPassword(fromStdin bool) (string, error) {
	if f, ok := c.in.(*os.File); ok && !fromStdin && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(c.out, "Password: ")
		pw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(pw), nil
	}
	pw, err := c.readLine()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return pw, nil
}

func (c *cli) login(ctx context.Context, args []string) error {
	var username string
	var passwordStdin bool
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--username", "-u":
			if i+1 < len(args) {
				username = args[i+1]
				i++
			}
		case "--password-stdin":
			passwordStdin = true
		default:
			return fmt.Errorf("usage: login [-u <user>] [--password-stdin]")
		}
	}

	landed, err := c.app.Router.Navigate(router.LoginPath)
	if err != nil {
		return err
	}
	if landed.Path != router.LoginPath {
		return fmt.Errorf("already logged in; run 'addoc logout' first")
	}

	if username == "" {
		if passwordStdin {
			return fmt.Errorf("--password-stdin requires -u <user>")
		}
		fmt.Fprint(c.out, "Username: ")
		if username, err = c.readLine(); err != nil {
			return fmt.Errorf("reading username: %w", err)
		}
	}
	password, err := c.readPassword(passwordStdin)
	if err != nil {
		return err
	}
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required")
	}

	if err := c.app.Session.Login(ctx, username, password); err != nil {
		if errors.Is(err, session.ErrCredentialRejected) {
			return fmt.Errorf("invalid username or password")
		}
		return err
	}
	user := c.app.Session.User()
	if user == nil {
		return fmt.Errorf("logged in, but the profile could not be loaded; session discarded")
	}

	home, err := c.app.Router.Navigate(router.HomePath)
	if err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Fprintf(c.out, "✓ Logged in as %s (%s)\n", user.Username, user.Role)
	fmt.Fprintf(c.out, "  Now at %s: %s\n", home.Path, c.app.Router.Title())
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	was := c.app.Session.IsAuthenticated()
	c.app.Session.Logout(ctx)

	green := color.New(color.FgGreen)
	if was {
		green.Fprintln(c.out, "✓ Logged out")
	} else {
		fmt.Fprintln(c.out, "Not logged in")
	}
	fmt.Fprintf(c.out, "  Now at %s: %s\n", c.app.Router.Location(), c.app.Router.Title())
	return nil
}

func (c *cli) me(ctx context.Context) error {
	if !c.app.Session.IsAuthenticated() {
		return fmt.Errorf("not logged in")
	}
	c.app.Session.FetchUser(ctx)
	user := c.app.Session.User()
	if user == nil {
		return fmt.Errorf("session expired; logged out")
	}
	printUser(c.out, user)
	return nil
}

func printUser(w io.Writer, user *api.User) {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	fmt.Fprintln(w)
	cyan.Fprintln(w, "  Profile")
	cyan.Fprintln(w, "  -------")
	fmt.Fprintf(w, "  ID:          %d\n", user.ID)
	fmt.Fprintf(w, "  Username:    %s\n", user.Username)
	if user.IsAdmin() {
		green.Fprintf(w, "  Role:        %s\n", user.Role)
	} else {
		fmt.Fprintf(w, "  Role:        %s\n", user.Role)
	}
	fmt.Fprintf(w, "  Created:     %s\n", user.CreatedAt)
	if user.LastLogin != nil {
		fmt.Fprintf(w, "  Last login:  %s\n", *user.LastLogin)
	}
	if user.Avatar != nil {
		fmt.Fprintf(w, "  Avatar:      %s\n", *user.Avatar)
	}
	fmt.Fprintln(w)
}

func (c *cli) status(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	fmt.Fprintln(c.out)
	cyan.Fprintln(c.out, "  Status")
	cyan.Fprintln(c.out, "  ------")
	fmt.Fprintf(c.out, "  Server:   %s\n", c.app.Client.BaseURL())
	fmt.Fprintf(c.out, "  Store:    %s\n", c.app.Config.Session.Store)

	if !c.app.Session.IsAuthenticated() {
		yellow.Fprintln(c.out, "  Session:  anonymous")
		fmt.Fprintln(c.out)
		return nil
	}

	token := c.app.Session.Token()
	if info, err := session.Inspect(token); err == nil {
		fmt.Fprintf(c.out, "  Subject:  %s\n", info.Subject)
		if !info.ExpiresAt.IsZero() {
			expiry := info.ExpiresAt.Local().Format(time.DateTime)
			if info.Expired(time.Now()) {
				yellow.Fprintf(c.out, "  Expires:  %s (expired)\n", expiry)
			} else {
				fmt.Fprintf(c.out, "  Expires:  %s\n", expiry)
			}
		}
	} else {
		fmt.Fprintln(c.out, "  Token:    opaque")
	}

	c.app.Session.FetchUser(ctx)
	if user := c.app.Session.User(); user != nil {
		green.Fprintf(c.out, "  Session:  authenticated as %s (%s)\n", user.Username, user.Role)
	} else {
		yellow.Fprintln(c.out, "  Session:  rejected by server; logged out")
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: open <path>")
	}
	// Role checks need the profile, as on a fresh page load.
	if c.app.Session.IsAuthenticated() {
		c.app.Session.FetchUser(ctx)
	}

	m, err := c.app.Router.Navigate(args[0])
	if err != nil {
		return err
	}

	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	if m.RedirectedFrom != "" {
		yellow.Fprintf(c.out, "→ %s redirected to %s\n", m.RedirectedFrom, m.Path)
	} else {
		green.Fprintf(c.out, "✓ %s\n", m.Path)
	}
	fmt.Fprintf(c.out, "  View:   %s\n", m.Route.View)
	fmt.Fprintf(c.out, "  Title:  %s\n", c.app.Router.Title())
	if len(m.Params) > 0 {
		keys := make([]string, 0, len(m.Params))
		for k := range m.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(c.out, "  :%s = %s\n", k, m.Params[k])
		}
	}
	return nil
}

func (c *cli) routes() error {
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tNAME\tVIEW\tAUTH\tADMIN\tTITLE")
	for _, r := range c.app.Router.Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Path, r.Name, r.View, yesNo(r.Meta.RequiresAuth), yesNo(r.Meta.RequiresAdmin), r.Meta.Title)
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}

func (c *cli) activity(ctx context.Context, args []string) error {
	limit := api.DefaultActivityLimit
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--limit", "-n":
			if i+1 >= len(args) {
				return fmt.Errorf("--limit requires a value")
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n <= 0 {
				return fmt.Errorf("--limit must be a positive integer, got %q", args[i+1])
			}
			limit = n
			i++
		default:
			return fmt.Errorf("usage: activity [--limit N]")
		}
	}

	activities, err := c.app.Client.RecentActivities(ctx, limit)
	if err != nil {
		return fmt.Errorf("fetching activity: %w", err)
	}
	if len(activities) == 0 {
		fmt.Fprintln(c.out, "No activity.")
		return nil
	}

	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tUSER\tACTION\tTARGET\tDETAILS")
	for _, a := range activities {
		target := a.TargetType
		if a.TargetID != nil {
			target += "#" + strconv.Itoa(*a.TargetID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.Time, a.UserName, a.Action, target, a.Details)
	}
	return w.Flush()
}

func (c *cli) heatmap(ctx context.Context) error {
	data, err := c.app.Client.ContributionData(ctx)
	if err != nil {
		return fmt.Errorf("fetching contributions: %w", err)
	}
	if len(data) == 0 {
		fmt.Fprintln(c.out, "No contributions.")
		return nil
	}

	days := make([]string, 0, len(data))
	peak := 0
	for day, n := range data {
		days = append(days, day)
		if n > peak {
			peak = n
		}
	}
	sort.Strings(days)

	green := color.New(color.FgGreen)
	const width = 40
	for _, day := range days {
		n := data[day]
		bar := 0
		if peak > 0 && n > 0 {
			bar = (n*width + peak - 1) / peak
		}
		fmt.Fprintf(c.out, "%s %4d ", day, n)
		green.Fprintln(c.out, strings.Repeat("█", bar))
	}
	return nil
}
