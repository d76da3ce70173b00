package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Vasu1712/scenyx-present/internal/navigation"
	"github.com/Vasu1712/scenyx-present/internal/protocol"
	"github.com/Vasu1712/scenyx-present/internal/relay"
	"github.com/Vasu1712/scenyx-present/internal/viewer"
	"github.com/Vasu1712/scenyx-present/internal/ws"
)

// syncURL turns a server base URL into its websocket endpoint for role.
func syncURL(server string, role relay.Role) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"role": {string(role)}}.Encode()
	return u.String(), nil
}

func bearerHeader(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": {"Bearer " + token}}
}

type followFlags struct {
	server  string
	role    string
	token   string
	present string
	notes   bool
}

func newFollowCmd() *cobra.Command {
	var flags followFlags
	cmd := &cobra.Command{
		Use:   "follow",
		Short: "Follow the live session in the terminal",
		Long: "Follows the session as audience, remote or presenter. Remote and presenter read\n" +
			"commands from stdin: next, prev, up, down (or n, p, u, d), and for the\n" +
			"presenter, present <file>.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return follow(ctx, flags, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&flags.server, "server", "http://localhost:5555", "Server base URL")
	f.StringVar(&flags.role, "role", string(relay.RoleAudience), "audience, remote or presenter")
	f.StringVar(&flags.token, "token", os.Getenv("SCENYX_TOKEN"), "Presenter token")
	f.StringVar(&flags.present, "present", "", "Presentation to show once connected (presenter only)")
	f.BoolVar(&flags.notes, "notes", false, "Print speaker notes")
	return cmd
}

func follow(ctx context.Context, flags followFlags, in io.Reader, out io.Writer) error {
	role := relay.ParseRole(flags.role)
	endpoint, err := syncURL(flags.server, role)
	if err != nil {
		return codeError(2, "invalid --server: %s", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	client := ws.NewClient(endpoint, ws.ClientOptions{Header: bearerHeader(flags.token)})
	v := viewer.New(role, client,
		&viewer.HTTPLoader{BaseURL: flags.server, Client: &http.Client{Timeout: 10 * time.Second}},
		viewer.NewTerminal(out, flags.notes || role != relay.RoleAudience), nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		client.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		v.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	if flags.present != "" {
		if err := v.Present(flags.present); err != nil {
			return codeError(2, "%s", err)
		}
	}
	if role == relay.RoleAudience {
		<-ctx.Done()
		return nil
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := command(v, line); err != nil {
				fmt.Fprintln(out, err)
			}
		}
	}
}

var shortDirections = map[string]navigation.Direction{
	"n": navigation.Next,
	"p": navigation.Prev,
	"u": navigation.Up,
	"d": navigation.Down,
}

// command applies one line of follow input.
func command(v *viewer.Viewer, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	if fields[0] == "present" {
		if len(fields) != 2 {
			return fmt.Errorf("usage: present <file>")
		}
		return v.Present(fields[1])
	}
	dir, ok := shortDirections[fields[0]]
	if !ok {
		dir = navigation.Direction(fields[0])
	}
	return v.Navigate(dir)
}

func newRemoteCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:       "remote <next|prev|up|down>",
		Short:     "Send one navigation request to the presenter",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"next", "prev", "up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := navigation.ParseDirection(args[0])
			if err != nil {
				return codeError(2, "%s", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return sendRemote(ctx, server, dir)
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:5555", "Server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "Give up after this long")
	return cmd
}

func sendRemote(ctx context.Context, server string, dir navigation.Direction) error {
	endpoint, err := syncURL(server, relay.RoleRemote)
	if err != nil {
		return codeError(2, "invalid --server: %s", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	client := ws.NewClient(endpoint, ws.ClientOptions{RetryInterval: 250 * time.Millisecond})
	up := make(chan struct{})
	var once sync.Once
	unwatch := client.OnConnection(func(connected bool) {
		if connected {
			once.Do(func() { close(up) })
		}
	})
	defer unwatch()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		client.Run(ctx)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	select {
	case <-up:
	case <-ctx.Done():
		return codeError(4, "could not reach %s", endpoint)
	}
	if err := client.Publish(ctx, protocol.Navigate, protocol.NavigateRequest{Direction: dir}); err != nil {
		return codeError(4, "%s", err)
	}
	return nil
}
