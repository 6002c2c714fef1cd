// Command boardwatch follows one project board live: it logs in, joins the
// project's room and reprints the board after every change it reconciles.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskboard/internal/client"
	"taskboard/internal/models"
	"taskboard/pkg/logger"

	"github.com/spf13/pflag"
)

var errUsage = errors.New("usage")

type options struct {
	server   string
	email    string
	password string
	token    string
	project  int
	attempts int
	delay    time.Duration
	logLevel string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	var opts options

	flagSet := pflag.NewFlagSet("boardwatch", pflag.ContinueOnError)
	flagSet.StringVar(&opts.server, "server", "http://localhost:5000", "base URL of the task board server")
	flagSet.StringVar(&opts.email, "email", "", "login email")
	flagSet.StringVar(&opts.password, "password", "", "login password")
	flagSet.StringVar(&opts.token, "token", "", "use an existing JWT instead of logging in")
	flagSet.IntVarP(&opts.project, "project", "p", 0, "project id to watch")
	flagSet.IntVar(&opts.attempts, "attempts", 5, "reconnection attempts before giving up")
	flagSet.DurationVar(&opts.delay, "delay", time.Second, "delay between reconnection attempts")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, errUsage
		}
		return nil, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	if opts.project <= 0 {
		return nil, fmt.Errorf("--project is required")
	}
	if opts.token == "" && (opts.email == "" || opts.password == "") {
		return nil, fmt.Errorf("either --token or both --email and --password are required")
	}
	return &opts, nil
}

func run(args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	logger.SetLevel(logger.ParseLevel(opts.logLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.NewAPIClient(opts.server, &http.Client{Timeout: 10 * time.Second})

	var user *models.User
	if opts.token != "" {
		api.SetToken(opts.token)
		user, err = api.Me(ctx)
	} else {
		user, err = api.Login(ctx, opts.email, opts.password)
	}
	if err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	socketURL, err := api.SocketURL()
	if err != nil {
		return err
	}
	socket := client.NewSocket(socketURL, user.ID, client.Options{
		Attempts: opts.attempts,
		Delay:    opts.delay,
	})
	defer socket.Close()

	presence := client.TrackPresence(socket)
	defer presence.Stop()

	board := client.NewBoard(api, socket, opts.project)
	board.OnChange(func(event models.EventName) {
		renderBoard(out, opts.project, board.Tasks(), presence.Online(), event)
	})
	board.Attach()
	defer board.Detach()

	if err := socket.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if online, err := api.OnlineUsers(ctx); err == nil {
		presence.Seed(online)
	} else {
		logger.Warn("Could not load online users: %v", err)
	}
	if err := board.Refresh(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return nil
	case <-socket.Done():
		if err := socket.Err(); !errors.Is(err, client.ErrClosed) {
			return err
		}
		return nil
	}
}

// renderBoard prints tasks grouped into status columns.
func renderBoard(w io.Writer, projectID int, tasks []models.Task, online []int, event models.EventName) {
	header := fmt.Sprintf("Project %d", projectID)
	if event != "" {
		header += fmt.Sprintf(" (after %s)", event)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("=", len(header)))

	columns := make(map[models.TaskStatus][]models.Task)
	for _, t := range tasks {
		columns[t.Status] = append(columns[t.Status], t)
	}
	for _, status := range models.Statuses {
		fmt.Fprintf(w, "%s (%d)\n", status, len(columns[status]))
		for _, t := range columns[status] {
			fmt.Fprintf(w, "  #%d %s [%s]\n", t.ID, t.Title, t.Priority)
		}
	}

	ids := make([]string, 0, len(online))
	for _, id := range online {
		ids = append(ids, fmt.Sprint(id))
	}
	fmt.Fprintf(w, "online: %s\n\n", strings.Join(ids, ", "))
}
