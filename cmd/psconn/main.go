package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/psconn-dev/psconn/internal/version"
	"github.com/psconn-dev/psconn/kevlar"
	"github.com/psconn-dev/psconn/protocol"
	"github.com/psconn-dev/psconn/session"
)

// globalFlags holds double-dash flags parsed from os.Args before dispatch.
// rest contains the remaining arguments with global flags stripped.
type globalFlags struct {
	version  bool
	verbose  bool
	host     string
	port     int
	password string
	timeout  time.Duration
	rest     []string
}

// parseGlobalFlags extracts double-dash flags from os.Args and returns
// the parsed values plus remaining args. Supports --flag and --flag=value forms.
func parseGlobalFlags() globalFlags {
	g := globalFlags{
		host:    "localhost",
		port:    protocol.DefaultPort,
		timeout: 10 * time.Second,
	}
	takeValue := func(i *int, arg, name string) (string, bool) {
		if v, ok := strings.CutPrefix(arg, "--"+name+"="); ok {
			return v, true
		}
		if arg == "--"+name && *i+1 < len(os.Args) {
			*i++
			return os.Args[*i], true
		}
		return "", false
	}
	for i := 1; i < len(os.Args); i++ {
		arg := os.Args[i]
		switch {
		case arg == "--version":
			g.version = true
		case arg == "--verbose":
			g.verbose = true
		default:
			if v, ok := takeValue(&i, arg, "host"); ok {
				g.host = v
			} else if v, ok := takeValue(&i, arg, "port"); ok {
				g.port, _ = strconv.Atoi(v)
			} else if v, ok := takeValue(&i, arg, "password"); ok {
				g.password = v
			} else if v, ok := takeValue(&i, arg, "timeout"); ok {
				g.timeout, _ = time.ParseDuration(v)
			} else {
				g.rest = append(g.rest, arg)
			}
		}
	}
	return g
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: psconn [flags] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  exec <script>|-      run a script and print the result")
	fmt.Fprintln(os.Stderr, "  ping                 keep-alive round trip")
	fmt.Fprintln(os.Stderr, "  upload <file>        upload a file, print the remote path")
	fmt.Fprintln(os.Stderr, "  thumbnail <out.jpg>  save a thumbnail of the active document")
	fmt.Fprintln(os.Stderr, "  info                 print active document info as JSON")
	fmt.Fprintln(os.Stderr, "  watch <event>        subscribe to an event, print payloads")
	fmt.Fprintln(os.Stderr, "  version              print version and exit")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "flags:")
	fmt.Fprintln(os.Stderr, "  --host <name>        host to connect to (default: localhost)")
	fmt.Fprintf(os.Stderr, "  --port <port>        remote-connection port (default: %d)\n", protocol.DefaultPort)
	fmt.Fprintln(os.Stderr, "  --password <pass>    connection password (default: $PHOTOSHOP_PASSWORD, else prompt)")
	fmt.Fprintln(os.Stderr, "  --timeout <dur>      per-command timeout (default: 10s)")
	fmt.Fprintln(os.Stderr, "  --verbose            emit wire-level debug logs to stderr")
	os.Exit(1)
}

func main() {
	gf := parseGlobalFlags()

	if gf.version || (len(gf.rest) > 0 && gf.rest[0] == "version") {
		fmt.Printf("psconn %s (%s)\n", version.VERSION, version.Commit)
		os.Exit(0)
	}
	if len(gf.rest) == 0 {
		usage()
	}

	cmd, args := gf.rest[0], gf.rest[1:]
	switch cmd {
	case "exec", "ping", "upload", "thumbnail", "info", "watch":
	default:
		usage()
	}

	s := dial(gf)
	defer s.Close()

	var err error
	switch cmd {
	case "exec":
		err = runExec(s, args)
	case "ping":
		err = s.Ping(gf.timeout)
	case "upload":
		err = runUpload(s, args)
	case "thumbnail":
		err = runThumbnail(s, args)
	case "info":
		err = runInfo(s)
	case "watch":
		err = runWatch(s, args)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "psconn: %v\n", err)
		os.Exit(1)
	}
}

// dial opens the session, prompting for a password on the terminal when
// neither --password nor $PHOTOSHOP_PASSWORD is set.
func dial(gf globalFlags) *session.Session {
	password := gf.password
	if password == "" {
		password = os.Getenv(session.PasswordEnv)
	}
	if password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "password: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "psconn: read password: %v\n", err)
			os.Exit(1)
		}
		password = string(raw)
	}

	var logger *slog.Logger
	if gf.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	s, err := session.Dial(session.Config{
		Host:     gf.host,
		Port:     gf.port,
		Password: password,
		Timeout:  gf.timeout,
		Logger:   logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "psconn: %v\n", err)
		os.Exit(1)
	}
	return s
}

func runExec(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: psconn exec <script>|-")
	}
	script := args[0]
	if script == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		script = string(raw)
	}
	resp, err := s.Execute(script)
	if err != nil {
		return err
	}
	fmt.Println(string(resp.Body))
	return nil
}

func runUpload(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: psconn upload <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	suffix := ""
	if i := strings.LastIndex(args[0], "."); i >= 0 {
		suffix = args[0][i:]
	}
	path, err := s.Upload(data, suffix)
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}

func runThumbnail(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: psconn thumbnail <out.jpg>")
	}
	c := kevlar.NewClient(s)
	img, err := c.GetDocumentThumbnail(512, 512, kevlar.FormatJPEG)
	if err != nil {
		return err
	}
	if img.Kind != protocol.ImageKindJPEG {
		return fmt.Errorf("unexpected image kind %d", img.Kind)
	}
	return os.WriteFile(args[0], img.Data, 0644)
}

func runInfo(s *session.Session) error {
	c := kevlar.NewClient(s)
	raw, err := c.GetDocumentInfo(kevlar.DocumentInfoOptions{
		LayerInfo: true,
		ImageInfo: true,
	})
	if err != nil {
		return err
	}
	fmt.Println(string(raw))
	return nil
}

// runWatch blocks printing event payloads until interrupted.
func runWatch(s *session.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: psconn watch <event>")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		s.Close()
	}()

	return s.Subscribe(args[0], func(_ *session.Session, payload []byte) bool {
		fmt.Println(string(payload))
		return false
	}, true)
}
