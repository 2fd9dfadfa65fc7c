// holo-cli is the interactive command-line interface for the holo routing
// daemon. It talks to holod over gNMI and builds its configuration
// commands from the YANG modules the daemon advertises.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatihusta/holo-cli/pkg/cli"
	"github.com/fatihusta/holo-cli/pkg/client/gnmiclient"
	"github.com/fatihusta/holo-cli/pkg/logging"
	"github.com/fatihusta/holo-cli/pkg/metrics"
	"github.com/fatihusta/holo-cli/pkg/schema"
	"github.com/fatihusta/holo-cli/pkg/session"
	"github.com/fatihusta/holo-cli/pkg/settings"
)

// defaultModulesDir holds the YANG modules of the daemon.
const defaultModulesDir = "/usr/local/share/holo-cli/modules"

// stringList collects a repeatable string flag.
type stringList []string

func (l *stringList) String() string { return strings.Join(*l, "; ") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	var commands stringList
	var address string
	file := flag.String("file", "", "read configuration file and commit it")
	noColors := flag.Bool("no-colors", false, "disable ANSI coloring")
	noPager := flag.Bool("no-pager", false, "disable the pager")
	flag.Var(&commands, "command", "execute argument as command (repeatable)")
	flag.Var(&commands, "c", "shorthand for --command")
	flag.StringVar(&address, "address", gnmiclient.DefaultAddress, "holo daemon address: http://IP:Port")
	flag.StringVar(&address, "a", gnmiclient.DefaultAddress, "shorthand for --address")
	modulesDir := flag.String("modules-dir", defaultModulesDir, "YANG modules directory")
	settingsFile := flag.String("config", settings.Path(), "settings file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	st, err := settings.Load(*settingsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "holo-cli: %v\n", err)
		os.Exit(1)
	}
	// Explicit flags win over the settings file.
	if !set["address"] && !set["a"] && st.Address != "" {
		address = st.Address
	}
	if !set["modules-dir"] && st.ModulesDir != "" {
		*modulesDir = st.ModulesDir
	}
	if !set["debug"] {
		*debug = st.Debug
	}
	if !set["no-colors"] {
		*noColors = !st.ColorsEnabled()
	}
	if !set["no-pager"] {
		*noPager = !st.PagerEnabled()
	}
	historyFile := st.History
	if historyFile == "" {
		historyFile = settings.DefaultHistoryFile()
	}

	logger, closeLog, err := logging.New(logging.Options{Debug: *debug, File: st.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "holo-cli: log file: %v\n", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	code := run(context.Background(), runOptions{
		address:     address,
		modulesDir:  *modulesDir,
		file:        *file,
		commands:    commands,
		colors:      !*noColors,
		pager:       len(commands) == 0 && !*noPager,
		historyFile: historyFile,
		settings:    st,
	})
	closeLog()
	os.Exit(code)
}

type runOptions struct {
	address     string
	modulesDir  string
	file        string
	commands    []string
	colors      bool
	pager       bool
	historyFile string
	settings    *settings.Settings
}

func run(ctx context.Context, o runOptions) int {
	if err := os.MkdirAll(o.modulesDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create YANG modules directory (%s): %v\n", o.modulesDir, err)
		return 1
	}

	var dialOpts []gnmiclient.Option
	if a := o.settings.Auth; a.Username != "" {
		dialOpts = append(dialOpts, gnmiclient.WithCredentials(a.Username, a.Password))
	}
	if t := o.settings.TLS; t.CA != "" || t.Cert != "" || t.SkipVerify {
		dialOpts = append(dialOpts, gnmiclient.WithTLS(t.CA, t.Cert, t.Key, t.SkipVerify))
	}
	client, err := gnmiclient.Dial(ctx, o.address, dialOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection to holod failed: %v\n\n", err)
		fmt.Fprintln(os.Stderr, "Please ensure that holod is currently running.")
		return 1
	}
	defer client.Close()

	sc, err := cli.LoadSchema(ctx, client, o.modulesDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load YANG modules: %v\n", err)
		return 1
	}

	m := metrics.New()
	sess := session.New(sc, client, session.WithMetrics(m))
	c := cli.New(sess, cli.Options{
		Pager:   o.pager,
		Colors:  o.colors,
		Metrics: m,
		Loader: func(ctx context.Context) (*schema.Context, error) {
			return cli.LoadSchema(ctx, client, o.modulesDir)
		},
	})

	if o.file != "" {
		if err := c.ReadConfigFile(ctx, o.file); err != nil {
			c.PrintError(err)
			return 1
		}
		return 0
	}

	sess.UpdateHostname(ctx)

	if len(o.commands) > 0 {
		c.RunCommands(ctx, o.commands)
		return 0
	}

	if err := c.RunInteractive(ctx, o.historyFile); err != nil {
		fmt.Fprintf(os.Stderr, "holo-cli: %v\n", err)
		return 1
	}
	return 0
}
