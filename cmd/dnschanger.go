package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/sergds/dnschanger/internal"
	"github.com/sergds/dnschanger/internal/changer"
	"github.com/sergds/dnschanger/internal/config"
	"github.com/sergds/dnschanger/internal/configurator"
	"github.com/sergds/dnschanger/internal/fastansi"
	"github.com/sergds/dnschanger/internal/probe"
	"github.com/sergds/dnschanger/internal/rpc"
	"github.com/sergds/dnschanger/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Where it all begins...
func main() {
	e := &env{log: logrus.New()}
	e.log.SetOutput(os.Stderr)

	app := &cli.App{
		Name:    "dnschanger",
		Usage:   "switch the DNS servers of every network adapter between saved profiles",
		Version: internal.Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML config file", EnvVars: []string{"DNSCHANGER_CONFIG"}},
			&cli.StringFlag{Name: "catalog", Usage: "profile catalog file", EnvVars: []string{"DNSCHANGER_CATALOG"}},
			&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "dns backend (auto, null, resolvconf, ...)", EnvVars: []string{"DNSCHANGER_BACKEND"}},
			&cli.StringFlag{Name: "journal", Usage: "history database, empty to disable", EnvVars: []string{"DNSCHANGER_JOURNAL"}},
			&cli.StringFlag{Name: "remote", Aliases: []string{"r"}, Usage: "talk to a dnschanger server at host:port, or \"auto\" for mDNS", EnvVars: []string{"DNSCHANGER_REMOTE"}},
			&cli.StringFlag{Name: "log-level", Usage: "panic, fatal, error, warn, info, debug, trace", EnvVars: []string{"DNSCHANGER_LOG_LEVEL"}},
			&cli.BoolFlag{Name: "no-color", Usage: "plain output"},
		},
		Before: e.setup,
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"l", "ls", "lis"},
				Usage:   "List saved DNS profiles.",
				Action:  e.list,
			},
			{
				Name:      "apply",
				Aliases:   []string{"a", "ap", "app"},
				Usage:     "Apply a profile to every network adapter.",
				ArgsUsage: "PROFILE",
				Action:    e.apply,
			},
			{
				Name:    "clear",
				Aliases: []string{"clr", "reset"},
				Usage:   "Remove static DNS servers from every network adapter.",
				Action:  e.clear,
			},
			{
				Name:      "add",
				Usage:     "Add or overwrite a profile.",
				ArgsUsage: "NAME PRIMARY [SECONDARY]",
				Action:    e.add,
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm", "del"},
				Usage:     "Remove a profile.",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"}},
				Action:    e.remove,
			},
			{
				Name:    "adapters",
				Aliases: []string{"ad", "if"},
				Usage:   "List the adapters the backend would configure.",
				Action:  e.adapters,
			},
			{
				Name:    "status",
				Aliases: []string{"st"},
				Usage:   "Show backend, active profile and the last run.",
				Action:  e.status,
			},
			{
				Name:    "history",
				Aliases: []string{"hist", "log"},
				Usage:   "Show recent apply/clear runs.",
				Flags:   []cli.Flag{&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10}},
				Action:  e.history,
			},
			{
				Name:      "probe",
				Aliases:   []string{"p", "test"},
				Usage:     "Query the resolvers of some or all profiles and report latency.",
				ArgsUsage: "[PROFILE...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "name to look up"},
					&cli.DurationFlag{Name: "timeout", Usage: "per query timeout"},
					&cli.BoolFlag{Name: "verify", Usage: "compare answers with a DNS-over-HTTPS lookup"},
				},
				Action: e.probe,
			},
			{
				Name:      "export",
				Usage:     "Write the catalog as YAML.",
				ArgsUsage: "[FILE]",
				Action:    e.export,
			},
			{
				Name:      "import",
				Usage:     "Merge profiles from a YAML file into the catalog.",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "replace", Usage: "drop existing profiles first"}},
				Action:    e.importYAML,
			},
			{
				Name:    "server",
				Aliases: []string{"s", "serve", "srv"},
				Usage:   "Run dnschanger server from here.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "gRPC listen address", EnvVars: []string{"DNSCHANGER_LISTEN"}},
					&cli.BoolFlag{Name: "advertise", Usage: "announce the server over mDNS", EnvVars: []string{"DNSCHANGER_ADVERTISE"}},
				},
				Action: e.serve,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: ")+err.Error())
		os.Exit(1)
	}
}

func (e *env) setup(ctx *cli.Context) error {
	conf, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	if ctx.IsSet("catalog") {
		conf.Catalog = ctx.String("catalog")
	}
	if ctx.IsSet("backend") {
		conf.Backend = ctx.String("backend")
	}
	if ctx.IsSet("journal") {
		conf.Journal = ctx.String("journal")
	}
	if ctx.IsSet("log-level") {
		conf.LogLevel = ctx.String("log-level")
	}
	if err := conf.Validate(); err != nil {
		return err
	}
	level, err := logrus.ParseLevel(conf.LogLevel)
	if err != nil {
		return err
	}
	e.log.SetLevel(level)
	if ctx.Bool("no-color") {
		color.NoColor = true
	}
	e.conf = conf
	e.remote = ctx.String("remote")
	return nil
}

func (e *env) list(ctx *cli.Context) error {
	f, err := e.open(needCatalog)
	if err != nil {
		return err
	}
	defer f.Close()
	profiles, err := f.ListProfiles()
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(color.Output, 0, 4, 2, ' ', 0)
	for i, p := range profiles {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, color.New(color.Bold).Sprint(p.Name), p.Addresses[0], p.Addresses[1])
	}
	return tw.Flush()
}

func (e *env) apply(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("please specify the profile to apply")
	}
	f, err := e.open(needHost | needJournal)
	if err != nil {
		return err
	}
	defer f.Close()
	name := ctx.Args().First()
	bar := fastansi.NewProgressBar(fastansi.NewStatusPrinter(color.Output), color.YellowString(rpc.DescribeState(rpc.OP_APPLY)))
	report, err := f.ApplyProfile(name, bar.Set)
	if err != nil {
		return err
	}
	return summarize(color.Output, report)
}

func (e *env) clear(ctx *cli.Context) error {
	f, err := e.open(needHost | needJournal)
	if err != nil {
		return err
	}
	defer f.Close()
	bar := fastansi.NewProgressBar(fastansi.NewStatusPrinter(color.Output), color.YellowString(rpc.DescribeState(rpc.OP_CLEAR)))
	report, err := f.ClearAll(bar.Set)
	if err != nil {
		return err
	}
	return summarize(color.Output, report)
}

// summarize prints one line per adapter and fails when any adapter was not updated.
func summarize(w io.Writer, report *configurator.ApplyReport) error {
	fmt.Fprintln(w)
	if len(report.Results) == 0 {
		fmt.Fprintln(w, color.YellowString("No adapters to configure."))
		return nil
	}
	fmt.Fprintln(w, "Operation Summary:")
	for _, r := range report.Results {
		if r.Err != nil {
			fmt.Fprintf(w, "  %s %s: %v\n", color.RedString("FAIL"), r.Adapter, r.Err)
		} else {
			fmt.Fprintf(w, "  %s %s\n", color.GreenString("OK  "), r.Adapter)
		}
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d adapters were not updated", len(failed), len(report.Results))
	}
	return nil
}

func (e *env) add(ctx *cli.Context) error {
	if ctx.NArg() < 2 || ctx.NArg() > 3 {
		return errors.New("usage: add NAME PRIMARY [SECONDARY]")
	}
	f, err := e.open(needCatalog)
	if err != nil {
		return err
	}
	defer f.Close()
	args := ctx.Args()
	if err := f.AddProfile(args.Get(0), args.Get(1), args.Get(2)); err != nil {
		return err
	}
	fmt.Println(color.GreenString("Saved ") + args.Get(0))
	return nil
}

func (e *env) remove(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("missing profile name")
	}
	name := ctx.Args().First()
	if !ctx.Bool("yes") && !confirm(os.Stdin, color.Output, fmt.Sprintf("Remove profile %q? [y/N] ", name)) {
		fmt.Println("Cancelled.")
		return nil
	}
	f, err := e.open(needCatalog)
	if err != nil {
		return err
	}
	defer f.Close()
	removed, err := f.RemoveProfile(name)
	if err != nil {
		return err
	}
	if !removed {
		fmt.Println(color.YellowString("No such profile: ") + name)
		return nil
	}
	fmt.Println(color.GreenString("Removed ") + name)
	return nil
}

func confirm(r io.Reader, w io.Writer, prompt string) bool {
	fmt.Fprint(w, prompt)
	line, _ := bufio.NewReader(r).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func (e *env) adapters(ctx *cli.Context) error {
	f, err := e.open(needHost)
	if err != nil {
		return err
	}
	defer f.Close()
	backend, adapters, err := f.Adapters()
	if err != nil {
		return err
	}
	fmt.Println("Backend: " + color.CyanString(backend))
	tw := tabwriter.NewWriter(color.Output, 0, 4, 2, ' ', 0)
	for _, a := range adapters {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", a.Index, a.Name, a.ID)
	}
	return tw.Flush()
}

func (e *env) status(ctx *cli.Context) error {
	f, err := e.open(needHost | needJournal)
	if err != nil {
		return err
	}
	defer f.Close()
	st, err := f.Status()
	if err != nil {
		return err
	}
	printStatus(color.Output, st)
	return nil
}

func printStatus(w io.Writer, st changer.Status) {
	fmt.Fprintln(w, "Backend:  "+color.CyanString(st.Backend))
	fmt.Fprintf(w, "Adapters: %d\n", len(st.Adapters))
	active := st.Active
	if active == "" {
		active = color.New(color.Faint).Sprint("none")
	}
	fmt.Fprintln(w, "Active:   "+active)
	if st.Last != nil {
		fmt.Fprintf(w, "Last run: %s %s at %s\n", st.Last.Op, st.Last.Profile, st.Last.Time.Local().Format("2006-01-02 15:04:05"))
		if len(st.Last.Failed) > 0 {
			fmt.Fprintln(w, color.RedString("  failed on: ")+strings.Join(st.Last.Failed, ", "))
		}
	}
}

func (e *env) history(ctx *cli.Context) error {
	if e.remote != "" {
		return errRemoteOnly
	}
	l, err := e.openLocal(needJournal)
	if err != nil {
		return err
	}
	defer l.Close()
	entries, err := l.History(ctx.Int("limit"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No history yet.")
		return nil
	}
	tw := tabwriter.NewWriter(color.Output, 0, 4, 2, ' ', 0)
	for _, en := range entries {
		state := color.GreenString("ok")
		if len(en.Failed) > 0 {
			state = color.RedString("%d failed", len(en.Failed))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", en.Time.Local().Format("2006-01-02 15:04:05"), en.Op, en.Profile, strings.Join(en.Addresses, ","), state)
	}
	return tw.Flush()
}

func (e *env) probe(ctx *cli.Context) error {
	if e.remote != "" {
		return errRemoteOnly
	}
	l, err := e.openLocal(needCatalog)
	if err != nil {
		return err
	}
	defer l.Close()
	opts := probe.Options{Host: e.conf.Probe.Host, Timeout: e.conf.Probe.Timeout, Verify: e.conf.Probe.Verify}
	if ctx.IsSet("host") {
		opts.Host = ctx.String("host")
	}
	if ctx.IsSet("timeout") {
		opts.Timeout = ctx.Duration("timeout")
	}
	if ctx.IsSet("verify") {
		opts.Verify = ctx.Bool("verify")
	}
	results, err := l.Probe(context.Background(), ctx.Args().Slice(), opts)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(color.Output, 0, 4, 2, ' ', 0)
	for _, res := range results {
		for _, s := range res.Servers {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Profile.Name, s.Address, describeServer(s))
		}
	}
	return tw.Flush()
}

func describeServer(s probe.ServerResult) string {
	if s.Err != nil {
		return color.RedString("error: %v", s.Err)
	}
	out := fmt.Sprintf("%v\t%s", s.RTT.Round(time.Millisecond), strings.Join(s.Answers, ","))
	if s.Verified {
		if s.Consistent {
			out += "\t" + color.GreenString("consistent")
		} else {
			out += "\t" + color.YellowString("differs from DoH")
		}
	}
	return out
}

func (e *env) export(ctx *cli.Context) error {
	if e.remote != "" {
		return errRemoteOnly
	}
	l, err := e.openLocal(needCatalog)
	if err != nil {
		return err
	}
	defer l.Close()
	if ctx.NArg() == 0 {
		return l.Export(os.Stdout)
	}
	out, err := os.Create(ctx.Args().First())
	if err != nil {
		return err
	}
	if err := l.Export(out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (e *env) importYAML(ctx *cli.Context) error {
	if e.remote != "" {
		return errRemoteOnly
	}
	if ctx.NArg() != 1 {
		return errors.New("please specify the file to import")
	}
	in, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer in.Close()
	l, err := e.openLocal(needCatalog)
	if err != nil {
		return err
	}
	defer l.Close()
	n, err := l.Import(in, ctx.Bool("replace"))
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d profiles.\n", n)
	return nil
}

func (e *env) serve(ctx *cli.Context) error {
	if ctx.IsSet("listen") {
		e.conf.Listen = ctx.String("listen")
	}
	if ctx.IsSet("advertise") {
		e.conf.Advertise = ctx.Bool("advertise")
	}
	l, err := e.openLocal(needHost | needJournal)
	if err != nil {
		return err
	}
	defer l.Close()
	return server.ServerMain(l.Changer, server.Options{
		Listen:    e.conf.Listen,
		Advertise: e.conf.Advertise,
		Log:       e.log,
	})
}
