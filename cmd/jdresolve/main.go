// Command jdresolve rewrites log files, replacing IPv4 addresses with the
// hostnames reverse DNS gives for them.
//
// It reads a log file (or standard input), issues many PTR queries
// concurrently against a bounded socket pool, and emits the lines in input
// order with each resolved address substituted in place. A persistent
// resolution database lets later runs reuse prior answers, and the optional
// recursion mode synthesizes names from the owning network class when a
// direct lookup fails.
//
// Usage:
//
//	jdresolve [flags] <logfile>
//	jdresolve -r -s 128 access.log
//	cat access.log | jdresolve --database=hosts.db --dbfirst -
//
// Database utilities:
//
//	jdresolve --database=hosts.db --dumpdb
//	jdresolve --database=hosts.db --mergedb=extra.txt
//	jdresolve --database=hosts.db --expiredb=168
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/miekg/dns"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wepl/jdresolve/internal/buildinfo"
	"github.com/wepl/jdresolve/internal/config"
	"github.com/wepl/jdresolve/internal/dnsclient"
	"github.com/wepl/jdresolve/internal/log"
	"github.com/wepl/jdresolve/internal/resolver"
	"github.com/wepl/jdresolve/internal/scan"
	"github.com/wepl/jdresolve/internal/store"
)

type cliFlags struct {
	recursive  bool
	anywhere   bool
	timeout    int
	sockets    int
	linecache  int
	mask       string
	database   string
	dbfirst    bool
	dbonly     bool
	progress   bool
	unresolved bool
	nostats    bool
	debug      string
	nameserver []string

	dumpdb   bool
	mergedb  string
	expiredb int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f cliFlags

	root := &cobra.Command{
		Use:   "jdresolve [flags] <logfile>",
		Short: "Resolve IP addresses in log files to hostnames",
		Long: `jdresolve rewrites a log file, replacing IPv4 addresses with the hostnames
reverse DNS gives for them. Many queries run concurrently against a bounded
socket pool while the output preserves the input line order. Use "-" as the
logfile to read standard input.`,
		Example:       "jdresolve -r --database=hosts.db access.log",
		Version:       buildinfo.Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, &f)
		},
	}

	root.Flags().BoolVarP(&f.recursive, "recursive", "r", false, "resolve via the owning network class when a direct PTR fails")
	root.Flags().BoolVarP(&f.anywhere, "anywhere", "a", false, "scan addresses anywhere on a line, not only at line start")
	root.Flags().IntVarP(&f.timeout, "timeout", "t", 0, "per-query deadline in seconds (default 30)")
	root.Flags().IntVarP(&f.sockets, "sockets", "s", 0, "concurrent query bound (default 64)")
	root.Flags().IntVarP(&f.linecache, "linecache", "l", 0, "buffered input line bound (default 10000)")
	root.Flags().StringVarP(&f.mask, "mask", "m", "", `name template for recursion, %i=address %c=class (default "%i.%c")`)
	root.Flags().StringVar(&f.database, "database", "", "path to the persistent resolution database")
	root.Flags().BoolVar(&f.dbfirst, "dbfirst", false, "consult the database before issuing a query")
	root.Flags().BoolVar(&f.dbonly, "dbonly", false, "never issue queries; implies --dbfirst")
	root.Flags().BoolVarP(&f.progress, "progress", "p", false, "emit a per-host status glyph to standard error")
	root.Flags().BoolVar(&f.unresolved, "unresolved", false, "list unresolved addresses on standard error after the run")
	root.Flags().BoolVar(&f.nostats, "nostats", false, "suppress the final statistics")
	root.Flags().StringVar(&f.debug, "debug", "", "log verbosity, 0-3")
	root.Flags().StringArrayVar(&f.nameserver, "nameserver", nil, "DNS server to query (host[:port], repeatable)")
	root.Flags().BoolVar(&f.dumpdb, "dumpdb", false, "dump the database to standard output and exit")
	root.Flags().StringVar(&f.mergedb, "mergedb", "", `merge "key name" lines from a file into the database and exit ("-" for stdin)`)
	root.Flags().IntVar(&f.expiredb, "expiredb", 0, "delete database entries older than this many hours and exit")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
		},
	}
	root.AddCommand(versionCmd)

	return root
}

func run(cmd *cobra.Command, args []string, f *cliFlags) error {
	if f.debug != "" {
		log.SetLevel(f.debug)
	}

	cfg, err := config.New().Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if f.dumpdb || f.mergedb != "" || f.expiredb > 0 {
		return runDBUtility(f)
	}

	if len(args) != 1 {
		return errors.New("exactly one logfile argument is required (use \"-\" for stdin)")
	}
	if (f.dbfirst || f.dbonly) && f.database == "" {
		return errors.New("--dbfirst and --dbonly require --database")
	}

	in, closeIn, err := openInput(args[0])
	if err != nil {
		return err
	}
	defer closeIn()

	var db *store.DB
	if f.database != "" {
		db, err = store.Open(f.database)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	opts := buildOptions(cmd, f, cfg)
	client := dnsclient.New(opts.Timeout, dnsclient.WithResolvers(nameservers(f, cfg)))

	var st resolver.Store
	if db != nil {
		st = db
	}
	res := resolver.New(client, st, in, os.Stdout, os.Stderr, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return res.Run(ctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if !f.nostats {
		printStats(res.Stats())
	}
	return nil
}

// buildOptions merges flags over the config file: a flag the user set wins,
// everything else comes from the file (or its defaults).
func buildOptions(cmd *cobra.Command, f *cliFlags, cfg *config.Config) resolver.Options {
	opts := resolver.Options{
		Recursive:  f.recursive,
		Anywhere:   f.anywhere,
		Timeout:    cfg.Resolver.Timeout,
		Sockets:    cfg.Resolver.Sockets,
		LineCache:  cfg.Resolver.LineCache,
		Mask:       scan.Mask(cfg.Resolver.Mask),
		DBFirst:    f.dbfirst,
		DBOnly:     f.dbonly,
		Progress:   f.progress,
		Unresolved: f.unresolved,
	}
	if cmd.Flags().Changed("timeout") {
		opts.Timeout = time.Duration(f.timeout) * time.Second
	}
	if cmd.Flags().Changed("sockets") {
		opts.Sockets = f.sockets
	}
	if cmd.Flags().Changed("linecache") {
		opts.LineCache = f.linecache
	}
	if cmd.Flags().Changed("mask") {
		opts.Mask = scan.Mask(f.mask)
	}
	return opts
}

// nameservers picks the resolver set: flags, then the config file, then
// /etc/resolv.conf. Entries without a port get :53.
func nameservers(f *cliFlags, cfg *config.Config) []string {
	servers := f.nameserver
	if len(servers) == 0 {
		servers = cfg.Nameservers
	}
	if len(servers) == 0 {
		if rc, err := dns.ClientConfigFromFile("/etc/resolv.conf"); err == nil {
			servers = rc.Servers
		}
	}
	out := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if !strings.Contains(s, ":") {
			s += ":53"
		}
		out = append(out, s)
	}
	return out
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return file, func() { file.Close() }, nil
}

func runDBUtility(f *cliFlags) error {
	if f.database == "" {
		return errors.New("database utilities require --database")
	}
	db, err := store.Open(f.database)
	if err != nil {
		return err
	}
	defer db.Close()

	switch {
	case f.dumpdb:
		return db.Dump(os.Stdout)
	case f.mergedb != "":
		in := os.Stdin
		if f.mergedb != "-" {
			file, err := os.Open(f.mergedb)
			if err != nil {
				return fmt.Errorf("opening merge file: %w", err)
			}
			defer file.Close()
			in = file
		}
		n, err := db.Merge(in, time.Now().Unix())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "merged %d entries\n", n)
		return nil
	default:
		n, err := db.Expire(time.Duration(f.expiredb)*time.Hour, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "expired %d entries\n", n)
		return nil
	}
}

func printStats(st *resolver.Stats) {
	table := tablewriter.NewWriter(os.Stderr)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
	)
	table.SetBorder(false)
	table.SetColumnColor(
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
		tablewriter.Colors{tablewriter.FgGreenColor},
	)

	rows := [][]string{
		{"Lines processed", fmt.Sprint(st.Lines.Load())},
		{"Hosts seen", fmt.Sprint(st.Hosts.Load())},
		{"Queries sent", fmt.Sprint(st.Sent.Load())},
		{"Replies received", fmt.Sprint(st.Received.Load())},
		{"Resolved by nameserver", fmt.Sprint(st.Resolved.Load())},
		{"Database hits", fmt.Sprint(st.StoreHits.Load())},
		{"Recursion hits", fmt.Sprint(st.Recursed.Load())},
		{"Timeouts", fmt.Sprint(st.Timeouts.Load())},
		{"Bogus replies", fmt.Sprint(st.Bogus.Load())},
		{"Unresolved", fmt.Sprint(st.Failed.Load())},
		{"Database write errors", fmt.Sprint(st.StoreErrors.Load())},
		{"Max response time", st.MaxResponse.Load().String()},
		{"Elapsed", st.Elapsed.Round(time.Millisecond).String()},
	}
	for _, r := range rows {
		table.Append(r)
	}

	color.New(color.Bold).Fprintln(os.Stderr, "RESOLUTION STATISTICS:")
	table.Render()
}
