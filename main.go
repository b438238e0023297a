package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"golang.org/x/sync/errgroup"

	"github.com/lotas/campaigndesk/internal/analyzer"
	"github.com/lotas/campaigndesk/internal/applog"
	"github.com/lotas/campaigndesk/internal/brief"
	"github.com/lotas/campaigndesk/internal/campaign"
	"github.com/lotas/campaigndesk/internal/config"
	"github.com/lotas/campaigndesk/internal/draft"
	"github.com/lotas/campaigndesk/internal/export"
	"github.com/lotas/campaigndesk/internal/live"
	"github.com/lotas/campaigndesk/internal/mockapi"
	"github.com/lotas/campaigndesk/internal/storage"
	"github.com/lotas/campaigndesk/internal/tabcache"
	"github.com/lotas/campaigndesk/internal/thaiaddr"
	"github.com/lotas/campaigndesk/internal/tui"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "list":
			runList(os.Args[2:])
			return
		case "export":
			runExport(os.Args[2:])
			return
		case "cache":
			runCache(os.Args[2:])
			return
		case "brief":
			runBrief(os.Args[2:])
			return
		case "draft":
			runDraft(os.Args[2:])
			return
		case "address":
			runAddress(os.Args[2:])
			return
		case "serve":
			runServe(os.Args[2:])
			return
		case "config":
			runConfig(os.Args[2:])
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	fs := flag.NewFlagSet("campaigndesk", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file (default: ~/.config/campaigndesk/config.yml)")
	liveURL := fs.String("live", "", "Websocket URL of the change feed (overrides live-url)")
	fs.Parse(os.Args[1:])

	cfg := mustLoadConfig(*configPath)
	if *liveURL != "" {
		cfg.LiveURL = *liveURL
	}
	store := mustOpenStore(cfg)
	defer store.Close()
	mgr := newManager(cfg, store)
	defer mgr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var events <-chan live.Event
	if cfg.LiveURL != "" {
		events = live.Subscribe(ctx, cfg.LiveURL)
	}

	model := tui.NewModel(mgr, events, brief.Fetch)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal(err)
	}
}

func printHelp() {
	fmt.Print(`campaigndesk — creator campaign dashboard

Usage:
  campaigndesk                                   Start the TUI (default)
    --config <file>        Config file (default: ~/.config/campaigndesk/config.yml)
    --live <ws-url>        Change feed to follow (overrides live-url)

  campaigndesk list                              Print a tab's campaigns
    --tab <name>           all, active or history (default: all)
    --pages <n>            Pages to load, 0 for every page (default: 1)
    --refresh              Revalidate page 1 even if cached, print what changed
    --search <text>        Only campaigns whose title or brand match

  campaigndesk export                            Export cached tabs
    --json                 Export as JSON instead of markdown
    --out <file>           Output file path (default: stdout)
    --fetch                Load page 1 of tabs that were never loaded

  campaigndesk cache show                        Show cached tabs and stored keys
  campaigndesk cache clear [--all]               Drop the cached tabs (--all: the draft too)

  campaigndesk brief <campaign-id|url>           Fetch and render a campaign brief
    --raw                  Print markdown instead of rendering it

  campaigndesk draft show                        Show the registration draft
  campaigndesk draft step <n>                    Set the current step
  campaigndesk draft set <field> <value>         Set a personal info field
  campaigndesk draft interests <a,b,c>           Replace the interests
  campaigndesk draft social <platform> <user> [followers]  Add a social account
  campaigndesk draft price <boost> <original>    Set boost and original file prices
  campaigndesk draft address <query>             Fill the address from the first match
  campaigndesk draft clear                       Delete the draft

  campaigndesk address <query>                   Search sub-districts by name or zipcode

  campaigndesk serve                             Run the mock campaign API
    --addr <host:port>     Listen address (default: mock-addr)
    --seed <n>             Campaigns to generate (default: mock-seed)
    --token <token>        Required bearer token (default: none)
    --churn <duration>     Change a random campaign this often (default: off)

  campaigndesk config init [--force]             Write the default config file
  campaigndesk config show                       Print the resolved config

Environment:
  CAMPAIGNDESK_<KEY>     Overrides a config key, e.g. CAMPAIGNDESK_API_URL, CAMPAIGNDESK_TOKEN
`)
}

// --- shared setup ---

// kvStore is what every storage backend provides.
type kvStore interface {
	Read(key string) (string, bool, error)
	Write(key, value string) error
	Remove(key string) error
	Close() error
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func mustLoadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fatal(err)
	}
	if err := applog.Init(cfg.LogDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}
	return cfg
}

func openStore(cfg config.Config) (kvStore, error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		kv, err := storage.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case config.BackendMemory:
		return storage.NewMemoryKV(), nil
	}
	db, err := storage.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	return storage.NewKV(db), nil
}

func mustOpenStore(cfg config.Config) kvStore {
	store, err := openStore(cfg)
	if err != nil {
		fatal(fmt.Errorf("open %s store: %w", cfg.CacheBackend, err))
	}
	return store
}

func newClient(cfg config.Config) *campaign.Client {
	return campaign.NewClient(cfg.APIURL, cfg.Token, cfg.RequestTimeout)
}

func newManager(cfg config.Config, store kvStore) *tabcache.Manager {
	return tabcache.New(newClient(cfg), store, tabcache.WithPageSize(cfg.PageSize))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
// Only flags listed in boolFlags are treated as taking no value.
func reorderArgs(args []string, boolFlags ...string) []string {
	isBool := func(arg string) bool {
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			return true
		}
		for _, b := range boolFlags {
			if name == b {
				return true
			}
		}
		return false
	}
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !isBool(args[i]) && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

func describeLoadError(err error) error {
	if errors.Is(err, campaign.ErrUnauthorized) {
		return fmt.Errorf("%w (set token in the config or CAMPAIGNDESK_TOKEN)", err)
	}
	return err
}

// --- list ---

func runList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	tab := fs.String("tab", "all", "Tab to list: all, active or history")
	pages := fs.Int("pages", 1, "Pages to load, 0 for every page")
	refresh := fs.Bool("refresh", false, "Revalidate page 1 even if cached")
	search := fs.String("search", "", "Only campaigns whose title or brand match")
	fs.Parse(args)

	cfg := mustLoadConfig(*configPath)
	store := mustOpenStore(cfg)
	defer store.Close()
	mgr := newManager(cfg, store)
	defer mgr.Close()
	mgr.Hydrate()

	tv := mgr.View(*tab)
	if tv.Tab.Name == "" {
		fatal(fmt.Errorf("unknown tab %q", *tab))
	}

	ctx, cancel := signalContext()
	defer cancel()

	if !tv.IsLoaded || *refresh {
		out := mgr.Load(ctx, *tab, 1, tv.IsLoaded)
		switch {
		case out.Err != nil && !tv.IsLoaded:
			fatal(describeLoadError(out.Err))
		case out.Err != nil:
			fmt.Fprintf(os.Stderr, "Warning: refresh failed, showing cached list: %v\n", describeLoadError(out.Err))
		case tv.IsLoaded:
			fmt.Fprint(os.Stderr, tabcache.FormatDiff(*tab, out.Diff))
		}
	}

	for *pages == 0 || mgr.View(*tab).Page < *pages {
		req, ok := mgr.LoadMore(*tab)
		if !ok {
			break
		}
		if out := mgr.Commit(mgr.Fetch(ctx, req)); out.Err != nil {
			fmt.Fprintf(os.Stderr, "Warning: page %d failed: %v\n", req.Page, describeLoadError(out.Err))
			break
		}
	}

	items := mgr.GetFiltered(*tab, tabcache.MatchQuery(*search))
	tv = mgr.View(*tab)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTITLE\tBRAND\tAPPLY BY")
	for _, c := range items {
		status := c.Status
		if c.UserStatus != "" {
			status = c.UserStatus
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, status, c.Title, c.BrandName, c.Deadline)
	}
	w.Flush()

	more := ""
	if tv.HasMore {
		more = ", more on the server"
	}
	fmt.Fprintf(os.Stderr, "%d of %d cached campaigns in %s (page %d%s)\n", len(items), len(tv.Items), tv.Tab.Label, tv.Page, more)
	fmt.Fprintln(os.Stderr, analyzer.ComputeStats(items, time.Now()))
}

// --- export ---

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	jsonFlag := fs.Bool("json", false, "Export as JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	fetch := fs.Bool("fetch", false, "Load page 1 of tabs that were never loaded")
	fs.Parse(args)

	cfg := mustLoadConfig(*configPath)
	store := mustOpenStore(cfg)
	defer store.Close()
	mgr := newManager(cfg, store)
	defer mgr.Close()
	mgr.Hydrate()

	if *fetch {
		ctx, cancel := signalContext()
		defer cancel()
		for _, t := range mgr.Tabs() {
			if mgr.View(t.Name).IsLoaded {
				continue
			}
			if out := mgr.Load(ctx, t.Name, 1, false); out.Err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %s: %v\n", t.Label, describeLoadError(out.Err))
			}
		}
	}

	var sections []export.Section
	for _, t := range mgr.Tabs() {
		tv := mgr.View(t.Name)
		sections = append(sections, export.Section{
			Tab:           t.Name,
			Label:         t.Label,
			LastFetchedAt: tv.LastFetchedAt,
			HasMore:       tv.HasMore && tv.IsLoaded,
			Items:         tv.Items,
		})
	}

	var output string
	if *jsonFlag {
		var err error
		output, err = export.JSON(sections)
		if err != nil {
			fatal(fmt.Errorf("generating JSON: %w", err))
		}
	} else {
		output = export.Markdown(sections)
	}

	if *outFile != "" {
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fatal(fmt.Errorf("writing file: %w", err))
		}
	} else {
		fmt.Print(output)
	}
}

// --- cache ---

func runCache(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: campaigndesk cache show|clear")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("cache "+args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	all := fs.Bool("all", false, "Also delete the registration draft")
	fs.Parse(args[1:])

	cfg := mustLoadConfig(*configPath)
	store := mustOpenStore(cfg)
	defer store.Close()
	mgr := newManager(cfg, store)
	defer mgr.Close()

	switch args[0] {
	case "show":
		mgr.Hydrate()
		fmt.Printf("Backend: %s\n\n", cfg.CacheBackend)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TAB\tLOADED\tITEMS\tPAGE\tMORE\tFETCHED")
		for _, t := range mgr.Tabs() {
			tv := mgr.View(t.Name)
			fetched := "-"
			if !tv.LastFetchedAt.IsZero() {
				fetched = tv.LastFetchedAt.Local().Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%v\t%d\t%d\t%v\t%s\n", t.Name, tv.IsLoaded, len(tv.Items), tv.Page, tv.HasMore, fetched)
		}
		w.Flush()

		lister, ok := store.(interface {
			Entries() ([]storage.Entry, error)
		})
		if !ok {
			return
		}
		entries, err := lister.Entries()
		if err != nil {
			fatal(err)
		}
		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSTORED\tRAW\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", e.Key, e.Size, e.RawSize, e.UpdatedAt.Local().Format("2006-01-02 15:04"))
		}
		w.Flush()

	case "clear":
		mgr.Reset()
		fmt.Println("Cleared cached tabs.")
		if *all {
			if err := store.Remove(draft.Key); err != nil {
				fatal(err)
			}
			fmt.Println("Cleared registration draft.")
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown cache command %q. Use show or clear.\n", args[0])
		os.Exit(1)
	}
}

// --- brief ---

func runBrief(args []string) {
	fs := flag.NewFlagSet("brief", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	raw := fs.Bool("raw", false, "Print markdown instead of rendering it")
	fs.Parse(reorderArgs(args, "raw"))

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: campaigndesk brief <campaign-id|url>")
		os.Exit(1)
	}
	target := fs.Arg(0)

	cfg := mustLoadConfig(*configPath)
	ctx, cancel := signalContext()
	defer cancel()

	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		c, err := newClient(cfg).Get(ctx, target)
		if err != nil {
			fatal(describeLoadError(err))
		}
		if c.BriefURL == "" {
			fatal(fmt.Errorf("campaign %s (%s) has no brief", c.ID, c.Title))
		}
		target = c.BriefURL
	}

	b, err := brief.Fetch(ctx, target)
	if err != nil {
		fatal(err)
	}
	md := b.Markdown()
	if *raw {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// --- draft ---

func runDraft(args []string) {
	fs := flag.NewFlagSet("draft", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	fs.Parse(reorderArgs(args))

	rest := fs.Args()
	if len(rest) == 0 {
		rest = []string{"show"}
	}

	cfg := mustLoadConfig(*configPath)
	store := mustOpenStore(cfg)
	defer store.Close()

	saver := draft.Open(store, draft.Options{Debounce: cfg.DraftDebounce})
	defer func() {
		if err := saver.Close(); err != nil {
			fatal(fmt.Errorf("saving draft: %w", err))
		}
	}()

	switch cmd := rest[0]; cmd {
	case "show":
		d := saver.Draft()
		data, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			fatal(err)
		}
		fmt.Println(string(data))
		return

	case "step":
		if len(rest) != 2 {
			fatal(errors.New("usage: draft step <n>"))
		}
		n, err := strconv.Atoi(rest[1])
		if err != nil || n < 1 {
			fatal(fmt.Errorf("invalid step %q", rest[1]))
		}
		saver.SetStep(n)

	case "set":
		if len(rest) != 3 {
			fatal(errors.New("usage: draft set <field> <value>"))
		}
		fn, err := draft.SetPersonalField(rest[1], rest[2])
		if err != nil {
			fatal(err)
		}
		saver.UpdatePersonalInfo(fn)

	case "interests":
		if len(rest) != 2 {
			fatal(errors.New("usage: draft interests <a,b,c>"))
		}
		var interests []string
		for _, s := range strings.Split(rest[1], ",") {
			if s = strings.TrimSpace(s); s != "" {
				interests = append(interests, s)
			}
		}
		saver.UpdateInterests(interests)

	case "social":
		if len(rest) < 3 || len(rest) > 4 {
			fatal(errors.New("usage: draft social <platform> <username> [followers]"))
		}
		acct := draft.SocialAccount{Platform: rest[1], Username: rest[2]}
		if len(rest) == 4 {
			acct.Followers = rest[3]
		}
		saver.UpdateWorkConditions(func(w *draft.WorkConditions) {
			w.SocialAccounts = append(w.SocialAccounts, acct)
		})

	case "price":
		if len(rest) != 3 {
			fatal(errors.New("usage: draft price <boost> <original>"))
		}
		saver.UpdateWorkConditions(func(w *draft.WorkConditions) {
			w.BoostPrice = rest[1]
			w.OriginalFilePrice = rest[2]
		})

	case "address":
		if len(rest) < 2 {
			fatal(errors.New("usage: draft address <query>"))
		}
		idx, err := thaiaddr.Open(cfg.AddressDB)
		if err != nil {
			fatal(err)
		}
		matches := idx.Search(strings.Join(rest[1:], " "))
		if len(matches) == 0 {
			fatal(fmt.Errorf("no address matches %q", strings.Join(rest[1:], " ")))
		}
		form := thaiaddr.ToForm(matches[0])
		saver.UpdatePersonalInfo(func(p *draft.PersonalInfo) {
			p.SubDistrict = form.SubDistrict
			p.District = form.District
			p.Province = form.Province
			p.Zipcode = form.Zipcode
		})
		fmt.Println(thaiaddr.FormatLabel(matches[0]))

	case "clear":
		if err := saver.Clear(); err != nil {
			fatal(err)
		}
		fmt.Println("Draft cleared.")
		return

	default:
		fatal(fmt.Errorf("unknown draft command %q", cmd))
	}

	if err := saver.Flush(); err != nil {
		fatal(fmt.Errorf("saving draft: %w", err))
	}
	fmt.Printf("Draft saved (step %d).\n", saver.Draft().Step)
}

// --- address ---

func runAddress(args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	fs.Parse(reorderArgs(args))

	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: campaigndesk address <query>")
		os.Exit(1)
	}

	cfg := mustLoadConfig(*configPath)
	idx, err := thaiaddr.Open(cfg.AddressDB)
	if err != nil {
		fatal(err)
	}
	query := strings.Join(fs.Args(), " ")
	matches := idx.Search(query)
	if len(matches) == 0 {
		fmt.Fprintf(os.Stderr, "No address matches %q.\n", query)
		os.Exit(1)
	}
	for _, a := range matches {
		fmt.Println(thaiaddr.FormatLabel(a))
	}
}

// --- serve ---

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	addr := fs.String("addr", "", "Listen address (default: mock-addr)")
	seed := fs.Int("seed", -1, "Campaigns to generate (default: mock-seed)")
	token := fs.String("token", "", "Required bearer token")
	churn := fs.Duration("churn", 0, "Change a random campaign this often")
	fs.Parse(args)

	cfg := mustLoadConfig(*configPath)
	if *addr == "" {
		*addr = cfg.MockAddr
	}
	if *seed < 0 {
		*seed = cfg.MockSeed
	}

	store := mockapi.NewStore()
	store.Seed(*seed, 1)
	srv := mockapi.NewServer(*addr, *token, store, live.NewHub())

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(os.Stderr, "Mock API on http://%s/api/v1 (%d campaigns), live feed on ws://%s/ws\n", *addr, store.Len(), *addr)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	if *churn > 0 {
		g.Go(func() error {
			return srv.Churn(ctx, *churn, time.Now().UnixNano())
		})
	}
	if err := g.Wait(); err != nil {
		fatal(err)
	}
}

// --- config ---

func runConfig(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: campaigndesk config init|show")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("config "+args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "Config file")
	force := fs.Bool("force", false, "Overwrite an existing file")
	fs.Parse(args[1:])

	switch args[0] {
	case "init":
		path := *configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				fatal(err)
			}
			path = p
		}
		if err := config.WriteDefault(path, *force); err != nil {
			fatal(err)
		}
		fmt.Printf("Wrote %s\n", path)

	case "show":
		cfg, err := config.Load(*configPath)
		if err != nil {
			fatal(err)
		}
		data, err := config.Marshal(cfg)
		if err != nil {
			fatal(err)
		}
		fmt.Print(string(data))

	default:
		fmt.Fprintf(os.Stderr, "Unknown config command %q. Use init or show.\n", args[0])
		os.Exit(1)
	}
}
