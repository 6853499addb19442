package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"stockdash/internal/apiclient"
	"stockdash/internal/indicator"
	"stockdash/internal/model"
	"stockdash/internal/prefs"
	"stockdash/internal/search"
)

// errDisclaimer blocks analysis until the risk disclaimer is accepted.
var errDisclaimer = errors.New("the investment risk disclaimer has not been accepted; run `stockctl disclaimer accept` first")

const usage = `usage: stockctl <command> [flags] [args]

commands:
  login -email E [-password P]      log in and store the session
  logout                            end the session
  register -username U -email E -password P
  search <keyword> [-limit N]       search stocks; no keyword lists history
  indicators <code> [-period 1d] [-days 120] [-set MA_5,MACD] [-json]
  analyze <code>                    run the full analysis (slow)
  report <code>                     show the latest stored report
  watchlist list|add|remove|check [code] [-name N] [-note T]
  strategy list|run|parse [args]
  disclaimer accept|status|revoke
  history [clear]`

// app holds the dependencies of every subcommand.
type app struct {
	client     *apiclient.Client
	history    *search.History
	disclaimer *prefs.Disclaimer
	specs      []indicator.Spec
	limit      int
	out        io.Writer
	now        func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.client.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "logged out")
		return nil
	case "register":
		return a.register(ctx, rest)
	case "search":
		return a.search(ctx, rest)
	case "indicators":
		return a.indicators(ctx, rest)
	case "analyze":
		return a.analyze(ctx, rest)
	case "report":
		return a.report(ctx, rest)
	case "watchlist":
		return a.watchlist(ctx, rest)
	case "strategy":
		return a.strategy(ctx, rest)
	case "disclaimer":
		return a.disclaimerCmd(ctx, rest)
	case "history":
		return a.historyCmd(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprintln(a.out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
}

// parse parses flags that may appear before or after positional arguments.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	fs.SetOutput(io.Discard)
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", os.Getenv("STOCKDASH_EMAIL"), "account email")
	password := fs.String("password", os.Getenv("STOCKDASH_PASSWORD"), "account password")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password (or STOCKDASH_EMAIL / STOCKDASH_PASSWORD)")
	}
	if err := a.client.Login(ctx, *email, *password); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "logged in as", *email)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	username := fs.String("username", "", "user name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	if *username == "" || *email == "" || *password == "" {
		return errors.New("register requires -username, -email and -password")
	}
	u, err := a.client.Register(ctx, *username, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "registered %s (id %d); run `stockctl login` to sign in\n", u.Username, u.ID)
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	limit := fs.Int("limit", a.limit, "max suggestions")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	keyword := strings.TrimSpace(strings.Join(pos, " "))
	if keyword == "" {
		return a.printHistory()
	}

	hits, err := a.client.Search(ctx, keyword, *limit)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintf(a.out, "no stocks match %q\n", keyword)
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tPRICE\tCHANGE%")
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%+.2f\n", h.Code, h.Name, h.Price, h.PctChange)
	}
	return tw.Flush()
}

// remember records a stock the user looked at, like picking it from the dropdown.
func (a *app) remember(ctx context.Context, code string) {
	if err := a.history.Add(ctx, code); err != nil {
		fmt.Fprintln(os.Stderr, "warning:", err)
	}
}

func oneCode(cmd string, pos []string) (string, error) {
	if len(pos) != 1 || pos[0] == "" {
		return "", fmt.Errorf("%s requires exactly one stock code", cmd)
	}
	return pos[0], nil
}

func (a *app) indicators(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("indicators", flag.ContinueOnError)
	period := fs.String("period", "1d", "kline period: 1d, 1w or 1M")
	days := fs.Int("days", 120, "number of bars")
	adjust := fs.String("adjust", "", "price adjustment: qfq or hfq")
	set := fs.String("set", "", "indicator list, e.g. MA_5,RSI_14,MACD")
	asJSON := fs.Bool("json", false, "print the full series as JSON")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	code, err := oneCode("indicators", pos)
	if err != nil {
		return err
	}
	specs := a.specs
	if *set != "" {
		if specs, err = indicator.ParseSpecs(*set); err != nil {
			return err
		}
	}

	bars, err := a.client.KLine(ctx, code, model.KLineQuery{Period: *period, Days: *days, Adjust: *adjust})
	if err != nil {
		return err
	}
	a.remember(ctx, code)
	res := indicator.NewEngine(specs).Compute(bars)

	if *asJSON {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if len(bars) == 0 {
		fmt.Fprintf(a.out, "%s: no bars\n", code)
		return nil
	}
	last := bars[len(bars)-1]
	fmt.Fprintf(a.out, "%s %s close %.2f (%d bars)\n", code, last.Date, last.Close, len(bars))
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	for _, row := range latestValues(res) {
		fmt.Fprintf(tw, "%s\t%s\n", row[0], row[1])
	}
	return tw.Flush()
}

// latestValues flattens the most recent point of every computed line.
func latestValues(res indicator.Result) [][2]string {
	var rows [][2]string
	add := func(name string, v indicator.Value) {
		s := "-"
		if v.Valid {
			s = strconv.FormatFloat(v.Float, 'f', 2, 64)
		}
		rows = append(rows, [2]string{name, s})
	}
	lastFloat := func(xs []float64) indicator.Value {
		if len(xs) == 0 {
			return indicator.Value{}
		}
		return indicator.Some(xs[len(xs)-1])
	}

	for name, s := range res.Lines {
		add(name, s.Last())
	}
	for name, b := range res.Bollinger {
		add(name+".upper", b.Upper.Last())
		add(name+".mid", b.Mid.Last())
		add(name+".lower", b.Lower.Last())
	}
	if res.MACD != nil {
		add("MACD.dif", lastFloat(res.MACD.DIF))
		add("MACD.dea", lastFloat(res.MACD.DEA))
		add("MACD.hist", lastFloat(res.MACD.Histogram))
	}
	if res.KDJ != nil {
		add("KDJ.k", res.KDJ.K.Last())
		add("KDJ.d", res.KDJ.D.Last())
		add("KDJ.j", res.KDJ.J.Last())
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}

func (a *app) analyze(ctx context.Context, args []string) error {
	code, err := oneCode("analyze", args)
	if err != nil {
		return err
	}
	ok, _, err := a.disclaimer.Accepted(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errDisclaimer
	}
	fmt.Fprintf(a.out, "analyzing %s, this can take a few minutes...\n", code)
	r, err := a.client.Analyze(ctx, code)
	if err != nil {
		return err
	}
	a.remember(ctx, code)
	a.printReport(r)
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	code, err := oneCode("report", args)
	if err != nil {
		return err
	}
	r, err := a.client.Report(ctx, code)
	if err != nil {
		return err
	}
	a.remember(ctx, code)
	a.printReport(r)
	return nil
}

func (a *app) printReport(r *model.AnalysisReport) {
	fmt.Fprintf(a.out, "%s %s\n", r.Code, r.Name)
	fmt.Fprintf(a.out, "score %.1f  risk %s  recommendation %s\n", r.OverallScore, r.RiskLevel, r.Recommendation)
	if r.Summary != "" {
		fmt.Fprintln(a.out, r.Summary)
	}
}

func (a *app) watchlist(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watchlist", flag.ContinueOnError)
	name := fs.String("name", "", "stock name (add)")
	note := fs.String("note", "", "note (add)")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	sub := "list"
	if len(pos) > 0 {
		sub, pos = pos[0], pos[1:]
	}

	switch sub {
	case "list":
		items, err := a.client.Watchlist(ctx)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(a.out, "watchlist is empty")
			return nil
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tNAME\tNOTE")
		for _, it := range items {
			n := ""
			if it.Note != nil {
				n = *it.Note
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Code, it.Name, n)
		}
		return tw.Flush()
	case "add":
		code, err := oneCode("watchlist add", pos)
		if err != nil {
			return err
		}
		if _, err := a.client.AddToWatchlist(ctx, code, *name, *note); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "added", code)
		return nil
	case "remove":
		code, err := oneCode("watchlist remove", pos)
		if err != nil {
			return err
		}
		if err := a.client.RemoveFromWatchlist(ctx, code); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "removed", code)
		return nil
	case "check":
		code, err := oneCode("watchlist check", pos)
		if err != nil {
			return err
		}
		in, err := a.client.InWatchlist(ctx, code)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s in watchlist: %t\n", code, in)
		return nil
	}
	return fmt.Errorf("unknown watchlist command %q", sub)
}

func (a *app) strategy(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("strategy", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max stocks returned (run)")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	sub := "list"
	if len(pos) > 0 {
		sub, pos = pos[0], pos[1:]
	}

	switch sub {
	case "list":
		list, err := a.client.Strategies(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTYPE")
		for _, s := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.Name, s.StrategyType)
		}
		return tw.Flush()
	case "run":
		if len(pos) != 1 {
			return errors.New("strategy run requires a strategy type")
		}
		stocks, err := a.client.ExecuteStrategy(ctx, model.ExecuteStrategyRequest{StrategyType: pos[0], Limit: *limit})
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tNAME\tPRICE\tCHANGE%")
		for _, s := range stocks {
			fmt.Fprintf(tw, "%s\t%s\t%.2f\t%+.2f\n", s.Code, s.Name, s.Price, s.PctChange)
		}
		return tw.Flush()
	case "parse":
		desc := strings.TrimSpace(strings.Join(pos, " "))
		if desc == "" {
			return errors.New("strategy parse requires a description")
		}
		parsed, err := a.client.ParseStrategy(ctx, desc)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(parsed)
	}
	return fmt.Errorf("unknown strategy command %q", sub)
}

func (a *app) disclaimerCmd(ctx context.Context, args []string) error {
	sub := "status"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "accept":
		if err := a.disclaimer.Accept(ctx, a.now()); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "risk disclaimer accepted")
		return nil
	case "revoke":
		if err := a.disclaimer.Revoke(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "risk disclaimer revoked")
		return nil
	case "status":
		ok, at, err := a.disclaimer.Accepted(ctx)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "risk disclaimer not accepted")
			return nil
		}
		if at.IsZero() {
			fmt.Fprintln(a.out, "risk disclaimer accepted")
			return nil
		}
		fmt.Fprintln(a.out, "risk disclaimer accepted at", at.Format(time.RFC3339))
		return nil
	}
	return fmt.Errorf("unknown disclaimer command %q", sub)
}

func (a *app) historyCmd(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if args[0] != "clear" {
			return fmt.Errorf("unknown history command %q", args[0])
		}
		if err := a.history.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "search history cleared")
		return nil
	}
	return a.printHistory()
}

func (a *app) printHistory() error {
	list := a.history.List()
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no recent searches")
		return nil
	}
	for _, code := range list {
		fmt.Fprintln(a.out, code)
	}
	return nil
}
