package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-jobitems/internal/bootstrap"
	"github.com/target/mmk-jobitems/internal/domain/model"
	"github.com/target/mmk-jobitems/internal/service"
)

const defaultResolveTimeout = 30 * time.Second

type resolveOptions struct {
	Timeout  time.Duration
	JSON     bool
	Detailed bool
	IDs      []model.JobItemID
}

func parseResolveFlags(name string, args []string, allowDetailed bool) (resolveOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := resolveOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultResolveTimeout, "how long to wait for fetches to settle")
	fs.BoolVar(&opts.JSON, "json", false, "print JSON instead of a table")
	if allowDetailed {
		fs.BoolVar(&opts.Detailed, "detailed", false, "print one row per id including failures")
	}
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Timeout <= 0 {
		return opts, errors.New("-timeout must be positive")
	}

	for _, raw := range fs.Args() {
		id, err := model.ParseJobItemID(raw)
		if err != nil {
			return opts, err
		}
		opts.IDs = append(opts.IDs, id)
	}
	if len(opts.IDs) == 0 {
		return opts, errors.New("at least one job item id is required")
	}
	return opts, nil
}

// withServices builds the resolver stack for one command and tears it down afterwards.
func withServices(cmdCtx *commandContext, fn func(ctx context.Context, services bootstrap.ServiceContainer) error) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient redis.UniversalClient
	if cmdCtx.Config.QueryCache.RedisEnabled {
		client, err := bootstrap.ConnectRedis(ctx, bootstrap.RedisOptions{Config: cmdCtx.Config.Redis, Logger: cmdCtx.Logger})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		redisClient = client
		defer func() {
			if cerr := client.Close(); cerr != nil {
				cmdCtx.Logger.Warn("close redis failed", "error", cerr)
			}
		}()
	}

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config:      &cmdCtx.Config,
		RedisClient: redisClient,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		services.Cache.Wait()
		if cerr := services.Observability.Close(); cerr != nil {
			cmdCtx.Logger.Warn("close metrics sink failed", "error", cerr)
		}
	}()

	return fn(ctx, services)
}

func runResolve(cmdCtx *commandContext, args []string) error {
	opts, err := parseResolveFlags("resolve", args, false)
	if err != nil {
		return err
	}
	if len(opts.IDs) != 1 {
		return errors.New("resolve takes exactly one id; use resolve-many for several")
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		results, err := services.JobItems.AwaitManyDetailed(ctx, opts.IDs)
		if err != nil {
			return err
		}
		res := results[0]
		if opts.JSON {
			return writeJSON(cmdCtx.Out, res)
		}
		if err := printResults(cmdCtx.Out, results); err != nil {
			return err
		}
		if res.Status == model.JobItemStatusError {
			return fmt.Errorf("job item %s: %s", res.ID, res.Error)
		}
		return nil
	})
}

func runResolveMany(cmdCtx *commandContext, args []string) error {
	opts, err := parseResolveFlags("resolve-many", args, true)
	if err != nil {
		return err
	}

	return withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
		ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
		defer cancel()

		if opts.Detailed {
			results, err := services.JobItems.AwaitManyDetailed(ctx, opts.IDs)
			if err != nil {
				return err
			}
			if opts.JSON {
				return writeJSON(cmdCtx.Out, results)
			}
			return printResults(cmdCtx.Out, results)
		}

		state, err := services.JobItems.AwaitMany(ctx, opts.IDs)
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(cmdCtx.Out, state)
		}
		return printItems(cmdCtx.Out, state.JobItems)
	})
}

type evictOptions struct {
	Server  string
	Timeout time.Duration
	IDs     []model.JobItemID
}

func parseEvictFlags(args []string) (evictOptions, error) {
	fs := flag.NewFlagSet("evict", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	opts := evictOptions{}
	fs.StringVar(&opts.Server, "server", "", "base URL of a running jobitems server whose local entries to invalidate")
	fs.DurationVar(&opts.Timeout, "timeout", 10*time.Second, "per-request timeout for -server")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.Server = strings.TrimRight(strings.TrimSpace(opts.Server), "/")

	for _, raw := range fs.Args() {
		id, err := model.ParseJobItemID(raw)
		if err != nil {
			return opts, err
		}
		opts.IDs = append(opts.IDs, id)
	}
	if len(opts.IDs) == 0 {
		return opts, errors.New("at least one job item id is required")
	}
	return opts, nil
}

// runEvict drops ids from the shared Redis tier and, with -server, invalidates the running
// server's local entries. Without -server a server keeps its local copy until it goes stale.
func runEvict(cmdCtx *commandContext, args []string) error {
	opts, err := parseEvictFlags(args)
	if err != nil {
		return err
	}
	redisTier := cmdCtx.Config.QueryCache.RedisEnabled
	if !redisTier && opts.Server == "" {
		return errors.New("evict needs QUERY_CACHE_REDIS_ENABLED=true or -server <url>")
	}

	if redisTier {
		err := withServices(cmdCtx, func(ctx context.Context, services bootstrap.ServiceContainer) error {
			for _, id := range opts.IDs {
				services.Cache.Remove(ctx, service.JobItemKey(id))
				if err := fprintf(cmdCtx.Out, "evicted %s from shared tier\n", id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if opts.Server == "" {
		return nil
	}
	for _, id := range opts.IDs {
		cached, err := invalidateOnServer(cmdCtx.Ctx, opts.Server, opts.Timeout, id)
		if err != nil {
			return err
		}
		if err := fprintf(cmdCtx.Out, "invalidated %s on %s (cached=%t)\n", id, opts.Server, cached); err != nil {
			return err
		}
	}
	return nil
}

func invalidateOnServer(ctx context.Context, server string, timeout time.Duration, id model.JobItemID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/job-items/"+id.String()+"/invalidate", nil)
	if err != nil {
		return false, fmt.Errorf("build invalidate request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("invalidate job item %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("invalidate job item %s: server answered %s", id, resp.Status)
	}
	var body struct {
		Cached bool `json:"cached"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode invalidate response: %w", err)
	}
	return body.Cached, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printItems(w io.Writer, items []model.JobItemExpanded) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tTITLE\tCOMPANY\tLOCATION\tSALARY"); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", it.ID, it.Title, it.Company, it.Location, it.Salary); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printResults(w io.Writer, results []model.JobItemResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tCOMPANY\tERROR"); err != nil {
		return err
	}
	for _, r := range results {
		title, company := "-", "-"
		if r.JobItem != nil {
			title, company = r.JobItem.Title, r.JobItem.Company
		}
		errText := "-"
		if r.Error != "" {
			errText = strconv.Quote(r.Error)
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Status, title, company, errText); err != nil {
			return err
		}
	}
	return tw.Flush()
}
