// Package main provides the entry point for the videoseek client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/avelar/videoseek/internal/bootstrap"
	"github.com/avelar/videoseek/internal/config"
	"github.com/avelar/videoseek/internal/endpoint"
	"github.com/avelar/videoseek/internal/job"
	"github.com/avelar/videoseek/internal/live"
	"github.com/avelar/videoseek/internal/playback"
	"github.com/avelar/videoseek/internal/probe"
	"github.com/avelar/videoseek/internal/search"
	"github.com/avelar/videoseek/internal/upload"
)

const usage = `usage: videoseek [-url URL] <command> [flags]

Commands:
  health                     probe the backend and report its state
  stats                      show vector index statistics
  dates                      list dates with indexed videos
  upload [flags] <file>      upload a video (and optionally process it)
  search [flags] <query...>  semantic search over indexed frames
  jobs                       list backend processing jobs
  watch                      stream the live camera frame channel
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if hint := probe.Hint(err); !strings.HasPrefix(hint, "Connection failed") {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("videoseek", flag.ExitOnError)
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	apiURL := global.String("url", "", "backend base URL (overrides VIDEOSEEK_API_URL)")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("no command given")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "health":
		return runHealth(ctx, deps)
	case "stats":
		return runStats(ctx, deps)
	case "dates":
		return runDates(ctx, deps)
	case "upload":
		return runUpload(ctx, deps, rest)
	case "search":
		return runSearch(ctx, deps, rest)
	case "jobs":
		return runJobs(ctx, deps)
	case "watch":
		return runWatch(ctx, deps)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runHealth(ctx context.Context, deps *bootstrap.Dependencies) error {
	state, err := deps.Probe.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("status: %s\n", state.Status)
	if state.Status == endpoint.StatusDisconnected {
		fmt.Printf("reason: %s\n", state.Reason)
		return nil
	}
	if state.Health != nil {
		fmt.Printf("engine ready: %t\n", state.Health.EngineReady)
		fmt.Printf("gpu available: %t\n", state.Health.GPUAvailable)
		if state.Health.GPUName != "" {
			fmt.Printf("gpu: %s\n", state.Health.GPUName)
		}
	}
	return nil
}

func runStats(ctx context.Context, deps *bootstrap.Dependencies) error {
	stats, err := deps.Search.IndexStats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("index: %s\n", stats.IndexName)
	fmt.Printf("vectors: %d\n", stats.TotalVectors)
	fmt.Printf("dimension: %d\n", stats.Dimension)
	return nil
}

func runDates(ctx context.Context, deps *bootstrap.Dependencies) error {
	dates, err := deps.Search.AvailableDates(ctx)
	if err != nil {
		return err
	}
	if len(dates) == 0 {
		fmt.Println("no indexed dates")
		return nil
	}
	for _, d := range dates {
		fmt.Println(d)
	}
	return nil
}

func runUpload(ctx context.Context, deps *bootstrap.Dependencies, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	process := fs.Bool("process", false, "start processing after the upload")
	name := fs.String("name", "", "display name for the video")
	date := fs.String("date", "", "recording date, YYYY-MM-DD")
	detect := fs.Bool("detect", false, "enable object detection during processing")
	noCloud := fs.Bool("no-cloud", false, "skip the durable storage upload")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("upload: expected exactly one video file")
	}

	result, err := deps.Pipeline.Upload(ctx, fs.Arg(0), printProgress, upload.Options{
		VideoName:   *name,
		SkipDurable: *noCloud,
	})
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("uploaded %s (%d bytes)\n", result.OriginalName, result.SizeBytes)
	if result.ExternalURL != "" {
		fmt.Printf("playback url: %s\n", result.ExternalURL)
	}

	if !*process {
		fmt.Printf("stored as %s; run with -process to index it\n", result.StorageHandle)
		return nil
	}

	opts := job.DefaultOptions()
	opts.VideoName = *name
	opts.VideoDate = *date
	opts.VideoID = result.VideoID
	opts.CloudinaryURL = result.ExternalURL
	opts.UseObjectDetection = *detect

	jobID, err := deps.Poller.Start(ctx, result.StorageHandle, opts)
	if err != nil {
		return err
	}
	fmt.Printf("processing job %s started\n", jobID)

	jobResult, err := deps.Poller.Await(ctx, jobID, func(s job.Snapshot) {
		if s.ProgressMessage != "" {
			fmt.Printf("  [%s] %s\n", s.State, s.ProgressMessage)
		} else {
			fmt.Printf("  [%s]\n", s.State)
		}
	})
	if err != nil {
		return err
	}

	fmt.Printf("frames extracted: %d\n", jobResult.FramesExtracted)
	fmt.Printf("frames captioned: %d\n", jobResult.FramesCaptioned)
	fmt.Printf("embeddings indexed: %d\n", jobResult.EmbeddingsIndexed)
	fmt.Printf("processing time: %.1fs\n", jobResult.ProcessingSeconds)
	return nil
}

func printProgress(p upload.Progress) {
	fmt.Printf("\r%s %3.0f%%", p.Stage, p.Percent)
}

func runSearch(ctx context.Context, deps *bootstrap.Dependencies, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	topK := fs.Int("k", 10, "maximum number of results")
	threshold := fs.Float64("threshold", 0.5, "minimum similarity score, 0 to 1")
	date := fs.String("date", "", "restrict to one recording date, YYYY-MM-DD")
	namespace := fs.String("namespace", "", "restrict to one index namespace")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("search: expected a query")
	}

	req := search.Request{
		Query:               strings.Join(fs.Args(), " "),
		TopK:                *topK,
		SimilarityThreshold: *threshold,
		DateFilter:          *date,
		NamespaceFilter:     *namespace,
	}
	resp, err := deps.Search.Search(ctx, req)
	if err != nil {
		return err
	}
	if resp.Count == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, r := range resp.Results {
		fmt.Printf("%2d. %s  %s  (%.0f%%)\n", i+1, r.VideoName, r.TimeFormatted, r.SimilarityScore*100)
		fmt.Printf("    %s\n", r.CaptionText)
		if r.PlaybackURL != "" {
			fmt.Printf("    %s\n", playback.Locate(r.PlaybackURL, r.TimestampSeconds))
		}
	}
	return nil
}

func runJobs(ctx context.Context, deps *bootstrap.Dependencies) error {
	jobs, err := deps.Backend.ListJobs(ctx)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return nil
	}
	for _, j := range jobs {
		line := fmt.Sprintf("%s  %s", j.JobID, j.Status)
		if j.Progress != "" {
			line += "  " + j.Progress
		}
		if j.Error != "" {
			line += "  " + j.Error
		}
		fmt.Println(line)
	}
	return nil
}

func runWatch(ctx context.Context, deps *bootstrap.Dependencies) error {
	baseURL, ok := deps.Registry.Get()
	if !ok {
		return endpoint.ErrNotConfigured
	}
	channelURL, err := live.ChannelURL(baseURL)
	if err != nil {
		return err
	}

	fmt.Printf("watching %s (ctrl-c to stop)\n", channelURL)
	err = deps.Watcher.Run(ctx, channelURL, func(f live.Frame) error {
		if len(f.Detections) > 0 {
			fmt.Printf("t=%.1fs detections: %s\n", f.Timestamp, strings.Join(f.Detections, ", "))
		}
		return nil
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, live.ErrChannelClosed) {
		return nil
	}
	return err
}
