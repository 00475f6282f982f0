package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/mediagrab-go/internal/domain"
	"github.com/yourusername/mediagrab-go/internal/progress"
)

var submitCmd = &cobra.Command{
	Use:   "submit [url]",
	Short: "Submit a download request",
	Long: `Submit a YouTube or Instagram URL for download.
YouTube URLs need --media-type video or audio. Instagram media type comes from the URL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mediaType, _ := cmd.Flags().GetString("media-type")
		quality, _ := cmd.Flags().GetString("quality")
		wait, _ := cmd.Flags().GetBool("wait")

		ctx, cancel := signalContext()
		defer cancel()

		client := newClient()
		if !wait {
			jobID, err := client.Submit(ctx, args[0], mediaType, quality)
			if err != nil {
				return err
			}
			fmt.Printf("Job submitted: %s\n", jobID)
			return nil
		}
		return submitAndFollow(ctx, client, args[0], mediaType, quality)
	},
}

func init() {
	submitCmd.Flags().StringP("media-type", "t", "", "Media type (video, audio, post, reel, story)")
	submitCmd.Flags().StringP("quality", "q", "", "Quality tag (e.g. 1080p, 320kbps)")
	submitCmd.Flags().BoolP("wait", "w", false, "Show progress and wait for the job to finish")
}

// pollInterval paces the fallback polling when the watch stream is unavailable
var pollInterval = time.Second

// submitAndFollow drives a progress projection while the job is pending and
// reconciles it with real job snapshots.
func submitAndFollow(ctx context.Context, client *Client, rawURL, mediaType, quality string) error {
	p := progress.New()

	if err := p.Submit(token != "", rawURL); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return fmt.Errorf("not signed in: pass --token or set MEDIAGRAB_TOKEN")
		}
		return fmt.Errorf("%w: %s", err, rawURL)
	}

	jobID, err := client.Submit(ctx, rawURL, mediaType, quality)
	if err != nil {
		_ = p.Fail(err)
		return err
	}
	fmt.Printf("Job submitted: %s\n", jobID)

	followCtx, stopFollowing := context.WithCancel(ctx)
	defer stopFollowing()
	snapshots, followErr := followJob(followCtx, client, jobID)

	ticker := time.NewTicker(progress.TickInterval)
	defer ticker.Stop()

	render(p)
	for p.State() == progress.StateDownloading {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			return ctx.Err()
		case <-ticker.C:
			p.Tick()
		case job, ok := <-snapshots:
			if !ok {
				// The follower gave up before seeing a terminal status
				_ = p.Fail(<-followErr)
				continue
			}
			if err := p.Observe(job); err != nil {
				return err
			}
		}
		render(p)
	}
	fmt.Fprintln(os.Stderr)

	if p.State() == progress.StateError {
		return p.Err()
	}
	printJob(p.Job())
	return nil
}

// followJob streams snapshots over the watch socket and falls back to polling
// when the stream cannot be opened or drops before a terminal status. Before
// the snapshot channel closes, the error channel receives nil after a terminal
// snapshot, otherwise the reason following stopped.
func followJob(ctx context.Context, client *Client, jobID string) (<-chan *domain.DownloadJob, <-chan error) {
	out := make(chan *domain.DownloadJob)
	errc := make(chan error, 1)

	go func() {
		var cause error
		defer func() {
			errc <- cause
			close(out)
		}()

		terminal, err := relayWatch(ctx, client, jobID, out)
		if terminal {
			return
		}
		if ctx.Err() != nil {
			cause = ctx.Err()
			return
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			cause = err
			return
		}

		cause = pollJob(ctx, client, jobID, out)
	}()

	return out, errc
}

// relayWatch forwards watch snapshots to out and reports whether a terminal one was sent
func relayWatch(ctx context.Context, client *Client, jobID string, out chan<- *domain.DownloadJob) (bool, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates := make(chan *domain.DownloadJob)
	watchErr := make(chan error, 1)
	go func() { watchErr <- client.Watch(watchCtx, jobID, updates) }()

	terminal := false
	for job := range updates {
		if terminal {
			continue
		}
		select {
		case out <- job:
			terminal = job.IsTerminal()
		case <-ctx.Done():
		}
		if terminal || ctx.Err() != nil {
			cancel()
		}
	}
	return terminal, <-watchErr
}

// pollJob fetches the job until it is terminal. It returns nil after sending a
// terminal snapshot, otherwise the reason polling stopped.
func pollJob(ctx context.Context, client *Client, jobID string, out chan<- *domain.DownloadJob) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		job, err := client.GetJob(ctx, jobID)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			return err
		}
		if err != nil {
			continue
		}

		select {
		case out <- job:
		case <-ctx.Done():
			return ctx.Err()
		}
		if job.IsTerminal() {
			return nil
		}
	}
}

func render(p *progress.Projector) {
	const width = 30
	filled := p.Percent() * width / 100
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	fmt.Fprintf(os.Stderr, "\r[%s] %3d%%  %s", bar, p.Percent(), p.State())
}
