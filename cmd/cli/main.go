package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/yourusername/mediagrab-go/internal/domain"
)

var (
	serverURL string
	token     string
	rootCmd   = &cobra.Command{
		Use:   "mediagrab",
		Short: "MediaGrab CLI - request YouTube and Instagram downloads",
		Long:  `A command-line client for submitting download requests and following their jobs.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if token == "" {
				token = os.Getenv("MEDIAGRAB_TOKEN")
			}
		},
		SilenceUsage: true,
	}
)

func init() {
	// Best effort: a missing .env is normal
	_ = godotenv.Load()

	defaultServer := os.Getenv("MEDIAGRAB_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServer, "Server URL")
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "Bearer token (default $MEDIAGRAB_TOKEN)")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(watchCmd)
}

func newClient() *Client {
	return NewClient(serverURL, token)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Get job details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		job, err := newClient().GetJob(ctx, args[0])
		if err != nil {
			return err
		}
		printJob(job)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		owner, _ := cmd.Flags().GetString("owner")
		jobs, err := newClient().ListJobs(ctx, owner)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tPLATFORM\tTYPE\tQUALITY\tSTATUS\tCREATED")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				truncate(j.ID, 8),
				j.Platform,
				j.MediaType,
				deref(j.Quality, "-"),
				j.Status,
				j.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [id]",
	Short: "Stream a job's status until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		updates := make(chan *domain.DownloadJob)
		errCh := make(chan error, 1)
		go func() { errCh <- newClient().Watch(ctx, args[0], updates) }()

		for job := range updates {
			fmt.Printf("%s  %s\n", job.ID, job.Status)
			if job.IsTerminal() {
				printJob(job)
			}
		}
		return <-errCh
	},
}

func init() {
	listCmd.Flags().String("owner", "", "Owner id (default: yourself)")
}

func printJob(job *domain.DownloadJob) {
	fmt.Printf("Job Details:\n")
	fmt.Printf("  ID:        %s\n", job.ID)
	fmt.Printf("  URL:       %s\n", job.SourceURL)
	fmt.Printf("  Platform:  %s\n", job.Platform)
	fmt.Printf("  Type:      %s\n", job.MediaType)
	fmt.Printf("  Quality:   %s\n", deref(job.Quality, "-"))
	fmt.Printf("  Status:    %s\n", job.Status)
	fmt.Printf("  Created:   %s\n", job.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if job.Filename != nil {
		fmt.Printf("  File:      %s\n", *job.Filename)
	}
	if job.FileSizeBytes != nil {
		fmt.Printf("  Size:      %s\n", formatBytes(*job.FileSizeBytes))
	}
	if job.ErrorMessage != nil {
		fmt.Printf("  Error:     %s\n", *job.ErrorMessage)
	}
}

func deref(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

func formatBytes(n int64) string {
	const unit = 1000
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "kMGTPE"[exp])
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
