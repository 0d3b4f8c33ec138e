package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jaelee191/interview-app-sub001/internal/api"
	"github.com/jaelee191/interview-app-sub001/internal/model"
	"github.com/jaelee191/interview-app-sub001/internal/watch"
)

var (
	submitKind  string
	submitFile  string
	submitBatch bool
	submitWatch bool
)

var submitCmd = &cobra.Command{
	Use:   "submit [content]",
	Short: "Submit an analysis task",
	Long:  "Submit content for analysis. Content comes from the argument, --file, or stdin when neither is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSubmit,
}

var watchCmd = &cobra.Command{
	Use:   "watch <task-id>",
	Short: "Follow a task's progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	submitCmd.Flags().StringVarP(&submitKind, "kind", "k", string(model.KindCoverLetter), "task kind: cover_letter, job_posting or company")
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "read content from file")
	submitCmd.Flags().BoolVar(&submitBatch, "batch", false, "run in batch mode (save_completed instead of completed)")
	submitCmd.Flags().BoolVarP(&submitWatch, "watch", "w", false, "follow progress after submitting")
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(watchCmd)
}

func runSubmit(cmd *cobra.Command, args []string) error {
	content, err := readContent(args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(apiURL, &http.Client{Timeout: 30 * time.Second})

	accepted, err := client.SubmitAnalysis(ctx, api.AnalysisRequest{
		Kind:     model.TaskKind(submitKind),
		Content:  content,
		Realtime: !submitBatch,
	})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "submitted %s (%s)\n", accepted.ID, accepted.Status)

	if !submitWatch {
		return nil
	}
	return followTask(ctx, cmd, client, accepted.ID)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := api.NewClient(apiURL, &http.Client{Timeout: 30 * time.Second})
	return followTask(ctx, cmd, client, args[0])
}

// followTask renders progress until the task ends, then prints the stored
// outcome. The task is loaded after subscribing so a run that finishes in
// between is still reported.
func followTask(ctx context.Context, cmd *cobra.Command, client *api.Client, taskID string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := client.Watch(ctx, taskID)
	if err != nil {
		return err
	}
	task, err := client.GetAnalysis(ctx, taskID)
	if err != nil {
		return fmt.Errorf("loading task: %w", err)
	}

	if !task.Terminal() {
		if _, err := watch.Run(ctx, taskID, events); err != nil {
			return err
		}
		if task, err = client.GetAnalysis(ctx, taskID); err != nil {
			return fmt.Errorf("loading result: %w", err)
		}
	}
	printTask(cmd.OutOrStdout(), task)
	return nil
}

func printTask(w io.Writer, task model.AnalysisTask) {
	fmt.Fprintf(w, "task %s: %s\n", task.ID, task.Status)
	if task.Error != "" {
		fmt.Fprintf(w, "error: %s\n", task.Error)
	}
	if task.Result == nil {
		return
	}
	if task.Result.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", task.Result.Summary)
	}
	fmt.Fprintf(w, "\n%s\n", task.Result.Text)
}

func readContent(args []string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case len(args) == 1:
		return args[0], nil
	case submitFile != "":
		data, err = os.ReadFile(submitFile)
	default:
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("content is empty")
	}
	return content, nil
}
