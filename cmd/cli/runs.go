package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/spf13/cobra"
)

// errTestFailed makes the process exit non-zero when a run did not pass.
var errTestFailed = errors.New("test failed")

type requestFlags struct {
	instruction string
	url         string
	browser     string
	timeout     int
	headed      bool
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.instruction, "instruction", "i", "", "Natural-language test instruction (required)")
	cmd.Flags().StringVarP(&f.url, "target", "t", "", "URL of the page under test (required)")
	cmd.Flags().StringVar(&f.browser, "browser", "", "Browser engine: chromium, firefox or webkit")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "Per-action timeout in milliseconds")
	cmd.Flags().BoolVar(&f.headed, "headed", false, "Run the browser with a visible window")
	cmd.MarkFlagRequired("instruction")
	cmd.MarkFlagRequired("target")
}

func (f *requestFlags) request() testrun.Request {
	req := testrun.Request{
		Instruction: f.instruction,
		URL:         f.url,
		Browser:     testrun.BrowserKind(f.browser),
		Timeout:     f.timeout,
	}
	if f.headed {
		headless := false
		req.Headless = &headless
	}
	return req
}

func newRunCmd() *cobra.Command {
	var flags requestFlags
	var sync, wait bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit a test run",
		Long:  "Submit a test run. By default the run is queued and its session id printed; use --wait to poll until it completes or --sync to block on a single request.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()
			ctx := cmd.Context()
			req := flags.request()

			if sync {
				var result testrun.TestResult
				if err := client.postJSON(ctx, "/test/run-sync", req, &result); err != nil {
					return err
				}
				return reportResult(&result)
			}

			var accepted RunAcceptedResponse
			if err := client.postJSON(ctx, "/test/run", req, &accepted); err != nil {
				return err
			}

			if !wait {
				if flagJSON {
					printJSON(accepted)
					return nil
				}
				printMessage(fmt.Sprintf("Run queued: %s", accepted.SessionID))
				return nil
			}

			return waitAndReport(ctx, client, accepted.SessionID)
		},
	}

	flags.bind(cmd)
	cmd.Flags().BoolVar(&sync, "sync", false, "Block until the run completes in a single request")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll the run status until it completes")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "status <session-id>",
		Short: "Show the status of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := getClient()
			if wait {
				return waitAndReport(cmd.Context(), client, args[0])
			}

			var status StatusResponse
			if err := client.getJSON(cmd.Context(), "/test/status/"+args[0], &status); err != nil {
				return err
			}

			if flagJSON {
				printJSON(status)
				return nil
			}

			printMessage(fmt.Sprintf("Session: %s", status.SessionID))
			printMessage(fmt.Sprintf("Status:  %s", status.Status))
			if status.Result != nil {
				printMessage(fmt.Sprintf("Success: %t", status.Result.Success))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the run completes")
	return cmd
}

func newResultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "result <session-id>",
		Short: "Show the result of a completed run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result testrun.TestResult
			if err := getClient().getJSON(cmd.Context(), "/test/results/"+args[0], &result); err != nil {
				if IsNotFound(err) {
					return fmt.Errorf("no completed result for %s", args[0])
				}
				return err
			}
			return reportResult(&result)
		},
	}
}

func waitAndReport(ctx context.Context, client *Client, sessionID string) error {
	if !flagJSON {
		fmt.Fprintf(os.Stderr, "Waiting for %s...\n", sessionID)
	}
	status, err := client.WaitForResult(ctx, sessionID, cfg.GetDuration("poll_interval"))
	if err != nil {
		return err
	}
	if status.Result == nil {
		return fmt.Errorf("run %s completed without a result", sessionID)
	}
	return reportResult(status.Result)
}

// reportResult prints r and returns errTestFailed when it did not pass.
func reportResult(r *testrun.TestResult) error {
	if flagJSON {
		printJSON(r)
	} else {
		printResult(r)
	}
	if !r.Success {
		return errTestFailed
	}
	return nil
}

func printResult(r *testrun.TestResult) {
	verdict := "PASSED"
	if !r.Success {
		verdict = "FAILED"
	}
	printMessage(fmt.Sprintf("%s  %s (plan %s, %.2fs)", verdict, r.ID, r.PlanID, r.ExecutionTime))

	if len(r.Steps) > 0 {
		rows := make([][]string, 0, len(r.Steps))
		for i, s := range r.Steps {
			n := s.StepNumber
			if n == 0 {
				n = i + 1
			}
			status := "ok"
			if !s.Success {
				status = "fail"
			}
			rows = append(rows, []string{
				strconv.Itoa(n),
				string(s.Step.Action),
				s.Step.Description,
				status,
				s.Error,
			})
		}
		printTable([]string{"#", "ACTION", "DESCRIPTION", "STATUS", "ERROR"}, rows)
	}

	if r.Error != "" {
		printMessage("Error: " + r.Error)
	}
	if r.Analysis != "" {
		printMessage("Analysis: " + strings.TrimSpace(r.Analysis))
	}
	for _, s := range r.Screenshots {
		printMessage("Screenshot: " + s)
	}
}
