package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/hairizuan-noorazman/testpilot/testrun"
	"github.com/spf13/cobra"
)

var (
	runInstruction string
	runURL         string
	runBrowser     string
	runTimeout     int
	runHeaded      bool
	runCodeOnly    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one test synchronously and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, comps *components, req testrun.Request) error {
			result, err := comps.engine.Run(ctx, req)
			if err != nil {
				return err
			}
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Success {
				os.Exit(2)
			}
			return nil
		})
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Create a test plan, or with --code generate its test code, without executing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEngine(func(ctx context.Context, comps *components, req testrun.Request) error {
			if runCodeOnly {
				_, code, err := comps.engine.Generate(ctx, req)
				if err != nil {
					return err
				}
				fmt.Print(code)
				return nil
			}
			plan, err := comps.engine.Plan(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(plan)
		})
	},
}

func init() {
	for _, cmd := range []*cobra.Command{runCmd, planCmd} {
		cmd.Flags().StringVarP(&runInstruction, "instruction", "i", "", "natural-language test instruction")
		cmd.Flags().StringVarP(&runURL, "url", "u", "", "page under test")
		cmd.Flags().StringVar(&runBrowser, "browser", string(testrun.BrowserChromium), "chromium, firefox or webkit")
		cmd.Flags().IntVar(&runTimeout, "timeout", testrun.DefaultTimeoutMS, "per-statement timeout in milliseconds")
		cmd.Flags().BoolVar(&runHeaded, "headed", false, "show the browser window")
		_ = cmd.MarkFlagRequired("instruction")
		_ = cmd.MarkFlagRequired("url")
		rootCmd.AddCommand(cmd)
	}
	planCmd.Flags().BoolVar(&runCodeOnly, "code", false, "print generated test code instead of the plan")
}

func withEngine(fn func(ctx context.Context, comps *components, req testrun.Request) error) error {
	ctx := context.Background()

	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg)

	headless := !runHeaded
	req := testrun.Request{
		Instruction: runInstruction,
		URL:         runURL,
		Browser:     testrun.BrowserKind(runBrowser),
		Timeout:     runTimeout,
		Headless:    &headless,
	}.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	comps, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	return fn(ctx, comps, req)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
