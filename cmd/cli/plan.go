package main

import (
	"fmt"

	"github.com/hairizuan-noorazman/testpilot/testplan"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Create a test plan without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			var plan testplan.TestPlan
			if err := getClient().postJSON(cmd.Context(), "/test/plan", flags.request(), &plan); err != nil {
				return err
			}

			if flagJSON {
				printJSON(plan)
				return nil
			}
			printPlan(&plan)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func newGenerateCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Create a test plan and print the generated script",
		RunE: func(cmd *cobra.Command, args []string) error {
			var out GenerateResponse
			if err := getClient().postJSON(cmd.Context(), "/test/generate", flags.request(), &out); err != nil {
				return err
			}

			if flagJSON {
				printJSON(out)
				return nil
			}
			fmt.Println(out.Code)
			return nil
		},
	}

	flags.bind(cmd)
	return cmd
}

func printPlan(p *testplan.TestPlan) {
	printMessage(fmt.Sprintf("Plan %s: %s", p.ID, p.Name))
	if p.Description != "" {
		printMessage(p.Description)
	}

	rows := make([][]string, 0, len(p.Steps))
	for i, s := range p.Steps {
		rows = append(rows, []string{fmt.Sprint(i + 1), string(s.Action), s.Selector, s.Value, s.Description})
	}
	printTable([]string{"#", "ACTION", "SELECTOR", "VALUE", "DESCRIPTION"}, rows)

	for _, a := range p.Assertions {
		printMessage(fmt.Sprintf("assert %s %s %q", a.Type, a.Operator, a.Expected))
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			var health HealthResponse
			if err := getClient().getJSON(cmd.Context(), "/health", &health); err != nil {
				return err
			}

			if flagJSON {
				printJSON(health)
				return nil
			}
			printTable([]string{"STATUS", "LLM", "BROWSER"}, [][]string{{
				health.Status,
				fmt.Sprint(health.LLMConfigured),
				fmt.Sprint(health.BrowserConfigured),
			}})
			return nil
		},
	}
}
