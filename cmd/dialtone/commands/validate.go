package commands

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dialtone/dialtone/pkg/policy"
)

func newValidateCommand() *cobra.Command {
	var (
		skipPolicies bool
		policyPaths  []string
	)

	cmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Validate declaration files",
		Long: `Validate YAML/CUE declaration files.

This command checks:
  - YAML/CUE syntax validity
  - Struct-level constraints (required fields, enums, ranges)
  - Cross-references (queues to hours, users to profiles, alias locales)
  - Reference resolution, duplicates, and dependency cycles
  - Policy compliance (OPA/rego)`,
		Example: `  # Validate declarations in the configured path
  dialtone validate

  # Validate a specific directory
  dialtone validate ./declarations

  # Validate with extra policy files, or without policies
  dialtone validate --policy ./policies
  dialtone validate --skip-policies`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}

			log.Info().Str("path", path).Msg("Validating declarations")

			decls, err := loadDeclarations([]string{path})
			if err != nil {
				return err
			}

			plan, err := composePlan(decls)
			if err != nil {
				return err
			}

			if skipPolicies {
				fmt.Printf("OK: %d resources, %d levels\n", len(plan.Units), plan.Graph.Depth)
				return nil
			}

			engine, err := policy.NewEngine(log.Logger)
			if err != nil {
				return err
			}
			if len(policyPaths) > 0 {
				if err := engine.LoadPolicies(cmd.Context(), policyPaths); err != nil {
					return err
				}
			}

			result, err := engine.EvaluatePlan(cmd.Context(), plan, &policy.Context{
				Instance:  decls.Instance.Alias,
				Operation: "validate",
				Timestamp: time.Now(),
			})
			if err != nil {
				return err
			}

			for _, v := range result.Violations {
				fmt.Printf("%s: [%s] %s\n", v.Severity, v.Policy, v.Message)
			}
			for _, w := range result.Warnings {
				fmt.Printf("warning: %s\n", w)
			}

			if !result.Allowed {
				return fmt.Errorf("policy validation failed with %d violation(s)", len(result.Violations))
			}

			fmt.Printf("OK: %d resources, %d levels, %d policies evaluated\n",
				len(plan.Units), plan.Graph.Depth, len(result.EvaluatedPolicies))
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipPolicies, "skip-policies", false, "skip policy evaluation")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "extra policy files or directories")

	return cmd
}
