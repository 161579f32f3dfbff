package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dialtone/dialtone/pkg/compose"
	"github.com/dialtone/dialtone/pkg/policy"
	"github.com/dialtone/dialtone/pkg/providers"
	"github.com/dialtone/dialtone/pkg/stores"
	"github.com/dialtone/dialtone/pkg/telemetry"
)

func newApplyCommand() *cobra.Command {
	var (
		parallelism   int
		failFast      bool
		skipPolicies  bool
		policyPaths   []string
		metricsListen string
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Compose and provision the declared resources",
		Long: `Compose declarations into a plan and provision it.

This command:
  - Composes and validates the plan
  - Gates the plan on policy evaluation
  - Provisions level by level, independent resources in parallel
  - Records the run and every resolved identity in the state database
  - Prints the summary and a ready-to-run test command`,
		Example: `  # Apply the declarations in the configured path
  dialtone apply

  # Apply with limited parallelism, stopping at the first failure
  dialtone apply --parallelism 4 --fail-fast`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			decls, err := loadDeclarations([]string{configPath})
			if err != nil {
				return err
			}

			plan, err := composePlan(decls)
			if err != nil {
				return err
			}

			if !skipPolicies {
				if err := gateOnPolicies(ctx, plan, decls.Instance.Alias, policyPaths); err != nil {
					return err
				}
			}

			tel, err := setupTelemetry(metricsListen)
			if err != nil {
				return err
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tel.Shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("Telemetry shutdown incomplete")
				}
			}()

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			runID := uuid.New().String()
			now := time.Now()
			run := &stores.Run{
				ID:            runID,
				InstanceAlias: decls.Instance.Alias,
				Status:        stores.RunStatusRunning,
				StartedAt:     now,
				Summary:       "{}",
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := store.CreateRun(ctx, run); err != nil {
				return err
			}

			log.Info().
				Str("run_id", runID).
				Str("instance", decls.Instance.Alias).
				Int("resources", len(plan.Units)).
				Msg("Applying plan")

			runCtx := telemetry.WithRunContext(tel.WithContext(ctx), runID, decls.Instance.Alias)

			provider := providers.NewLocalProvider(providers.LocalConfig{
				InstanceAlias: decls.Instance.Alias,
			}, log.Logger)

			applier := compose.NewApplier(provider, newApplySink(tel), log.Logger)
			outputs, applyErr := applier.Apply(runCtx, plan, compose.ApplyOptions{
				MaxParallel:   parallelism,
				FailFast:      failFast,
				InstanceAlias: decls.Instance.Alias,
			})

			if outputs != nil {
				if err := persistOutputs(ctx, store, runID, outputs); err != nil {
					log.Error().Err(err).Msg("Failed to persist identities")
				}
			}

			status := stores.RunStatusCompleted
			var errMsg *string
			if applyErr != nil {
				status = stores.RunStatusFailed
				msg := applyErr.Error()
				errMsg = &msg
			}
			if err := store.UpdateRunStatus(ctx, runID, status, errMsg); err != nil {
				log.Error().Err(err).Msg("Failed to update run status")
			}

			telemetry.EndRunContext(runCtx, runID, string(status), applyErr)

			if outputs != nil {
				fmt.Print(outputs.Summary)
				if outputs.TestCommand != "" {
					fmt.Printf("\nTest your instance:\n  %s\n", outputs.TestCommand)
				}
			}

			return applyErr
		},
	}

	cmd.Flags().IntVar(&parallelism, "parallelism", 8, "max parallel provisioning calls")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop scheduling after the first failure")
	cmd.Flags().BoolVar(&skipPolicies, "skip-policies", false, "skip policy evaluation")
	cmd.Flags().StringSliceVar(&policyPaths, "policy", nil, "extra policy files or directories")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

// gateOnPolicies refuses the apply when any error-severity violation fires.
func gateOnPolicies(ctx context.Context, plan *compose.Plan, instance string, policyPaths []string) error {
	engine, err := policy.NewEngine(log.Logger)
	if err != nil {
		return err
	}
	if len(policyPaths) > 0 {
		if err := engine.LoadPolicies(ctx, policyPaths); err != nil {
			return err
		}
	}

	result, err := engine.EvaluatePlan(ctx, plan, &policy.Context{
		Instance:  instance,
		Operation: "apply",
		Timestamp: time.Now(),
	})
	if err != nil {
		return err
	}

	for _, v := range result.Violations {
		log.Warn().
			Str("policy", v.Policy).
			Str("resource", v.Resource).
			Str("severity", string(v.Severity)).
			Msg(v.Message)
	}

	if !result.Allowed {
		return fmt.Errorf("apply blocked by %d policy violation(s)", len(result.Violations))
	}
	return nil
}

// persistOutputs upserts every resolved identity and stores the run summary.
func persistOutputs(ctx context.Context, store *stores.SQLiteStore, runID string, outputs *compose.Outputs) error {
	now := time.Now()
	for kind, byName := range outputs.Identities {
		for name, identity := range byName {
			record := &stores.ResourceIdentity{
				Kind:         string(kind),
				ResourceName: name,
				ResourceID:   identity.ID,
				ARN:          identity.ARN,
				RunID:        runID,
				AppliedAt:    now,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := store.UpsertIdentity(ctx, record); err != nil {
				return err
			}
		}
	}

	summary, err := json.Marshal(map[string]interface{}{
		"summary":      outputs.Summary,
		"test_command": outputs.TestCommand,
	})
	if err != nil {
		return err
	}
	return store.UpdateRunSummary(ctx, runID, string(summary))
}
