package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPlanCommand() *cobra.Command {
	var (
		outFile string
		dotFile string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compose a provisioning plan",
		Long: `Compose declarations into a validated provisioning plan.

The plan:
  - Resolves every cross-reference by logical name
  - Rejects duplicates, dangling references, and cycles
  - Orders resources into dependency levels
  - Can be persisted as JSON and rendered as a DOT graph`,
		Example: `  # Print the ordered plan
  dialtone plan

  # Persist the plan and a Graphviz rendering
  dialtone plan --out plan.json --dot plan.dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().
				Str("config", configPath).
				Str("out", outFile).
				Str("dot", dotFile).
				Msg("Composing plan")

			decls, err := loadDeclarations([]string{configPath})
			if err != nil {
				return err
			}

			plan, err := composePlan(decls)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
			} else {
				fmt.Printf("Plan %s: %d resources in %d levels\n", plan.ID, len(plan.Units), plan.Graph.Depth)
				for _, unit := range plan.Units {
					fmt.Printf("  [%d] %s %q", unit.Level, unit.Kind, unit.Name)
					if len(unit.Requires) > 0 {
						fmt.Print(" requires")
						for _, req := range unit.Requires {
							fmt.Printf(" %s", req.ID())
						}
					}
					fmt.Println()
				}
			}

			if outFile != "" {
				data, err := json.MarshalIndent(plan, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(outFile, data, 0644); err != nil {
					return fmt.Errorf("failed to write plan: %w", err)
				}
			}

			if dotFile != "" {
				if err := os.WriteFile(dotFile, []byte(plan.Graph.ToDOT()), 0644); err != nil {
					return fmt.Errorf("failed to write DOT graph: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "out", "o", "", "output plan file path (JSON)")
	cmd.Flags().StringVar(&dotFile, "dot", "", "output DOT graph file")

	return cmd
}
