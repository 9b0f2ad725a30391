package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
	"github.com/supplychain/procurement/internal/domain/inventory"
	"github.com/supplychain/procurement/internal/infrastructure/config"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"github.com/supplychain/procurement/internal/infrastructure/strategy"
	"go.uber.org/zap"
)

// localTenant scopes the sessions an invocation creates
var localTenant = uuid.Nil

type app struct {
	configPath string
	logLevel   string
	jsonOut    bool

	log      *zap.Logger
	policies *strategy.PolicyRegistry
	service  *inventoryapp.AllocationService
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "allocate",
		Short: "Plan harvest batch allocations offline",
		Long: `allocate runs the batch allocation planner against a YAML scenario.
A scenario names the required quantity and unit, the batch pool, and
optionally manual picks and transformation outputs for the mass-balance preview.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to config file (default: ./config.toml when present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "output JSON")

	root.AddCommand(
		a.planCmd(),
		a.compareCmd(),
		a.previewCmd(),
		a.sessionCmd(),
		a.policiesCmd(),
	)
	return root
}

func (a *app) init() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFile(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	a.log, err = logger.New(&logger.Config{
		Level:      a.logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	a.policies, err = strategy.NewRegistryWithDefaults(strategy.Options{
		DefaultPolicy:     cfg.Allocation.DefaultPolicy,
		ProportionalScale: cfg.Allocation.ProportionalScale,
	})
	if err != nil {
		return err
	}

	a.service = inventoryapp.NewAllocationService(
		nil,
		a.policies,
		inventoryapp.MassBalanceConfigFromSettings(cfg.Allocation.ContributionTolerance, cfg.Allocation.DeviationBand),
		a.log,
	)
	return nil
}

func (a *app) planCmd() *cobra.Command {
	var file, policy string
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan the scenario under one policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			resp, err := a.service.Plan(cmd.Context(), localTenant, s.planRequest(policy))
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			renderPlan(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	addScenarioFlag(cmd, &file)
	cmd.Flags().StringVar(&policy, "policy", "", "policy override (FIFO, LIFO, ENTIRE_BATCHES_FIRST, PROPORTIONAL)")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Plan the scenario under every policy side by side",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			resp, err := a.service.Compare(cmd.Context(), localTenant, s.planRequest(""))
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			renderCompare(cmd.OutOrStdout(), resp)
			return nil
		},
	}
	addScenarioFlag(cmd, &file)
	return cmd
}

// previewResult pairs the allocation that was checked with its mass-balance preview
type previewResult struct {
	Plan    *inventoryapp.PlanResponse    `json:"plan,omitempty"`
	Session *inventoryapp.SessionResponse `json:"session,omitempty"`
	Preview *inventory.AllocationPreview  `json:"preview"`
}

func (a *app) previewCmd() *cobra.Command {
	var file, policy string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Check the mass balance of the planned allocation, or of the picks when the scenario has them",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			var result *previewResult
			if len(s.Picks) > 0 {
				result, err = a.runSession(cmd.Context(), s)
			} else {
				result, err = a.previewPlan(cmd.Context(), s, policy)
			}
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), result)
			}
			renderPreviewResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	addScenarioFlag(cmd, &file)
	cmd.Flags().StringVar(&policy, "policy", "", "policy override when the scenario has no picks")
	return cmd
}

func (a *app) sessionCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Replay the scenario's picks as a manual allocation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadScenario(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(s.Picks) == 0 {
				return fmt.Errorf("scenario has no picks")
			}
			result, err := a.runSession(cmd.Context(), s)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), result)
			}
			renderPreviewResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	addScenarioFlag(cmd, &file)
	return cmd
}

func (a *app) policiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List the registered allocation policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			descriptors := a.policies.Describe()
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"default":  a.policies.GetDefault(),
					"policies": descriptors,
				})
			}
			renderPolicies(cmd.OutOrStdout(), descriptors, a.policies.GetDefault())
			return nil
		},
	}
}

func (a *app) previewPlan(ctx context.Context, s *Scenario, policy string) (*previewResult, error) {
	plan, err := a.service.Plan(ctx, localTenant, s.planRequest(policy))
	if err != nil {
		return nil, err
	}
	preview, err := a.service.Preview(ctx, localTenant, inventoryapp.PreviewRequest{
		RequestedQuantity: s.RequiredQuantity,
		Records:           plan.Plan.Records,
		Outputs:           s.Outputs,
	})
	if err != nil {
		return nil, err
	}
	return &previewResult{Plan: plan, Preview: preview}, nil
}

// runSession replays the picks in order, previews the session and discards it
func (a *app) runSession(ctx context.Context, s *Scenario) (*previewResult, error) {
	session, err := a.service.CreateSession(ctx, localTenant, inventoryapp.CreateSessionRequest{
		RequiredQuantity: s.RequiredQuantity,
		RequiredUnit:     s.RequiredUnit,
		Batches:          s.Batches,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = a.service.DeleteSession(ctx, localTenant, session.ID)
	}()

	for i, p := range s.Picks {
		session, err = a.service.AddPick(ctx, localTenant, session.ID, inventoryapp.AddPickRequest{
			BatchID:  s.batchID(p.BatchCode),
			Quantity: p.Quantity,
		})
		if err != nil {
			return nil, fmt.Errorf("pick %d (%s): %w", i+1, p.BatchCode, err)
		}
	}

	sessionID := session.ID
	preview, err := a.service.Preview(ctx, localTenant, inventoryapp.PreviewRequest{
		SessionID: &sessionID,
		Outputs:   s.Outputs,
	})
	if err != nil {
		return nil, err
	}
	return &previewResult{Session: session, Preview: preview}, nil
}

func addScenarioFlag(cmd *cobra.Command, file *string) {
	cmd.Flags().StringVarP(file, "file", "f", "", "path to YAML scenario, - for stdin")
	_ = cmd.MarkFlagRequired("file")
}
