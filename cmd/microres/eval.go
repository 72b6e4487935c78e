package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/miradorstack/microres/internal/api"
	"github.com/miradorstack/microres/internal/models"
	"github.com/miradorstack/microres/internal/parser"
)

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate one test case",
		Long: `Evaluate a case file (JSON or YAML) and print the ranking and resilience index.
The case is evaluated in-process unless --remote names a running server.`,
		RunE: runEval,
	}
	cmd.Flags().String("from-file", "", "Path to the case file (required)")
	cmd.Flags().String("strategy", "", "Distance strategy (overrides engine.strategy)")
	cmd.Flags().String("remote", "", "Address of a microres server to evaluate on")
	cmd.Flags().String("output", outputText, "Output format (text/json)")
	cmd.Flags().Duration("timeout", 2*time.Minute, "Evaluation timeout")
	cmd.MarkFlagRequired("from-file")
	return cmd
}

func runEval(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("from-file")
	strategy, _ := cmd.Flags().GetString("strategy")
	remote, _ := cmd.Flags().GetString("remote")
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if err := checkOutput(output); err != nil {
		return err
	}

	c, err := parser.ParseCaseFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	var doc api.EvaluationDocument
	if remote != "" {
		if strategy != "" {
			return fmt.Errorf("--strategy cannot be combined with --remote")
		}
		doc, err = evaluateRemote(ctx, remote, c)
	} else {
		doc, err = evaluateLocal(ctx, cmd, strategy, c)
	}
	if err != nil {
		return err
	}
	return printEvaluation(cmd.OutOrStdout(), output, doc)
}

func evaluateLocal(ctx context.Context, cmd *cobra.Command, strategy string, c *models.CaseFile) (api.EvaluationDocument, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return api.EvaluationDocument{}, err
	}
	if strategy != "" {
		cfg.Engine.Strategy = strategy
	}
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return api.EvaluationDocument{}, err
	}
	defer a.Close()

	res, err := a.service.EvaluateCase(ctx, c)
	if err != nil {
		return api.EvaluationDocument{}, fmt.Errorf("evaluation failed: %w", err)
	}
	return api.NewEvaluationDocument(res), nil
}

func evaluateRemote(ctx context.Context, addr string, c *models.CaseFile) (api.EvaluationDocument, error) {
	conn, err := dial(addr)
	if err != nil {
		return api.EvaluationDocument{}, err
	}
	defer conn.Close()

	req, err := api.ToProtoCase(c)
	if err != nil {
		return api.EvaluationDocument{}, err
	}
	resp, err := api.NewResilienceEngineClient(conn).Evaluate(ctx, req)
	if err != nil {
		return api.EvaluationDocument{}, fmt.Errorf("remote evaluation failed: %w", err)
	}
	return api.FromProtoEvaluation(resp)
}

func dial(addr string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return conn, nil
}
