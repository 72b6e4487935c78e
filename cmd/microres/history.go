package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/microres/internal/api"
	"github.com/miradorstack/microres/internal/history"
	"github.com/miradorstack/microres/internal/models"
	"github.com/miradorstack/microres/internal/utils"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored evaluations",
		Long:  "List stored evaluations, newest first, from the local history store or a running server.",
		RunE:  runHistory,
	}
	cmd.Flags().String("test-id", "", "Only list evaluations of this test")
	cmd.Flags().Int("limit", history.DefaultListLimit, "Maximum number of evaluations")
	cmd.Flags().String("since", "", "Only list evaluations created at or after this RFC3339 time or look-back duration (e.g. 24h)")
	cmd.Flags().String("remote", "", "Address of a microres server to query")
	cmd.Flags().String("output", outputText, "Output format (text/json)")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	testID, _ := cmd.Flags().GetString("test-id")
	limit, _ := cmd.Flags().GetInt("limit")
	sinceRaw, _ := cmd.Flags().GetString("since")
	remote, _ := cmd.Flags().GetString("remote")
	output, _ := cmd.Flags().GetString("output")
	if err := checkOutput(output); err != nil {
		return err
	}
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	req := models.ListEvaluationsRequest{TestID: testID, Limit: limit}
	if sinceRaw != "" {
		since, err := utils.ParseSince(sinceRaw, time.Now())
		if err != nil {
			return fmt.Errorf("invalid --since: %w", err)
		}
		req.Since = since
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var (
		docs []api.EvaluationDocument
		err  error
	)
	if remote != "" {
		docs, err = listRemote(ctx, remote, req)
	} else {
		docs, err = listLocal(ctx, cmd, req)
	}
	if err != nil {
		return err
	}
	return printHistory(cmd.OutOrStdout(), output, docs)
}

func listLocal(ctx context.Context, cmd *cobra.Command, req models.ListEvaluationsRequest) ([]api.EvaluationDocument, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg.History.Enabled = true
	a, err := newApp(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	defer a.Close()

	results, err := a.service.History(ctx, req)
	if err != nil {
		return nil, err
	}
	docs := make([]api.EvaluationDocument, 0, len(results))
	for _, r := range results {
		docs = append(docs, api.NewEvaluationDocument(r))
	}
	return docs, nil
}

func listRemote(ctx context.Context, addr string, req models.ListEvaluationsRequest) ([]api.EvaluationDocument, error) {
	conn, err := dial(addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	in, err := api.ToProtoListRequest(req)
	if err != nil {
		return nil, err
	}
	resp, err := api.NewResilienceEngineClient(conn).ListEvaluations(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("remote history failed: %w", err)
	}
	return api.FromProtoListResponse(resp)
}
