package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edgard/mentorbot/internal/analyzer"
	"github.com/edgard/mentorbot/internal/config"
	"github.com/edgard/mentorbot/internal/domain"
)

type analyzeOutput struct {
	analyzer.Result
	Insights []domain.Insight `json:"insights,omitempty"`
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var withInsights bool

	cmd := &cobra.Command{
		Use:   "analyze [text...]",
		Short: "Print the analysis of a text as JSON; reads stdin when no text is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return printErr(cmd, err)
			}

			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return printErr(cmd, fmt.Errorf("failed to read stdin: %w", err))
				}
				text = string(raw)
			}

			a := analyzer.New(analyzer.WithMaxTopics(cfg.Mentor.MaxTopics))
			out := analyzeOutput{Result: a.Analyze(text)}
			if withInsights {
				rec := domain.ConversationRecord{ID: uuid.NewString(), Text: text, Timestamp: time.Now().UTC()}
				out.Insights = analyzer.Insights(rec, out.Result)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&withInsights, "insights", false, "Also print the derived insights")
	return cmd
}
