package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/matching"
	"github.com/spigell/riasec-matcher/internal/metrics"
	"github.com/spigell/riasec-matcher/internal/storage"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Match an assessment result against the job catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		recommend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(recommendCmd)

	recommendCmd.Flags().StringP("session", "s", "", "use the finalized result of this assessment session")
	recommendCmd.Flags().String("code", "", "category code to match, e.g. RIA (instead of --session)")
	recommendCmd.Flags().StringSliceP("interest", "i", nil, "interest cluster, repeatable")
	recommendCmd.Flags().String("field", "", "field of study")
	recommendCmd.Flags().String("education", "", "highest education level")
	recommendCmd.Flags().Int("experience", 0, "years of experience")
	recommendCmd.Flags().Int("min-score", matching.DefaultMinScore, "minimum match percentage")
	recommendCmd.Flags().StringP("output", "o", OutputTable, "output format: table or json")

	viper.BindPFlag("matching.min-score", recommendCmd.Flags().Lookup("min-score"))
}

func recommend(cmd *cobra.Command) {
	ctx := context.Background()
	config, logger := setup()

	output, _ := cmd.Flags().GetString("output")
	if output != OutputTable && output != OutputJSON {
		logger.Fatal("unsupported output format", zap.String("output", output))
	}

	db, err := openDB(config, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer db.Close()

	profile, err := buildProfile(ctx, cmd, db)
	if err != nil {
		logger.Fatal(userMessage(err), zap.Error(err))
	}

	jobs, err := newCatalogReader(config, db, logger)
	if err != nil {
		logger.Fatal("building catalog reader", zap.Error(err))
	}

	m := metrics.New()
	defer writeMetrics(config, m, logger)

	recommender, err := newRecommender(ctx, config, jobs, m, logger)
	if err != nil {
		logger.Fatal("building recommender", zap.Error(err))
	}

	recs, err := recommender.GenerateRecommendations(ctx, profile, config.Matching.MinScore)
	if err != nil {
		logger.Fatal(userMessage(err), zap.Error(err))
	}

	if recs.Stats.EmptyReason != "" {
		logger.Info("no recommendations", zap.String("reason", recs.Stats.EmptyReason))
	}

	switch output {
	case OutputJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(recs)
	default:
		err = renderTable(recs)
	}
	if err != nil {
		logger.Fatal("writing recommendations", zap.Error(err))
	}
}

func buildProfile(ctx context.Context, cmd *cobra.Command, db *storage.DB) (matching.Profile, error) {
	var profile matching.Profile

	sessionID, _ := cmd.Flags().GetString("session")
	code, _ := cmd.Flags().GetString("code")

	switch {
	case sessionID != "":
		res, err := db.LatestResult(ctx, sessionID)
		if err != nil {
			return profile, err
		}
		profile = matching.ProfileFromResult(res)
	case code != "":
		profile.CategoryCode = code
	default:
		return profile, matching.ErrMissingCategoryCode
	}

	profile.Interests, _ = cmd.Flags().GetStringSlice("interest")
	profile.FieldOfStudy, _ = cmd.Flags().GetString("field")
	profile.Education, _ = cmd.Flags().GetString("education")
	profile.ExperienceYears, _ = cmd.Flags().GetInt("experience")
	return profile, nil
}

func renderTable(recs *matching.Recommendations) error {
	stats := recs.Stats
	fmt.Printf("Strategy %s (%s): %d jobs, %d compatible, %d after interests, %d at %d%%+\n",
		stats.Strategy, stats.TopLetters, stats.TotalJobs, stats.CategoryFiltered,
		stats.InterestFiltered, stats.QualityMatches, stats.Threshold)
	if stats.Fallback {
		fmt.Println("No job reached the threshold, showing the best matches instead.")
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Cluster", "Job", "Title", "Code", "Match", "Why")

	for _, c := range recs.Clusters {
		cluster := c.Name
		if c.UserRequested {
			cluster += " *"
		}
		for _, j := range c.Jobs {
			row := []string{
				cluster,
				j.JobID,
				j.Title,
				j.CategoryCode,
				strconv.Itoa(j.MatchPercentage) + "%",
				strings.Join(j.Reasoning, "; "),
			}
			if err := table.Append(row); err != nil {
				return err
			}
		}
	}
	return table.Render()
}
