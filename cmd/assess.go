package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/assessment"
	"github.com/spigell/riasec-matcher/internal/metrics"
	"github.com/spigell/riasec-matcher/internal/questions"
	"github.com/spigell/riasec-matcher/internal/riasec"
	"github.com/spigell/riasec-matcher/internal/scoring"
)

const PromptQuit = "Quit"

var assessCmd = &cobra.Command{
	Use:   "assess",
	Short: "Take the adaptive RIASEC assessment",
	Run: func(cmd *cobra.Command, _ []string) {
		assess(cmd)
	},
}

func init() {
	rootCmd.AddCommand(assessCmd)

	assessCmd.Flags().StringP("session", "s", "", "session id to start or resume (default is a new uuid)")
	assessCmd.Flags().String("auto-answer", "", "answer every question with this option label instead of prompting")
	assessCmd.Flags().Bool("resume", false, "continue an existing session instead of restarting it")
}

func assess(cmd *cobra.Command) {
	ctx := context.Background()
	config, logger := setup()

	db, err := openDB(config, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer db.Close()

	m := metrics.New()
	defer writeMetrics(config, m, logger)

	svc, err := newAssessmentService(config, db, m, logger)
	if err != nil {
		logger.Fatal("building assessment", zap.Error(err))
	}

	// Validated by getConfig.
	order, _ := riasec.ParseOrder(config.Assessment.CategoryOrder)

	sessionID, _ := cmd.Flags().GetString("session")
	autoAnswer, _ := cmd.Flags().GetString("auto-answer")
	resume, _ := cmd.Flags().GetBool("resume")

	var q *questions.Question
	if resume && sessionID != "" {
		q, err = svc.CurrentQuestion(ctx, sessionID)
	} else {
		var st *assessment.State
		st, q, err = svc.Start(ctx, sessionID)
		if st != nil {
			sessionID = st.SessionID
		}
	}
	if err != nil {
		logger.Fatal(userMessage(err), zap.Error(err))
	}

	logger.Info("assessment session", zap.String("session", sessionID))

	for q != nil {
		label, err := ask(q, autoAnswer)
		if err != nil {
			if errors.Is(err, errQuit) {
				logger.Info("exiting", zap.String("reason", "quit requested"), zap.String("resume_with", sessionID))
				return
			}
			logger.Fatal("reading answer", zap.Error(err))
		}

		res, err := svc.SubmitAnswer(ctx, sessionID, q.ID, label)
		if err != nil {
			if assessment.IsRetryable(err) {
				logger.Warn(userMessage(err), zap.Error(err))
				if q, err = svc.CurrentQuestion(ctx, sessionID); err != nil {
					logger.Fatal(userMessage(err), zap.Error(err))
				}
				continue
			}
			logger.Fatal(userMessage(err), zap.Error(err))
		}

		logger.Info("current standing",
			zap.String("phase", string(res.Phase)),
			zap.String("leading", res.LiveScores.Code(order, 3)),
			zap.String("scores", standing(res.LiveScores, order)),
		)
		q = res.NextQuestion
	}

	result, err := svc.Finalize(ctx, sessionID)
	if err != nil {
		logger.Fatal(userMessage(err), zap.Error(err))
	}

	logger.Info("assessment finished",
		zap.String("session", result.SessionID),
		zap.String("code", result.CategoryCode),
		zap.String("scores", standing(result.CategoryScores, order)),
		zap.Strings("top_traits", scoring.TopTraits(result.TraitPercentiles, 5)),
		zap.Int("tie_break_rounds", result.TieBreakRounds),
	)
	fmt.Printf("Your code: %s\nNext: %s recommend --session %s\n", result.CategoryCode, app, result.SessionID)
}

var errQuit = errors.New("quit requested")

func ask(q *questions.Question, autoAnswer string) (string, error) {
	if autoAnswer != "" {
		return autoAnswer, nil
	}

	items := make([]string, 0, len(q.Options)+1)
	for _, o := range q.Options {
		items = append(items, fmt.Sprintf("%s) %s", o.Label, o.Text))
	}
	items = append(items, PromptQuit)

	label := q.Prompt
	if q.IsTieBreak() {
		label = "[tie-breaker] " + label
	}

	prompt := promptui.Select{
		Label: label,
		Items: items,
	}

	idx, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}
	if selected == PromptQuit {
		return "", errQuit
	}
	return q.Options[idx].Label, nil
}

func standing(scores riasec.Scores, order riasec.Order) string {
	parts := make([]string, 0, len(scores))
	for _, r := range scores.Ranked(order) {
		parts = append(parts, fmt.Sprintf("%s:%g", r.Category, r.Score))
	}
	return strings.Join(parts, " ")
}
