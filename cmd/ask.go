package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mockmate/mockmate/internal/logger"
	"github.com/mockmate/mockmate/internal/pipeline"
	"github.com/mockmate/mockmate/internal/specialist"
)

const (
	PromptAskAnother = "Ask another question"
	PromptExit       = "Exit"

	minQuestionLen = 5
)

var errExit = errors.New("exit requested")

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Ask interview questions interactively",
	Run: func(cmd *cobra.Command, _ []string) {
		ask(cmd)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringP("type", "t", "", "interview type hint passed to routing (e.g. system_design)")
}

// ask is the interactive question loop. Each answer offers its follow-up
// questions as the next selection, carrying the conversation history forward.
func ask(cmd *cobra.Command) {
	ctx := context.Background()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	registry, err := specialist.NewRegistry()
	if err != nil {
		zl.Fatal("building specialist registry", zap.Error(err))
	}

	backend, model, configured, err := buildBackend(ctx, config.AI)
	if err != nil {
		zl.Fatal("building model backend", zap.Error(err))
	}
	if !configured {
		zl.Warn("model backend is not configured, answers will be degraded",
			zap.String("hint", "set ai.gemini.api-key-file or GEMINI_API_KEY_FILE"))
	}

	interview := pipeline.NewInterview(registry, backend, logger.WithCommonFields(zl, "gemini", model))
	domainHint := cmd.Flag("type").Value.String()

	var history []specialist.Turn
	question, err := promptQuestion()
	if err != nil {
		zl.Fatal("reading question", zap.Error(err))
	}

	for {
		state := &pipeline.InterviewState{
			Question:   question,
			DomainHint: domainHint,
			History:    history,
		}
		interview.Run(ctx, state)

		if state.Err != nil {
			zl.Error("answer generation failed", zap.Error(state.Err))
		}
		printAnswer(state)

		history = append(history, specialist.Turn{Question: question, Answer: state.Result.Answer})

		question, err = nextQuestion(state.FollowUps.Questions)
		if errors.Is(err, errExit) {
			zl.Info("exiting", zap.String("reason", "got exit from prompt"))
			return
		}
		if err != nil {
			zl.Fatal("exiting", zap.Error(err))
		}
	}
}

func promptQuestion() (string, error) {
	prompt := promptui.Prompt{
		Label: "Interview question",
		Validate: func(input string) error {
			if utf8.RuneCountInString(strings.TrimSpace(input)) < minQuestionLen {
				return fmt.Errorf("question must be at least %d characters", minQuestionLen)
			}
			return nil
		},
	}
	return prompt.Run()
}

// nextQuestion offers the follow-ups alongside the free-form and exit actions.
func nextQuestion(followUps []string) (string, error) {
	items := append(append([]string{}, followUps...), PromptAskAnother, PromptExit)

	prompt := promptui.Select{
		Label: "Continue with",
		Items: items,
	}

	_, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}

	switch selected {
	case PromptExit:
		return "", errExit
	case PromptAskAnother:
		return promptQuestion()
	default:
		return selected, nil
	}
}

func printAnswer(state *pipeline.InterviewState) {
	fmt.Printf("\n[%s] (confidence %.2f) %s\n\n", state.Decision.Specialist, state.Decision.Confidence, state.Decision.Reasoning)
	fmt.Println(state.Result.Answer)
	fmt.Println()
}
