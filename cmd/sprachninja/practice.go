package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/smith3v/sprachninja/pkg/practice"
)

type practiceSession interface {
	LoadNextQuestion(ctx context.Context) practice.View
	CheckAnswer(ctx context.Context, answer string) practice.View
}

// runPracticeLoop asks questions until the input ends or the learner types
// "q". "n" skips to the next question; a number picks a multiple-choice
// option.
func runPracticeLoop(ctx context.Context, session practiceSession, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	view := session.LoadNextQuestion(ctx)
	for {
		if err := printView(out, view); err != nil {
			return err
		}
		if _, err := fmt.Fprint(out, "> "); err != nil {
			return err
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "q", "quit":
			return nil
		case "n", "next":
			view = session.LoadNextQuestion(ctx)
			continue
		}

		if !view.CanCheck() {
			view = session.LoadNextQuestion(ctx)
			continue
		}
		if line == "" {
			continue
		}
		view = session.CheckAnswer(ctx, resolveOption(view, line))
	}
}

// resolveOption maps "1".."3" to the option text of a multiple-choice
// question and returns other input unchanged.
func resolveOption(view practice.View, line string) string {
	question, ok := view.Question()
	if !ok || question.QuestionType != practice.MultipleChoiceWord {
		return line
	}
	index, err := strconv.Atoi(line)
	if err != nil || index < 1 || index > len(question.Options) {
		return line
	}
	return question.Options[index-1]
}

func printView(out io.Writer, view practice.View) error {
	var sb strings.Builder
	switch state := view.State.(type) {
	case practice.Loading:
		sb.WriteString("Generating a question...\n")
	case practice.Failed:
		fmt.Fprintf(&sb, "Error: %s\n(n = try again, q = quit)\n", state.Message)
	case practice.Ready:
		q := state.Question
		switch view.Validation {
		case practice.Correct:
			fmt.Fprintf(&sb, "✅ %s\n(enter or n = next question, q = quit)\n", view.Feedback)
		case practice.Incorrect:
			fmt.Fprintf(&sb, "❌ %s\n(enter or n = next question, q = quit)\n", view.Feedback)
		default:
			fmt.Fprintf(&sb, "\n[%s] %s\n", view.Type.Label(), q.QuestionText)
			for i, option := range q.Options {
				fmt.Fprintf(&sb, "  %d) %s\n", i+1, option)
			}
		}
	}
	_, err := io.WriteString(out, sb.String())
	return err
}
