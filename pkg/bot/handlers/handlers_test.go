package handlers

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/smith3v/sprachninja/pkg/practice"
	"github.com/smith3v/sprachninja/pkg/settings"
	"github.com/smith3v/sprachninja/pkg/tips"
	"github.com/smith3v/sprachninja/pkg/ui"
)

const (
	fillInQuestion  = `{"questionText":"Ich gehe heute Abend ___ Kino.","correctAnswer":"ins","questionType":"FILL_IN_THE_BLANK"}`
	choiceQuestion  = "```json\n{\"questionText\":\"What is 'apple' in German?\",\"correctAnswer\":\"der Apfel\",\"questionType\":\"MULTIPLE_CHOICE_WORD\",\"options\":[\"die Birne\",\"der Apfel\",\"die Banane\"]}\n```"
	translateQuery  = `{"questionText":"I live in Berlin.","correctAnswer":"Ich wohne in Berlin.","questionType":"TRANSLATE_EN_DE"}`
	wrongTranslated = `{"isCorrect":false,"feedback":"Use 'wohne' instead of 'lebe in'."}`
)

func seedLearner(t *testing.T, h *Handlers, level string, withKey bool) {
	t.Helper()
	ctx := context.Background()
	if _, err := h.app.Users.Upsert(ctx, "Anna", level); err != nil {
		t.Fatalf("failed to seed profile: %v", err)
	}
	if withKey {
		if _, err := h.app.Settings.Save(settings.AppSettings{APIKey: "test-key"}); err != nil {
			t.Fatalf("failed to seed settings: %v", err)
		}
	}
}

func TestHandleStartAsksForNameAndCreatesProfile(t *testing.T) {
	h, a := newTestHandlers(t, &geminiStub{})
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	h.HandleStart(ctx, b, newTestUpdate("/start", 101))
	if got := client.lastMessageText(t); !strings.Contains(got, "What should I call you?") {
		t.Fatalf("expected name prompt, got %q", got)
	}

	h.Default(ctx, b, newTestUpdate("  Anna  ", 101))

	profile, err := a.Users.Current(ctx)
	if err != nil || profile == nil {
		t.Fatalf("expected profile, got %+v %v", profile, err)
	}
	if profile.DisplayName != "Anna" || profile.ProficiencyLevel != "A1.1" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if got := client.lastMessageText(t); !strings.Contains(got, "Nice to meet you, Anna!") {
		t.Fatalf("expected greeting, got %q", got)
	}
	levelData, _ := ui.BuildLevelCallback("B2.2")
	if markup := client.lastMultipartField(t, "reply_markup"); !strings.Contains(markup, levelData) {
		t.Fatalf("expected level picker, got %s", markup)
	}
}

func TestHandleStartRejectsBlankName(t *testing.T) {
	h, a := newTestHandlers(t, &geminiStub{})
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	h.HandleStart(ctx, b, newTestUpdate("/start", 101))
	h.Default(ctx, b, newTestUpdate("   ", 101))
	h.Default(ctx, b, newTestUpdate("-", 101))

	profile, err := a.Users.Current(ctx)
	if err != nil || profile == nil || profile.DisplayName != "-" {
		t.Fatalf("expected the non-blank name to be kept, got %+v %v", profile, err)
	}
}

func TestHandleStartWelcomesBack(t *testing.T) {
	h, _ := newTestHandlers(t, &geminiStub{})
	seedLearner(t, h, "B1.2", false)
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	h.HandleStart(context.Background(), b, newTestUpdate("/start", 101))

	got := client.lastMessageText(t)
	if !strings.Contains(got, "Anna") || !strings.Contains(got, "B1.2") {
		t.Fatalf("expected welcome back message, got %q", got)
	}
	if h.pending.Awaiting(101, 101, testNow) {
		t.Fatalf("expected no name prompt for an existing profile")
	}
}

func TestPracticeModeThenTextAnswer(t *testing.T) {
	stub := &geminiStub{replies: []string{fillInQuestion}}
	h, a := newTestHandlers(t, stub)
	seedLearner(t, h, "B1.2", true)
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	modeData, _ := ui.BuildModeCallback(practice.FillInTheBlank)
	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(modeData, 101, 101, 10))

	texts := client.messageTexts(t)
	if len(texts) < 2 || !strings.Contains(texts[0], "Generating") {
		t.Fatalf("expected loading then question, got %q", texts)
	}
	if !strings.Contains(texts[len(texts)-1], "Ich gehe heute Abend ___ Kino.") {
		t.Fatalf("expected question text, got %q", texts[len(texts)-1])
	}

	row, err := a.Sessions.Load(ctx, 101, testNow)
	if err != nil || row == nil {
		t.Fatalf("expected stored session, got %+v %v", row, err)
	}
	var stored practice.PracticeQuestion
	if err := json.Unmarshal(row.Question, &stored); err != nil || stored.CorrectAnswer != "ins" {
		t.Fatalf("unexpected stored question %s %v", row.Question, err)
	}
	if row.MessageID != 10 || row.Validation != string(practice.Unchecked) {
		t.Fatalf("unexpected session row %+v", row)
	}
	recent, err := a.Recent.RecentTexts(ctx, "B1.2")
	if err != nil || len(recent) != 1 {
		t.Fatalf("expected recorded question, got %v %v", recent, err)
	}

	h.Default(ctx, b, newTestUpdate("INS", 101))

	if got := client.lastMessageText(t); !strings.Contains(got, "✅ Correct!") {
		t.Fatalf("expected correct verdict, got %q", got)
	}
	stats, err := a.Stats.Get(ctx, "B1.2")
	if err != nil || stats == nil || stats.Correct != 1 || stats.Wrong != 0 {
		t.Fatalf("unexpected stats %+v %v", stats, err)
	}

	h.Default(ctx, b, newTestUpdate("ins", 101))
	if got := client.lastMessageText(t); got != noActiveQuestionText {
		t.Fatalf("expected checked question to be closed, got %q", got)
	}
	stats, _ = a.Stats.Get(ctx, "B1.2")
	if stats.Correct != 1 {
		t.Fatalf("expected a second answer to be ignored, got %+v", stats)
	}
}

func TestPracticeMultipleChoiceCallback(t *testing.T) {
	stub := &geminiStub{replies: []string{choiceQuestion}}
	h, a := newTestHandlers(t, stub)
	seedLearner(t, h, "A1.1", true)
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	modeData, _ := ui.BuildModeCallback(practice.MultipleChoiceWord)
	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(modeData, 101, 101, 10))

	answerData, _ := ui.BuildAnswerCallback(1)
	if markup := client.lastMultipartField(t, "reply_markup"); !strings.Contains(markup, answerData) {
		t.Fatalf("expected option buttons, got %s", markup)
	}

	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(answerData, 101, 101, 99))
	if stats, _ := a.Stats.Get(ctx, "A1.1"); stats != nil {
		t.Fatalf("expected a stale keyboard to be ignored, got %+v", stats)
	}

	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(answerData, 101, 101, 10))
	if got := client.lastMessageText(t); !strings.Contains(got, "✅ Correct!") {
		t.Fatalf("expected correct verdict, got %q", got)
	}
	stats, err := a.Stats.Get(ctx, "A1.1")
	if err != nil || stats == nil || stats.Correct != 1 {
		t.Fatalf("unexpected stats %+v %v", stats, err)
	}
}

func TestPracticeConcurrentTapsCountOnce(t *testing.T) {
	stub := &geminiStub{replies: []string{choiceQuestion}}
	h, a := newTestHandlers(t, stub)
	seedLearner(t, h, "A1.1", true)
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	modeData, _ := ui.BuildModeCallback(practice.MultipleChoiceWord)
	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(modeData, 101, 101, 10))

	answerData, _ := ui.BuildAnswerCallback(1)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(answerData, 101, 101, 10))
		}()
	}
	wg.Wait()

	stats, err := a.Stats.Get(ctx, "A1.1")
	if err != nil || stats == nil {
		t.Fatalf("unexpected stats %+v %v", stats, err)
	}
	if stats.Correct != 1 || stats.Wrong != 0 {
		t.Fatalf("expected one counted answer, got %+v", stats)
	}
	row, err := a.Sessions.Load(ctx, 101, testNow)
	if err != nil || row == nil || row.Validation != string(practice.Correct) {
		t.Fatalf("unexpected session row %+v %v", row, err)
	}
}

func TestPracticeTranslationShowsChecking(t *testing.T) {
	stub := &geminiStub{replies: []string{translateQuery, wrongTranslated}}
	h, a := newTestHandlers(t, stub)
	seedLearner(t, h, "A2.1", true)
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	modeData, _ := ui.BuildModeCallback(practice.TranslateENDE)
	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(modeData, 101, 101, 10))
	h.Default(ctx, b, newTestUpdate("Ich lebe in Berlin.", 101))

	texts := client.messageTexts(t)
	if len(texts) < 2 {
		t.Fatalf("expected checking and verdict messages, got %q", texts)
	}
	if !strings.Contains(texts[len(texts)-2], practice.CheckingFeedback) {
		t.Fatalf("expected checking placeholder, got %q", texts[len(texts)-2])
	}
	if !strings.Contains(texts[len(texts)-1], "❌ Use 'wohne' instead of 'lebe in'.") {
		t.Fatalf("expected model feedback, got %q", texts[len(texts)-1])
	}

	stats, err := a.Stats.Get(ctx, "A2.1")
	if err != nil || stats == nil || stats.Wrong != 1 {
		t.Fatalf("unexpected stats %+v %v", stats, err)
	}
	row, _ := a.Sessions.Load(ctx, 101, testNow)
	if row == nil || row.MessageID != 77 || row.Validation != string(practice.Incorrect) {
		t.Fatalf("unexpected session row %+v", row)
	}
}

func TestPracticeWithoutAPIKeyOffersRetry(t *testing.T) {
	stub := &geminiStub{replies: []string{fillInQuestion}}
	h, a := newTestHandlers(t, stub)
	seedLearner(t, h, "A1.1", false)
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	modeData, _ := ui.BuildModeCallback(practice.FillInTheBlank)
	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(modeData, 101, 101, 10))

	if got := client.lastMessageText(t); !strings.Contains(got, practice.ErrMissingAPIKey.Error()) {
		t.Fatalf("expected missing key message, got %q", got)
	}
	retryData, _ := ui.BuildRetryCallback()
	if markup := client.lastMultipartField(t, "reply_markup"); !strings.Contains(markup, retryData) {
		t.Fatalf("expected retry button, got %s", markup)
	}
	if stub.callCount() != 0 {
		t.Fatalf("expected no remote call without a key")
	}

	if _, err := a.Settings.Save(settings.AppSettings{APIKey: "test-key"}); err != nil {
		t.Fatalf("failed to save settings: %v", err)
	}
	h.HandlePracticeCallback(ctx, b, newTestCallbackUpdate(retryData, 101, 101, 10))
	if got := client.lastMessageText(t); !strings.Contains(got, "Ich gehe heute Abend ___ Kino.") {
		t.Fatalf("expected retry to load a question, got %q", got)
	}
}

func TestNextWithoutSessionShowsModeMenu(t *testing.T) {
	h, _ := newTestHandlers(t, &geminiStub{})
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	nextData, _ := ui.BuildNextCallback()
	h.HandlePracticeCallback(context.Background(), b, newTestCallbackUpdate(nextData, 101, 101, 10))

	if got := client.lastMessageText(t); !strings.Contains(got, "practice mode") {
		t.Fatalf("expected mode menu, got %q", got)
	}
}

func TestTextWithoutSessionPrompts(t *testing.T) {
	h, _ := newTestHandlers(t, &geminiStub{})
	client := newMockClient()
	b := newTestTelegramBot(t, client)

	h.Default(context.Background(), b, newTestUpdate("hallo", 101))

	if got := client.lastMessageText(t); got != noActiveQuestionText {
		t.Fatalf("expected practice hint, got %q", got)
	}
}

func TestLevelCallbackUpdatesProfile(t *testing.T) {
	h, a := newTestHandlers(t, &geminiStub{})
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	data, _ := ui.BuildLevelCallback("B2.1")
	h.HandleLevelCallback(ctx, b, newTestCallbackUpdate(data, 101, 101, 10))
	if profile, _ := a.Users.Current(ctx); profile != nil {
		t.Fatalf("expected no profile to be created, got %+v", profile)
	}

	seedLearner(t, h, "A1.1", false)
	h.HandleLevelCallback(ctx, b, newTestCallbackUpdate(data, 101, 101, 10))
	profile, err := a.Users.Current(ctx)
	if err != nil || profile == nil || profile.ProficiencyLevel != "B2.1" {
		t.Fatalf("expected level B2.1, got %+v %v", profile, err)
	}
	if got := client.lastMessageText(t); !strings.Contains(got, "Level set to B2.1") {
		t.Fatalf("expected confirmation, got %q", got)
	}

	h.HandleLevelCallback(ctx, b, newTestCallbackUpdate("l:C2.9", 101, 101, 10))
	profile, _ = a.Users.Current(ctx)
	if profile.ProficiencyLevel != "B2.1" {
		t.Fatalf("expected unknown level to be rejected, got %+v", profile)
	}
}

func TestHandleProfileShowsStats(t *testing.T) {
	h, a := newTestHandlers(t, &geminiStub{})
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	h.HandleProfile(ctx, b, newTestUpdate("/profile", 101))
	if got := client.lastMessageText(t); got != missingProfileText {
		t.Fatalf("expected missing profile text, got %q", got)
	}

	seedLearner(t, h, "B1.1", false)
	if err := a.Stats.IncrementCorrect(ctx, "B1.1"); err != nil {
		t.Fatalf("failed to seed stats: %v", err)
	}
	if err := a.Stats.IncrementWrong(ctx, "B1.1"); err != nil {
		t.Fatalf("failed to seed stats: %v", err)
	}
	h.HandleProfile(ctx, b, newTestUpdate("/profile", 101))

	got := client.lastMessageText(t)
	for _, want := range []string{"Anna", "B1.1", "Correct at this level: 1", "Wrong at this level: 1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestHandleAPIKeyStoresAndDeletesMessage(t *testing.T) {
	h, a := newTestHandlers(t, &geminiStub{})
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	h.HandleAPIKey(ctx, b, newTestUpdate("/apikey   secret-9876 ", 101))

	if got := a.Settings.Settings(); got.APIKey != "secret-9876" || got.ModelName != settings.DefaultModelName {
		t.Fatalf("unexpected settings %+v", got)
	}
	if !client.calledMethod("deleteMessage") {
		t.Fatalf("expected the key message to be deleted")
	}
	if got := client.lastMessageText(t); strings.Contains(got, "secret") {
		t.Fatalf("api key echoed back: %q", got)
	}

	h.HandleModel(ctx, b, newTestUpdate("/model gemini-2.0-flash", 101))
	if got := a.Settings.Settings(); got.APIKey != "secret-9876" || got.ModelName != "gemini-2.0-flash" {
		t.Fatalf("unexpected settings after model change %+v", got)
	}
}

func TestHandleTipReplacesPlaceholder(t *testing.T) {
	stub := &geminiStub{replies: []string{"Verbs go second in main clauses."}}
	h, _ := newTestHandlers(t, stub)
	seedLearner(t, h, "A2.2", true)
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	h.HandleTip(ctx, b, newTestUpdate("/tip", 101))
	h.HandleTip(ctx, b, newTestUpdate("/tip", 101))

	texts := client.messageTexts(t)
	if len(texts) != 4 || texts[0] != tips.LoadingText {
		t.Fatalf("expected placeholder and tip twice, got %q", texts)
	}
	if texts[1] != "Verbs go second in main clauses." || texts[3] != texts[1] {
		t.Fatalf("unexpected tips %q", texts)
	}
	if stub.callCount() != 1 {
		t.Fatalf("expected one remote call per day, got %d", stub.callCount())
	}
}

func TestOwnerRestriction(t *testing.T) {
	h, _ := newTestHandlers(t, &geminiStub{}, WithOwner(101))
	client := newMockClient()
	b := newTestTelegramBot(t, client)
	ctx := context.Background()

	h.guard(h.HandleHelp)(ctx, b, newTestUpdate("/help", 202))
	if got := client.lastMessageText(t); got != "This bot is private." {
		t.Fatalf("expected rejection, got %q", got)
	}

	h.guard(h.HandleHelp)(ctx, b, newTestUpdate("/help", 101))
	if got := client.lastMessageText(t); got != helpText {
		t.Fatalf("expected help text, got %q", got)
	}
}

func TestCommandArgument(t *testing.T) {
	tests := map[string]string{
		"/apikey":                "",
		"/apikey abc":            "abc",
		"/model  gemini-pro  ":   "gemini-pro",
		"/model@SprachBot a b c": "a b c",
	}
	for input, want := range tests {
		if got := commandArgument(input); got != want {
			t.Fatalf("commandArgument(%q) = %q, want %q", input, got, want)
		}
	}
}
