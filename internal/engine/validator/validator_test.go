package validator

import (
	"encoding/json"
	"errors"
	"testing"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/quest"
)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func mustValidate(t *testing.T, step *quest.Step, payload string) *Result {
	t.Helper()
	res, err := Validate(step, json.RawMessage(payload))
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	return res
}

func TestUnknownKindFailsClosed(t *testing.T) {
	step := &quest.Step{ID: "s1", Kind: quest.StepKind("hologram"), XP: 50}
	res, err := Validate(step, json.RawMessage(`{}`))
	if err == nil {
		t.Fatal("expected error for unknown step kind")
	}
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if res == nil || res.IsCorrect || res.XPAwarded != 0 {
		t.Errorf("unknown kind must fail closed: %+v", res)
	}
}

func TestInfoAlwaysPasses(t *testing.T) {
	step := &quest.Step{ID: "s1", Kind: quest.StepInfo, XP: 10}
	res := mustValidate(t, step, `{}`)
	if !res.IsCorrect || res.XPAwarded != 10 {
		t.Errorf("info step: %+v", res)
	}
}

func TestQuizCorrectIndex(t *testing.T) {
	step := &quest.Step{
		ID:           "q1",
		Kind:         quest.StepQuiz,
		XP:           25,
		Options:      []string{"a", "b", "c"},
		CorrectIndex: intPtr(1),
		Explanation:  "B is right because of compounding.",
	}

	res := mustValidate(t, step, `{"selectedIndex": 1}`)
	if !res.IsCorrect || res.XPAwarded != 25 {
		t.Errorf("correct index: %+v", res)
	}
	if res.Feedback == "" {
		t.Error("quiz feedback must carry the explanation")
	}

	res = mustValidate(t, step, `{"selectedIndex": 0}`)
	if res.IsCorrect || res.XPAwarded != 0 {
		t.Errorf("wrong index: %+v", res)
	}
	if res.Feedback == "" {
		t.Error("explanation must be included even when wrong")
	}
}

func TestQuizIndexOutOfRange(t *testing.T) {
	step := &quest.Step{
		ID:           "q1",
		Kind:         quest.StepQuiz,
		Options:      []string{"a", "b"},
		CorrectIndex: intPtr(0),
	}
	_, err := Validate(step, json.RawMessage(`{"selectedIndex": 7}`))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestQuizAcceptedAnswersLocaleNumbers(t *testing.T) {
	step := &quest.Step{
		ID:              "q2",
		Kind:            quest.StepQuiz,
		XP:              20,
		AcceptedAnswers: []string{"12.5", "twelve and a half"},
	}

	for _, text := range []string{"12.5", "12,5", " 12,5 ", "Twelve and a half"} {
		payload, _ := json.Marshal(map[string]string{"text": text})
		res := mustValidate(t, step, string(payload))
		if !res.IsCorrect {
			t.Errorf("text %q should be accepted", text)
		}
	}

	res := mustValidate(t, step, `{"text": "13"}`)
	if res.IsCorrect {
		t.Error("13 should not match 12.5")
	}
}

func TestReflectionMinLength(t *testing.T) {
	step := &quest.Step{ID: "r1", Kind: quest.StepReflection, XP: 15, MinLength: 10}

	res := mustValidate(t, step, `{"reflection": "short"}`)
	if res.IsCorrect || res.XPAwarded != 0 {
		t.Errorf("too-short reflection: %+v", res)
	}

	res = mustValidate(t, step, `{"reflection": "long enough to count as a reflection"}`)
	if !res.IsCorrect || res.XPAwarded != 15 {
		t.Errorf("valid reflection: %+v", res)
	}

	// Whitespace padding does not count toward the minimum.
	res = mustValidate(t, step, `{"reflection": "   hi       "}`)
	if res.IsCorrect {
		t.Error("padded reflection should fail the length check")
	}
}

func checklistStep(policy quest.ChecklistPolicy, minChecked int) *quest.Step {
	return &quest.Step{
		ID:   "c1",
		Kind: quest.StepChecklist,
		Items: []quest.ChecklistItem{
			{ID: "i1", XP: 5},
			{ID: "i2", XP: 5},
			{ID: "i3", XP: 10},
		},
		Policy:     policy,
		MinChecked: minChecked,
	}
}

func TestChecklistPolicies(t *testing.T) {
	res := mustValidate(t, checklistStep(quest.PolicyMinChecked, 2), `{"checked": ["i1", "i3"]}`)
	if !res.IsCorrect || res.XPAwarded != 15 {
		t.Errorf("min_checked(2) with 2 checked: %+v", res)
	}

	res = mustValidate(t, checklistStep(quest.PolicyMinChecked, 2), `{"checked": ["i1"]}`)
	if res.IsCorrect {
		t.Errorf("min_checked(2) with 1 checked should fail: %+v", res)
	}
	if res.XPAwarded != 5 {
		t.Errorf("per-item XP still sums for checked items: %+v", res)
	}

	res = mustValidate(t, checklistStep(quest.PolicyAllChecked, 0), `{"checked": ["i1", "i2"]}`)
	if res.IsCorrect {
		t.Errorf("all_checked with one missing should fail: %+v", res)
	}

	res = mustValidate(t, checklistStep(quest.PolicyAllChecked, 0), `{"checked": ["i1", "i2", "i3"]}`)
	if !res.IsCorrect || res.XPAwarded != 20 {
		t.Errorf("all_checked complete: %+v", res)
	}

	res = mustValidate(t, checklistStep(quest.PolicyOptional, 0), `{"checked": []}`)
	if !res.IsCorrect || res.XPAwarded != 0 {
		t.Errorf("optional always passes: %+v", res)
	}
}

func TestChecklistIgnoresUnknownItems(t *testing.T) {
	res := mustValidate(t, checklistStep(quest.PolicyOptional, 0), `{"checked": ["bogus", "i1"]}`)
	if res.XPAwarded != 5 {
		t.Errorf("unknown item ids earn nothing: %+v", res)
	}
}

func TestActionSubActions(t *testing.T) {
	step := &quest.Step{
		ID:   "a1",
		Kind: quest.StepAction,
		SubActions: []quest.SubAction{
			{ID: "cancel", XP: 40, Verification: quest.VerifyScreenshot},
			{ID: "compare", XP: 20, Verification: quest.VerifySelfReport},
		},
	}

	res := mustValidate(t, step, `{"completed": ["cancel"], "methods": {"cancel": "screenshot"}}`)
	if !res.IsCorrect || res.XPAwarded != 40 {
		t.Errorf("single sub-action: %+v", res)
	}

	res = mustValidate(t, step, `{"completed": ["cancel", "compare"]}`)
	if res.XPAwarded != 60 {
		t.Errorf("both sub-actions: %+v", res)
	}

	res = mustValidate(t, step, `{"completed": []}`)
	if res.IsCorrect {
		t.Errorf("empty completion should not pass: %+v", res)
	}

	if _, err := Validate(step, json.RawMessage(`{"completed": ["bogus"]}`)); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown sub-action should be a validation error, got %v", err)
	}

	if _, err := Validate(step, json.RawMessage(`{"completed": ["cancel"], "methods": {"cancel": "telepathy"}}`)); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unknown method should be a validation error, got %v", err)
	}
}

func TestInteractiveRange(t *testing.T) {
	step := &quest.Step{
		ID:          "x1",
		Kind:        quest.StepInteractive,
		XP:          30,
		ExpectedMin: floatPtr(100),
		ExpectedMax: floatPtr(110),
	}

	res := mustValidate(t, step, `{"value": "105"}`)
	if !res.IsCorrect || res.XPAwarded != 30 {
		t.Errorf("in-range value: %+v", res)
	}

	res = mustValidate(t, step, `{"value": "104,5"}`)
	if !res.IsCorrect {
		t.Errorf("comma decimal should parse: %+v", res)
	}

	res = mustValidate(t, step, `{"value": "99"}`)
	if res.IsCorrect {
		t.Errorf("below-range value: %+v", res)
	}

	if _, err := Validate(step, json.RawMessage(`{"value": "not a number"}`)); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("unparseable value: %v", err)
	}
}

func TestInteractiveMapping(t *testing.T) {
	step := &quest.Step{
		ID:   "x2",
		Kind: quest.StepInteractive,
		XP:   30,
		ExpectedMapping: map[string]string{
			"rent":    "need",
			"netflix": "want",
		},
	}

	res := mustValidate(t, step, `{"mapping": {"rent": "need", "netflix": "want"}}`)
	if !res.IsCorrect || res.XPAwarded != 30 {
		t.Errorf("exact mapping: %+v", res)
	}

	res = mustValidate(t, step, `{"mapping": {"rent": "want", "netflix": "want"}}`)
	if res.IsCorrect || res.XPAwarded != 0 {
		t.Errorf("wrong mapping: %+v", res)
	}
}

func TestMalformedPayload(t *testing.T) {
	step := &quest.Step{ID: "q1", Kind: quest.StepQuiz, CorrectIndex: intPtr(0), Options: []string{"a"}}
	_, err := Validate(step, json.RawMessage(`{"selectedIndex": "first"}`))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("malformed payload should be ErrValidation, got %v", err)
	}
}
