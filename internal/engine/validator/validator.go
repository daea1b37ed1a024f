// Package validator grades a submitted answer against one quest step. Each
// step kind has its own grading function registered in a lookup table; a
// kind the table does not know fails closed with zero XP instead of
// silently passing.
package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"finquestAPI/internal/apperror"
	"finquestAPI/internal/quest"
	"finquestAPI/utils"
)

// Answer is the client-submitted payload. Only the fields matching the
// step kind are read; the rest are ignored.
type Answer struct {
	// quiz / multiple_choice
	SelectedIndex *int   `json:"selectedIndex,omitempty"`
	Text          string `json:"text,omitempty"`

	// reflection
	Reflection string `json:"reflection,omitempty"`

	// checklist: ids of checked items
	Checked []string `json:"checked,omitempty"`

	// action: ids of completed sub-actions and the claimed method per id
	Completed []string          `json:"completed,omitempty"`
	Methods   map[string]string `json:"methods,omitempty"`

	// interactive
	Value   *string           `json:"value,omitempty"`
	Mapping map[string]string `json:"mapping,omitempty"`
}

type Result struct {
	IsCorrect bool   `json:"isCorrect"`
	XPAwarded int    `json:"xpAwarded"`
	Feedback  string `json:"feedback,omitempty"`
}

type gradeFunc func(step *quest.Step, ans *Answer) (*Result, error)

var registry = map[quest.StepKind]gradeFunc{
	quest.StepInfo:           gradeInfo,
	quest.StepQuiz:           gradeQuiz,
	quest.StepMultipleChoice: gradeQuiz,
	quest.StepChecklist:      gradeChecklist,
	quest.StepReflection:     gradeReflection,
	quest.StepInteractive:    gradeInteractive,
	quest.StepAction:         gradeAction,
}

// Validate decodes and grades a raw answer payload for a step.
func Validate(step *quest.Step, raw json.RawMessage) (*Result, error) {
	grade, ok := registry[step.Kind]
	if !ok {
		return &Result{IsCorrect: false, XPAwarded: 0, Feedback: "unsupported step type"},
			fmt.Errorf("%w: unknown step kind %q", apperror.ErrValidation, step.Kind)
	}

	var ans Answer
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ans); err != nil {
			return nil, fmt.Errorf("%w: malformed answer payload: %v", apperror.ErrValidation, err)
		}
	}

	return grade(step, &ans)
}

func gradeInfo(step *quest.Step, _ *Answer) (*Result, error) {
	// Reading the content is the whole task.
	return &Result{IsCorrect: true, XPAwarded: step.XP}, nil
}

func gradeQuiz(step *quest.Step, ans *Answer) (*Result, error) {
	correct := false

	if ans.SelectedIndex != nil {
		if step.CorrectIndex == nil {
			return nil, fmt.Errorf("%w: step %s does not accept an option index", apperror.ErrValidation, step.ID)
		}
		if *ans.SelectedIndex < 0 || *ans.SelectedIndex >= len(step.Options) {
			return nil, fmt.Errorf("%w: option index %d out of range", apperror.ErrValidation, *ans.SelectedIndex)
		}
		correct = *ans.SelectedIndex == *step.CorrectIndex
	} else if ans.Text != "" {
		if len(step.AcceptedAnswers) == 0 {
			return nil, fmt.Errorf("%w: step %s does not accept a free-text answer", apperror.ErrValidation, step.ID)
		}
		for _, accepted := range step.AcceptedAnswers {
			if answersMatch(ans.Text, accepted) {
				correct = true
				break
			}
		}
	} else {
		return nil, fmt.Errorf("%w: quiz answer missing selectedIndex or text", apperror.ErrValidation)
	}

	xp := 0
	if correct {
		xp = step.XP
	}
	// The explanation goes out either way so a wrong answer still teaches.
	return &Result{IsCorrect: correct, XPAwarded: xp, Feedback: step.Explanation}, nil
}

// answersMatch compares case-insensitively, and numerically when both sides
// parse as numbers so "12,5" matches an accepted "12.5".
func answersMatch(submitted, accepted string) bool {
	s := strings.ToLower(strings.TrimSpace(submitted))
	a := strings.ToLower(strings.TrimSpace(accepted))
	if s == a {
		return true
	}
	sv, serr := utils.ParseLocaleFloat(s)
	av, aerr := utils.ParseLocaleFloat(a)
	return serr == nil && aerr == nil && sv == av
}

func gradeReflection(step *quest.Step, ans *Answer) (*Result, error) {
	minLen := step.MinLength
	if minLen <= 0 {
		minLen = 1
	}

	text := strings.TrimSpace(ans.Reflection)
	if len(text) < minLen {
		return &Result{
			IsCorrect: false,
			XPAwarded: 0,
			Feedback:  fmt.Sprintf("Write at least %d characters to complete this reflection.", minLen),
		}, nil
	}
	return &Result{IsCorrect: true, XPAwarded: step.XP}, nil
}

func gradeChecklist(step *quest.Step, ans *Answer) (*Result, error) {
	checked := make(map[string]bool, len(ans.Checked))
	for _, id := range ans.Checked {
		checked[id] = true
	}

	xp := 0
	count := 0
	for _, item := range step.Items {
		if checked[item.ID] {
			xp += item.XP
			count++
		}
	}

	passed := false
	switch step.Policy {
	case quest.PolicyAllChecked:
		passed = count == len(step.Items)
	case quest.PolicyMinChecked:
		passed = count >= step.MinChecked
	case quest.PolicyOptional:
		passed = true
	default:
		return nil, fmt.Errorf("%w: unknown checklist policy %q", apperror.ErrValidation, step.Policy)
	}

	feedback := ""
	if !passed {
		feedback = fmt.Sprintf("Checked %d of %d items; this checklist needs more before you can continue.", count, len(step.Items))
	}
	return &Result{IsCorrect: passed, XPAwarded: xp, Feedback: feedback}, nil
}

func gradeAction(step *quest.Step, ans *Answer) (*Result, error) {
	if len(ans.Completed) == 0 {
		return &Result{
			IsCorrect: false,
			XPAwarded: 0,
			Feedback:  "Mark at least one action as done.",
		}, nil
	}

	byID := make(map[string]quest.SubAction, len(step.SubActions))
	for _, sa := range step.SubActions {
		byID[sa.ID] = sa
	}

	// Trust-the-client: the verification method is recorded as a label, not
	// checked. Nothing monetary unlocks off of it.
	xp := 0
	for _, id := range ans.Completed {
		sa, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown sub-action %q", apperror.ErrValidation, id)
		}
		if m, ok := ans.Methods[id]; ok && !validMethod(m) {
			return nil, fmt.Errorf("%w: unknown verification method %q", apperror.ErrValidation, m)
		}
		xp += sa.XP
	}

	return &Result{IsCorrect: true, XPAwarded: xp}, nil
}

func validMethod(m string) bool {
	switch quest.VerificationMethod(m) {
	case quest.VerifyManual, quest.VerifyScreenshot, quest.VerifySelfReport:
		return true
	}
	return false
}

func gradeInteractive(step *quest.Step, ans *Answer) (*Result, error) {
	// Numeric range check (calculator-style steps).
	if step.ExpectedMin != nil || step.ExpectedMax != nil {
		if ans.Value == nil {
			return nil, fmt.Errorf("%w: interactive answer missing value", apperror.ErrValidation)
		}
		v, err := utils.ParseLocaleFloat(*ans.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperror.ErrValidation, err)
		}

		inRange := true
		if step.ExpectedMin != nil && v < *step.ExpectedMin {
			inRange = false
		}
		if step.ExpectedMax != nil && v > *step.ExpectedMax {
			inRange = false
		}

		xp := 0
		feedback := "That result is off. Check your numbers and try again."
		if inRange {
			xp = step.XP
			feedback = ""
		}
		return &Result{IsCorrect: inRange, XPAwarded: xp, Feedback: feedback}, nil
	}

	// Categorical mapping check (drag/drop steps).
	if len(step.ExpectedMapping) > 0 {
		if len(ans.Mapping) == 0 {
			return nil, fmt.Errorf("%w: interactive answer missing mapping", apperror.ErrValidation)
		}

		wrong := 0
		for key, want := range step.ExpectedMapping {
			if ans.Mapping[key] != want {
				wrong++
			}
		}

		if wrong > 0 {
			return &Result{
				IsCorrect: false,
				XPAwarded: 0,
				Feedback:  fmt.Sprintf("%d of %d items are in the wrong place.", wrong, len(step.ExpectedMapping)),
			}, nil
		}
		return &Result{IsCorrect: true, XPAwarded: step.XP}, nil
	}

	return nil, fmt.Errorf("%w: interactive step %s has no grading data", apperror.ErrValidation, step.ID)
}
