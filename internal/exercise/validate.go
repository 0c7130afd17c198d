package exercise

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/clearspeech/pkg/scoring"
)

// Validate checks an [Exercise] for required fields and valid enums.
//
// Rules:
//   - ID and Title must be non-empty.
//   - Category and Difficulty must be recognised values.
//   - TargetText must contain at least one word and be at most
//     [MaxTargetLength] bytes.
func Validate(ex Exercise) error {
	var errs []error

	if strings.TrimSpace(ex.ID) == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if strings.TrimSpace(ex.Title) == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}
	if !ex.Category.IsValid() {
		errs = append(errs, fmt.Errorf("category %q is not a recognised category", ex.Category))
	}
	if !ex.Difficulty.IsValid() {
		errs = append(errs, fmt.Errorf("difficulty %q must be one of easy, medium, hard", ex.Difficulty))
	}
	if len(scoring.Tokenize(ex.TargetText)) == 0 {
		errs = append(errs, errors.New("target_text must contain at least one word"))
	}
	if len(ex.TargetText) > MaxTargetLength {
		errs = append(errs, fmt.Errorf("target_text is %d bytes, limit is %d", len(ex.TargetText), MaxTargetLength))
	}

	return errors.Join(errs...)
}
