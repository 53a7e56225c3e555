package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if an email address is valid.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateDate checks that s is a YYYY-MM-DD calendar day.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("invalid date: %q", s)
	}
	return nil
}

// ValidatePlan checks that p is a known plan.
func ValidatePlan(p Plan) error {
	switch p {
	case PlanFree, PlanPro:
		return nil
	}
	return fmt.Errorf("unknown plan: %q", p)
}

// ValidateCycleRecorded checks an incoming cycle notification.
func ValidateCycleRecorded(e CycleRecorded) error {
	if e.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if err := ValidateEmail(e.Email); err != nil {
		return err
	}
	if e.Plan != "" {
		return ValidatePlan(e.Plan)
	}
	return nil
}
