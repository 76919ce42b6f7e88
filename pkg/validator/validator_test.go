package validator

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

type testPayload struct {
	RequestID string `json:"requestId" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Players   int    `json:"playersNeeded" validate:"gte=1"`
}

func TestValidateStructSuccess(t *testing.T) {
	payload := testPayload{
		RequestID: "req-1",
		Email:     "alice@example.com",
		Players:   2,
	}

	if err := ValidateStruct(payload); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateStructFailuresUseJSONNames(t *testing.T) {
	payload := testPayload{
		RequestID: "",
		Email:     "invalid",
		Players:   0,
	}

	err := ValidateStruct(payload)
	if err == nil {
		t.Fatal("expected validation error")
	}

	vErrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %T", err)
	}

	if len(vErrs) != 3 {
		t.Fatalf("expected 3 validation errors, got %d", len(vErrs))
	}

	foundRequestID := false
	for _, v := range vErrs {
		if v.Field == "requestId" {
			foundRequestID = true
		}
	}

	if !foundRequestID {
		t.Fatal("expected requestId field to be reported with its json name")
	}
}

func TestValidateVar(t *testing.T) {
	if err := ValidateVar("organizer@club.example", "required,email"); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}
	if err := ValidateVar("", "required"); err == nil {
		t.Fatal("expected required failure for empty value")
	}
}

func TestRegisterValidation(t *testing.T) {
	err := RegisterValidation("courtlink", func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "courtlink"
	})
	if err != nil {
		t.Fatalf("register validation: %v", err)
	}

	type custom struct {
		Value string `validate:"courtlink"`
	}

	if err := ValidateStruct(custom{Value: "courtlink"}); err != nil {
		t.Fatalf("expected validation to pass, got %v", err)
	}
	if err := ValidateStruct(custom{Value: "other"}); err == nil {
		t.Fatal("expected validation to fail for non-matching value")
	}
}
