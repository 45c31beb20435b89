package utils

import "testing"

func TestValidateStructReadsBindingTags(t *testing.T) {
	type payload struct {
		Name  string `binding:"required"`
		Email string `binding:"omitempty,email"`
	}

	if err := ValidateStruct(payload{}); err == nil {
		t.Fatal("expected error for missing required field")
	}
	if err := ValidateStruct(payload{Name: "ok"}); err != nil {
		t.Fatalf("expected valid payload; got %v", err)
	}
	if err := ValidateStruct(payload{Name: "ok", Email: "not-an-email"}); err == nil {
		t.Fatal("expected error for malformed email")
	}
}

func TestValidateStructAcceptsPointer(t *testing.T) {
	type payload struct {
		Name string `binding:"required"`
	}
	if err := ValidateStruct(&payload{Name: "ok"}); err != nil {
		t.Fatalf("expected valid pointer payload; got %v", err)
	}
	if err := ValidateStruct(&payload{}); err == nil {
		t.Fatal("expected error for missing required field via pointer")
	}
}
