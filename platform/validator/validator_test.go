package validator

import "testing"

type payload struct {
	Machine  string `json:"machine" validate:"required,notblank"`
	Validity int    `json:"validityDays" validate:"gte=1,lte=365"`
	Customer struct {
		Email string `json:"email" validate:"omitempty,email"`
	} `json:"customer"`
}

func TestFieldErrorsUseJSONNames(t *testing.T) {
	p := payload{Machine: "   ", Validity: 400}
	p.Customer.Email = "not-an-email"

	fields := FieldErrors(New().Struct(p))
	want := map[string]string{
		"machine":        "notblank",
		"validityDays":   "lte=365",
		"customer.email": "email",
	}
	if len(fields) != len(want) {
		t.Fatalf("unexpected fields %v", fields)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("field %s: got %q, want %q (all: %v)", k, fields[k], v, fields)
		}
	}
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	if FieldErrors(nil) != nil {
		t.Fatal("nil error has no fields")
	}
	if err := New().Struct(payload{Machine: "CM640", Validity: 30}); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
}
