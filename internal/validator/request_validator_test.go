package validator_test

import (
	"testing"

	"stockledger/internal/validator"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name       string `json:"modelName" validate:"required,max=5"`
	Quantity   int64  `json:"quantity" validate:"gt=0"`
	ReturnType string `json:"returnType" validate:"omitempty,oneof=customer courier"`
}

func TestRequestValidator(t *testing.T) {
	v := validator.New()

	cases := []struct {
		name string
		in   sample
		want string
	}{
		{"ok", sample{Name: "A", Quantity: 1, ReturnType: "courier"}, ""},
		{"required uses json name", sample{Quantity: 1}, "modelName is required"},
		{"max", sample{Name: "ABCDEFG", Quantity: 1}, "modelName must be at most 5 characters"},
		{"gt", sample{Name: "A"}, "quantity must be greater than 0"},
		{"oneof", sample{Name: "A", Quantity: 1, ReturnType: "store"}, "returnType must be one of [customer courier]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Validate(tc.in)
			if tc.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tc.want)
		})
	}
}
