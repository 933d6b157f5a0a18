package supportapi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
)

func TestIsNotEntitled(t *testing.T) {
	cases := []struct {
		code string
		want bool
	}{
		{"SubscriptionRequiredException", true},
		{"AccessDeniedException", true},
		{"ThrottlingException", false},
		{"CaseIdNotFound", false},
	}
	for _, tc := range cases {
		err := &smithy.GenericAPIError{Code: tc.code, Message: "test"}
		wrapped := fmt.Errorf("support:DescribeCases: %w", err)
		if got := isNotEntitled(wrapped); got != tc.want {
			t.Errorf("isNotEntitled(%s) = %v, want %v", tc.code, got, tc.want)
		}
	}

	if isNotEntitled(errors.New("plain error")) {
		t.Error("isNotEntitled(plain error) = true, want false")
	}
}

func TestIsAccessDenied(t *testing.T) {
	err := &smithy.GenericAPIError{Code: "AccessDenied", Message: "not authorized"}
	if !isAccessDenied(err) {
		t.Error("isAccessDenied(AccessDenied) = false, want true")
	}
	if isAccessDenied(&smithy.GenericAPIError{Code: "ValidationError"}) {
		t.Error("isAccessDenied(ValidationError) = true, want false")
	}
}
