package casestore

import "testing"

func TestCaseFolder(t *testing.T) {
	key := Key{AccountID: "123456789012", CaseID: "1234567890"}
	want := "account_number=123456789012/case_number=1234567890/"
	if got := CaseFolder(key); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestDataAndAnnotationKeys(t *testing.T) {
	key := Key{AccountID: "111122223333", CaseID: "42"}
	if got := DataKey(key); got != "account_number=111122223333/case_number=42/data.json" {
		t.Errorf("unexpected data key: %q", got)
	}
	if got := AnnotationKey(key); got != "account_number=111122223333/case_number=42/annotation.json" {
		t.Errorf("unexpected annotation key: %q", got)
	}
}

func TestParseCaseFolder_RoundTrip(t *testing.T) {
	key := Key{AccountID: "123456789012", CaseID: "987654"}
	parsed, err := ParseCaseFolder(CaseFolder(key))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed != key {
		t.Errorf("expected %+v, got %+v", key, parsed)
	}
}

func TestParseCaseFolder_Malformed(t *testing.T) {
	bad := []string{
		"",
		"account_number=123/",
		"case_number=456/account_number=123/",
		"foo/bar/",
	}
	for _, folder := range bad {
		if _, err := ParseCaseFolder(folder); err == nil {
			t.Errorf("expected error for folder %q", folder)
		}
	}
}
