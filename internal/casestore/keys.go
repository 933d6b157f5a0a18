package casestore

import (
	"fmt"
	"strings"
)

// Object names within a case folder.
const (
	dataObject       = "data.json"
	annotationObject = "annotation.json"

	accountPrefix = "account_number="
	casePrefix    = "case_number="
)

// AccountPrefix returns the S3 prefix for an account's case folders,
// e.g. "account_number=123456789012/".
func AccountPrefix(accountID string) string {
	return accountPrefix + accountID + "/"
}

// CaseFolder returns the S3 prefix for a single case's objects,
// e.g. "account_number=123456789012/case_number=1234567890/".
func CaseFolder(key Key) string {
	return AccountPrefix(key.AccountID) + casePrefix + key.CaseID + "/"
}

// DataKey returns the S3 object key for a case's data.json.
func DataKey(key Key) string {
	return CaseFolder(key) + dataObject
}

// AnnotationKey returns the S3 object key for a case's annotation.json.
func AnnotationKey(key Key) string {
	return CaseFolder(key) + annotationObject
}

// ParseCaseFolder extracts the Key from a case folder path like
// "account_number=123/case_number=456/".
func ParseCaseFolder(folder string) (Key, error) {
	parts := strings.Split(strings.Trim(folder, "/"), "/")
	if len(parts) < 2 ||
		!strings.HasPrefix(parts[0], accountPrefix) ||
		!strings.HasPrefix(parts[1], casePrefix) {
		return Key{}, fmt.Errorf("malformed case folder path: %q", folder)
	}
	return Key{
		AccountID: strings.TrimPrefix(parts[0], accountPrefix),
		CaseID:    strings.TrimPrefix(parts[1], casePrefix),
	}, nil
}
