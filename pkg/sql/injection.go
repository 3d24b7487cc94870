package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a question that libinjection fingerprints as SQL injection.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	Input       string // The text that was checked
}

// CheckQuestionForInjection runs libinjection over free-text user input.
//
// The question never reaches the database directly (the model writes the SQL), so a
// positive result is a signal for the security audit log rather than a reason to reject.
//
// Returns nil if no injection pattern is detected.
//
// Example:
//
//	result := CheckQuestionForInjection("What is my team's average points?")
//	// result == nil
//
//	result = CheckQuestionForInjection("1' OR '1'='1")
//	// result.IsSQLi == true
func CheckQuestionForInjection(question string) *InjectionCheckResult {
	if question == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(question)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		Input:       question,
	}
}
