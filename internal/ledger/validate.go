package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/skillspassport/internal/wallet"
)

// FieldError describe el primer campo inválido. errors.Is(err, ErrInvalidCredential) es true.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidCredential.Error(), e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidCredential }

// Normalize recorta espacios, pasa la wallet a minúsculas y valida.
func (d CredentialData) Normalize() (CredentialData, error) {
	d.InstitutionName = strings.TrimSpace(d.InstitutionName)
	d.StudentName = strings.TrimSpace(d.StudentName)
	d.StudentWallet = strings.TrimSpace(d.StudentWallet)
	d.CourseName = strings.TrimSpace(d.CourseName)
	d.IssueDate = strings.TrimSpace(d.IssueDate)
	d.ExpiryDate = strings.TrimSpace(d.ExpiryDate)

	required := []struct{ name, value string }{
		{"institutionName", d.InstitutionName},
		{"studentName", d.StudentName},
		{"studentWallet", d.StudentWallet},
		{"courseName", d.CourseName},
		{"issueDate", d.IssueDate},
	}
	for _, f := range required {
		if f.value == "" {
			return d, &FieldError{Field: f.name, Reason: "is required"}
		}
	}

	w, err := wallet.Normalize(d.StudentWallet)
	if err != nil {
		return d, &FieldError{Field: "studentWallet", Reason: "is not a valid address"}
	}
	d.StudentWallet = w

	issued, err := time.Parse(dateLayout, d.IssueDate)
	if err != nil {
		return d, &FieldError{Field: "issueDate", Reason: "must be YYYY-MM-DD"}
	}
	if d.ExpiryDate != "" {
		exp, err := time.Parse(dateLayout, d.ExpiryDate)
		if err != nil {
			return d, &FieldError{Field: "expiryDate", Reason: "must be YYYY-MM-DD"}
		}
		if exp.Before(issued) {
			return d, &FieldError{Field: "expiryDate", Reason: "is before issueDate"}
		}
	}
	return d, nil
}
