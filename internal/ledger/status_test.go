package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeStatus(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		c    *Credential
		want Status
	}{
		{"nil", nil, StatusNotFound},
		{"no expiry", &Credential{Status: StatusActive}, StatusActive},
		{"future expiry", &Credential{Status: StatusActive, CredentialData: CredentialData{ExpiryDate: "2030-01-01"}}, StatusActive},
		{"expires today", &Credential{Status: StatusActive, CredentialData: CredentialData{ExpiryDate: "2024-06-15"}}, StatusActive},
		{"expired yesterday", &Credential{Status: StatusActive, CredentialData: CredentialData{ExpiryDate: "2024-06-14"}}, StatusExpired},
		{"revoked wins over expired", &Credential{Status: StatusRevoked, CredentialData: CredentialData{ExpiryDate: "2000-01-01"}}, StatusRevoked},
		{"revoked without expiry", &Credential{Status: StatusRevoked}, StatusRevoked},
		{"rfc3339 expiry", &Credential{Status: StatusActive, CredentialData: CredentialData{ExpiryDate: "2024-06-01T00:00:00Z"}}, StatusExpired},
		{"unparseable expiry", &Credential{Status: StatusActive, CredentialData: CredentialData{ExpiryDate: "someday"}}, StatusActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, ComputeStatus(tc.c, now))
		})
	}
}

func TestComputeStatus_UsesCallerLocation(t *testing.T) {
	c := &Credential{Status: StatusActive, CredentialData: CredentialData{ExpiryDate: "2024-06-14"}}

	// 2024-06-15 01:00 UTC es todavía 2024-06-14 en UTC-3
	utc := time.Date(2024, 6, 15, 1, 0, 0, 0, time.UTC)
	require.Equal(t, StatusExpired, ComputeStatus(c, utc))

	local := utc.In(time.FixedZone("UTC-3", -3*3600))
	require.Equal(t, StatusActive, ComputeStatus(c, local))
}

func TestCredentialData_Normalize(t *testing.T) {
	ok := CredentialData{
		InstitutionName: " Uni ",
		StudentName:     "Ana",
		StudentWallet:   "0xDE709F2102306220921060314715629080E2FB77",
		CourseName:      "Go",
		IssueDate:       "2024-01-01",
		ExpiryDate:      "2025-01-01",
	}
	got, err := ok.Normalize()
	require.NoError(t, err)
	require.Equal(t, "Uni", got.InstitutionName)
	require.Equal(t, "0xde709f2102306220921060314715629080e2fb77", got.StudentWallet)

	bad := []struct {
		field string
		mut   func(*CredentialData)
	}{
		{"institutionName", func(d *CredentialData) { d.InstitutionName = "  " }},
		{"studentName", func(d *CredentialData) { d.StudentName = "" }},
		{"studentWallet", func(d *CredentialData) { d.StudentWallet = "0x123" }},
		{"courseName", func(d *CredentialData) { d.CourseName = "" }},
		{"issueDate", func(d *CredentialData) { d.IssueDate = "01/02/2024" }},
		{"expiryDate", func(d *CredentialData) { d.ExpiryDate = "2023-12-31" }},
		{"expiryDate", func(d *CredentialData) { d.ExpiryDate = "tomorrow" }},
	}
	for _, tc := range bad {
		d := ok
		tc.mut(&d)
		_, err := d.Normalize()
		require.ErrorIs(t, err, ErrInvalidCredential)
		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		require.Equal(t, tc.field, fe.Field)
	}
}
