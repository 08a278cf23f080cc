// Package credentials contiene DTOs de credenciales y del ledger.
package credentials

import "github.com/dropDatabas3/skillspassport/internal/ledger"

// MintRequest: mismos nombres de campo que el formulario del issuer.
type MintRequest struct {
	InstitutionName string `json:"institutionName"`
	StudentName     string `json:"studentName"`
	StudentWallet   string `json:"studentWallet"`
	CourseName      string `json:"courseName"`
	IssueDate       string `json:"issueDate"`
	ExpiryDate      string `json:"expiryDate,omitempty"`
}

func (m MintRequest) Data() ledger.CredentialData {
	return ledger.CredentialData{
		InstitutionName: m.InstitutionName,
		StudentName:     m.StudentName,
		StudentWallet:   m.StudentWallet,
		CourseName:      m.CourseName,
		IssueDate:       m.IssueDate,
		ExpiryDate:      m.ExpiryDate,
	}
}

type RevokeRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CredentialResponse acompaña la credencial con su estado efectivo.
type CredentialResponse struct {
	Status     ledger.Status      `json:"status"`
	Credential *ledger.Credential `json:"credential,omitempty"`
}

type RevokeResponse struct {
	Status     ledger.Status     `json:"status"`
	Credential ledger.Credential `json:"credential"`
}

type ListResponse struct {
	Wallet      string               `json:"wallet"`
	Credentials []CredentialResponse `json:"credentials"`
}

type LedgerResponse struct {
	Head    string         `json:"head"`
	HashAlg string         `json:"hashAlg"`
	Entries []ledger.Entry `json:"entries"`
}
