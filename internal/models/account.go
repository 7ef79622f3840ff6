package models

import (
	"fmt"
	"time"
)

// AccountDocument is the JSON blob stored per user in the user bucket.
type AccountDocument struct {
	HashedPassword  string   `json:"hashed_password"`
	AccountCreation string   `json:"account_creation"`
	WikisUploaded   []string `json:"wikis_uploaded"`
	WikiHistory     []string `json:"wiki_history"`
	PfpFilename     *string  `json:"pfp_filename"`
	AboutMe         string   `json:"about_me"`
}

// NewAccountDocument returns an empty profile created on the given day.
func NewAccountDocument(hashedPassword string, created time.Time) *AccountDocument {
	return &AccountDocument{
		HashedPassword:  hashedPassword,
		AccountCreation: created.Format(DateLayout),
		WikisUploaded:   []string{},
		WikiHistory:     []string{},
	}
}

func (a *AccountDocument) Normalize() {
	if a.WikisUploaded == nil {
		a.WikisUploaded = []string{}
	}
	if a.WikiHistory == nil {
		a.WikiHistory = []string{}
	}
}

func (a *AccountDocument) Validate() error {
	if a.HashedPassword == "" {
		return fmt.Errorf("%w: hashed_password missing", ErrInvalidDocument)
	}
	if _, err := time.Parse(DateLayout, a.AccountCreation); err != nil {
		return fmt.Errorf("%w: account_creation %q", ErrInvalidDocument, a.AccountCreation)
	}
	return nil
}

// Profile is the account view shown to other users: no credential.
type Profile struct {
	Username        string   `json:"username"`
	AccountCreation string   `json:"account_creation"`
	WikisUploaded   []string `json:"wikis_uploaded"`
	WikiHistory     []string `json:"wiki_history"`
	PfpFilename     *string  `json:"pfp_filename"`
	AboutMe         string   `json:"about_me"`
}

func (a *AccountDocument) Public(username string) *Profile {
	return &Profile{
		Username:        username,
		AccountCreation: a.AccountCreation,
		WikisUploaded:   append([]string{}, a.WikisUploaded...),
		WikiHistory:     append([]string{}, a.WikiHistory...),
		PfpFilename:     a.PfpFilename,
		AboutMe:         a.AboutMe,
	}
}
