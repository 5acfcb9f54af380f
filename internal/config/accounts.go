package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// UserID is a chat user identifier. The accounts file may hold it as a
// number or as a quoted string.
type UserID int64

func (u *UserID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user_id %s", b)
	}
	*u = UserID(v)
	return nil
}

// Account links a chat user to the ledger they write to.
type Account struct {
	UserID   UserID `json:"user_id"`
	Name     string `json:"name,omitempty"`
	SheetURL string `json:"sheet_url"`
}

// AccountsFile is the on-disk layout of the accounts file.
type AccountsFile struct {
	AccessToken string    `json:"access_token,omitempty"`
	Users       []Account `json:"users"`
}

func ReadAccountsFile(path string) (*AccountsFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}
	var f AccountsFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse accounts file %s: %w", path, err)
	}
	return &f, nil
}
