package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"jobsentry-engine/internal/config"
)

const (
	// Service groups the app's secrets in the OS keychain.
	KeyringService = "jobsentry"
)

var ErrNoIMAPPassword = errors.New("IMAP app password not found in keychain")

func GetIMAPPassword(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) == "" {
		return "", errors.New("keyring account name is empty")
	}
	pw, err := keyring.Get(KeyringService, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(pw) == "") {
		return "", ErrNoIMAPPassword
	}
	if err != nil {
		return "", fmt.Errorf("read keychain: %w", err)
	}
	return pw, nil
}

// SetIMAPPassword stores the app password with whitespace removed, the way
// providers display it in groups of four.
func SetIMAPPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	password = strings.Join(strings.Fields(password), "")
	if password == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteIMAPPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, keyringAccount)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func IMAPKeyringAccount(cfg config.Config) string {
	return fmt.Sprintf(
		"jobsentry:imap:%s@%s",
		strings.ToLower(strings.TrimSpace(cfg.Email.Username)),
		cfg.Email.IMAPHost,
	)
}
