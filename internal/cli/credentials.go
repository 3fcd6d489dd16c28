package cli

import (
	"fmt"
	"os"

	"rtool/pkg/config"
)

// secretsPasswordEnv unlocks the secrets store without a prompt.
const secretsPasswordEnv = "RTOOL_SECRETS_PASSWORD"

// credential describes where a value may come from, in lookup order:
// the flag, an environment variable, the secrets store, then a prompt.
type credential struct {
	flag   string
	env    string
	secret string
	label  string
	hidden bool
}

func (a *App) resolve(c credential) (string, error) {
	if c.flag != "" {
		return c.flag, nil
	}
	if c.env != "" {
		if v := os.Getenv(c.env); v != "" {
			return v, nil
		}
	}
	if c.secret != "" {
		v, err := a.secret(c.secret)
		if err != nil {
			return "", err
		}
		if v != "" {
			return v, nil
		}
	}
	if c.hidden {
		return a.prompter.Password(c.label)
	}
	return a.prompter.Input(c.label)
}

// secret reads name from the secrets store, unlocking it on first use.
// A missing store yields an empty value.
func (a *App) secret(name string) (string, error) {
	if !a.secrets.Exists() {
		return "", nil
	}
	if err := a.unlockSecrets(); err != nil {
		return "", err
	}
	return a.secrets.Get(name), nil
}

func (a *App) unlockSecrets() error {
	if a.unlocked {
		return nil
	}
	password, err := a.secretsPassword()
	if err != nil {
		return err
	}
	if err := a.secrets.Unlock(password); err != nil {
		return fmt.Errorf("unlock %s: %w", a.secrets.Path(), err)
	}
	a.unlocked = true
	a.secretsPass = password
	a.logger.Debug("Unlocked secrets store %s", a.secrets.Path())
	return nil
}

func (a *App) secretsPassword() (string, error) {
	if v := os.Getenv(secretsPasswordEnv); v != "" {
		return v, nil
	}
	return a.prompter.Password("Secrets password")
}

func indexCredentialSources(username, password string) []credential {
	return []credential{
		{flag: username, env: config.SecretPyPIUsername, secret: config.SecretPyPIUsername, label: "PyPI Username"},
		{flag: password, env: config.SecretPyPIPassword, secret: config.SecretPyPIPassword, label: "PyPI Password", hidden: true},
	}
}
