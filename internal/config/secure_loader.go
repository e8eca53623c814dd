package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	apperrors "mlprep/pkg/errors"
	"mlprep/pkg/models"
)

// KeyringService is the OS keyring service secrets are stored under.
const KeyringService = "mlprep"

// Keyring stores secrets outside the configuration file.
type Keyring interface {
	Get(service, user string) (string, error)
	Set(service, user, secret string) error
}

type systemKeyring struct{}

func (systemKeyring) Get(service, user string) (string, error) { return keyring.Get(service, user) }
func (systemKeyring) Set(service, user, secret string) error  { return keyring.Set(service, user, secret) }

// SystemKeyring is the OS keyring.
var SystemKeyring Keyring = systemKeyring{}

// KeyringUser is the keyring account holding the Snowflake password.
func KeyringUser(sf models.Snowflake) string {
	return sf.Account + "/" + sf.Username
}

// LoadSecure loads the configuration, validates it and resolves its
// secrets.
func LoadSecure(v *viper.Viper, kr Keyring) (*models.Config, error) {
	cfg, err := Load(v)
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if err := ResolveSecrets(cfg, kr); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveSecrets decrypts ENC[...] values and reads an empty Snowflake
// password from the keyring. A password absent from the keyring stays empty
// and is reported when the connection is validated.
func ResolveSecrets(cfg *models.Config, kr Keyring) error {
	sf := &cfg.Warehouse.Snowflake

	password, err := DecryptPassword(sf.Password)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSecretResolution, "Failed to decrypt Snowflake password").
			WithContext("field", "warehouse.snowflake.password").
			WithSuggestions("Check that " + EncryptionKeyEnv + " matches the key used to encrypt it")
	}
	sf.Password = password

	dsn, err := DecryptPassword(cfg.Warehouse.Postgres.DSN)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSecretResolution, "Failed to decrypt PostgreSQL DSN").
			WithContext("field", "warehouse.postgres.dsn")
	}
	cfg.Warehouse.Postgres.DSN = dsn

	if sf.Password != "" || kr == nil || !strings.EqualFold(cfg.Warehouse.Backend, "snowflake") ||
		sf.Account == "" || sf.Username == "" {
		return nil
	}

	secret, err := kr.Get(KeyringService, KeyringUser(*sf))
	switch {
	case err == nil:
		sf.Password = secret
	case errors.Is(err, keyring.ErrNotFound):
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeSecretResolution, "Failed to read password from keyring").
			WithContext("user", KeyringUser(*sf))
	}
	return nil
}

// StorePassword saves the Snowflake password in the keyring.
func StorePassword(kr Keyring, sf models.Snowflake, password string) error {
	if err := kr.Set(KeyringService, KeyringUser(sf), password); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeSecretResolution, "Failed to store password in keyring").
			WithSuggestions("Store an encrypted password in the configuration instead")
	}
	return nil
}
