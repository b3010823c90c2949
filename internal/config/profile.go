package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// DefaultProfile is the profile file read from the working directory
const DefaultProfile = "baniusync.ini"

const profileSection = "baniu"

// LoadProfile fills credentials and the default directory from an INI
// profile. A missing file is not an error.
func LoadProfile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	section := file.Section(profileSection)
	if v := section.Key("apikey").String(); v != "" {
		cfg.Credentials.APIKey = v
	}
	if v := section.Key("apisecret").String(); v != "" {
		cfg.Credentials.APISecret = v
	}
	bucket := section.Key("bucket_name").String()
	if bucket == "" {
		bucket = section.Key("bucket").String()
	}
	if bucket != "" {
		cfg.Credentials.BucketName = bucket
	}
	if v := section.Key("dir").String(); v != "" {
		cfg.Upload.Dir = v
	}

	return nil
}

// SaveProfile writes credentials and the default directory to the profile.
// Empty credential fields keep whatever the file already holds.
func SaveProfile(cfg *Config, path string) error {
	if path == "" {
		return fmt.Errorf("profile path %w", ErrMissingField)
	}

	file := ini.Empty()
	if _, err := os.Stat(path); err == nil {
		loaded, err := ini.Load(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		file = loaded
	}

	section := file.Section(profileSection)
	fields := []struct {
		key   string
		value string
	}{
		{"apikey", cfg.Credentials.APIKey},
		{"apisecret", cfg.Credentials.APISecret},
		{"bucket_name", cfg.Credentials.BucketName},
	}
	for _, field := range fields {
		if field.value != "" {
			section.Key(field.key).SetValue(field.value)
		}
	}
	section.Key("dir").SetValue(cfg.Upload.Dir)

	if err := file.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
