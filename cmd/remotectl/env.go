package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/FernandoVinha/TheManager/internal/remote"
)

const envFilename = ".env"

// loadRemoteConfig reads the dotenv file at path when present. Process
// environment variables take precedence over the file.
func loadRemoteConfig(path string) (remote.Config, error) {
	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) && !isNotExist(err) {
				return remote.Config{}, fmt.Errorf("read %s: %w", path, err)
			}
		}
	}

	base := strings.TrimSpace(v.GetString("root_url"))
	if base == "" {
		base = strings.TrimSpace(v.GetString("gitea_base_url"))
	}
	if base == "" {
		return remote.Config{}, errors.New("set ROOT_URL or GITEA_BASE_URL in .env or the environment")
	}

	token := strings.TrimSpace(v.GetString("gitea_admin_token"))
	if token == "" {
		return remote.Config{}, errors.New("set GITEA_ADMIN_TOKEN in .env or the environment")
	}

	timeout := 25 * time.Second
	if raw := strings.TrimSpace(v.GetString("gitea_timeout")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return remote.Config{}, fmt.Errorf("invalid GITEA_TIMEOUT %q: %w", raw, err)
		}
		timeout = parsed
	}

	return remote.Config{
		BaseURL: strings.TrimRight(base, "/"),
		Token:   token,
		Timeout: timeout,
	}, nil
}

func isNotExist(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return true
	}
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}
