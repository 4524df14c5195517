/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
// Secrets (object-storage secret key, Telegraph access token) never live in
// this file; they are kept in the OS keychain.

// StorageConfig describes the S3-compatible bucket uploads go to.
type StorageConfig struct {
	AccountID    string `yaml:"account_id"` // Cloudflare R2 account id; endpoint is derived
	Endpoint     string `yaml:"endpoint"`   // optional explicit endpoint, overrides account_id derivation
	AccessKey    string `yaml:"access_key"`
	Bucket       string `yaml:"bucket"`
	PublicDomain string `yaml:"public_domain"` // public base URL the uploaded objects are served from
	Insecure     bool   `yaml:"insecure"`
}

// TelegraphConfig describes the page-hosting API.
type TelegraphConfig struct {
	BaseURL    string `yaml:"base_url"`
	ShortName  string `yaml:"short_name"`  // used when auto-creating an account
	AuthorName string `yaml:"author_name"` // shown on created pages
}

// BackendConfig is the optional shared publish-history mirror.
type BackendConfig struct {
	Enable bool   `yaml:"enable"`
	DSN    string `yaml:"dsn"` // Postgres DSN
}

// AnnounceConfig describes the channel-announcement bot. The bot token is a
// secret and lives in the keychain, not here.
type AnnounceConfig struct {
	BaseURL  string `yaml:"base_url"`
	Template string `yaml:"template"` // default message template, may be empty
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Storage       StorageConfig   `yaml:"storage"`
	Telegraph     TelegraphConfig `yaml:"telegraph"`
	Backend       BackendConfig   `yaml:"backend"`
	Announce      AnnounceConfig  `yaml:"announce"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Secrets are loaded from the OS keychain (or env overrides), never from the
// YAML file.
type Secrets struct {
	StorageSecretKey string
	TelegraphToken   string
	BotToken         string
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Storage:       StorageConfig{Insecure: false},
		Telegraph:     TelegraphConfig{BaseURL: "https://api.telegra.ph", ShortName: "chapterpress", AuthorName: "chapterpress"},
		Backend:       BackendConfig{Enable: false},
		Announce:      AnnounceConfig{BaseURL: "https://api.telegram.org"},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvStorageAccountID = "CHP_STORAGE_ACCOUNT_ID"
	EnvStorageEndpoint  = "CHP_STORAGE_ENDPOINT"
	EnvStorageAccessKey = "CHP_STORAGE_ACCESS_KEY"
	EnvStorageSecretKey = "CHP_STORAGE_SECRET_KEY"
	EnvStorageBucket    = "CHP_STORAGE_BUCKET"
	EnvPublicDomain     = "CHP_PUBLIC_DOMAIN"
	EnvTelegraphURL     = "CHP_TELEGRAPH_URL"
	EnvTelegraphToken   = "CHP_TELEGRAPH_TOKEN"
	EnvBackendEnable    = "CHP_BACKEND_ENABLE"
	EnvBackendDSN       = "CHP_BACKEND_DSN"
	EnvAnnounceURL      = "CHP_ANNOUNCE_URL"
	EnvBotToken         = "CHP_BOT_TOKEN"
)

// Service/keys for the OS keyring.
const (
	keyringService        = "Chapterpress"
	keyringStorageSecret  = "storage_secret_key"
	keyringTelegraphToken = "telegraph_token"
	keyringBotToken       = "bot_token"
)

// TokenStore abstracts the keyring so tests can stub it.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// SetTokenStore swaps the keyring implementation; it returns the previous
// store so tests can restore it.
func SetTokenStore(s TokenStore) TokenStore {
	old := tokenStore
	tokenStore = s
	return old
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Chapterpress")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Chapterpress")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "chapterpress")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DataDir returns the directory holding the embedded database and drafts,
// beside the config file.
func DataDir() (string, error) {
	p, err := ConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(p), nil
}

// Load reads the user config file (if present), applies defaults, merges
// environment overrides, and pulls secrets from the keychain (env wins).
func Load() (AppConfig, Secrets, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, Secrets{}, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)

	var sec Secrets
	sec.StorageSecretKey, _ = tokenStore.Get(keyringService, keyringStorageSecret)
	sec.TelegraphToken, _ = tokenStore.Get(keyringService, keyringTelegraphToken)
	sec.BotToken, _ = tokenStore.Get(keyringService, keyringBotToken)
	if v := strings.TrimSpace(os.Getenv(EnvStorageSecretKey)); v != "" {
		sec.StorageSecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegraphToken)); v != "" {
		sec.TelegraphToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBotToken)); v != "" {
		sec.BotToken = v
	}
	return cfg, sec, nil
}

// Save writes the user config YAML and persists non-empty secrets into the
// OS keychain.
func Save(cfg AppConfig, sec Secrets) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if sec.StorageSecretKey != "" {
		if err := tokenStore.Set(keyringService, keyringStorageSecret, sec.StorageSecretKey); err != nil {
			return fmt.Errorf("store storage secret: %w", err)
		}
	}
	if sec.TelegraphToken != "" {
		if err := tokenStore.Set(keyringService, keyringTelegraphToken, sec.TelegraphToken); err != nil {
			return fmt.Errorf("store telegraph token: %w", err)
		}
	}
	if sec.BotToken != "" {
		if err := tokenStore.Set(keyringService, keyringBotToken, sec.BotToken); err != nil {
			return fmt.Errorf("store bot token: %w", err)
		}
	}
	return nil
}

// SaveTelegraphToken persists just the Telegraph token; used after the client
// auto-creates an account so the credential survives restarts.
func SaveTelegraphToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return tokenStore.Set(keyringService, keyringTelegraphToken, token)
}

// StorageEndpoint resolves the effective endpoint: explicit endpoint wins,
// otherwise the R2 endpoint is derived from the account id.
func (s StorageConfig) StorageEndpoint() string {
	if strings.TrimSpace(s.Endpoint) != "" {
		return s.Endpoint
	}
	if strings.TrimSpace(s.AccountID) != "" {
		return fmt.Sprintf("%s.r2.cloudflarestorage.com", s.AccountID)
	}
	return ""
}

// Validate reports whether enough storage configuration is present to upload.
func (s StorageConfig) Validate(secretKey string) error {
	if s.StorageEndpoint() == "" {
		return errors.New("storage endpoint not configured (set storage.account_id or storage.endpoint)")
	}
	if s.AccessKey == "" || secretKey == "" {
		return errors.New("storage credentials not configured")
	}
	if s.Bucket == "" {
		return errors.New("storage bucket not configured")
	}
	if s.PublicDomain == "" {
		return errors.New("storage public_domain not configured")
	}
	return nil
}

func mergeInto(dst, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Storage.AccountID != "" {
		dst.Storage.AccountID = src.Storage.AccountID
	}
	if src.Storage.Endpoint != "" {
		dst.Storage.Endpoint = src.Storage.Endpoint
	}
	if src.Storage.AccessKey != "" {
		dst.Storage.AccessKey = src.Storage.AccessKey
	}
	if src.Storage.Bucket != "" {
		dst.Storage.Bucket = src.Storage.Bucket
	}
	if src.Storage.PublicDomain != "" {
		dst.Storage.PublicDomain = src.Storage.PublicDomain
	}
	dst.Storage.Insecure = src.Storage.Insecure
	if src.Telegraph.BaseURL != "" {
		dst.Telegraph.BaseURL = src.Telegraph.BaseURL
	}
	if src.Telegraph.ShortName != "" {
		dst.Telegraph.ShortName = src.Telegraph.ShortName
	}
	if src.Telegraph.AuthorName != "" {
		dst.Telegraph.AuthorName = src.Telegraph.AuthorName
	}
	dst.Backend.Enable = src.Backend.Enable
	if src.Backend.DSN != "" {
		dst.Backend.DSN = src.Backend.DSN
	}
	if src.Announce.BaseURL != "" {
		dst.Announce.BaseURL = src.Announce.BaseURL
	}
	if src.Announce.Template != "" {
		dst.Announce.Template = src.Announce.Template
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageAccountID)); v != "" {
		cfg.Storage.AccountID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageEndpoint)); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageAccessKey)); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageBucket)); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPublicDomain)); v != "" {
		cfg.Storage.PublicDomain = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelegraphURL)); v != "" {
		cfg.Telegraph.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendEnable)); v != "" {
		lv := strings.ToLower(v)
		cfg.Backend.Enable = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAnnounceURL)); v != "" {
		cfg.Announce.BaseURL = v
	}
	// logging overrides (shared with internal/log FromEnv)
	if v := strings.TrimSpace(os.Getenv("CHP_LOG_LEVEL")); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("CHP_LOG_FORMAT")); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("CHP_LOG_SOURCE")); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv("CHP_LOG_FILE")); v != "" {
		cfg.Logging.File = v
	}
}
