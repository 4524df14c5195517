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
	"testing"
)

// memStore is a keyring stand-in for tests.
type memStore map[string]string

func (m memStore) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (m memStore) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memStore) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

func TestEnvOverridesStorage(t *testing.T) {
	old := SetTokenStore(memStore{})
	t.Cleanup(func() { SetTokenStore(old) })
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvStorageAccountID, "acc123")
	t.Setenv(EnvStorageBucket, "chapters")
	t.Setenv(EnvPublicDomain, "https://img.example.com")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.AccountID != "acc123" || cfg.Storage.Bucket != "chapters" {
		t.Fatalf("storage env overrides not applied: %+v", cfg.Storage)
	}
	if got, want := cfg.Storage.StorageEndpoint(), "acc123.r2.cloudflarestorage.com"; got != want {
		t.Fatalf("StorageEndpoint = %q, want %q", got, want)
	}
}

func TestSecretEnvBeatsKeyring(t *testing.T) {
	ms := memStore{}
	_ = ms.Set(keyringService, keyringTelegraphToken, "from-keyring")
	old := SetTokenStore(ms)
	t.Cleanup(func() { SetTokenStore(old) })
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvTelegraphToken, "from-env")
	_, sec, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if sec.TelegraphToken != "from-env" {
		t.Fatalf("TelegraphToken = %q, want env override", sec.TelegraphToken)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	ms := memStore{}
	old := SetTokenStore(ms)
	t.Cleanup(func() { SetTokenStore(old) })
	t.Setenv("HOME", t.TempDir())

	cfg := Defaults()
	cfg.Storage.AccountID = "acc"
	cfg.Storage.AccessKey = "ak"
	cfg.Storage.Bucket = "b"
	cfg.Storage.PublicDomain = "https://pub.example.com"
	if err := Save(cfg, Secrets{StorageSecretKey: "sk", TelegraphToken: "tok", BotToken: "bot"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, sec, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Storage.AccountID != "acc" || got.Storage.Bucket != "b" {
		t.Fatalf("file config not round-tripped: %+v", got.Storage)
	}
	if sec.StorageSecretKey != "sk" || sec.TelegraphToken != "tok" || sec.BotToken != "bot" {
		t.Fatalf("secrets not round-tripped: %+v", sec)
	}
}

func TestAnnounceDefaultsAndEnvOverride(t *testing.T) {
	old := SetTokenStore(memStore{})
	t.Cleanup(func() { SetTokenStore(old) })
	t.Setenv("HOME", t.TempDir())
	t.Setenv(EnvBotToken, "bot-env")
	t.Setenv(EnvAnnounceURL, "https://bots.example.com")

	cfg, sec, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Announce.BaseURL != "https://bots.example.com" {
		t.Fatalf("announce base url = %q", cfg.Announce.BaseURL)
	}
	if sec.BotToken != "bot-env" {
		t.Fatalf("BotToken = %q, want env override", sec.BotToken)
	}
}

func TestStorageValidate(t *testing.T) {
	s := StorageConfig{AccountID: "acc", AccessKey: "ak", Bucket: "b", PublicDomain: "https://pub"}
	if err := s.Validate("sk"); err != nil {
		t.Fatalf("valid storage config rejected: %v", err)
	}
	if err := s.Validate(""); err == nil {
		t.Fatalf("missing secret key accepted")
	}
	s.Bucket = ""
	if err := s.Validate("sk"); err == nil {
		t.Fatalf("missing bucket accepted")
	}
}
