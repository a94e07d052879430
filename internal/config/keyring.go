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
	"sync"

	"github.com/zalando/go-keyring"
)

// Service/keys for the OS keychain.
const (
	keyringService = "FaceplateBuilder"
	keyringToken   = "backend_token"
)

// ErrNoToken is returned when no backend token is stored.
var ErrNoToken = errors.New("no backend token stored")

// TokenStore abstracts the keychain so tests can swap it out.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the keychain backend and returns the previous one.
func SetTokenStore(s TokenStore) TokenStore {
	old := tokenStore
	tokenStore = s
	return old
}

// Token returns the stored backend token.
func Token() (string, error) { return tokenStore.Get(keyringService, keyringToken) }

// ClearToken removes the stored backend token.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, ErrNoToken) {
		return nil
	}
	return err
}

// osKeyring uses the platform keychain via go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) {
	v, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	return v, err
}

func (osKeyring) Set(service, key, value string) error { return keyring.Set(service, key, value) }

func (osKeyring) Delete(service, key string) error {
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoToken
	}
	return err
}

// MemoryStore is an in-process TokenStore for tests and headless servers.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]string
}

func (s *MemoryStore) Get(service, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", ErrNoToken
	}
	return v, nil
}

func (s *MemoryStore) Set(service, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.m == nil {
		s.m = map[string]string{}
	}
	s.m[service+"/"+key] = value
	return nil
}

func (s *MemoryStore) Delete(service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[service+"/"+key]; !ok {
		return ErrNoToken
	}
	delete(s.m, service+"/"+key)
	return nil
}
