package store

import (
	"context"
	"fmt"

	"github.com/nerrad567/garagedoor/internal/garage"
)

// SeedAccount writes the configured account into kv when kv has none yet.
// Stored credentials always win over configuration, so credentials
// changed at runtime survive a restart. It reports whether anything was
// written.
func SeedAccount(ctx context.Context, kv garage.Store, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	_, haveUser, err := kv.GetString(ctx, garage.KeyAccountName)
	if err != nil {
		return false, fmt.Errorf("checking stored account: %w", err)
	}
	_, havePass, err := kv.GetString(ctx, garage.KeyAccountSecret)
	if err != nil {
		return false, fmt.Errorf("checking stored secret: %w", err)
	}
	if haveUser || havePass {
		return false, nil
	}

	if err := kv.SetString(ctx, garage.KeyAccountName, username); err != nil {
		return false, fmt.Errorf("seeding account name: %w", err)
	}
	if err := kv.SetString(ctx, garage.KeyAccountSecret, password); err != nil {
		return false, fmt.Errorf("seeding account secret: %w", err)
	}
	return true, nil
}
