package postgres

import (
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/catalog"
	"github.com/mindbreaker/mindbreaker/internal/notify"
	"github.com/mindbreaker/mindbreaker/internal/profile"
	"github.com/mindbreaker/mindbreaker/internal/validation"
)

// Ensure PostgreSQL stores implement the storage interfaces.
var (
	_ validation.Store   = (*ContentStore)(nil)
	_ catalog.Store      = (*ContentStore)(nil)
	_ profile.Store      = (*ProfileStore)(nil)
	_ auth.ProfileLookup = (*ProfileStore)(nil)
	_ notify.Store       = (*NotificationStore)(nil)
	_ cache.Broadcaster  = (*Notifier)(nil)
)
