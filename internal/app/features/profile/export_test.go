package profile

import "github.com/siberialife/siberialife/internal/app/system/lock"

// SetLockOptions shortens the avatar lock wait in tests.
func (s *Service) SetLockOptions(o lock.Options) { s.lockOpts = o }
