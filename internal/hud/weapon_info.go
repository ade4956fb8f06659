// Package hud renders the player's heads-up display as text.
package hud

import (
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Infinite is the ammo amount that renders as "inf".
const Infinite = -1

// WeaponInfo is the weapon panel of the HUD: the active weapon's name, its
// clip, and the reserve for its ammo type. It receives updates from the
// active weapon and the player controller.
// All methods are safe for concurrent use.
type WeaponInfo struct {
	mu      sync.RWMutex
	name    string
	clip    int
	clipMax int
	ammo    int
	logger  *zap.Logger
}

// NewWeaponInfo returns an empty panel.
func NewWeaponInfo(logger *zap.Logger) *WeaponInfo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WeaponInfo{logger: logger}
}

// UpdateWeaponName sets the displayed weapon name.
func (w *WeaponInfo) UpdateWeaponName(name string) {
	w.mu.Lock()
	w.name = name
	w.mu.Unlock()
	w.logger.Debug("hud weapon", zap.String("name", name))
}

// UpdateClipInfo sets the displayed clip content.
func (w *WeaponInfo) UpdateClipInfo(current, max int) {
	w.mu.Lock()
	w.clip, w.clipMax = current, max
	w.mu.Unlock()
	w.logger.Debug("hud clip", zap.Int("current", current), zap.Int("max", max))
}

// UpdateAmmoAmount sets the displayed reserve; Infinite renders as "inf".
func (w *WeaponInfo) UpdateAmmoAmount(count int) {
	w.mu.Lock()
	w.ammo = count
	w.mu.Unlock()
	w.logger.Debug("hud ammo", zap.Int("amount", count))
}

// Snapshot returns the displayed values.
func (w *WeaponInfo) Snapshot() (name string, clip, clipMax, ammo int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.name, w.clip, w.clipMax, w.ammo
}

// String renders the panel, e.g. "Rifle  3/4  [12]".
func (w *WeaponInfo) String() string {
	name, clip, clipMax, ammo := w.Snapshot()
	if name == "" {
		name = "-"
	}
	return fmt.Sprintf("%s  %d/%d  [%s]", name, clip, clipMax, formatAmmo(ammo))
}

func formatAmmo(n int) string {
	if n == Infinite {
		return "inf"
	}
	return strconv.Itoa(n)
}
