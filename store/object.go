// Package store persists sensor records locally and uploads them to a sync
// host.
package store

import "time"

// JSONVersion of the record header format.
const JSONVersion = 1

// Base is the header every stored record carries.
type Base struct {
	Timestamp   int64  `json:"timestamp"`
	DeviceID    string `json:"deviceId"`
	Label       string `json:"label"`
	Timezone    int    `json:"timezone"`
	OS          string `json:"os"`
	JSONVersion int    `json:"jsonVersion"`
}

// Meta lets any struct embedding Base satisfy Object.
func (b *Base) Meta() *Base { return b }

// Object is a record that can be handed to an Engine.
type Object interface {
	Meta() *Base
}

// NewBase stamps a header at now.
func NewBase(now time.Time, deviceID, label string) Base {
	_, offset := now.Zone()
	return Base{
		Timestamp:   now.UnixMilli(),
		DeviceID:    deviceID,
		Label:       label,
		Timezone:    offset / 3600,
		OS:          osName,
		JSONVersion: JSONVersion,
	}
}
