package screen

import (
	"encoding/json"
	"time"

	"github.com/trbjo/goscreen/store"
)

// TableName is the table screen records are saved under.
const TableName = "screenData"

// Data is one screen transition.
type Data struct {
	store.Base
	// ScreenStatus is one of 0=off, 1=on, 2=locked, 3=unlocked.
	ScreenStatus Status `json:"screenStatus"`
}

func NewData(now time.Time, status Status, deviceID, label string) *Data {
	return &Data{
		Base:         store.NewBase(now, deviceID, label),
		ScreenStatus: status,
	}
}

func (d *Data) String() string {
	b, err := json.Marshal(d)
	if err != nil {
		return "{}"
	}
	return string(b)
}
