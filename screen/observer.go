package screen

// Observer is called on the dispatch goroutine after each transition has
// been saved.
type Observer interface {
	OnScreenOn()
	OnScreenOff()
	OnScreenLocked()
	OnScreenUnlocked()
}

// ObserverFuncs adapts plain funcs to Observer. Nil funcs are skipped.
type ObserverFuncs struct {
	ScreenOn       func()
	ScreenOff      func()
	ScreenLocked   func()
	ScreenUnlocked func()
}

func (o ObserverFuncs) OnScreenOn()       { call(o.ScreenOn) }
func (o ObserverFuncs) OnScreenOff()      { call(o.ScreenOff) }
func (o ObserverFuncs) OnScreenLocked()   { call(o.ScreenLocked) }
func (o ObserverFuncs) OnScreenUnlocked() { call(o.ScreenUnlocked) }

func call(f func()) {
	if f != nil {
		f()
	}
}

func notify(o Observer, status Status) {
	if o == nil {
		return
	}
	switch status {
	case StatusOn:
		o.OnScreenOn()
	case StatusOff:
		o.OnScreenOff()
	case StatusLocked:
		o.OnScreenLocked()
	case StatusUnlocked:
		o.OnScreenUnlocked()
	}
}
