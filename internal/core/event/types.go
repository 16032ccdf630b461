package event

// ResourcesLoaded is emitted once every announced resource has completed.
type ResourcesLoaded struct {
	Count int64
	Time  float64
}

// EffectStarted is emitted after an effect finished its init hooks.
type EffectStarted struct {
	Name string
	Time float64
}

// DemoFinished is emitted when demo time reaches the configured end.
type DemoFinished struct {
	Time float64
}
