package heater

// level maps a logical element state to the GPIO line value.
func level(on, activeLow bool) int {
	if on != activeLow {
		return 1
	}
	return 0
}
