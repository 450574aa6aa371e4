package period

// Window returns length consecutive periods ending at month/year inclusive,
// oldest first. A non-positive length yields an empty window.
func Window(month, year, length int) []Period {
	if length <= 0 {
		return nil
	}
	end := New(month, year)
	start := end.AddMonths(-(length - 1))

	periods := make([]Period, length)
	for i := range periods {
		periods[i] = start.AddMonths(i)
	}
	return periods
}

// BuildWindow returns the default 13-month report window ending at month/year.
func BuildWindow(month, year int) []Period {
	return Window(month, year, DefaultWindow)
}

// Trailing returns every period of the window except the first one. For the
// default window this is the trailing twelve months up to the report month.
func Trailing(periods []Period) []Period {
	if len(periods) <= 1 {
		return nil
	}
	return periods[1:]
}

// Keys returns the period keys of periods in order.
func Keys(periods []Period) []string {
	keys := make([]string, len(periods))
	for i, p := range periods {
		keys[i] = p.Key()
	}
	return keys
}
