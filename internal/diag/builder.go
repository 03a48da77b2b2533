package diag

func New(code string, start, end Location, msg string) Diagnostic {
	return Diagnostic{
		Code:        code,
		Message:     msg,
		Location:    start,
		EndLocation: end,
	}
}

// At builds a location; row is 1-based, column 0-based.
func At(row, column int) Location {
	return Location{Row: row, Column: column}
}

// WithFix attaches a replacement of [start, end) with content.
func (d Diagnostic) WithFix(content string, start, end Location) Diagnostic {
	d.Fix = &Fix{Content: content, Location: start, EndLocation: end}
	return d
}

// WithFixMessage sets the human label of an attached fix. No-op without a fix.
func (d Diagnostic) WithFixMessage(msg string) Diagnostic {
	if d.Fix == nil {
		return d
	}
	fix := *d.Fix
	fix.Message = msg
	d.Fix = &fix
	return d
}
