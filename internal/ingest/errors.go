package ingest

// ValidationError reports missing required run inputs. It is the only
// error class that aborts a run before producing a result.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Msg
}
