package event

// Diagnostics receives event-emission counts from a store. A nil
// Diagnostics (the zero value of Bus.diag) simply means nobody is
// listening; callers check for nil before invoking it, so the
// no-op/adapter split lives entirely in the owning package (weave/diag.go).
type Diagnostics interface {
	EventEmit(name string, count int)
}
